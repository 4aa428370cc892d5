package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueMissingSentinels(t *testing.T) {
	assert.True(t, Default(KindInt8).IsMissing())
	assert.True(t, Default(KindInt16).IsMissing())
	assert.True(t, Default(KindInt32).IsMissing())
	assert.True(t, Default(KindFloat32).IsMissing())
	assert.True(t, Default(KindString).IsMissing())
	assert.True(t, Default(KindChar).IsMissing())

	assert.False(t, Int32(3).IsMissing())
	assert.False(t, Int32(3).IsEndOfVector())
}

func TestValueEndOfVector(t *testing.T) {
	v := Int8(EOVInt8)
	assert.True(t, v.IsEndOfVector())
	assert.False(t, v.IsMissing())
}

func TestKindCompatible(t *testing.T) {
	assert.True(t, KindCompatible(KindInt8, KindInt32))
	assert.True(t, KindCompatible(KindInt8Vector, KindInt32Vector))
	assert.False(t, KindCompatible(KindInt8, KindFloat32))
	assert.False(t, KindCompatible(KindInt8, KindInt8Vector))
}

func TestValueVisit(t *testing.T) {
	var got int32
	Int32(42).Visit(Visitor{Int32: func(v int32) { got = v }})
	assert.EqualValues(t, 42, got)

	var gotVec []int32
	Int32Vector([]int32{1, 2, 3}).Visit(Visitor{Int32Vector: func(v []int32) { gotVec = v }})
	assert.Equal(t, []int32{1, 2, 3}, gotVec)

	// A visitor with no matching callback must not panic.
	String("x").Visit(Visitor{})
}

func TestValueIsEmpty(t *testing.T) {
	assert.True(t, Int32Vector(nil).IsEmpty())
	assert.False(t, Int32Vector([]int32{1}).IsEmpty())
	assert.False(t, Int32(0).IsEmpty())
}
