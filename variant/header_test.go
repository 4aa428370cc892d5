package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderAddAndLookup(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.AddInfo(FieldMeta{ID: "DP", Type: TypeInteger, Number: Number{Fixed: 1}}))
	require.NoError(t, h.AddInfo(FieldMeta{ID: "AF", Type: TypeFloat, Number: Number{PerAlt: true}}))
	require.NoError(t, h.AddFilter(FieldMeta{ID: "PASS"}))
	require.NoError(t, h.PushContig(ContigMeta{ID: "chr1", Length: 1000}))

	idx, ok := h.InfoIndex("AF")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = h.ContigIndex("chr1")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = h.InfoIndex("nonexistent")
	assert.False(t, ok)
}

func TestHeaderDuplicateRejected(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.AddInfo(FieldMeta{ID: "DP"}))
	err := h.AddInfo(FieldMeta{ID: "DP"})
	assert.Error(t, err)
}

func TestHeaderInvalidatedAfterUse(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.AddInfo(FieldMeta{ID: "DP"}))
	h.MarkInUse()
	require.NoError(t, h.AddInfo(FieldMeta{ID: "AF"}))
	err := h.AddInfo(FieldMeta{ID: "AC"})
	assert.Error(t, err)
}

func TestHeaderAddMissing(t *testing.T) {
	h := NewHeader()
	i1, err := h.AddMissing(DictInfo, "XYZ")
	require.NoError(t, err)
	i2, err := h.AddMissing(DictInfo, "XYZ")
	require.NoError(t, err)
	assert.Equal(t, i1, i2)

	meta := h.Infos[i1]
	assert.Equal(t, TypeString, meta.Type)
	assert.True(t, meta.Number.Variable)
}

func TestHeaderIDXPreserved(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.AddInfo(FieldMeta{ID: "DP", IDX: 7, HasIDX: true}))
	assert.Equal(t, 7, h.Infos[0].IDX)
	assert.True(t, h.Infos[0].HasIDX)
}
