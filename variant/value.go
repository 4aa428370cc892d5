// Package variant implements the dynamic INFO/FORMAT value model and the
// VCF/BCF header representation shared by the vcf and bcf packages.
package variant

import "math"

// Kind tags the variant held by a Value.
type Kind int

const (
	// KindFlag is a zero-width boolean marker (INFO keys with no value).
	KindFlag Kind = iota
	KindChar
	KindInt8
	KindInt16
	KindInt32
	KindFloat32
	KindString
	KindInt8Vector
	KindInt16Vector
	KindInt32Vector
	KindFloat32Vector
	KindStringVector
)

func (k Kind) String() string {
	switch k {
	case KindFlag:
		return "Flag"
	case KindChar:
		return "Character"
	case KindInt8, KindInt16, KindInt32:
		return "Integer"
	case KindFloat32:
		return "Float"
	case KindString:
		return "String"
	case KindInt8Vector, KindInt16Vector, KindInt32Vector:
		return "IntegerVector"
	case KindFloat32Vector:
		return "FloatVector"
	case KindStringVector:
		return "StringVector"
	default:
		return "Unknown"
	}
}

// IsVector reports whether k is one of the vector variants.
func (k Kind) IsVector() bool {
	switch k {
	case KindInt8Vector, KindInt16Vector, KindInt32Vector, KindFloat32Vector, KindStringVector:
		return true
	default:
		return false
	}
}

// IsInt reports whether k is one of the scalar integer variants.
func (k Kind) IsInt() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32:
		return true
	default:
		return false
	}
}

// IsIntVector reports whether k is one of the vector integer variants.
func (k Kind) IsIntVector() bool {
	switch k {
	case KindInt8Vector, KindInt16Vector, KindInt32Vector:
		return true
	default:
		return false
	}
}

// Sentinel bit patterns, one missing/end-of-vector pair per numeric width.
// These match BCF's reserved values exactly (see §3).
const (
	MissingInt8  = int8(-128) // 0x80
	EOVInt8      = int8(-127) // 0x81
	MissingInt16 = int16(-32768)
	EOVInt16     = int16(-32767)
	MissingInt32 = int32(-2147483648)
	EOVInt32     = int32(-2147483647)
)

// MissingFloat32 and EOVFloat32 are the two reserved NaN bit patterns BCF
// uses for "missing" and "end-of-vector" float32 values.
var (
	MissingFloat32 = math.Float32frombits(0x7F800001)
	EOVFloat32     = math.Float32frombits(0x7F800002)
)

// MissingChar and MissingString are the scalar sentinels for the remaining
// types: '.' has no numeric bit pattern to reserve, so the character/string
// sentinels are the values VCF itself uses to spell "missing".
const (
	MissingChar   = byte('.')
	MissingString = ""
)

// Value is a tagged union over the twelve INFO/FORMAT variants (§3). Integer
// variants are stored widened to int32/[]int32 internally — Kind records
// the *declared* width, which is what the BCF codec narrows back down to on
// the wire; in-memory there is a single representation per "integer" or
// "integer vector" family, matching the compatibility rule that any int-N
// slot may be promoted into any int-M slot.
type Value struct {
	kind Kind

	i   int32
	f   float32
	c   byte
	s   string
	ivec []int32
	fvec []float32
	svec []string
}

// Default constructs the zero value of the given Kind: missing for scalar
// numeric/string/char kinds, an empty slice for vector kinds, and the
// singleton flag value for KindFlag.
func Default(kind Kind) Value {
	switch kind {
	case KindFlag:
		return Value{kind: KindFlag}
	case KindChar:
		return Value{kind: KindChar, c: MissingChar}
	case KindInt8:
		return Value{kind: KindInt8, i: int32(MissingInt8)}
	case KindInt16:
		return Value{kind: KindInt16, i: int32(MissingInt16)}
	case KindInt32:
		return Value{kind: KindInt32, i: MissingInt32}
	case KindFloat32:
		return Value{kind: KindFloat32, f: MissingFloat32}
	case KindString:
		return Value{kind: KindString, s: MissingString}
	case KindInt8Vector, KindInt16Vector, KindInt32Vector:
		return Value{kind: kind}
	case KindFloat32Vector:
		return Value{kind: kind}
	case KindStringVector:
		return Value{kind: kind}
	default:
		return Value{kind: kind}
	}
}

func Flag() Value                 { return Value{kind: KindFlag} }
func Int8(v int8) Value           { return Value{kind: KindInt8, i: int32(v)} }
func Int16(v int16) Value         { return Value{kind: KindInt16, i: int32(v)} }
func Int32(v int32) Value         { return Value{kind: KindInt32, i: v} }
func Float32(v float32) Value     { return Value{kind: KindFloat32, f: v} }
func Char(v byte) Value           { return Value{kind: KindChar, c: v} }
func String(v string) Value       { return Value{kind: KindString, s: v} }
func Int8Vector(v []int32) Value  { return Value{kind: KindInt8Vector, ivec: v} }
func Int16Vector(v []int32) Value { return Value{kind: KindInt16Vector, ivec: v} }
func Int32Vector(v []int32) Value { return Value{kind: KindInt32Vector, ivec: v} }
func Float32Vector(v []float32) Value {
	return Value{kind: KindFloat32Vector, fvec: v}
}
func StringVector(v []string) Value { return Value{kind: KindStringVector, svec: v} }

// Kind returns the value's variant tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) Int() int32          { return v.i }
func (v Value) Float() float32      { return v.f }
func (v Value) Byte() byte          { return v.c }
func (v Value) Str() string         { return v.s }
func (v Value) IntVector() []int32  { return v.ivec }
func (v Value) FloatVector() []float32 { return v.fvec }
func (v Value) StrVector() []string { return v.svec }

// IsMissing reports whether v holds the missing sentinel for its Kind. Flag
// values and vectors are never "missing" in this sense (an empty vector is
// the closest analogue, see IsEmpty).
func (v Value) IsMissing() bool {
	switch v.kind {
	case KindInt8:
		return int8(v.i) == MissingInt8
	case KindInt16:
		return int16(v.i) == MissingInt16
	case KindInt32:
		return v.i == MissingInt32
	case KindFloat32:
		return math.Float32bits(v.f) == math.Float32bits(MissingFloat32)
	case KindChar:
		return v.c == MissingChar
	case KindString:
		return v.s == MissingString
	default:
		return false
	}
}

// IsEndOfVector reports whether v is a scalar equal to the end-of-vector
// sentinel for its Kind — distinct from IsMissing, and only meaningful for
// elements read out of a fixed-width BCF array slot.
func (v Value) IsEndOfVector() bool {
	switch v.kind {
	case KindInt8:
		return int8(v.i) == EOVInt8
	case KindInt16:
		return int16(v.i) == EOVInt16
	case KindInt32:
		return v.i == EOVInt32
	case KindFloat32:
		return math.Float32bits(v.f) == math.Float32bits(EOVFloat32)
	default:
		return false
	}
}

// IsEmpty reports whether a vector-kinded Value has zero elements.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindInt8Vector, KindInt16Vector, KindInt32Vector:
		return len(v.ivec) == 0
	case KindFloat32Vector:
		return len(v.fvec) == 0
	case KindStringVector:
		return len(v.svec) == 0
	default:
		return false
	}
}

// KindCompatible reports whether a and b may be substituted for one another:
// both integer scalars, both integer vectors, or identical kinds.
func KindCompatible(a, b Kind) bool {
	if a == b {
		return true
	}
	return (a.IsInt() && b.IsInt()) || (a.IsIntVector() && b.IsIntVector())
}

// The smallest-int-descriptor computation (§4.C) that picks the narrowest
// scalar integer width able to encode a value without colliding with either
// sentinel pattern lives in bcf.intTypeCode, next to the wire encoder that's
// the computation's only caller.

// Visitor holds one callback per Value variant; only the callback matching
// the value's Kind is invoked. Nil callbacks are skipped. This is the Go
// counterpart of the design's std::visit-driven serialization.
type Visitor struct {
	Flag          func()
	Char          func(byte)
	Int8          func(int8)
	Int16         func(int16)
	Int32         func(int32)
	Float32       func(float32)
	String        func(string)
	Int8Vector    func([]int32)
	Int16Vector   func([]int32)
	Int32Vector   func([]int32)
	Float32Vector func([]float32)
	StringVector  func([]string)
}

// Visit dispatches v to the matching field of vis.
func (v Value) Visit(vis Visitor) {
	switch v.kind {
	case KindFlag:
		if vis.Flag != nil {
			vis.Flag()
		}
	case KindChar:
		if vis.Char != nil {
			vis.Char(v.c)
		}
	case KindInt8:
		if vis.Int8 != nil {
			vis.Int8(int8(v.i))
		}
	case KindInt16:
		if vis.Int16 != nil {
			vis.Int16(int16(v.i))
		}
	case KindInt32:
		if vis.Int32 != nil {
			vis.Int32(v.i)
		}
	case KindFloat32:
		if vis.Float32 != nil {
			vis.Float32(v.f)
		}
	case KindString:
		if vis.String != nil {
			vis.String(v.s)
		}
	case KindInt8Vector:
		if vis.Int8Vector != nil {
			vis.Int8Vector(v.ivec)
		}
	case KindInt16Vector:
		if vis.Int16Vector != nil {
			vis.Int16Vector(v.ivec)
		}
	case KindInt32Vector:
		if vis.Int32Vector != nil {
			vis.Int32Vector(v.ivec)
		}
	case KindFloat32Vector:
		if vis.Float32Vector != nil {
			vis.Float32Vector(v.fvec)
		}
	case KindStringVector:
		if vis.StringVector != nil {
			vis.StringVector(v.svec)
		}
	}
}
