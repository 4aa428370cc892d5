// Package bcf implements the binary BCF record codec: the typed,
// length-prefixed encoding VCF's header dictionaries make possible once
// every string has been resolved to a small integer.
package bcf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/grailbio/seqio/seqerr"
	"github.com/grailbio/seqio/variant"
)

// Type codes for BCF's typed-value descriptor byte, matching the reserved
// values the format fixes (§4.E).
const (
	btNull  = 0
	btInt8  = 1
	btInt16 = 2
	btInt32 = 3
	btFloat = 5
	btChar  = 7
)

// descriptorOverflow is the sentinel length nibble meaning "the true
// length follows as a typed integer".
const descriptorOverflow = 15

// intTypeCode is the smallest-int-descriptor computation (§4.C): the
// narrowest BCF integer width that can hold v without the value itself
// colliding with that width's missing or end-of-vector sentinel. Callers
// narrowing a vector take the max type code across every element.
func intTypeCode(v int64) byte {
	switch {
	case v > int64(variant.MissingInt8)+1 && v <= math.MaxInt8:
		return btInt8
	case v > int64(variant.MissingInt16)+1 && v <= math.MaxInt16:
		return btInt16
	default:
		return btInt32
	}
}

func writeDescriptor(buf *bytes.Buffer, typeCode byte, n int) {
	if n < descriptorOverflow {
		buf.WriteByte(byte(n<<4) | typeCode)
		return
	}
	buf.WriteByte(byte(descriptorOverflow<<4) | typeCode)
	writeTypedInt(buf, int64(n))
}

func readDescriptor(buf *bytes.Buffer) (typeCode byte, n int, err error) {
	b, err := buf.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	typeCode = b & 0x0f
	n = int(b >> 4)
	if n == descriptorOverflow {
		v, err := readTypedInt(buf)
		if err != nil {
			return 0, 0, err
		}
		n = int(v)
	}
	return typeCode, n, nil
}

// writeTypedInt writes a single integer value preceded by its own
// descriptor byte (n=1), narrowed to the smallest type that holds it.
func writeTypedInt(buf *bytes.Buffer, v int64) {
	tc := intTypeCode(v)
	buf.WriteByte(byte(1<<4) | tc)
	writeRawInt(buf, tc, v)
}

// writeRawInt writes v at width tc; the int32 missing and end-of-vector
// sentinels are written as the narrower width's own sentinels.
func writeRawInt(buf *bytes.Buffer, tc byte, v int64) {
	switch tc {
	case btInt8:
		switch v {
		case int64(variant.MissingInt32):
			v = int64(variant.MissingInt8)
		case int64(variant.EOVInt32):
			v = int64(variant.EOVInt8)
		}
		buf.WriteByte(byte(int8(v)))
	case btInt16:
		switch v {
		case int64(variant.MissingInt32):
			v = int64(variant.MissingInt16)
		case int64(variant.EOVInt32):
			v = int64(variant.EOVInt16)
		}
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(int16(v)))
		buf.Write(b[:])
	default:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(int32(v)))
		buf.Write(b[:])
	}
}

func readTypedInt(buf *bytes.Buffer) (int64, error) {
	tc, n, err := readDescriptor(buf)
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, seqerr.E(seqerr.FormatError, "", fmt.Errorf("bcf: expected scalar typed int, got length %d", n))
	}
	return readRawInt(buf, tc)
}

func readRawInt(buf *bytes.Buffer, tc byte) (int64, error) {
	switch tc {
	case btInt8:
		b, err := buf.ReadByte()
		return int64(int8(b)), err
	case btInt16:
		var b [2]byte
		if _, err := buf.Read(b[:]); err != nil {
			return 0, err
		}
		return int64(int16(binary.LittleEndian.Uint16(b[:]))), nil
	case btInt32:
		var b [4]byte
		if _, err := buf.Read(b[:]); err != nil {
			return 0, err
		}
		return int64(int32(binary.LittleEndian.Uint32(b[:]))), nil
	default:
		return 0, seqerr.E(seqerr.FormatError, "", fmt.Errorf("bcf: unexpected type code %d for integer", tc))
	}
}

// writeTypedString writes s as a BCF typed char array.
func writeTypedString(buf *bytes.Buffer, s string) {
	writeDescriptor(buf, btChar, len(s))
	buf.WriteString(s)
}

func readTypedString(buf *bytes.Buffer) (string, error) {
	tc, n, err := readDescriptor(buf)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	if tc != btChar {
		return "", seqerr.E(seqerr.FormatError, "", fmt.Errorf("bcf: expected char array, got type code %d", tc))
	}
	b := make([]byte, n)
	if _, err := buf.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

// intVecToValue converts a slice of raw int64s read off the wire into the
// variant.Value the declared Number calls for: a vector Value if vector is
// true, else the first (only) scalar element.
func intVecToValue(vals []int64, vector bool) variant.Value {
	if vector {
		out := make([]int32, len(vals))
		for i, v := range vals {
			out[i] = int32(v)
		}
		return variant.Int32Vector(out)
	}
	if len(vals) == 0 {
		return variant.Default(variant.KindInt32)
	}
	return variant.Int32(int32(vals[0]))
}

// readTypedValue reads one fully self-described BCF typed value (used for
// INFO values and FILTER's vector of int) and converts it to a
// variant.Value. vector forces vector-kinded results even for length 1.
func readTypedValue(buf *bytes.Buffer, vector bool) (variant.Value, error) {
	tc, n, err := readDescriptor(buf)
	if err != nil {
		return variant.Value{}, err
	}
	switch tc {
	case btNull:
		if vector {
			return variant.Int32Vector(nil), nil
		}
		return variant.Flag(), nil
	case btInt8, btInt16, btInt32:
		vals := make([]int64, n)
		for i := range vals {
			v, err := readRawInt(buf, tc)
			if err != nil {
				return variant.Value{}, err
			}
			vals[i] = v
		}
		return intVecToValue(vals, vector || n > 1), nil
	case btFloat:
		if vector || n > 1 {
			out := make([]float32, n)
			for i := range out {
				var b [4]byte
				if _, err := buf.Read(b[:]); err != nil {
					return variant.Value{}, err
				}
				out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[:]))
			}
			return variant.Float32Vector(out), nil
		}
		if n == 0 {
			return variant.Default(variant.KindFloat32), nil
		}
		var b [4]byte
		if _, err := buf.Read(b[:]); err != nil {
			return variant.Value{}, err
		}
		return variant.Float32(math.Float32frombits(binary.LittleEndian.Uint32(b[:]))), nil
	case btChar:
		b := make([]byte, n)
		if _, err := buf.Read(b); err != nil {
			return variant.Value{}, err
		}
		return variant.String(string(b)), nil
	default:
		return variant.Value{}, seqerr.E(seqerr.FormatError, "", fmt.Errorf("bcf: unknown type code %d", tc))
	}
}

// writeTypedValue writes v self-described, narrowing integers to the
// smallest type able to hold every element while preserving missing/
// end-of-vector sentinels exactly.
func writeTypedValue(buf *bytes.Buffer, v variant.Value) {
	switch v.Kind() {
	case variant.KindFlag:
		buf.WriteByte(byte(1<<4) | btNull)
	case variant.KindInt8, variant.KindInt16, variant.KindInt32:
		writeDescriptor(buf, intTypeCode(int64(v.Int())), 1)
		writeRawInt(buf, intTypeCode(int64(v.Int())), int64(v.Int()))
	case variant.KindFloat32:
		writeDescriptor(buf, btFloat, 1)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v.Float()))
		buf.Write(b[:])
	case variant.KindChar:
		writeDescriptor(buf, btChar, 1)
		buf.WriteByte(v.Byte())
	case variant.KindString:
		writeTypedString(buf, v.Str())
	case variant.KindInt8Vector, variant.KindInt16Vector, variant.KindInt32Vector:
		vals := v.IntVector()
		tc := byte(btInt8)
		for _, x := range vals {
			if c := intTypeCode(int64(x)); c > tc {
				tc = c
			}
		}
		writeDescriptor(buf, tc, len(vals))
		for _, x := range vals {
			writeRawInt(buf, tc, int64(x))
		}
	case variant.KindFloat32Vector:
		vals := v.FloatVector()
		writeDescriptor(buf, btFloat, len(vals))
		for _, x := range vals {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(x))
			buf.Write(b[:])
		}
	case variant.KindStringVector:
		vals := v.StrVector()
		joined := ""
		for i, s := range vals {
			if i > 0 {
				joined += ","
			}
			joined += s
		}
		writeTypedString(buf, joined)
	}
}
