package bcf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/grailbio/seqio/seqerr"
	"github.com/grailbio/seqio/variant"
)

// EncodeRecord serializes rec against h into the l_shared ‖ l_indiv ‖
// shared ‖ indiv layout §4.E describes, returning the four pieces
// concatenated and ready to write to a stream.
func EncodeRecord(h *variant.Header, rec *variant.Record) ([]byte, error) {
	shared, err := encodeShared(h, rec)
	if err != nil {
		return nil, err
	}
	indiv, err := encodeIndiv(h, rec)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 8+len(shared)+len(indiv))
	out = appendUint32(out, uint32(len(shared)))
	out = appendUint32(out, uint32(len(indiv)))
	out = append(out, shared...)
	out = append(out, indiv...)
	return out, nil
}

func appendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func encodeShared(h *variant.Header, rec *variant.Record) ([]byte, error) {
	var buf bytes.Buffer

	chromIdx, ok := h.ContigIndex(rec.Chrom)
	if !ok {
		return nil, seqerr.E(seqerr.UnknownContig, rec.Chrom, fmt.Errorf("bcf: contig %q not in header", rec.Chrom))
	}
	binary.Write(&buf, binary.LittleEndian, int32(chromIdx))
	binary.Write(&buf, binary.LittleEndian, int32(rec.Pos-1)) // 0-based on the wire
	binary.Write(&buf, binary.LittleEndian, int32(rec.End()-rec.Pos+1))

	qual := variant.MissingFloat32
	if !rec.Qual.IsMissing() {
		qual = rec.Qual.Float()
	}
	binary.Write(&buf, binary.LittleEndian, qual)

	nAllele := 1 + len(rec.Alt)
	nInfo := len(rec.Info)
	binary.Write(&buf, binary.LittleEndian, uint32(nAllele)<<16|uint32(nInfo)&0xffff)

	nFmt := len(rec.Format)
	nSample := len(rec.Samples)
	binary.Write(&buf, binary.LittleEndian, uint32(nFmt)<<24|uint32(nSample)&0xffffff)

	writeTypedString(&buf, strings.Join(rec.ID, ";"))

	alleles := append([]string{rec.Ref}, rec.Alt...)
	for _, a := range alleles {
		writeTypedString(&buf, a)
	}

	filterIdx := make([]int64, 0, len(rec.Filter))
	for _, f := range rec.Filter {
		idx, ok := h.FilterIndex(f)
		if !ok {
			return nil, seqerr.E(seqerr.UnknownFilter, f, fmt.Errorf("bcf: filter %q not in header", f))
		}
		filterIdx = append(filterIdx, int64(idx))
	}
	writeIntVecTyped(&buf, filterIdx)

	for _, f := range rec.Info {
		idx, ok := h.InfoIndex(f.Key)
		if !ok {
			return nil, seqerr.E(seqerr.UnknownInfo, f.Key, fmt.Errorf("bcf: INFO key %q not in header", f.Key))
		}
		writeTypedInt(&buf, int64(idx))
		writeTypedValue(&buf, f.Value)
	}
	return buf.Bytes(), nil
}

// formatIntSlots returns the fixed-width on-wire slot for one sample's
// scalar-or-vector integer FORMAT value, padded with end-of-vector
// sentinels (or, if the sample had no value at all, missing sentinels).
func formatIntSlots(sample []variant.Value, fi, width int) []int64 {
	out := make([]int64, width)
	for i := range out {
		out[i] = int64(variant.EOVInt32)
	}
	if fi >= len(sample) {
		if width > 0 {
			out[0] = int64(variant.MissingInt32)
		}
		return out
	}
	v := sample[fi]
	if v.Kind().IsIntVector() {
		for i, x := range v.IntVector() {
			if i < width {
				out[i] = int64(x)
			}
		}
		return out
	}
	if width > 0 {
		out[0] = int64(v.Int())
	}
	return out
}

func formatFloatSlots(sample []variant.Value, fi, width int) []float32 {
	out := make([]float32, width)
	for i := range out {
		out[i] = variant.EOVFloat32
	}
	if fi >= len(sample) {
		if width > 0 {
			out[0] = variant.MissingFloat32
		}
		return out
	}
	v := sample[fi]
	if v.Kind() == variant.KindFloat32Vector {
		for i, x := range v.FloatVector() {
			if i < width {
				out[i] = x
			}
		}
		return out
	}
	if width > 0 {
		out[0] = v.Float()
	}
	return out
}

func writeIntVecTyped(buf *bytes.Buffer, vals []int64) {
	tc := byte(btInt8)
	for _, v := range vals {
		if c := intTypeCode(v); c > tc {
			tc = c
		}
	}
	writeDescriptor(buf, tc, len(vals))
	for _, v := range vals {
		writeRawInt(buf, tc, v)
	}
}

func encodeIndiv(h *variant.Header, rec *variant.Record) ([]byte, error) {
	var buf bytes.Buffer
	for fi, key := range rec.Format {
		idx, ok := h.FormatIndex(key)
		if !ok {
			return nil, seqerr.E(seqerr.UnknownInfo, key, fmt.Errorf("bcf: FORMAT key %q not in header", key))
		}
		writeTypedInt(&buf, int64(idx))

		// Determine the widest element and widest vector length across all
		// samples for this key so every sample's slot uses the same
		// on-wire type and width; shorter per-sample vectors are padded
		// with end-of-vector sentinels up to that width.
		tc := byte(btInt8)
		isFloat, isString := false, false
		width := 1
		for _, sample := range rec.Samples {
			if fi >= len(sample) {
				continue
			}
			v := sample[fi]
			switch v.Kind() {
			case variant.KindFloat32:
				isFloat = true
			case variant.KindFloat32Vector:
				isFloat = true
				if n := len(v.FloatVector()); n > width {
					width = n
				}
			case variant.KindString, variant.KindStringVector:
				isString = true
			case variant.KindInt8, variant.KindInt16, variant.KindInt32:
				if c := intTypeCode(int64(v.Int())); c > tc {
					tc = c
				}
			case variant.KindInt8Vector, variant.KindInt16Vector, variant.KindInt32Vector:
				for _, x := range v.IntVector() {
					if c := intTypeCode(int64(x)); c > tc {
						tc = c
					}
				}
				if n := len(v.IntVector()); n > width {
					width = n
				}
			}
		}
		switch {
		case isString:
			maxLen := 0
			for _, sample := range rec.Samples {
				if fi < len(sample) && len(sample[fi].Str()) > maxLen {
					maxLen = len(sample[fi].Str())
				}
			}
			writeDescriptor(&buf, btChar, maxLen)
			for _, sample := range rec.Samples {
				s := ""
				if fi < len(sample) {
					s = sample[fi].Str()
				}
				pad := make([]byte, maxLen)
				copy(pad, s)
				buf.Write(pad)
			}
		case isFloat:
			writeDescriptor(&buf, btFloat, width)
			for _, sample := range rec.Samples {
				vals := formatFloatSlots(sample, fi, width)
				for _, v := range vals {
					var b [4]byte
					binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
					buf.Write(b[:])
				}
			}
		default:
			writeDescriptor(&buf, tc, width)
			for _, sample := range rec.Samples {
				vals := formatIntSlots(sample, fi, width)
				for _, v := range vals {
					writeRawInt(&buf, tc, v)
				}
			}
		}
	}
	return buf.Bytes(), nil
}

// DecodeRecord parses one BCF record body (shared ‖ indiv, with lShared and
// lIndiv already consumed off the stream by the caller) against h.
func DecodeRecord(h *variant.Header, shared, indiv []byte, rec *variant.Record) error {
	*rec = variant.Record{}
	sb := bytes.NewBuffer(shared)

	var chromIdx, pos, rlen int32
	var qual float32
	if err := binary.Read(sb, binary.LittleEndian, &chromIdx); err != nil {
		return seqerr.E(seqerr.UnexpectedEOF, "chrom", err)
	}
	if err := binary.Read(sb, binary.LittleEndian, &pos); err != nil {
		return seqerr.E(seqerr.UnexpectedEOF, "pos", err)
	}
	if err := binary.Read(sb, binary.LittleEndian, &rlen); err != nil {
		return seqerr.E(seqerr.UnexpectedEOF, "rlen", err)
	}
	if err := binary.Read(sb, binary.LittleEndian, &qual); err != nil {
		return seqerr.E(seqerr.UnexpectedEOF, "qual", err)
	}
	var packed1, packed2 uint32
	if err := binary.Read(sb, binary.LittleEndian, &packed1); err != nil {
		return seqerr.E(seqerr.UnexpectedEOF, "n_allele/n_info", err)
	}
	if err := binary.Read(sb, binary.LittleEndian, &packed2); err != nil {
		return seqerr.E(seqerr.UnexpectedEOF, "n_fmt/n_sample", err)
	}
	nAllele := int(packed1 >> 16)
	nInfo := int(packed1 & 0xffff)
	nFmt := int(packed2 >> 24)
	nSample := int(packed2 & 0xffffff)

	if int(chromIdx) < 0 || int(chromIdx) >= len(h.Contigs) {
		return seqerr.E(seqerr.UnknownContig, "", fmt.Errorf("bcf: contig index %d out of range", chromIdx))
	}
	rec.Chrom = h.Contigs[chromIdx].ID
	rec.Pos = int64(pos) + 1

	idField, err := readTypedString(sb)
	if err != nil {
		return seqerr.E(seqerr.UnexpectedEOF, "id", err)
	}
	if idField != "" {
		rec.ID = strings.Split(idField, ";")
	}

	if nAllele < 1 {
		return seqerr.E(seqerr.FormatError, "", fmt.Errorf("bcf: n_allele must be >= 1, got %d", nAllele))
	}
	alleles := make([]string, nAllele)
	for i := range alleles {
		a, err := readTypedString(sb)
		if err != nil {
			return seqerr.E(seqerr.UnexpectedEOF, "allele", err)
		}
		alleles[i] = a
	}
	rec.Ref = alleles[0]
	rec.Alt = alleles[1:]
	// rlen is redundant with Ref/INFO-END and not retained on Record;
	// End() recomputes it from those on demand.

	filterVal, err := readTypedValue(sb, true)
	if err != nil {
		return seqerr.E(seqerr.UnexpectedEOF, "filter", err)
	}
	for _, idx := range filterVal.IntVector() {
		if int(idx) < 0 || int(idx) >= len(h.Filters) {
			return seqerr.E(seqerr.UnknownFilter, "", fmt.Errorf("bcf: filter index %d out of range", idx))
		}
		rec.Filter = append(rec.Filter, h.Filters[idx].ID)
	}

	for i := 0; i < nInfo; i++ {
		keyIdx, err := readTypedInt(sb)
		if err != nil {
			return seqerr.E(seqerr.UnexpectedEOF, "info key", err)
		}
		if int(keyIdx) < 0 || int(keyIdx) >= len(h.Infos) {
			return seqerr.E(seqerr.UnknownInfo, "", fmt.Errorf("bcf: INFO index %d out of range", keyIdx))
		}
		v, err := readTypedValue(sb, false)
		if err != nil {
			return seqerr.E(seqerr.UnexpectedEOF, "info value", err)
		}
		rec.Info = append(rec.Info, variant.InfoField{Key: h.Infos[keyIdx].ID, Value: v})
	}
	if sb.Len() != 0 {
		return seqerr.E(seqerr.UnexpectedEOF, "shared", fmt.Errorf("bcf: %d trailing bytes in l_shared block", sb.Len()))
	}

	if qual == variant.MissingFloat32 {
		rec.Qual = variant.Default(variant.KindFloat32)
	} else {
		rec.Qual = variant.Float32(qual)
	}

	ib := bytes.NewBuffer(indiv)
	rec.Format = make([]string, nFmt)
	rec.Samples = make([][]variant.Value, nSample)
	for i := range rec.Samples {
		rec.Samples[i] = make([]variant.Value, nFmt)
	}
	for fi := 0; fi < nFmt; fi++ {
		keyIdx, err := readTypedInt(ib)
		if err != nil {
			return seqerr.E(seqerr.UnexpectedEOF, "format key", err)
		}
		if int(keyIdx) < 0 || int(keyIdx) >= len(h.Formats) {
			return seqerr.E(seqerr.UnknownInfo, "", fmt.Errorf("bcf: FORMAT index %d out of range", keyIdx))
		}
		rec.Format[fi] = h.Formats[keyIdx].ID

		tc, width, err := readDescriptor(ib)
		if err != nil {
			return seqerr.E(seqerr.UnexpectedEOF, "format descriptor", err)
		}
		for si := 0; si < nSample; si++ {
			v, err := readFixedValue(ib, tc, width)
			if err != nil {
				return seqerr.E(seqerr.UnexpectedEOF, "format value", err)
			}
			rec.Samples[si][fi] = v
		}
	}
	if ib.Len() != 0 {
		return seqerr.E(seqerr.UnexpectedEOF, "indiv", fmt.Errorf("bcf: %d trailing bytes in l_indiv block", ib.Len()))
	}
	return nil
}

// readFixedValue reads one sample's fixed-width slot for a FORMAT field
// whose per-sample array width is `width` (already read from the shared
// descriptor byte for this key), converting it to a single Value: a vector
// if width > 1, trimmed of any trailing end-of-vector padding, else scalar.
func readFixedValue(buf *bytes.Buffer, tc byte, width int) (variant.Value, error) {
	switch tc {
	case btChar:
		b := make([]byte, width)
		if _, err := buf.Read(b); err != nil {
			return variant.Value{}, err
		}
		return variant.String(strings.TrimRight(string(b), "\x00")), nil
	case btInt8, btInt16, btInt32:
		vals := make([]int32, 0, width)
		eovAt := width
		for i := 0; i < width; i++ {
			v, err := readRawInt(buf, tc)
			if err != nil {
				return variant.Value{}, err
			}
			if isEOVInt(tc, v) && eovAt == width {
				eovAt = i
			}
			vals = append(vals, int32(v))
		}
		if width == 1 {
			return variant.Int32(vals[0]), nil
		}
		return variant.Int32Vector(vals[:eovAt]), nil
	case btFloat:
		vals := make([]float32, 0, width)
		eovAt := width
		for i := 0; i < width; i++ {
			var b [4]byte
			if _, err := buf.Read(b[:]); err != nil {
				return variant.Value{}, err
			}
			f := math.Float32frombits(binary.LittleEndian.Uint32(b[:]))
			if f == variant.EOVFloat32 && eovAt == width {
				eovAt = i
			}
			vals = append(vals, f)
		}
		if width == 1 {
			return variant.Float32(vals[0]), nil
		}
		return variant.Float32Vector(vals[:eovAt]), nil
	default:
		return variant.Default(variant.KindInt32), nil
	}
}

func isEOVInt(tc byte, v int64) bool {
	switch tc {
	case btInt8:
		return int8(v) == variant.EOVInt8
	case btInt16:
		return int16(v) == variant.EOVInt16
	default:
		return int32(v) == variant.EOVInt32
	}
}
