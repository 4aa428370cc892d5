package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"v.io/x/lib/vlog"

	"github.com/grailbio/seqio/seqerr"
	"github.com/grailbio/seqio/variant"
)

var errEOF = errors.New("eof")

// ReaderOpts controls Reader behavior.
type ReaderOpts struct {
	// Warn, when true, logs (via vlog) anomalies that are otherwise
	// silently tolerated: an undeclared contig, FILTER id, INFO key, or
	// FORMAT key.
	Warn bool
}

// Reader scans VCF records out of a text stream, advance_raw()/parse_into()
// collapsed into the single Scan/Record pair idiomatic Go readers use (see
// fastq.Scanner).
type Reader struct {
	b      *bufio.Scanner
	Header *variant.Header
	opts   ReaderOpts
	err    error
}

// NewReader parses the VCF header (meta-lines + column-header line) from r
// and returns a Reader positioned to scan the first record.
func NewReader(r io.Reader, opts ReaderOpts) (*Reader, error) {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 64*1024), 1<<24)
	h := variant.NewHeader()
	sawColumnHeader := false
	for b.Scan() {
		line := b.Text()
		switch {
		case strings.HasPrefix(line, "##"):
			if err := parseHeaderMetaLine(h, line); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "#"):
			if err := parseColumnHeaderLine(h, line); err != nil {
				return nil, err
			}
			sawColumnHeader = true
		default:
			return nil, seqerr.E(seqerr.MissingHeader, line, fmt.Errorf("vcf: record seen before column header line"))
		}
		if sawColumnHeader {
			break
		}
	}
	if err := b.Err(); err != nil {
		return nil, seqerr.E(seqerr.UnexpectedEOF, "header", err)
	}
	if !sawColumnHeader {
		return nil, seqerr.E(seqerr.MissingHeader, "", fmt.Errorf("vcf: no #CHROM header line"))
	}
	return &Reader{b: b, Header: h, opts: opts}, nil
}

// NewReaderFromHeader resumes record scanning against an already-parsed
// header, starting at the current position of r. Used after a
// region-filtered Reader seeks the underlying stream to a new tabix
// chunk: the bufio.Scanner buffering the old position is discarded and a
// fresh one built over the repositioned stream, without re-parsing (or
// re-validating) the header.
func NewReaderFromHeader(r io.Reader, h *variant.Header, opts ReaderOpts) *Reader {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 64*1024), 1<<24)
	return &Reader{b: b, Header: h, opts: opts}
}

// Err returns the error that stopped the most recent Scan, or nil if Scan
// stopped only because the stream reached EOF.
func (r *Reader) Err() error {
	if r.err == errEOF {
		return nil
	}
	return r.err
}

// Scan parses the next record into rec. It returns false at EOF or on
// error; callers distinguish the two via Err.
//
// A record referencing an undeclared FILTER/INFO/contig id amends the
// header with a placeholder (AddMissing) as it is decoded; that is allowed
// freely while decoding the very first record, since no earlier record has
// yet relied on the header's prior shape. MarkInUse only takes effect once
// that first record finishes decoding, so any mutation a *later* record
// triggers invalidates the header and causes every record after it to be
// rejected by CheckReadable — see Header.MarkInUse.
func (r *Reader) Scan(rec *variant.Record) bool {
	if r.err != nil {
		return false
	}
	if err := r.Header.CheckReadable(); err != nil {
		r.err = err
		return false
	}
	if !r.b.Scan() {
		if r.err = r.b.Err(); r.err == nil {
			r.err = errEOF
		}
		return false
	}
	if err := r.parseRecord(r.b.Text(), rec); err != nil {
		r.err = err
		return false
	}
	r.Header.MarkInUse()
	return true
}

func (r *Reader) warnf(format string, args ...interface{}) {
	if r.opts.Warn {
		vlog.Errorf("vcf: "+format, args...)
	}
}

func (r *Reader) parseRecord(line string, rec *variant.Record) error {
	cols := strings.Split(line, "\t")
	if len(cols) < 8 {
		return seqerr.E(seqerr.ParseError, line, fmt.Errorf("vcf: record has only %d columns", len(cols)))
	}

	*rec = variant.Record{}
	rec.Chrom = cols[0]
	if _, ok := r.Header.ContigIndex(cols[0]); !ok {
		r.warnf("reference %q not declared in header", cols[0])
		if _, err := r.Header.AddMissing(variant.DictContig, cols[0]); err != nil {
			return err
		}
	}

	pos, err := strconv.ParseInt(cols[1], 10, 64)
	if err != nil {
		return seqerr.E(seqerr.ParseError, cols[1], fmt.Errorf("vcf: bad POS: %w", err))
	}
	rec.Pos = pos

	if cols[2] != "." {
		rec.ID = strings.Split(cols[2], ";")
	}
	rec.Ref = cols[3]
	if cols[4] != "." {
		rec.Alt = strings.Split(cols[4], ",")
	}

	if cols[5] == "." {
		rec.Qual = variant.Default(variant.KindFloat32)
	} else {
		q, err := strconv.ParseFloat(cols[5], 32)
		if err != nil {
			return seqerr.E(seqerr.ParseError, cols[5], fmt.Errorf("vcf: bad QUAL: %w", err))
		}
		rec.Qual = variant.Float32(float32(q))
	}

	if cols[6] != "." {
		for _, f := range strings.Split(cols[6], ";") {
			if _, ok := r.Header.FilterIndex(f); !ok {
				r.warnf("filter %q not declared in header", f)
				if _, err := r.Header.AddMissing(variant.DictFilter, f); err != nil {
					return err
				}
			}
			rec.Filter = append(rec.Filter, f)
		}
	}

	if cols[7] != "." {
		if err := r.parseInfo(cols[7], rec); err != nil {
			return err
		}
	}

	if len(cols) > 9 {
		if err := r.parseGenotypes(cols[8], cols[9:], rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) parseInfo(field string, rec *variant.Record) error {
	for _, kv := range strings.Split(field, ";") {
		eq := strings.IndexByte(kv, '=')
		var key, raw string
		hasValue := eq >= 0
		if hasValue {
			key, raw = kv[:eq], kv[eq+1:]
		} else {
			key = kv
		}
		idx, ok := r.Header.InfoIndex(key)
		if !ok {
			r.warnf("INFO key %q not declared in header", key)
			var err error
			idx, err = r.Header.AddMissing(variant.DictInfo, key)
			if err != nil {
				return err
			}
		}
		meta := r.Header.Infos[idx]
		if !hasValue {
			rec.Info = append(rec.Info, variant.InfoField{Key: key, Value: variant.Flag()})
			continue
		}
		v, err := parseValue(meta.Type, meta.Number, raw)
		if err != nil {
			return err
		}
		rec.Info = append(rec.Info, variant.InfoField{Key: key, Value: v})
	}
	return nil
}

func (r *Reader) parseGenotypes(formatField string, sampleCols []string, rec *variant.Record) error {
	rec.Format = strings.Split(formatField, ":")
	rec.Samples = make([][]variant.Value, len(sampleCols))
	for si, sc := range sampleCols {
		parts := strings.Split(sc, ":")
		vals := make([]variant.Value, len(rec.Format))
		for fi, key := range rec.Format {
			idx, ok := r.Header.FormatIndex(key)
			var typ variant.FieldType = variant.TypeString
			var num variant.Number = variant.Number{Variable: true}
			if ok {
				typ, num = r.Header.Formats[idx].Type, r.Header.Formats[idx].Number
			} else {
				r.warnf("FORMAT key %q not declared in header", key)
			}
			if fi >= len(parts) {
				vals[fi] = endOfVectorFor(typ, num)
				continue
			}
			v, err := parseValue(typ, num, parts[fi])
			if err != nil {
				return err
			}
			vals[fi] = v
		}
		rec.Samples[si] = vals
	}
	return nil
}

// isVector reports whether n describes a multi-valued field (anything but
// a fixed cardinality of exactly 1).
func isVector(n variant.Number) bool {
	return n.Variable || n.PerAllele || n.PerAlt || n.PerGenotype || n.Fixed != 1
}

func parseValue(typ variant.FieldType, num variant.Number, raw string) (variant.Value, error) {
	if typ == variant.TypeFlag {
		return variant.Flag(), nil
	}
	if !isVector(num) {
		return parseScalar(typ, raw)
	}
	parts := strings.Split(raw, ",")
	switch typ {
	case variant.TypeInteger:
		out := make([]int32, len(parts))
		for i, p := range parts {
			v, err := parseIntScalar(p)
			if err != nil {
				return variant.Value{}, err
			}
			out[i] = v
		}
		return variant.Int32Vector(out), nil
	case variant.TypeFloat:
		out := make([]float32, len(parts))
		for i, p := range parts {
			v, err := parseFloatScalar(p)
			if err != nil {
				return variant.Value{}, err
			}
			out[i] = v
		}
		return variant.Float32Vector(out), nil
	default:
		for i, p := range parts {
			if p == "." {
				parts[i] = variant.MissingString
			}
		}
		return variant.StringVector(parts), nil
	}
}

func parseScalar(typ variant.FieldType, raw string) (variant.Value, error) {
	switch typ {
	case variant.TypeInteger:
		v, err := parseIntScalar(raw)
		if err != nil {
			return variant.Value{}, err
		}
		return variant.Int32(v), nil
	case variant.TypeFloat:
		v, err := parseFloatScalar(raw)
		if err != nil {
			return variant.Value{}, err
		}
		return variant.Float32(v), nil
	case variant.TypeCharacter:
		if raw == "." || len(raw) == 0 {
			return variant.Char(variant.MissingChar), nil
		}
		return variant.Char(raw[0]), nil
	default:
		if raw == "." {
			return variant.String(variant.MissingString), nil
		}
		return variant.String(raw), nil
	}
}

func parseIntScalar(raw string) (int32, error) {
	if raw == "." {
		return variant.MissingInt32, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, seqerr.E(seqerr.ParseError, raw, fmt.Errorf("vcf: bad integer: %w", err))
	}
	return int32(v), nil
}

func parseFloatScalar(raw string) (float32, error) {
	if raw == "." {
		return variant.MissingFloat32, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, seqerr.E(seqerr.ParseError, raw, fmt.Errorf("vcf: bad float: %w", err))
	}
	return float32(v), nil
}

func endOfVectorFor(typ variant.FieldType, num variant.Number) variant.Value {
	if isVector(num) {
		switch typ {
		case variant.TypeInteger:
			return variant.Int32Vector(nil)
		case variant.TypeFloat:
			return variant.Float32Vector(nil)
		default:
			return variant.StringVector(nil)
		}
	}
	switch typ {
	case variant.TypeInteger:
		return variant.Int32(variant.EOVInt32)
	case variant.TypeFloat:
		return variant.Float32(variant.EOVFloat32)
	default:
		return variant.String(variant.MissingString)
	}
}
