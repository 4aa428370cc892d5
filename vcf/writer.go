package vcf

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/seqio/variant"
)

// WriterOpts controls Writer behavior.
type WriterOpts struct {
	// WriteIDX forces every dictionary entry to carry an explicit IDX=
	// attribute on write, even entries that never had one on read. When
	// false (the default), only entries that had an explicit IDX on read
	// keep carrying one.
	WriteIDX bool
	// CRLF selects "\r\n" line termination instead of "\n".
	CRLF bool
}

// Writer serializes variant.Record values as VCF text. The header is
// written lazily, on the first Write call.
type Writer struct {
	w            *bufio.Writer
	header       *variant.Header
	opts         WriterOpts
	wroteHeader  bool
	newline      string
	closeErr     error
}

// NewWriter returns a Writer that will serialize records described by h.
func NewWriter(w io.Writer, h *variant.Header, opts WriterOpts) *Writer {
	nl := "\n"
	if opts.CRLF {
		nl = "\r\n"
	}
	return &Writer{w: bufio.NewWriter(w), header: h, opts: opts, newline: nl}
}

// Write serializes one record, writing the header first if this is the
// first call.
func (w *Writer) Write(rec *variant.Record) error {
	if !w.wroteHeader {
		var sb strings.Builder
		WriteHeader(&sb, w.header, w.opts.WriteIDX)
		if _, err := w.w.WriteString(strings.ReplaceAll(sb.String(), "\n", w.newline)); err != nil {
			return err
		}
		w.wroteHeader = true
	}

	var sb strings.Builder
	sb.WriteString(rec.Chrom)
	sb.WriteByte('\t')
	sb.WriteString(strconv.FormatInt(rec.Pos, 10))
	sb.WriteByte('\t')
	writeDotJoined(&sb, rec.ID, ";")
	sb.WriteByte('\t')
	sb.WriteString(orDot(rec.Ref))
	sb.WriteByte('\t')
	writeDotJoined(&sb, rec.Alt, ",")
	sb.WriteByte('\t')
	writeValue(&sb, rec.Qual)
	sb.WriteByte('\t')
	writeDotJoined(&sb, rec.Filter, ";")
	sb.WriteByte('\t')
	writeInfo(&sb, rec.Info)
	if len(rec.Format) > 0 {
		sb.WriteByte('\t')
		sb.WriteString(strings.Join(rec.Format, ":"))
		for _, sample := range rec.Samples {
			sb.WriteByte('\t')
			writeGenotype(&sb, sample)
		}
	}
	sb.WriteString(w.newline)
	if _, err := w.w.WriteString(sb.String()); err != nil {
		w.closeErr = err
		return err
	}
	return nil
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

func writeDotJoined(sb *strings.Builder, vals []string, sep string) {
	if len(vals) == 0 {
		sb.WriteByte('.')
		return
	}
	sb.WriteString(strings.Join(vals, sep))
}

func writeValue(sb *strings.Builder, v variant.Value) {
	if v.IsMissing() {
		sb.WriteByte('.')
		return
	}
	if v.IsEndOfVector() {
		sb.WriteByte('.')
		return
	}
	v.Visit(variant.Visitor{
		Flag:    func() {},
		Char:    func(c byte) { sb.WriteByte(c) },
		Int8:    func(i int8) { sb.WriteString(strconv.Itoa(int(i))) },
		Int16:   func(i int16) { sb.WriteString(strconv.Itoa(int(i))) },
		Int32:   func(i int32) { sb.WriteString(strconv.Itoa(int(i))) },
		Float32: func(f float32) { sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32)) },
		String:  func(s string) { sb.WriteString(s) },
		Int8Vector: func(vs []int32) { writeIntVector(sb, vs) },
		Int16Vector: func(vs []int32) { writeIntVector(sb, vs) },
		Int32Vector: func(vs []int32) { writeIntVector(sb, vs) },
		Float32Vector: func(vs []float32) {
			if len(vs) == 0 {
				sb.WriteByte('.')
				return
			}
			for i, f := range vs {
				if i > 0 {
					sb.WriteByte(',')
				}
				if isFloatEOVorMissing(f) {
					sb.WriteByte('.')
				} else {
					sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
				}
			}
		},
		StringVector: func(vs []string) {
			if len(vs) == 0 {
				sb.WriteByte('.')
				return
			}
			for i, s := range vs {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(orDot(s))
			}
		},
	})
}

func isFloatEOVorMissing(f float32) bool {
	return f == variant.MissingFloat32 || f == variant.EOVFloat32
}

func writeIntVector(sb *strings.Builder, vs []int32) {
	if len(vs) == 0 {
		sb.WriteByte('.')
		return
	}
	for i, v := range vs {
		if i > 0 {
			sb.WriteByte(',')
		}
		if v == variant.MissingInt32 || v == variant.EOVInt32 {
			sb.WriteByte('.')
		} else {
			sb.WriteString(strconv.Itoa(int(v)))
		}
	}
}

func writeInfo(sb *strings.Builder, fields []variant.InfoField) {
	if len(fields) == 0 {
		sb.WriteByte('.')
		return
	}
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(f.Key)
		if f.Value.Kind() != variant.KindFlag {
			sb.WriteByte('=')
			writeValue(sb, f.Value)
		}
	}
}

// writeGenotype renders one sample's FORMAT values, ":"-joined, dropping
// any trailing run of all-missing/end-of-vector fields independently for
// this sample (the per-sample suffix-omission rule).
func writeGenotype(sb *strings.Builder, vals []variant.Value) {
	last := len(vals) - 1
	for last >= 0 && isAllMissingOrEOV(vals[last]) {
		last--
	}
	for i := 0; i <= last; i++ {
		if i > 0 {
			sb.WriteByte(':')
		}
		writeValue(sb, vals[i])
	}
	if last < 0 {
		sb.WriteByte('.')
	}
}

func isAllMissingOrEOV(v variant.Value) bool {
	if v.IsMissing() || v.IsEndOfVector() {
		return true
	}
	if v.Kind().IsVector() {
		return v.IsEmpty()
	}
	return false
}

// Close flushes any buffered output. Matching the reader/writer skeleton's
// contract, a secondary flush error is swallowed if the writer already
// failed on an earlier Write call.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		if w.closeErr != nil {
			return w.closeErr
		}
		return err
	}
	return nil
}
