package bcf

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/grailbio/seqio/variant"
	"github.com/grailbio/seqio/vcf"
)

// Writer serializes variant.Record values as BCF binary records. The header
// is written on the first Write call.
type Writer struct {
	w           io.Writer
	header      *variant.Header
	wroteHeader bool
	closeErr    error
	checksum    *Checksum
}

// NewWriter returns a Writer that will serialize records described by h.
func NewWriter(w io.Writer, h *variant.Header) *Writer {
	return &Writer{w: w, header: h}
}

// EnableChecksum turns on running-checksum accumulation: every subsequent
// Write folds its encoded bytes into the returned Checksum, which the
// caller can seal to a ".bcf.crc" sidecar (see Checksum.WriteSidecarFile)
// once writing is done, for a round-trip test harness to compare against.
func (w *Writer) EnableChecksum() *Checksum {
	w.checksum = NewChecksum()
	return w.checksum
}

func (w *Writer) writeHeader() error {
	var sb strings.Builder
	vcf.WriteHeader(&sb, w.header, false)
	text := sb.String()

	if _, err := w.w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint32(len(text))); err != nil {
		return err
	}
	_, err := io.WriteString(w.w, text)
	return err
}

// Write serializes one record, writing the header first if this is the
// first call.
func (w *Writer) Write(rec *variant.Record) error {
	if !w.wroteHeader {
		if err := w.writeHeader(); err != nil {
			w.closeErr = err
			return err
		}
		w.wroteHeader = true
	}
	buf, err := EncodeRecord(w.header, rec)
	if err != nil {
		w.closeErr = err
		return err
	}
	if _, err := w.w.Write(buf); err != nil {
		w.closeErr = err
		return err
	}
	if w.checksum != nil {
		w.checksum.Add(rec, buf)
	}
	return nil
}

// Close is a no-op beyond surfacing any error recorded by a prior Write;
// BCF has no stream-level trailer of its own (the underlying compression
// layer, if any, owns flush/close).
func (w *Writer) Close() error {
	return w.closeErr
}
