package seqio

import (
	"fmt"
	"io"

	"github.com/grailbio/seqio/bcf"
	"github.com/grailbio/seqio/compress"
	"github.com/grailbio/seqio/variant"
	"github.com/grailbio/seqio/vcf"
)

// textWriter is the common surface both vcf.Writer and bcf.Writer present.
type textWriter interface {
	Write(rec *variant.Record) error
	Close() error
}

// Writer is a format-dispatching output range over variant.Record, the
// write-side counterpart to Reader.
type Writer struct {
	cw     *compress.Writer
	write  textWriter
	format Format
}

// NewWriterPath creates (or truncates) path, derives compression from its
// extension unless opts.Compression is set, and writes h as the format's
// header on the first Write.
func NewWriterPath(path string, h *variant.Header, opts WriterOpts) (*Writer, error) {
	if opts.Format == Unknown {
		opts.Format = GuessFormat(path)
	}
	if opts.Format == Unknown {
		return nil, formatError(path)
	}
	cw, err := compress.NewWriterPath(path, compress.WriterOptions{
		Format:  opts.Compression,
		Level:   opts.Level,
		Threads: opts.Threads,
	})
	if err != nil {
		return nil, err
	}
	w, err := newWriterFromStream(cw, h, opts)
	if err != nil {
		cw.Close()
		return nil, err
	}
	w.cw = cw
	return w, nil
}

// NewWriter wraps an already-open sink in a transparent compression stream
// and the requested format's writer. opts.Format must be set explicitly;
// there is no file extension to guess it from.
func NewWriter(dst io.Writer, h *variant.Header, opts WriterOpts) (*Writer, error) {
	if opts.Format == Unknown {
		return nil, fmt.Errorf("seqio: NewWriter requires an explicit Format")
	}
	cw, err := compress.NewWriter(dst, compress.WriterOptions{
		Format:  opts.Compression,
		Level:   opts.Level,
		Threads: opts.Threads,
	})
	if err != nil {
		return nil, err
	}
	w, err := newWriterFromStream(cw, h, opts)
	if err != nil {
		return nil, err
	}
	w.cw = cw
	return w, nil
}

func newWriterFromStream(stream io.Writer, h *variant.Header, opts WriterOpts) (*Writer, error) {
	w := &Writer{format: opts.Format}
	switch opts.Format {
	case FormatVCF:
		w.write = vcf.NewWriter(stream, h, opts.toVCFOpts())
	case FormatBCF:
		w.write = bcf.NewWriter(stream, h)
	default:
		return nil, fmt.Errorf("seqio: format %v is not a variant format handler", opts.Format)
	}
	return w, nil
}

// Format returns the codec this Writer was constructed for.
func (w *Writer) Format() Format { return w.format }

// Write serializes rec, writing the header first if this is the first call.
func (w *Writer) Write(rec *variant.Record) error {
	return w.write.Write(rec)
}

// Close flushes the format writer and the compression layer. Following the
// teacher's destructor contract (§4.F), a close-time error from the
// compression layer is swallowed once the format writer has already
// reported a failure, so the caller sees the original cause.
func (w *Writer) Close() error {
	err := w.write.Close()
	if w.cw == nil {
		return err
	}
	if cerr := w.cw.Close(); err == nil {
		err = cerr
	}
	return err
}
