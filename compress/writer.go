package compress

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/grailbio/seqio/seqerr"
	"github.com/grailbio/seqio/vbgzf"
)

// WriterOptions configures a transparent output stream.
type WriterOptions struct {
	BufferSize1 int
	BufferSize2 int
	// Format requests a specific codec; Auto derives it from the target
	// filename's extension (NewWriterPath only).
	Format Format
	// Level is the compression level, [-1, 9], -1 meaning "algorithm
	// default".
	Level int
	// Threads is the BGZF thread count. BGZF writing with Threads<=1 is
	// rejected outright (unlike the read side, which downgrades); any
	// larger value is accepted, but blocks are compressed one at a time on
	// the caller's goroutine.
	Threads int
}

func (o WriterOptions) threads() int {
	if o.Threads <= 0 {
		return 1
	}
	return o.Threads
}

// Writer is a transparent compression stream ("transparent_ostream").
type Writer struct {
	raw     io.Writer
	rawFile *os.File
	format  Format
	enc     io.Writer
	closer  io.Closer
	bw      *bufio.Writer
	onClose func() error // appends trailing bytes (e.g. the BGZF terminator)
	failed  bool         // true once a write/close error is in flight
}

// NewWriterPath creates (or truncates) path and wraps it in a transparent
// compression stream. If opts.Format is Auto, the codec is derived from
// path's extension.
func NewWriterPath(path string, opts WriterOptions) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, seqerr.E(seqerr.FileOpen, path, err)
	}
	if opts.Format == Auto {
		opts.Format = formatForExt(path)
	}
	w, err := NewWriter(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.rawFile = f
	return w, nil
}

// NewWriter wraps an existing byte-stream sink in a transparent compression
// stream.
func NewWriter(dst io.Writer, opts WriterOptions) (*Writer, error) {
	if opts.BufferSize1 <= 0 {
		opts.BufferSize1 = defaultBufferSize1
	}
	if opts.Level < -1 || opts.Level > 9 {
		opts.Level = -1
	}
	w := &Writer{raw: dst, format: opts.Format}
	w.bw = bufio.NewWriterSize(dst, opts.BufferSize1)

	switch opts.Format {
	case BGZF:
		if opts.threads() == 1 {
			return nil, seqerr.E(seqerr.FileOpen, "",
				fmt.Errorf("compress: bgzf writing requires at least 2 threads (1 compressor + 1 writer)"))
		}
		bg, err := vbgzf.NewWriter(w.bw, opts.Level)
		if err != nil {
			return nil, seqerr.E(seqerr.FileOpen, "", err)
		}
		w.enc = bg
		w.closer = ioCloserFunc(bg.Close)
	case GZ, Auto, None:
		if opts.Format == None {
			w.enc = w.bw
			break
		}
		level := opts.Level
		if level == -1 {
			level = gzip.DefaultCompression
		}
		gz, err := gzip.NewWriterLevel(w.bw, level)
		if err != nil {
			return nil, seqerr.E(seqerr.FileOpen, "", err)
		}
		w.enc = gz
		w.closer = gz
		w.format = GZ
	case BZ2:
		bz, err := bzip2.NewWriter(w.bw, nil)
		if err != nil {
			return nil, seqerr.E(seqerr.FileOpen, "", err)
		}
		w.enc = bz
		w.closer = bz
	case ZSTD:
		zw, err := zstd.NewWriter(w.bw)
		if err != nil {
			return nil, seqerr.E(seqerr.FileOpen, "", err)
		}
		w.enc = zw
		w.closer = ioCloserFunc(zw.Close)
	default:
		return nil, seqerr.E(seqerr.FileOpen, "", fmt.Errorf("compress: unknown format %v", opts.Format))
	}
	return w, nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.enc.Write(p)
	if err != nil {
		w.failed = true
	}
	return n, err
}

// Format returns the codec in effect.
func (w *Writer) Format() Format { return w.format }

// Close flushes and closes the compression layer and, if the Writer was
// opened from a path, closes the underlying file.
//
// Close mirrors the teacher's destructor contract (§4.F Cancellation): if a
// write already failed, Close swallows its own secondary error rather than
// masking the original failure — callers that care about both should check
// the return of Write first.
func (w *Writer) Close() error {
	var err error
	if w.closer != nil {
		err = w.closer.Close()
	}
	if ferr := w.bw.Flush(); err == nil {
		err = ferr
	}
	if w.rawFile != nil {
		if cerr := w.rawFile.Close(); err == nil {
			err = cerr
		}
	}
	if w.failed {
		// A write already failed; don't let a close-time error shadow it.
		return nil
	}
	return errors.Wrap(err, "compress: close")
}
