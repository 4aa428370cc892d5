// Package compress implements the transparent compression layer: given an
// underlying byte stream, it detects (read side) or selects (write side) one
// of {bgzf, gz, bz2, zstd, none} and interposes the matching codec, so the
// rest of seqio only ever sees decompressed/compressed bytes.
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
	"golang.org/x/sys/unix"
	"v.io/x/lib/vlog"

	"github.com/grailbio/seqio/seqerr"
	"github.com/grailbio/seqio/vbgzf"
)

const (
	defaultBufferSize1 = 64 * 1024
	defaultBufferSize2 = 64 * 1024
)

// Options configures a transparent stream's buffering and codec selection.
type Options struct {
	// BufferSize1 sizes the buffer placed directly over the raw byte
	// source/sink.
	BufferSize1 int
	// BufferSize2 sizes the buffer placed over the decompressed stream.
	BufferSize2 int
	// Format requests a specific codec. Auto means detect (read) or derive
	// from the target's extension (write).
	Format Format
	// Threads is the number of decompressor/compressor threads for BGZF.
	// Threads<=1 means single-threaded, which BGZF cannot do; see the BGZF
	// downgrade/reject rules on Reader and Writer.
	Threads int
}

func (o Options) threads() int {
	if o.Threads <= 0 {
		return 1
	}
	return o.Threads
}

// Reader is a transparent decompression stream ("transparent_istream" in the
// design notes): it peeks the first bytes of its source, matches them
// against each codec's magic bytes, and interposes the corresponding
// decompressor.
type Reader struct {
	raw      io.Reader
	rawFile  *os.File
	rawSeek  io.Seeker
	br       *bufio.Reader
	format   Format
	dec      io.Reader
	decCloser io.Closer
	voff     func() vbgzf.Offset // non-nil only when format==BGZF
}

// NewReaderPath opens path and wraps it in a transparent decompression
// stream.
func NewReaderPath(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, seqerr.E(seqerr.FileOpen, path, err)
	}
	r, err := NewReader(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.rawFile = f
	return r, nil
}

// NewReader wraps an existing byte-stream source in a transparent
// decompression stream.
func NewReader(src io.Reader, opts Options) (*Reader, error) {
	if opts.BufferSize1 <= 0 {
		opts.BufferSize1 = defaultBufferSize1
	}
	if opts.BufferSize2 <= 0 {
		opts.BufferSize2 = defaultBufferSize2
	}
	r := &Reader{raw: src}
	if s, ok := src.(io.Seeker); ok {
		r.rawSeek = s
	}

	// When the source is seekable, peek the magic bytes with a plain read
	// and rewind rather than going through a bufio.Reader: a BGZF decoder
	// constructed over src needs to own src's Seek capability directly (for
	// the tabix chunk-seek path, see SeekPrimary), and bufio.Reader's own
	// read-ahead would otherwise swallow the bytes downstream of the peek.
	var peek []byte
	if r.rawSeek != nil {
		buf := make([]byte, magicPeekSize)
		n, _ := io.ReadFull(src, buf)
		peek = buf[:n]
		if _, err := r.rawSeek.Seek(0, io.SeekStart); err != nil {
			return nil, seqerr.E(seqerr.FileOpen, "", err)
		}
	} else {
		r.br = bufio.NewReaderSize(src, opts.BufferSize1)
		peek, _ = r.br.Peek(magicPeekSize)
	}
	format := detect(peek)
	if opts.Format != Auto && opts.Format != format {
		// The only accepted "mismatch" is a BGZF request over bytes that
		// are plain gzip, which are then decoded as gzip; anything else is
		// a hard conflict between what the caller asked for and what the
		// bytes actually are.
		if !(opts.Format == BGZF && format == GZ) {
			return nil, seqerr.E(seqerr.FileOpen, "",
				fmt.Errorf("requested format %v does not match detected format %v", opts.Format, format))
		}
	}
	r.format = format

	switch format {
	case BGZF:
		bgzfSrc := r.bgzfSource(opts)
		if opts.threads() == 1 {
			vlog.VI(1).Infof("compress: bgzf requested with 1 thread, downgrading to plain gzip decode")
			gz, err := gzip.NewReader(bgzfSrc)
			if err != nil {
				return nil, seqerr.E(seqerr.FileOpen, "", err)
			}
			r.format = GZ
			r.dec = bufio.NewReaderSize(gz, opts.BufferSize2)
			r.decCloser = gz
		} else {
			bg, err := vbgzf.NewReader(bgzfSrc, opts.threads())
			if err != nil {
				return nil, seqerr.E(seqerr.FileOpen, "", err)
			}
			r.dec = bg
			r.decCloser = bg
			r.voff = bg.VOffset
		}
	case GZ:
		gz, err := gzip.NewReader(r.bufSource(opts))
		if err != nil {
			return nil, seqerr.E(seqerr.FileOpen, "", err)
		}
		r.dec = bufio.NewReaderSize(gz, opts.BufferSize2)
		r.decCloser = gz
	case BZ2:
		bz, err := bzip2.NewReader(r.bufSource(opts), nil)
		if err != nil {
			return nil, seqerr.E(seqerr.FileOpen, "", err)
		}
		r.dec = bufio.NewReaderSize(bz, opts.BufferSize2)
		r.decCloser = bz
	case ZSTD:
		zr, err := zstd.NewReader(r.bufSource(opts))
		if err != nil {
			return nil, seqerr.E(seqerr.FileOpen, "", err)
		}
		r.dec = zr
		r.decCloser = ioCloserFunc(zr.Close)
	case None:
		r.dec = r.bufSource(opts)
	}
	return r, nil
}

// bufSource returns the buffered reader over the raw source, constructing
// it on first use.
func (r *Reader) bufSource(opts Options) io.Reader {
	if r.br == nil {
		r.br = bufio.NewReaderSize(r.raw, opts.BufferSize1)
	}
	return r.br
}

// bgzfSource returns the reader a BGZF decoder should read from: the raw
// seekable source directly, when available, so the decoder's own Seek
// retains access to the source's io.Seeker; the buffered reader otherwise
// (Seek is then unavailable, matching SeekPrimary's "source does not
// support seeking" rejection).
func (r *Reader) bgzfSource(opts Options) io.Reader {
	if r.rawSeek != nil {
		return r.raw
	}
	return r.bufSource(opts)
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) { return r.dec.Read(p) }

// Format returns the codec that was detected or selected.
func (r *Reader) Format() Format { return r.format }

// VOffset returns the current BGZF virtual offset. It is only meaningful
// when Format() == BGZF; it returns the zero Offset otherwise.
func (r *Reader) VOffset() vbgzf.Offset {
	if r.voff == nil {
		return vbgzf.Offset{}
	}
	return r.voff()
}

// SeekPrimary repositions the underlying byte source to pos and
// reconstructs the decompression layer on top of it. pos must be the start
// of a compression block (a BGZF block boundary, or byte 0 for
// non-block-structured codecs). The format detected after the seek must
// match the format detected at construction, or SeekPrimary fails. For
// BGZF, that check is made (by validateBGZFBlockStart) only when the
// Reader was opened with NewReaderPath; over other seekable sources, a
// block that is not BGZF fails the next Read instead.
func (r *Reader) SeekPrimary(pos int64) error {
	if r.rawSeek == nil {
		return seqerr.E(seqerr.FileOpen, "", fmt.Errorf("compress: underlying source does not support seeking"))
	}
	if r.format == BGZF {
		bg, ok := r.dec.(*vbgzf.Reader)
		if !ok {
			return seqerr.E(seqerr.FormatError, "", fmt.Errorf("compress: cannot restart decompression: internal inconsistency"))
		}
		if r.rawFile != nil {
			if err := validateBGZFBlockStart(r.rawFile, vbgzf.FromVirtual(uint64(pos)).File); err != nil {
				return err
			}
		}
		return bg.Seek(vbgzf.FromVirtual(uint64(pos)))
	}
	if _, err := r.rawSeek.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	r.br = bufio.NewReaderSize(r.raw, defaultBufferSize1)
	peek, _ := r.br.Peek(magicPeekSize)
	newFormat := detect(peek)
	if newFormat != r.format {
		return seqerr.E(seqerr.FormatError, "",
			fmt.Errorf("cannot restart decompression: stream was %v, now %v", r.format, newFormat))
	}
	switch r.format {
	case GZ:
		gz, err := gzip.NewReader(r.br)
		if err != nil {
			return err
		}
		r.dec = gz
		r.decCloser = gz
	case BZ2:
		bz, err := bzip2.NewReader(r.br, nil)
		if err != nil {
			return err
		}
		r.dec = bz
		r.decCloser = bz
	case ZSTD:
		zr, err := zstd.NewReader(r.br)
		if err != nil {
			return err
		}
		r.dec = zr
		r.decCloser = ioCloserFunc(zr.Close)
	case None:
		r.dec = r.br
	}
	return nil
}

// validateBGZFBlockStart uses a pread to check that a BGZF block header
// begins at fileOff, without disturbing the file's current read/write
// offset — unlike lseek+read, pread is safe to call concurrently with the
// sequential reads the decompression goroutines are doing against the same
// fd. It catches an out-of-range tabix chunk offset, or bytes of another
// format at that offset, before SeekPrimary commits to repositioning the
// shared file descriptor.
func validateBGZFBlockStart(f *os.File, fileOff int64) error {
	hdr := make([]byte, magicPeekSize)
	n, err := unix.Pread(int(f.Fd()), hdr, fileOff)
	if err != nil {
		return seqerr.E(seqerr.FileOpen, "", err)
	}
	if got := detect(hdr[:n]); got != BGZF {
		return seqerr.E(seqerr.FormatError, "",
			fmt.Errorf("cannot restart decompression: stream was %v, now %v (offset %d)", BGZF, got, fileOff))
	}
	return nil
}

// Close releases any codec resources and, if the Reader was opened from a
// path, closes the underlying file.
func (r *Reader) Close() error {
	var err error
	if r.decCloser != nil {
		err = r.decCloser.Close()
	}
	if r.rawFile != nil {
		if cerr := r.rawFile.Close(); err == nil {
			err = cerr
		}
	}
	return errors.Wrap(err, "compress: close")
}

type ioCloserFunc func() error

func (f ioCloserFunc) Close() error { return f() }
