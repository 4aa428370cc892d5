package vbgzf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"v.io/x/lib/vlog"
)

const (
	// DefaultUncompressedBlockSize is the uncompressed payload size placed
	// in each BGZF block. Matches the value sambamba and biogo use.
	DefaultUncompressedBlockSize = 0x0ff00
	// MaxUncompressedBlockSize is the largest legal per-block payload.
	MaxUncompressedBlockSize = 0x10000
	// compressedBlockSize is the largest legal compressed block, including
	// header and extra fields.
	compressedBlockSize = 0x10000
)

// bgzfExtra is the BC extra-subfield template written into every block's
// gzip header; bytes [4:6] are overwritten with BSIZE-1 once the block's
// compressed length is known.
var bgzfExtra = [6]byte{66, 67, 2, 0, 0, 0}

// terminator is the empty BGZF block that must end a well-formed file.
var terminator = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x06, 0x00, 0x42, 0x43,
	0x02, 0x00, 0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Writer compresses data into BGZF format. It batches writes into
// DefaultUncompressedBlockSize chunks, each becoming one independent gzip
// block with a "BC" extra subfield recording its compressed size.
//
// Writer is single-threaded, and seqio/compress wraps one Writer per BGZF
// output stream, so BGZF blocks are compressed one at a time on the
// caller's goroutine. CloseWithoutTerminator lets separately written BGZF
// streams be concatenated.
type Writer struct {
	level            int
	uncompressedSize int
	w                io.Writer
	original         bytes.Buffer
	compressed       bytes.Buffer
	coffset          int64
}

// NewWriter returns a BGZF writer at the given flate compression level ([-1,
// 9], -1 meaning "algorithm default").
func NewWriter(w io.Writer, level int) (*Writer, error) {
	if level < -1 || level > 9 {
		level = -1
	}
	return &Writer{
		level:            level,
		uncompressedSize: DefaultUncompressedBlockSize,
		w:                w,
	}, nil
}

// Write implements io.Writer.
func (w *Writer) Write(buf []byte) (int, error) {
	for i := 0; i < len(buf); {
		end := len(buf)
		limit := i + w.uncompressedSize - w.original.Len()
		if limit < end {
			end = limit
		}
		n, _ := w.original.Write(buf[i:end])
		i += n
		if err := w.tryCompress(false); err != nil {
			return i, err
		}
	}
	return len(buf), nil
}

// CloseWithoutTerminator flushes any partial block but does not append the
// BGZF EOF terminator, so that further shards may be concatenated after it.
func (w *Writer) CloseWithoutTerminator() error {
	return w.tryCompress(true)
}

// Close flushes the current block and appends the BGZF terminator.
func (w *Writer) Close() error {
	if err := w.CloseWithoutTerminator(); err != nil {
		return err
	}
	_, err := w.w.Write(terminator)
	return err
}

func (w *Writer) tryCompress(flush bool) error {
	for w.original.Len() >= w.uncompressedSize || (flush && w.original.Len() > 0) {
		w.compressed.Reset()
		gz, err := newBlockWriter(&w.compressed, w.level)
		if err != nil {
			return err
		}
		if w.original.Len() > 0 {
			if _, err := gz.Write(w.original.Next(w.uncompressedSize)); err != nil {
				return err
			}
		}
		if err := gz.Close(); err != nil {
			return err
		}

		b := w.compressed.Bytes()
		bsize := w.compressed.Len() - 1
		if bsize >= compressedBlockSize {
			vlog.Errorf("bgzf: compressed block %d exceeds %d, splitting further would be required", bsize, compressedBlockSize)
			return fmt.Errorf("bgzf: compressed block too big: %d > %d", bsize, compressedBlockSize)
		}
		b[bsizeFieldOffset] = byte(bsize)
		b[bsizeFieldOffset+1] = byte(bsize >> 8)

		n := w.compressed.Len()
		if _, err := w.compressed.WriteTo(w.w); err != nil {
			return err
		}
		w.coffset += int64(n)
	}
	return nil
}

// VOffset returns the virtual offset of the next byte to be written.
func (w *Writer) VOffset() Offset {
	return Offset{File: w.coffset, Block: uint16(w.original.Len())}
}

// bsizeFieldOffset is the byte offset, within a minimal gzip header with a 6
// byte Extra field, of the BSIZE-1 little-endian uint16.
const bsizeFieldOffset = 16

// newBlockWriter returns a fresh gzip-compatible block writer carrying the
// BGZF "BC" extra subfield. klauspost/compress/flate only emits a raw DEFLATE
// stream, so the gzip envelope (header, CRC32, ISIZE trailer) is built by
// hand here, following the layout encoding/bgzf/writer.go uses with its cgo
// deflate factories.
func newBlockWriter(w *bytes.Buffer, level int) (*blockWriter, error) {
	bw := &blockWriter{buf: w}
	bw.writeHeader()
	fw, err := flate.NewWriter(w, level)
	if err != nil {
		return nil, err
	}
	bw.fw = fw
	return bw, nil
}

type blockWriter struct {
	buf  *bytes.Buffer
	fw   *flate.Writer
	crc  uint32
	size uint32
}

func (bw *blockWriter) writeHeader() {
	bw.buf.Write([]byte{
		0x1f, 0x8b, // magic
		0x08,       // CM = deflate
		0x04,       // FLG = FEXTRA
		0, 0, 0, 0, // MTIME
		0,    // XFL
		0xff, // OS = unknown
		6, 0, // XLEN = 6
	})
	bw.buf.Write(bgzfExtra[:])
}

func (bw *blockWriter) Write(p []byte) (int, error) {
	bw.crc = crc32Update(bw.crc, p)
	bw.size += uint32(len(p))
	return bw.fw.Write(p)
}

func (bw *blockWriter) Close() error {
	if err := bw.fw.Close(); err != nil {
		return err
	}
	var trailer [8]byte
	putUint32(trailer[0:4], bw.crc)
	putUint32(trailer[4:8], bw.size)
	_, err := bw.buf.Write(trailer[:])
	return err
}
