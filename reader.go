package seqio

import (
	"fmt"
	"io"
	"os"

	"github.com/grailbio/seqio/bcf"
	"github.com/grailbio/seqio/compress"
	"github.com/grailbio/seqio/seqerr"
	"github.com/grailbio/seqio/tabix"
	"github.com/grailbio/seqio/variant"
	"github.com/grailbio/seqio/vbgzf"
	"github.com/grailbio/seqio/vcf"
)

// textScanner is the common surface vcf.Reader and bcf.Reader both
// present.
type textScanner interface {
	Scan(rec *variant.Record) bool
	Err() error
}

// Reader is a format-dispatching input range over variant.Record: begin()
// is folded into NewReader (which reads the header eagerly), and ++it is
// Scan. There is no explicit end() sentinel type — Scan returning false
// plays that role, with Err() distinguishing EOF from failure. Reader is
// not safe to copy (copying a *Reader is fine; copying the struct value it
// points to would alias the underlying file).
type Reader struct {
	closer io.Closer
	cr     *compress.Reader // non-nil whenever the source is seekable (NewReaderPath)
	format Format
	header *variant.Header
	opts   ReaderOpts
	scan   textScanner

	region     *Region
	tabixIndex *tabix.Index
	chunks     []vbgzf.Chunk
	chunkIdx   int
	chunkReady bool
	linearScan bool
	seekErr    error
}

// NewReaderPath opens path, detects or applies the requested compression
// and record format, and prepares to scan records.
func NewReaderPath(path string, opts ReaderOpts) (*Reader, error) {
	if opts.Format == Unknown {
		opts.Format = GuessFormat(path)
	}
	if opts.Format == Unknown {
		return nil, seqerr.E(seqerr.FileOpen, path, formatError(path))
	}

	cr, err := compress.NewReaderPath(path, compress.Options{Format: opts.Compression, Threads: opts.Threads})
	if err != nil {
		return nil, err
	}
	r, err := newReaderFromStream(cr, cr, opts)
	if err != nil {
		cr.Close()
		return nil, err
	}
	r.cr = cr

	if opts.Region != nil {
		if err := r.openIndex(path, opts); err != nil {
			r.Close()
			return nil, err
		}
	}
	return r, nil
}

// NewReader wraps an already-open stream (no file path, hence no tabix
// sidecar auto-discovery: opts.Region requires opts.Region.Index to be
// set, or AllowLinearScan).
func NewReader(src io.Reader, opts ReaderOpts) (*Reader, error) {
	if opts.Format == Unknown {
		return nil, fmt.Errorf("seqio: NewReader requires an explicit Format")
	}
	cr, err := compress.NewReader(src, compress.Options{Format: opts.Compression, Threads: opts.Threads})
	if err != nil {
		return nil, err
	}
	r, err := newReaderFromStream(cr, nil, opts)
	if err != nil {
		return nil, err
	}
	r.cr = cr
	if opts.Region != nil {
		switch {
		case opts.Region.Index != "":
			if err := r.openIndex("", opts); err != nil {
				return nil, err
			}
		case opts.Region.AllowLinearScan:
			r.region = opts.Region
			r.linearScan = true
		default:
			return nil, seqerr.E(seqerr.FileOpen, "", fmt.Errorf("seqio: Region requires an explicit Index path when reading from a stream"))
		}
	}
	return r, nil
}

func newReaderFromStream(stream io.Reader, closer io.Closer, opts ReaderOpts) (*Reader, error) {
	r := &Reader{closer: closer, format: opts.Format, opts: opts}
	switch opts.Format {
	case FormatVCF:
		vr, err := vcf.NewReader(stream, opts.toVCFOpts())
		if err != nil {
			return nil, err
		}
		r.header, r.scan = vr.Header, vr
	case FormatBCF:
		br, err := bcf.NewReader(stream)
		if err != nil {
			return nil, err
		}
		r.header, r.scan = br.Header, br
	default:
		return nil, fmt.Errorf("seqio: format %v is not a variant format handler", opts.Format)
	}
	return r, nil
}

func (r *Reader) openIndex(path string, opts ReaderOpts) error {
	idxPath := opts.Region.Index
	if idxPath == "" {
		idxPath = path + ".tbi"
	}
	f, err := os.Open(idxPath)
	if err != nil {
		if opts.Region.AllowLinearScan {
			r.region = opts.Region
			r.linearScan = true
			return nil
		}
		return seqerr.E(seqerr.FileOpen, idxPath, err)
	}
	defer f.Close()
	cr, err := compress.NewReader(f, compress.Options{})
	if err != nil {
		return err
	}
	idx, err := tabix.ReadFrom(cr)
	if err != nil {
		return err
	}
	// Region is 1-based; tabix bins and linear windows are 0-based.
	chunks, err := idx.Chunks(opts.Region.Chrom, opts.Region.Begin-1, opts.Region.End-1)
	if err != nil {
		return err
	}
	r.tabixIndex = idx
	r.region = opts.Region
	r.chunks = chunks
	return nil
}

// Header returns the VCF/BCF header the stream was parsed against. The
// caller must not mutate it once records are in flight.
func (r *Reader) Header() *variant.Header { return r.header }

// Format returns the format this Reader was constructed for.
func (r *Reader) Format() Format { return r.format }

// Scan parses the next record overlapping the configured Region (or any
// record, if there is none) into rec. It returns false at EOF or on error;
// Err distinguishes the two.
//
// When a tabix index was loaded, Scan walks the region's chunk list (§4.H):
// it seeks the underlying BGZF stream to each chunk's virtual start offset
// in turn, scanning records until the stream's virtual offset passes the
// chunk's end, then advances to the next chunk. A record surviving a
// chunk's coarse bin overlap is still checked against the exact region by
// recordOverlaps, since a bin can span more than the query interval.
func (r *Reader) Scan(rec *variant.Record) bool {
	if r.chunks != nil {
		return r.scanChunked(rec)
	}
	for {
		if !r.scan.Scan(rec) {
			return false
		}
		if r.region != nil && !recordOverlaps(rec, r.region) {
			continue
		}
		if r.opts.Filter != nil && !r.opts.Filter(rec) {
			continue
		}
		return true
	}
}

func (r *Reader) scanChunked(rec *variant.Record) bool {
	for {
		if r.chunkIdx >= len(r.chunks) {
			return false
		}
		chunk := r.chunks[r.chunkIdx]
		if !r.chunkReady {
			if err := r.cr.SeekPrimary(int64(chunk.Begin.Virtual())); err != nil {
				r.seekErr = err
				return false
			}
			if r.format == FormatVCF {
				r.scan = vcf.NewReaderFromHeader(r.cr, r.header, r.opts.toVCFOpts())
			}
			r.chunkReady = true
		}
		if r.cr.VOffset().Virtual() >= chunk.End.Virtual() {
			r.chunkIdx++
			r.chunkReady = false
			continue
		}
		if !r.scan.Scan(rec) {
			if r.scan.Err() != nil {
				return false
			}
			r.chunkIdx++
			r.chunkReady = false
			continue
		}
		if !recordOverlaps(rec, r.region) {
			continue
		}
		if r.opts.Filter != nil && !r.opts.Filter(rec) {
			continue
		}
		return true
	}
}

// recordOverlaps implements §4.H step 4's post-filter: a conservative
// index/linear-scan pass may yield records that don't truly overlap the
// requested region, so every candidate is checked here regardless of how
// it was reached.
func recordOverlaps(rec *variant.Record, region *Region) bool {
	if rec.Chrom != region.Chrom {
		return false
	}
	return rec.Pos < region.End && rec.End() >= region.Begin
}

// Err returns the error that stopped the most recent Scan, or nil if Scan
// stopped only because the stream reached EOF.
func (r *Reader) Err() error {
	if r.seekErr != nil {
		return r.seekErr
	}
	return r.scan.Err()
}

// Close releases the underlying file, if NewReaderPath opened one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
