package seqio

import (
	"github.com/grailbio/seqio/compress"
	"github.com/grailbio/seqio/variant"
	"github.com/grailbio/seqio/vcf"
)

// Region restricts a Reader to records overlapping [Begin, End) on Chrom
// (1-based, half-open), driving region-filtered reading (§4.H) when an
// index is available.
type Region struct {
	Chrom string
	Begin int64
	End   int64

	// Index is an explicit path to the tabix index file. If empty, Reader
	// tries path+".tbi". AllowLinearScan permits falling back to a full
	// linear scan (ignoring the index) when no index file can be found.
	Index          string
	AllowLinearScan bool
}

// ReaderOpts configures a Reader.
type ReaderOpts struct {
	// Format forces the format handler; Unknown triggers GuessFormat.
	Format Format

	// Region, if non-nil, restricts reading to an overlapping subrange.
	Region *Region

	// Compression, when set, forces the compression codec instead of
	// detecting it from the stream's magic bytes.
	Compression compress.Format

	// Threads is the BGZF decompression parallelism; see the compress
	// package's threads=1 downgrade contract.
	Threads int

	// Warn enables diagnostic logging of recoverable anomalies (undeclared
	// header entries, etc.) via vlog.
	Warn bool

	// Filter, if non-nil, is applied to every record that survives Region
	// filtering (or every record, if Region is nil); Scan skips any record
	// for which it returns false. A *bed.Set's Intersects method, closed
	// over a record's Chrom/Pos/End, is a common Filter source (e.g.
	// restricting a VCF read to a capture panel's intervals).
	Filter func(*variant.Record) bool

	VCF ReaderVCFOpts
}

// ReaderVCFOpts threads VCF-specific knobs through ReaderOpts without
// coupling the top-level options struct to the vcf package's internals
// beyond this one conversion point.
type ReaderVCFOpts struct{}

func (o ReaderOpts) toVCFOpts() vcf.ReaderOpts {
	return vcf.ReaderOpts{Warn: o.Warn}
}

// WriterOpts configures a Writer.
type WriterOpts struct {
	Format Format

	Compression compress.Format
	// Level is the compression level in [-1, 9], passed to the compression
	// layer as is: -1 means the codec's default, and 0 is level 0 (no
	// compression for gzip and BGZF).
	Level int
	// Threads is the BGZF compression parallelism.
	Threads int

	VCF WriterVCFOpts
}

// WriterVCFOpts mirrors vcf.WriterOpts; see ReaderVCFOpts.
type WriterVCFOpts struct {
	WriteIDX bool
	CRLF     bool
}

func (o WriterOpts) toVCFOpts() vcf.WriterOpts {
	return vcf.WriterOpts{WriteIDX: o.VCF.WriteIDX, CRLF: o.VCF.CRLF}
}
