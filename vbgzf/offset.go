// Package vbgzf implements the BGZF block-compression codec and its virtual
// offset addressing scheme, used by seqio's transparent compression stream
// and by the tabix index.
//
// A BGZF file is a sequence of independently-decompressible gzip blocks, each
// carrying a "BC" extra subfield recording the block's compressed size. This
// lets a reader seek to the start of any block without decompressing the
// blocks before it. See the SAM/BAM specification for the on-wire layout.
package vbgzf

import "fmt"

// Offset is a BGZF virtual offset: the pair (compressed block start offset,
// uncompressed offset within that block). It is encoded on the wire as a
// single 64-bit little-endian integer with the block offset in the high 48
// bits and the within-block offset in the low 16 bits.
type Offset struct {
	File  int64  // compressed byte offset of the block's first byte
	Block uint16 // uncompressed byte offset within that block
}

// FromVirtual decodes a 64-bit virtual offset into its two components.
func FromVirtual(v uint64) Offset {
	return Offset{
		File:  int64(v >> 16),
		Block: uint16(v),
	}
}

// Virtual encodes o as a 64-bit virtual offset.
func (o Offset) Virtual() uint64 {
	return uint64(o.File)<<16 | uint64(o.Block)
}

// Compare returns -1, 0, or 1 as o is less than, equal to, or greater than
// other, ordering first by File then by Block.
func (o Offset) Compare(other Offset) int {
	switch {
	case o.File < other.File:
		return -1
	case o.File > other.File:
		return 1
	case o.Block < other.Block:
		return -1
	case o.Block > other.Block:
		return 1
	default:
		return 0
	}
}

// Less reports whether o sorts before other.
func (o Offset) Less(other Offset) bool { return o.Compare(other) < 0 }

func (o Offset) String() string {
	return fmt.Sprintf("%d/%d", o.File, o.Block)
}

// Chunk is a contiguous span of the BGZF virtual offset space, as emitted by
// a tabix bin lookup.
type Chunk struct {
	Begin Offset
	End   Offset
}
