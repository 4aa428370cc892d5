// Package tabix implements the tabix coordinate-sorted index: a linear +
// R-tree binning index over BGZF virtual offsets that lets a reader jump
// directly to the byte ranges that can contain records overlapping a given
// genomic region.
package tabix

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/biogo/store/llrb"

	"github.com/grailbio/seqio/seqerr"
	"github.com/grailbio/seqio/vbgzf"
)

var magic = [4]byte{'T', 'B', 'I', 0x1}

// Format identifies the column layout of the indexed text format, as
// recorded in the on-disk header's "format" field.
type Format int32

const (
	FormatGeneric Format = 0
	FormatSAM     Format = 1
	FormatVCF     Format = 2
)

const zeroBasedFlag = 0x10000

// binEntry holds every chunk recorded for one bin.
type binEntry struct {
	id     uint32
	chunks []vbgzf.Chunk
}

// binKey adapts a bin id for storage in an llrb.Tree, the same Comparable
// idiom encoding/bampair/shard_info.go uses for its shard-by-key index.
type binKey struct {
	id  uint32
	bin *binEntry
}

func (k binKey) Compare(other llrb.Comparable) int {
	o := other.(binKey)
	switch {
	case k.id < o.id:
		return -1
	case k.id > o.id:
		return 1
	default:
		return 0
	}
}

// reference is the per-contig index block: a bin tree plus the linear
// interval array.
type reference struct {
	bins      llrb.Tree
	nbins     int
	intervals []vbgzf.Offset
}

func (r *reference) bin(id uint32) *binEntry {
	if got := r.bins.Get(binKey{id: id}); got != nil {
		return got.(binKey).bin
	}
	return nil
}

func (r *reference) addChunk(id uint32, c vbgzf.Chunk) {
	if e := r.bin(id); e != nil {
		e.chunks = append(e.chunks, c)
		return
	}
	e := &binEntry{id: id, chunks: []vbgzf.Chunk{c}}
	r.bins.Insert(binKey{id: id, bin: e})
	r.nbins++
}

// Index is an in-memory tabix index, readable from and writable to the
// on-disk TBI format (§4.B / §6).
type Index struct {
	Format      Format
	ZeroBased   bool
	NameColumn  int32
	BeginColumn int32
	EndColumn   int32
	MetaChar    rune
	Skip        int32

	names   []string
	nameIdx map[string]int
	refs    []*reference

	noCoor *uint64
}

// New returns an empty index ready for Add calls.
func New() *Index {
	return &Index{nameIdx: make(map[string]int)}
}

// Names returns the reference names in file order. The result must not be
// modified.
func (idx *Index) Names() []string { return idx.names }

func (idx *Index) refFor(name string) *reference {
	id, ok := idx.nameIdx[name]
	if !ok {
		id = len(idx.names)
		idx.names = append(idx.names, name)
		idx.nameIdx[name] = id
		idx.refs = append(idx.refs, &reference{})
	}
	return idx.refs[id]
}

// Add records that a record spanning the half-open interval [beg, end) on
// chrom was written at virtual-offset chunk c. It updates both the bin the
// record falls in and the linear-interval array, per §4.B/§3.
func (idx *Index) Add(chrom string, beg, end int64, c vbgzf.Chunk) {
	ref := idx.refFor(chrom)
	ref.addChunk(binFor(beg, end), c)

	firstWin := int(beg >> linearWindowShift)
	lastWin := int((end - 1) >> linearWindowShift)
	if lastWin < firstWin {
		lastWin = firstWin
	}
	for w := firstWin; w <= lastWin; w++ {
		if w >= len(ref.intervals) {
			for len(ref.intervals) <= w {
				ref.intervals = append(ref.intervals, vbgzf.Offset{})
			}
			ref.intervals[w] = c.Begin
			continue
		}
		if c.Begin.Less(ref.intervals[w]) {
			ref.intervals[w] = c.Begin
		}
	}
}

// Chunks returns the byte ranges (in virtual-offset space) that may contain
// records on chrom overlapping [beg, end), per §4.B's chunk-enumeration
// algorithm. Callers must still post-filter decoded records against
// [beg, end), since bins and the linear index are conservative
// over-approximations.
func (idx *Index) Chunks(chrom string, beg, end int64) ([]vbgzf.Chunk, error) {
	id, ok := idx.nameIdx[chrom]
	if !ok {
		return nil, seqerr.E(seqerr.UnknownContig, chrom, fmt.Errorf("tabix: reference %q not present in index", chrom))
	}
	ref := idx.refs[id]

	linearIdx := int(beg >> linearWindowShift)
	var minOffset vbgzf.Offset
	if linearIdx < len(ref.intervals) {
		minOffset = ref.intervals[linearIdx]
	} else if len(ref.intervals) > 0 {
		return nil, nil
	}

	var chunks []vbgzf.Chunk
	for _, id := range reg2bins(beg, end) {
		e := ref.bin(id)
		if e == nil {
			continue
		}
		for _, c := range e.chunks {
			if c.End.Compare(minOffset) > 0 {
				chunks = append(chunks, c)
			}
		}
	}
	return mergeChunks(chunks), nil
}

// mergeChunks sorts chunks by start offset and coalesces adjacent/
// overlapping ones, the same sort+uniq idiom encoding/bam/index.go's
// AllOffsets uses for its offset list.
func mergeChunks(chunks []vbgzf.Chunk) []vbgzf.Chunk {
	if len(chunks) == 0 {
		return chunks
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Begin.Less(chunks[j].Begin) })
	merged := chunks[:1]
	for _, c := range chunks[1:] {
		last := &merged[len(merged)-1]
		if c.Begin.Compare(last.End) <= 0 {
			if c.End.Compare(last.End) > 0 {
				last.End = c.End
			}
			continue
		}
		merged = append(merged, c)
	}
	return merged
}

// ReadFrom parses a tabix index from its decompressed representation (the
// spec stores it BGZF-compressed on disk; callers decompress with
// seqio/compress before calling ReadFrom).
func ReadFrom(r io.Reader) (*Index, error) {
	var m [4]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return nil, seqerr.E(seqerr.UnexpectedEOF, "magic", err)
	}
	if m != magic {
		return nil, seqerr.E(seqerr.FormatError, "magic", fmt.Errorf("tabix: bad magic %v", m))
	}
	idx := New()

	var nRef, format, col1, col2, col3, meta, skip, lnm int32
	for _, f := range []*int32{&nRef, &format, &col1, &col2, &col3, &meta, &skip, &lnm} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return nil, seqerr.E(seqerr.UnexpectedEOF, "header", err)
		}
	}
	idx.Format = Format(format &^ zeroBasedFlag)
	idx.ZeroBased = format&zeroBasedFlag != 0
	idx.NameColumn, idx.BeginColumn, idx.EndColumn = col1, col2, col3
	idx.MetaChar = rune(meta)
	idx.Skip = skip

	nameBuf := make([]byte, lnm)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return nil, seqerr.E(seqerr.UnexpectedEOF, "names", err)
	}
	names := strings.Split(strings.TrimRight(string(nameBuf), "\x00"), "\x00")
	for i, n := range names {
		idx.names = append(idx.names, n)
		idx.nameIdx[n] = i
	}

	for ri := int32(0); ri < nRef; ri++ {
		ref := &reference{}
		var nBin int32
		if err := binary.Read(r, binary.LittleEndian, &nBin); err != nil {
			return nil, seqerr.E(seqerr.UnexpectedEOF, "n_bin", err)
		}
		for b := int32(0); b < nBin; b++ {
			var binID uint32
			var nChunk int32
			if err := binary.Read(r, binary.LittleEndian, &binID); err != nil {
				return nil, seqerr.E(seqerr.UnexpectedEOF, "bin", err)
			}
			if err := binary.Read(r, binary.LittleEndian, &nChunk); err != nil {
				return nil, seqerr.E(seqerr.UnexpectedEOF, "n_chunk", err)
			}
			e := &binEntry{id: binID}
			for c := int32(0); c < nChunk; c++ {
				var beg, end uint64
				if err := binary.Read(r, binary.LittleEndian, &beg); err != nil {
					return nil, seqerr.E(seqerr.UnexpectedEOF, "chunk", err)
				}
				if err := binary.Read(r, binary.LittleEndian, &end); err != nil {
					return nil, seqerr.E(seqerr.UnexpectedEOF, "chunk", err)
				}
				e.chunks = append(e.chunks, vbgzf.Chunk{Begin: vbgzf.FromVirtual(beg), End: vbgzf.FromVirtual(end)})
			}
			ref.bins.Insert(binKey{id: binID, bin: e})
			ref.nbins++
		}
		var nIntv int32
		if err := binary.Read(r, binary.LittleEndian, &nIntv); err != nil {
			return nil, seqerr.E(seqerr.UnexpectedEOF, "n_intv", err)
		}
		ref.intervals = make([]vbgzf.Offset, nIntv)
		for i := int32(0); i < nIntv; i++ {
			var off uint64
			if err := binary.Read(r, binary.LittleEndian, &off); err != nil {
				return nil, seqerr.E(seqerr.UnexpectedEOF, "interval", err)
			}
			ref.intervals[i] = vbgzf.FromVirtual(off)
		}
		idx.refs = append(idx.refs, ref)
	}

	var noCoor uint64
	if err := binary.Read(r, binary.LittleEndian, &noCoor); err == nil {
		idx.noCoor = &noCoor
	} else if err != io.EOF {
		return nil, seqerr.E(seqerr.UnexpectedEOF, "n_no_coor", err)
	}
	return idx, nil
}

// WriteTo serializes idx in the on-disk TBI format. The caller is
// responsible for BGZF-compressing the result.
func (idx *Index) WriteTo(w io.Writer) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	format := int32(idx.Format)
	if idx.ZeroBased {
		format |= zeroBasedFlag
	}
	var nameBuf strings.Builder
	for _, n := range idx.names {
		nameBuf.WriteString(n)
		nameBuf.WriteByte(0)
	}
	fields := []int32{
		int32(len(idx.names)), format, idx.NameColumn, idx.BeginColumn, idx.EndColumn,
		int32(idx.MetaChar), idx.Skip, int32(nameBuf.Len()),
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	if _, err := w.Write([]byte(nameBuf.String())); err != nil {
		return err
	}
	for _, ref := range idx.refs {
		if err := binary.Write(w, binary.LittleEndian, int32(ref.nbins)); err != nil {
			return err
		}
		var writeErr error
		ref.bins.Do(func(c llrb.Comparable) bool {
			e := c.(binKey).bin
			if writeErr = binary.Write(w, binary.LittleEndian, e.id); writeErr != nil {
				return true
			}
			if writeErr = binary.Write(w, binary.LittleEndian, int32(len(e.chunks))); writeErr != nil {
				return true
			}
			for _, ch := range e.chunks {
				if writeErr = binary.Write(w, binary.LittleEndian, ch.Begin.Virtual()); writeErr != nil {
					return true
				}
				if writeErr = binary.Write(w, binary.LittleEndian, ch.End.Virtual()); writeErr != nil {
					return true
				}
			}
			return false
		})
		if writeErr != nil {
			return writeErr
		}
		if err := binary.Write(w, binary.LittleEndian, int32(len(ref.intervals))); err != nil {
			return err
		}
		for _, off := range ref.intervals {
			if err := binary.Write(w, binary.LittleEndian, off.Virtual()); err != nil {
				return err
			}
		}
	}
	if idx.noCoor != nil {
		return binary.Write(w, binary.LittleEndian, *idx.noCoor)
	}
	return nil
}
