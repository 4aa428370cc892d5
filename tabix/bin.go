package tabix

// binLevel describes one level of the UCSC R-tree binning scheme over a
// 512 Mbp window: offset is the first bin id at that level, shift is the
// log2 of the genomic span (in bp) each bin at that level covers.
type binLevel struct {
	offset uint32
	shift  uint32
}

// binLevels are ordered from coarsest (depth 0, one 512 Mbp bin) to finest
// (depth 5, 16 Kbp bins), matching §3's bin numbering table.
var binLevels = [6]binLevel{
	{0, 29},
	{1, 26},
	{9, 23},
	{73, 20},
	{585, 17},
	{4681, 14},
}

// maxCoord is the largest coordinate the binning scheme supports (2^29,
// 512 Mbp).
const maxCoord = 1 << 29

// reg2bins enumerates, for the half-open interval [beg, end), every bin id
// at each of the six levels whose span overlaps the interval (end is clamped
// to maxCoord first). It returns nil if beg >= end.
func reg2bins(beg, end int64) []uint32 {
	if beg >= end {
		return nil
	}
	if end > maxCoord {
		end = maxCoord
	}
	end--
	if end < beg {
		return nil
	}
	bins := make([]uint32, 0, len(binLevels))
	for _, lvl := range binLevels {
		lo := lvl.offset + uint32(beg>>lvl.shift)
		hi := lvl.offset + uint32(end>>lvl.shift)
		for k := lo; k <= hi; k++ {
			bins = append(bins, k)
		}
	}
	return bins
}

// binFor returns the single finest-level bin that fully contains
// [beg, end), used when indexing a record (as opposed to querying a
// region). binLevels is ordered coarsest-first, so this walks it in
// reverse to try the finest level first.
func binFor(beg, end int64) uint32 {
	end--
	for i := len(binLevels) - 1; i >= 0; i-- {
		lvl := binLevels[i]
		if beg>>lvl.shift == end>>lvl.shift {
			return lvl.offset + uint32(beg>>lvl.shift)
		}
	}
	return 0
}

// linearWindowShift is log2(16 KiB), the width of one linear-interval
// bucket.
const linearWindowShift = 14
