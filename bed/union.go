package bed

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Set is the disjoint union of every interval in a sorted-by-start BED
// stream, one per chromosome, merging touching/overlapping intervals as it
// loads. It supports point-containment and range-intersection queries fast
// enough to drive per-record filtering over a large region list (a
// capture-panel BED, an exclusion list, ...), the same role
// interval.BEDUnion plays for BAM records in the teacher repo.
//
// Set is implemented as length-2N sequences per chromosome: interval k's
// (0-based) start is at index 2k and its end at 2k+1, intervals in
// increasing order. This reuses ordinary []int64 binary search instead of a
// struct-slice, and makes inversion trivial (not implemented here, since
// nothing in this module needs it).
type Set struct {
	byChrom map[string][]int64

	lastChrom     string
	lastIntervals []int64
	lastPosPlus1  int64
	lastIdx       int
	sequential    bool
}

// NewSet reads every record from r, which must be sorted by chromosome and
// then by start position, and returns their merged disjoint union.
func NewSet(r io.Reader) (*Set, error) {
	s := &Set{byChrom: make(map[string][]int64)}

	br := NewReader(r)
	var rec Record
	prevChrom := ""
	var prevStart, prevEnd int64 = -1, -1
	var intervals []int64
	flush := func() {
		if prevChrom != "" && prevEnd != -1 {
			intervals = append(intervals, prevStart, prevEnd)
		}
		if prevChrom != "" {
			s.byChrom[prevChrom] = intervals
		}
	}
	for br.Scan(&rec) {
		if rec.ChromEnd <= rec.ChromStart {
			continue
		}
		if rec.Chrom != prevChrom {
			flush()
			if _, ok := s.byChrom[rec.Chrom]; ok {
				return nil, fmt.Errorf("bed: unsorted input (chromosome %q appears twice non-contiguously)", rec.Chrom)
			}
			prevChrom = rec.Chrom
			prevStart, prevEnd = rec.ChromStart, rec.ChromEnd
			intervals = nil
			continue
		}
		switch {
		case rec.ChromStart > prevEnd:
			intervals = append(intervals, prevStart, prevEnd)
			prevStart, prevEnd = rec.ChromStart, rec.ChromEnd
		case rec.ChromStart < prevStart:
			return nil, fmt.Errorf("bed: unsorted input on chromosome %q", rec.Chrom)
		default:
			if rec.ChromEnd > prevEnd {
				prevEnd = rec.ChromEnd
			}
		}
	}
	if err := br.Err(); err != nil {
		return nil, err
	}
	flush()
	s.lastChrom = ""
	s.lastIdx = -1
	return s, nil
}

// searchInt64 returns the index of the first element of a that is >= x, or
// len(a) if there is none.
func searchInt64(a []int64, x int64) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= x })
}

// fwdsearchInt64 probes a[idx], a[idx+1], a[idx+3], a[idx+7], ... before
// finishing with a binary search; it beats a plain sort.Search when the
// caller queries positions in increasing order, since the answer is usually
// very close to the previous one.
func fwdsearchInt64(a []int64, x int64, idx int) int {
	start, end := idx, len(a)
	step := 1
	for idx < end {
		if a[idx] >= x {
			end = idx
			break
		}
		start = idx + 1
		idx += step
		step *= 2
	}
	for start < end {
		mid := int(uint(start+end) >> 1)
		if a[mid] >= x {
			end = mid
		} else {
			start = mid + 1
		}
	}
	return start
}

// Contains reports whether pos (0-based) falls inside one of the set's
// intervals on chrom.
func (s *Set) Contains(chrom string, pos int64) bool {
	posPlus1 := pos + 1
	if chrom != s.lastChrom {
		s.lastChrom = chrom
		s.lastIntervals = s.byChrom[chrom]
		if s.lastIntervals == nil {
			return false
		}
		s.lastIdx = searchInt64(s.lastIntervals, posPlus1)
		s.lastPosPlus1 = posPlus1
		s.sequential = true
		return s.lastIdx&1 == 1
	}
	if s.lastIntervals == nil {
		return false
	}
	if s.sequential && posPlus1 >= s.lastPosPlus1 {
		s.lastIdx = fwdsearchInt64(s.lastIntervals, posPlus1, s.lastIdx)
		s.lastPosPlus1 = posPlus1
		return s.lastIdx&1 == 1
	}
	s.sequential = false
	return searchInt64(s.lastIntervals, posPlus1)&1 == 1
}

// Intersects reports whether the half-open interval [begin, end) on chrom
// overlaps any interval in the set.
func (s *Set) Intersects(chrom string, begin, end int64) bool {
	intervals := s.byChrom[chrom]
	if intervals == nil {
		return false
	}
	idx := searchInt64(intervals, begin+1)
	if idx&1 == 1 {
		// begin already falls inside interval (idx-1)/2.
		return true
	}
	return idx != len(intervals) && intervals[idx] < end
}

// ParseRegion parses a "chrom:begin-end" / "chrom:pos" / "chrom" region
// string into 0-based half-open coordinates, the same grammar samtools/
// tabix command-line tools accept. A bare chromosome name with no colon
// matches the whole contig (end is -1, meaning unbounded).
func ParseRegion(s string) (chrom string, begin, end int64, err error) {
	if s == "" {
		return "", 0, 0, fmt.Errorf("bed: empty region string")
	}
	colon := strings.IndexByte(s, ':')
	if colon == -1 {
		return s, 0, -1, nil
	}
	if colon == 0 {
		return "", 0, 0, fmt.Errorf("bed: empty chromosome in region %q", s)
	}
	chrom = s[:colon]
	rangeStr := s[colon+1:]
	dash := strings.IndexByte(rangeStr, '-')
	if dash == -1 {
		pos, perr := strconv.ParseInt(rangeStr, 10, 64)
		if perr != nil {
			return "", 0, 0, perr
		}
		if pos <= 0 {
			return "", 0, 0, fmt.Errorf("bed: position %q out of range in region %q", rangeStr, s)
		}
		return chrom, pos - 1, pos, nil
	}
	begin1, perr := strconv.ParseInt(rangeStr[:dash], 10, 64)
	if perr != nil {
		return "", 0, 0, perr
	}
	if begin1 <= 0 {
		return "", 0, 0, fmt.Errorf("bed: start %q out of range in region %q", rangeStr[:dash], s)
	}
	endPos, perr := strconv.ParseInt(rangeStr[dash+1:], 10, 64)
	if perr != nil {
		return "", 0, 0, perr
	}
	if endPos < begin1 {
		return "", 0, 0, fmt.Errorf("bed: invalid range %q", rangeStr)
	}
	return chrom, begin1 - 1, endPos, nil
}
