package tabix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/seqio/vbgzf"
)

func TestBinForPrefersFinestLevel(t *testing.T) {
	// A record entirely within one 16 Kbp window gets the finest bin, not
	// the coarsest 512 Mbp one.
	assert.Equal(t, binLevels[5].offset, binFor(100, 101))
	// A record spanning two 16 Kbp windows but within one 128 Kbp window
	// falls back to the next coarser level that does contain it.
	assert.Equal(t, binLevels[4].offset, binFor(1<<14-1, 1<<14+1))
}

func TestReg2BinsIncludesBinFor(t *testing.T) {
	bin := binFor(1000, 1001)
	bins := reg2bins(1000, 1001)
	assert.Contains(t, bins, bin)
}

func TestIndexChunksFiltersByContigAndMerges(t *testing.T) {
	idx := New()
	idx.Add("chr1", 9, 10, vbgzf.Chunk{Begin: vbgzf.Offset{File: 0, Block: 0}, End: vbgzf.Offset{File: 0, Block: 10}})
	idx.Add("chr1", 19, 20, vbgzf.Chunk{Begin: vbgzf.Offset{File: 0, Block: 10}, End: vbgzf.Offset{File: 0, Block: 20}})
	idx.Add("chr2", 9, 10, vbgzf.Chunk{Begin: vbgzf.Offset{File: 100, Block: 0}, End: vbgzf.Offset{File: 100, Block: 10}})

	chunks, err := idx.Chunks("chr1", 0, 30)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, vbgzf.Offset{File: 0, Block: 0}, chunks[0].Begin)
	assert.Equal(t, vbgzf.Offset{File: 0, Block: 20}, chunks[0].End)

	_, err = idx.Chunks("chrX", 0, 30)
	assert.Error(t, err)
}
