package seqio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/seqio/tabix"
	"github.com/grailbio/seqio/variant"
	"github.com/grailbio/seqio/vbgzf"
	"github.com/grailbio/seqio/vcf"
)

func regionTestRecord(pos int64) *variant.Record {
	return &variant.Record{
		Chrom:  "chr1",
		Pos:    pos,
		Ref:    "A",
		Alt:    []string{"G"},
		Qual:   variant.Default(variant.KindFloat32),
		Filter: []string{"PASS"},
		Format: []string{"GT"},
		Samples: [][]variant.Value{
			{variant.String("0/1")},
		},
	}
}

// writeRegionFixture writes a single-block BGZF VCF file holding one record
// per pos in positions, plus a tabix index with one chunk per record
// spanning that record's bytes (the first chunk also spans the header,
// which vcf.Writer writes with the first record), so Reader.scanChunked is
// exercised against
// real seek/VOffset machinery without needing multi-block BGZF payloads.
func writeRegionFixture(t *testing.T, positions []int64) (vcfPath string) {
	h := newTestHeader()

	dir := t.TempDir()
	vcfPath = filepath.Join(dir, "calls.vcf.bgz")
	f, err := os.Create(vcfPath)
	require.NoError(t, err)
	defer f.Close()

	bg, err := vbgzf.NewWriter(f, -1)
	require.NoError(t, err)
	vw := vcf.NewWriter(bg, h, vcf.WriterOpts{})

	idx := tabix.New()
	for _, pos := range positions {
		begin := bg.VOffset()
		require.NoError(t, vw.Write(regionTestRecord(pos)))
		require.NoError(t, vw.Close())
		end := bg.VOffset()
		idx.Add("chr1", pos-1, pos, vbgzf.Chunk{Begin: begin, End: end})
	}
	require.NoError(t, bg.Close())

	idxFile, err := os.Create(vcfPath + ".tbi")
	require.NoError(t, err)
	defer idxFile.Close()
	require.NoError(t, idx.WriteTo(idxFile))

	return vcfPath
}

func TestReaderRegionFilteredScan(t *testing.T) {
	path := writeRegionFixture(t, []int64{10, 20, 30, 40})

	r, err := NewReaderPath(path, ReaderOpts{
		Format: FormatVCF,
		Region: &Region{Chrom: "chr1", Begin: 15, End: 35},
	})
	require.NoError(t, err)
	defer r.Close()

	var got []int64
	var rec variant.Record
	for r.Scan(&rec) {
		got = append(got, rec.Pos)
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []int64{20, 30}, got)
}

func TestReaderRegionFilteredScanEmptyResult(t *testing.T) {
	path := writeRegionFixture(t, []int64{10, 20, 30})

	r, err := NewReaderPath(path, ReaderOpts{
		Format: FormatVCF,
		Region: &Region{Chrom: "chr1", Begin: 100, End: 200},
	})
	require.NoError(t, err)
	defer r.Close()

	var rec variant.Record
	require.False(t, r.Scan(&rec))
	require.NoError(t, r.Err())
}
