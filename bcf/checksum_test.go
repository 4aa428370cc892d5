package bcf

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/seqio/variant"
)

func TestChecksumWriterReaderAgree(t *testing.T) {
	h := newTestHeader(t)
	recs := []variant.Record{
		{
			Chrom: "chr1", Pos: 5, Ref: "C", Alt: []string{"T"},
			Qual: variant.Default(variant.KindFloat32), Filter: []string{"PASS"},
			Format: []string{"GT"},
			Samples: [][]variant.Value{
				{variant.String("0/0")},
				{variant.String("0/1")},
			},
		},
		{
			Chrom: "chr1", Pos: 100, Ref: "A", Alt: []string{"G"},
			Qual: variant.Float32(50), Filter: []string{"PASS"},
			Info:   []variant.InfoField{{Key: "DP", Value: variant.Int32(10)}},
			Format: []string{"GT", "DP"},
			Samples: [][]variant.Value{
				{variant.String("0/1"), variant.Int32(8)},
				{variant.String("1/1"), variant.Default(variant.KindInt32)},
			},
		},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, h)
	wsum := w.EnableChecksum()
	for i := range recs {
		require.NoError(t, w.Write(&recs[i]))
	}
	require.NoError(t, w.Close())

	sidecar := filepath.Join(t.TempDir(), "out.bcf.crc")
	require.NoError(t, wsum.WriteSidecarFile(sidecar))

	r, err := NewReader(&buf)
	require.NoError(t, err)
	rsum := r.EnableChecksum()

	var got variant.Record
	n := 0
	for r.Scan(&got) {
		n++
	}
	require.NoError(t, r.Err())
	assert.Equal(t, len(recs), n)

	assert.Equal(t, wsum.Sum64(), rsum.Sum64())

	ok, err := rsum.VerifySidecarFile(sidecar)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChecksumDetectsMismatch(t *testing.T) {
	h := newTestHeader(t)
	rec := variant.Record{
		Chrom: "chr1", Pos: 5, Ref: "C", Alt: []string{"T"},
		Qual: variant.Default(variant.KindFloat32), Filter: []string{"PASS"},
		Format: []string{"GT"},
		Samples: [][]variant.Value{
			{variant.String("0/0")},
			{variant.String("0/1")},
		},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, h)
	wsum := w.EnableChecksum()
	require.NoError(t, w.Write(&rec))
	require.NoError(t, w.Close())

	sidecar := filepath.Join(t.TempDir(), "out.bcf.crc")
	require.NoError(t, wsum.WriteSidecarFile(sidecar))

	other := NewChecksum()
	rec.Pos = 6
	other.Add(&rec, []byte("not the same bytes"))

	ok, err := other.VerifySidecarFile(sidecar)
	require.NoError(t, err)
	assert.False(t, ok)
}
