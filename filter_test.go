package seqio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/seqio/bed"
	"github.com/grailbio/seqio/variant"
)

func TestReaderFilterAgainstBEDSet(t *testing.T) {
	set, err := bed.NewSet(strings.NewReader("chr1\t15\t25\n"))
	require.NoError(t, err)

	h := newTestHeader()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, WriterOpts{Format: FormatVCF})
	require.NoError(t, err)
	for _, pos := range []int64{10, 20, 30} {
		rec := regionTestRecord(pos)
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()), ReaderOpts{
		Format: FormatVCF,
		Filter: func(rec *variant.Record) bool {
			return set.Intersects(rec.Chrom, rec.Pos-1, rec.End())
		},
	})
	require.NoError(t, err)

	var got []int64
	var rec variant.Record
	for r.Scan(&rec) {
		got = append(got, rec.Pos)
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []int64{20}, got)
}
