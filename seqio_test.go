package seqio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/seqio/variant"
)

func TestGuessFormat(t *testing.T) {
	assert.Equal(t, FormatVCF, GuessFormat("calls.vcf"))
	assert.Equal(t, FormatVCF, GuessFormat("calls.vcf.gz"))
	assert.Equal(t, FormatBCF, GuessFormat("calls.bcf"))
	assert.Equal(t, FormatFASTA, GuessFormat("ref.fa"))
	assert.Equal(t, FormatFASTQ, GuessFormat("reads.fq.gz"))
	assert.Equal(t, FormatBED, GuessFormat("regions.bed"))
	assert.Equal(t, Unknown, GuessFormat("notes.txt"))
}

func newTestHeader() *variant.Header {
	h := variant.NewHeader()
	must(h.PushContig(variant.ContigMeta{ID: "chr1", Length: 1000}))
	must(h.AddInfo(variant.FieldMeta{ID: "DP", Number: variant.Number{Fixed: 1}, Type: variant.TypeInteger}))
	must(h.AddFilter(variant.FieldMeta{ID: "PASS"}))
	must(h.AddFormat(variant.FieldMeta{ID: "GT", Number: variant.Number{Fixed: 1}, Type: variant.TypeString}))
	h.Samples = []string{"S1"}
	return h
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func newTestRecord() *variant.Record {
	return &variant.Record{
		Chrom:  "chr1",
		Pos:    100,
		Ref:    "A",
		Alt:    []string{"G"},
		Qual:   variant.Default(variant.KindFloat32),
		Filter: []string{"PASS"},
		Info:   []variant.InfoField{{Key: "DP", Value: variant.Int32(7)}},
		Format: []string{"GT"},
		Samples: [][]variant.Value{
			{variant.String("0/1")},
		},
	}
}

func TestWriterReaderRoundTripVCF(t *testing.T) {
	h := newTestHeader()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, WriterOpts{Format: FormatVCF})
	require.NoError(t, err)
	require.NoError(t, w.Write(newTestRecord()))
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()), ReaderOpts{Format: FormatVCF})
	require.NoError(t, err)
	var rec variant.Record
	require.True(t, r.Scan(&rec))
	assert.Equal(t, "chr1", rec.Chrom)
	assert.EqualValues(t, 100, rec.Pos)
	require.False(t, r.Scan(&rec))
	require.NoError(t, r.Err())
}

func TestWriterReaderRoundTripBCF(t *testing.T) {
	h := newTestHeader()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, WriterOpts{Format: FormatBCF})
	require.NoError(t, err)
	require.NoError(t, w.Write(newTestRecord()))
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()), ReaderOpts{Format: FormatBCF})
	require.NoError(t, err)
	var rec variant.Record
	require.True(t, r.Scan(&rec))
	assert.Equal(t, "chr1", rec.Chrom)
	dp, ok := rec.InfoValue("DP")
	require.True(t, ok)
	assert.EqualValues(t, 7, dp.Int())
}

func TestRecordOverlaps(t *testing.T) {
	region := &Region{Chrom: "chr1", Begin: 100, End: 200}
	overlapping := &variant.Record{Chrom: "chr1", Pos: 150, Ref: "A"}
	before := &variant.Record{Chrom: "chr1", Pos: 50, Ref: "A"}
	wrongChrom := &variant.Record{Chrom: "chr2", Pos: 150, Ref: "A"}

	assert.True(t, recordOverlaps(overlapping, region))
	assert.False(t, recordOverlaps(before, region))
	assert.False(t, recordOverlaps(wrongChrom, region))
}
