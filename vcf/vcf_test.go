package vcf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/seqio/variant"
)

const testVCF = `##fileformat=VCFv4.2
##contig=<ID=chr1,length=1000>
##INFO=<ID=DP,Number=1,Type=Integer,Description="Depth">
##INFO=<ID=AF,Number=A,Type=Float,Description="Allele frequency">
##FILTER=<ID=PASS,Description="All filters passed">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Depth">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1	S2
chr1	100	rs1	A	G	50	PASS	DP=10;AF=0.5	GT:DP	0/1:8	1/1:.
`

func TestReaderParsesHeaderAndRecord(t *testing.T) {
	r, err := NewReader(strings.NewReader(testVCF), ReaderOpts{})
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, r.Header.Samples)

	var rec variant.Record
	require.True(t, r.Scan(&rec))
	assert.Equal(t, "chr1", rec.Chrom)
	assert.EqualValues(t, 100, rec.Pos)
	assert.Equal(t, "A", rec.Ref)
	assert.Equal(t, []string{"G"}, rec.Alt)
	assert.Equal(t, []string{"PASS"}, rec.Filter)

	dp, ok := rec.InfoValue("DP")
	require.True(t, ok)
	assert.EqualValues(t, 10, dp.Int())

	af, ok := rec.InfoValue("AF")
	require.True(t, ok)
	assert.Equal(t, []float32{0.5}, af.FloatVector())

	gt, ok := rec.FormatValue(0, "GT")
	require.True(t, ok)
	assert.Equal(t, "0/1", gt.Str())
	dpS2, ok := rec.FormatValue(1, "DP")
	require.True(t, ok)
	assert.True(t, dpS2.IsMissing())

	require.False(t, r.Scan(&rec))
	require.NoError(t, r.Err())
}

func TestWriterRoundTrip(t *testing.T) {
	r, err := NewReader(strings.NewReader(testVCF), ReaderOpts{})
	require.NoError(t, err)
	var rec variant.Record
	require.True(t, r.Scan(&rec))

	var buf strings.Builder
	w := NewWriter(&buf, r.Header, WriterOpts{})
	require.NoError(t, w.Write(&rec))
	require.NoError(t, w.Close())

	out := buf.String()
	assert.Contains(t, out, "chr1\t100\trs1\tA\tG\t50")
	assert.Contains(t, out, "DP=10;AF=0.5")
}

func TestGenotypeTrailingSuffixOmission(t *testing.T) {
	var sb strings.Builder
	writeGenotype(&sb, []variant.Value{
		variant.String("0/1"),
		variant.Default(variant.KindInt32),
	})
	assert.Equal(t, "0/1", sb.String())
}

func TestUndeclaredInfoKeyIsAddedAsMissingPlaceholder(t *testing.T) {
	const vcf = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
chr1	1	.	A	G	.	.	FOO=bar
`
	r, err := NewReader(strings.NewReader(vcf), ReaderOpts{Warn: true})
	require.NoError(t, err)
	var rec variant.Record
	require.True(t, r.Scan(&rec))

	foo, ok := rec.InfoValue("FOO")
	require.True(t, ok)
	assert.Equal(t, []string{"bar"}, foo.StrVector())

	_, ok = r.Header.InfoIndex("FOO")
	assert.True(t, ok)
}
