package bcf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/seqio/variant"
)

func newTestHeader(t *testing.T) *variant.Header {
	h := variant.NewHeader()
	require.NoError(t, h.PushContig(variant.ContigMeta{ID: "chr1", Length: 1000}))
	require.NoError(t, h.AddInfo(variant.FieldMeta{ID: "DP", Type: variant.TypeInteger, Number: variant.Number{Fixed: 1}}))
	require.NoError(t, h.AddFilter(variant.FieldMeta{ID: "PASS"}))
	require.NoError(t, h.AddFormat(variant.FieldMeta{ID: "GT", Type: variant.TypeString, Number: variant.Number{Fixed: 1}}))
	require.NoError(t, h.AddFormat(variant.FieldMeta{ID: "DP", Type: variant.TypeInteger, Number: variant.Number{Fixed: 1}}))
	h.Samples = []string{"S1", "S2"}
	return h
}

func TestRecordRoundTrip(t *testing.T) {
	h := newTestHeader(t)
	rec := variant.Record{
		Chrom:  "chr1",
		Pos:    100,
		Ref:    "A",
		Alt:    []string{"G"},
		Qual:   variant.Float32(50),
		Filter: []string{"PASS"},
		Info:   []variant.InfoField{{Key: "DP", Value: variant.Int32(10)}},
		Format: []string{"GT", "DP"},
		Samples: [][]variant.Value{
			{variant.String("0/1"), variant.Int32(8)},
			{variant.String("1/1"), variant.Default(variant.KindInt32)},
		},
	}

	buf, err := EncodeRecord(h, &rec)
	require.NoError(t, err)

	var lShared, lIndiv uint32
	br := bytes.NewReader(buf)
	require.NoError(t, readUint32(br, &lShared))
	require.NoError(t, readUint32(br, &lIndiv))
	shared := make([]byte, lShared)
	indiv := make([]byte, lIndiv)
	_, err = br.Read(shared)
	require.NoError(t, err)
	_, err = br.Read(indiv)
	require.NoError(t, err)

	var got variant.Record
	require.NoError(t, DecodeRecord(h, shared, indiv, &got))

	assert.Equal(t, rec.Chrom, got.Chrom)
	assert.Equal(t, rec.Pos, got.Pos)
	assert.Equal(t, rec.Ref, got.Ref)
	assert.Equal(t, rec.Alt, got.Alt)
	assert.Equal(t, rec.Filter, got.Filter)

	dp, ok := got.InfoValue("DP")
	require.True(t, ok)
	assert.EqualValues(t, 10, dp.Int())

	gt0, ok := got.FormatValue(0, "GT")
	require.True(t, ok)
	assert.Equal(t, "0/1", gt0.Str())

	dp1, ok := got.FormatValue(1, "DP")
	require.True(t, ok)
	assert.True(t, dp1.IsMissing())
}

func TestReaderWriterRoundTrip(t *testing.T) {
	h := newTestHeader(t)
	rec := variant.Record{
		Chrom:  "chr1",
		Pos:    5,
		Ref:    "C",
		Alt:    []string{"T"},
		Qual:   variant.Default(variant.KindFloat32),
		Filter: []string{"PASS"},
		Format: []string{"GT"},
		Samples: [][]variant.Value{
			{variant.String("0/0")},
		},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, h)
	require.NoError(t, w.Write(&rec))
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, r.Header.Samples)

	var got variant.Record
	require.True(t, r.Scan(&got))
	assert.Equal(t, "chr1", got.Chrom)
	assert.EqualValues(t, 5, got.Pos)

	require.False(t, r.Scan(&got))
	require.NoError(t, r.Err())
}

func readUint32(r *bytes.Reader, v *uint32) error {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return err
	}
	*v = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return nil
}
