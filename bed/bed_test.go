package bed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderMinimal(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 9; i++ {
		sb.WriteString("chr7\t127471196\t127472363\n")
	}
	r := NewReader(strings.NewReader(sb.String()))
	count := 0
	var rec Record
	for r.Scan(&rec) {
		assert.Equal(t, "chr7", rec.Chrom)
		assert.EqualValues(t, 127471196, rec.ChromStart)
		assert.EqualValues(t, 127472363, rec.ChromEnd)
		count++
	}
	require.NoError(t, r.Err())
	assert.Equal(t, 9, count)
}

func TestReaderSkipsTrackAndBrowserLines(t *testing.T) {
	input := "track name=pairedReads\nbrowser position chr7:127471196-127472363\nchr7\t1\t2\tname1\t0\t+\n"
	r := NewReader(strings.NewReader(input))
	var rec Record
	require.True(t, r.Scan(&rec))
	assert.Equal(t, []string{"name1", "0", "+"}, rec.Extra)
	require.False(t, r.Scan(&rec))
	require.NoError(t, r.Err())
}
