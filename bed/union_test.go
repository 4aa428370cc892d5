package bed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetContainsAndIntersects(t *testing.T) {
	data := "chr1\t10\t20\nchr1\t25\t30\nchr2\t5\t8\n"
	s, err := NewSet(strings.NewReader(data))
	require.NoError(t, err)

	assert.True(t, s.Contains("chr1", 15))
	assert.False(t, s.Contains("chr1", 22))
	assert.True(t, s.Contains("chr1", 27))
	assert.False(t, s.Contains("chr3", 1))

	assert.True(t, s.Intersects("chr1", 18, 26))
	assert.False(t, s.Intersects("chr1", 20, 25))
	assert.True(t, s.Intersects("chr2", 0, 10))
}

func TestSetMergesOverlappingIntervals(t *testing.T) {
	data := "chr1\t10\t20\nchr1\t15\t25\n"
	s, err := NewSet(strings.NewReader(data))
	require.NoError(t, err)

	assert.True(t, s.Contains("chr1", 22))
	assert.False(t, s.Contains("chr1", 25))
}

func TestSetRejectsUnsortedInput(t *testing.T) {
	data := "chr1\t10\t20\nchr1\t5\t8\n"
	_, err := NewSet(strings.NewReader(data))
	assert.Error(t, err)
}

func TestParseRegion(t *testing.T) {
	chrom, begin, end, err := ParseRegion("chr1:101-200")
	require.NoError(t, err)
	assert.Equal(t, "chr1", chrom)
	assert.EqualValues(t, 100, begin)
	assert.EqualValues(t, 200, end)

	chrom, begin, end, err = ParseRegion("chr1:50")
	require.NoError(t, err)
	assert.Equal(t, "chr1", chrom)
	assert.EqualValues(t, 49, begin)
	assert.EqualValues(t, 50, end)

	chrom, begin, end, err = ParseRegion("chr1")
	require.NoError(t, err)
	assert.Equal(t, "chr1", chrom)
	assert.EqualValues(t, 0, begin)
	assert.EqualValues(t, -1, end)

	_, _, _, err = ParseRegion("")
	assert.Error(t, err)
	_, _, _, err = ParseRegion(":1-2")
	assert.Error(t, err)
}
