package vbgzf

import (
	"bytes"
	"io"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBlocks returns a BGZF stream holding each of parts as its own block,
// plus the virtual offset at the start of every part.
func writeBlocks(t *testing.T, parts []string) (data []byte, starts []Offset) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, -1)
	require.NoError(t, err)
	for _, p := range parts {
		starts = append(starts, w.VOffset())
		_, err := w.Write([]byte(p))
		require.NoError(t, err)
		require.NoError(t, w.CloseWithoutTerminator())
	}
	require.NoError(t, w.Close())
	return buf.Bytes(), starts
}

func TestReaderRoundTrip(t *testing.T) {
	parts := []string{"hello ", "bgzf ", "world"}
	data, _ := writeBlocks(t, parts)

	r, err := NewReader(bytes.NewReader(data), 1)
	require.NoError(t, err)
	got, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello bgzf world", string(got))
}

func TestReaderSeekToBlockBoundary(t *testing.T) {
	parts := []string{"aaaa", "bbbb", "cccc"}
	data, starts := writeBlocks(t, parts)

	r, err := NewReader(bytes.NewReader(data), 1)
	require.NoError(t, err)

	require.NoError(t, r.Seek(starts[2]))
	rest, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "cccc", string(rest))
}

func TestReaderSeekRejectsNonSeekableSource(t *testing.T) {
	parts := []string{"x"}
	data, _ := writeBlocks(t, parts)

	r, err := NewReader(io.NopCloser(bytes.NewReader(data)), 1)
	require.NoError(t, err)
	err = r.Seek(Offset{File: 0})
	assert.Error(t, err)
}
