package compress

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/seqio/vbgzf"
)

// nonSeekingReader hides any io.Seeker the wrapped reader implements.
type nonSeekingReader struct{ r io.Reader }

func (n *nonSeekingReader) Read(p []byte) (int, error) { return n.r.Read(p) }

// writeBGZFFile writes each of parts as its own BGZF block to a temp file and
// returns the path plus the virtual offset at the start of every part.
func writeBGZFFile(t *testing.T, parts []string) (path string, starts []vbgzf.Offset) {
	f, err := ioutil.TempFile(t.TempDir(), "*.bgzf")
	require.NoError(t, err)
	defer f.Close()

	w, err := vbgzf.NewWriter(f, -1)
	require.NoError(t, err)
	for _, p := range parts {
		starts = append(starts, w.VOffset())
		_, err := w.Write([]byte(p))
		require.NoError(t, err)
		require.NoError(t, w.CloseWithoutTerminator())
	}
	require.NoError(t, w.Close())
	return f.Name(), starts
}

func TestReaderDetectsBGZFAndReadsThrough(t *testing.T) {
	path, _ := writeBGZFFile(t, []string{"alpha ", "beta ", "gamma"})

	r, err := NewReaderPath(path, Options{Threads: 2})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, BGZF, r.Format())
	got, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "alpha beta gamma", string(got))
}

func TestSeekPrimaryRepositionsBGZFSource(t *testing.T) {
	path, starts := writeBGZFFile(t, []string{"aaaa", "bbbb", "cccc"})

	r, err := NewReaderPath(path, Options{Threads: 2})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.SeekPrimary(int64(starts[2].Virtual())))
	rest, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "cccc", string(rest))
}

func TestSeekPrimaryRejectsNonSeekableSource(t *testing.T) {
	path, _ := writeBGZFFile(t, []string{"x"})
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	r, err := NewReader(&nonSeekingReader{r: bytes.NewReader(raw)}, Options{Threads: 2})
	require.NoError(t, err)
	defer r.Close()

	err = r.SeekPrimary(0)
	assert.Error(t, err)
}
