package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverseG(t *testing.T) {
	arr := []int64{1, 2, 3, 4}
	ReverseG(arr)
	assert.Equal(t, []int64{4, 3, 2, 1}, arr)
}

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, 1.23, RoundFloat(1.2345, 2))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "graph.bin")
	require.NoError(t, WriteFileAtomic(path, []byte("first")))
	require.NoError(t, WriteFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCompress(t *testing.T) {
	data := []byte("knooppunt knooppunt knooppunt knooppunt")
	compressed, err := Compress(data)
	require.NoError(t, err)
	out, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	_, err = Decompress([]byte("not zstd"))
	assert.Error(t, err)
}
