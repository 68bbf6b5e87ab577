package kv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Speed     float64
	Direction float64
}

func TestKVDB(t *testing.T) {
	k, err := Open(t.TempDir())
	require.NoError(t, err)
	defer k.Close()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	k.now = func() time.Time { return now }

	require.NoError(t, k.Put("wind:a", sample{Speed: 4.2, Direction: 250}, 10*time.Minute))

	var got sample
	ok, err := k.Get("wind:a", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sample{Speed: 4.2, Direction: 250}, got)

	ok, err = k.Get("wind:missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(11 * time.Minute)
	ok, err = k.Get("wind:a", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCellKey(t *testing.T) {
	a := CellKey("wind", 52.0907, 5.1214, "now")
	b := CellKey("wind", 52.0908, 5.1215, "now")
	c := CellKey("wind", 52.3702, 4.8952, "now")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "wind:")
	assert.NotContains(t, CellKey("wind", 52.0, 5.0, ""), "::")
}
