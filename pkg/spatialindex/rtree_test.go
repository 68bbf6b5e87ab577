package spatialindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ~0.0009 degrees of latitude is 100 m
func TestNearest(t *testing.T) {
	ix := NewIndex()
	ix.Insert(1, 52.0+100.0/111195.0, 5.0)
	ix.Insert(2, 52.0-50.0/111195.0, 5.0)
	ix.Insert(3, 52.0, 5.0+200.0/(111195.0*0.6157))

	hits := ix.Nearest(52.0, 5.0, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].ID)
	assert.InDelta(t, 50.0, hits[0].DistanceM, 1.0)

	all := ix.Nearest(52.0, 5.0, 5)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{2, 1, 3}, []int64{all[0].ID, all[1].ID, all[2].ID})
}

func TestNearestUsesGreatCircleDistance(t *testing.T) {
	ix := NewIndex()
	// 0.0013 degrees of longitude at 51 N is ~91 m
	ix.Insert(100, 51.0, 5.0013)
	// closer in degrees, farther in meters (111 m and up)
	for i := 0; i < 8; i++ {
		d := 0.0010 + float64(i)*0.000025
		if i%2 == 0 {
			d = -d
		}
		ix.Insert(int64(i+1), 51.0+d, 5.0)
	}

	hits := ix.Nearest(51.0, 5.0, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(100), hits[0].ID)
	assert.InDelta(t, 91.0, hits[0].DistanceM, 1.0)

	top3 := ix.Nearest(51.0, 5.0, 3)
	require.Len(t, top3, 3)
	assert.Equal(t, int64(100), top3[0].ID)
	assert.Equal(t, []int64{1, 2}, []int64{top3[1].ID, top3[2].ID})
}

func TestNearestEmpty(t *testing.T) {
	ix := NewIndex()
	assert.Empty(t, ix.Nearest(52.0, 5.0, 3))
	assert.Empty(t, ix.WithinRadius(52.0, 5.0, 1000))
}

func TestWithinRadius(t *testing.T) {
	ix := NewIndex()
	ix.Insert(1, 52.0, 5.0)
	ix.Insert(2, 52.01, 5.0)  // ~1.1 km
	ix.Insert(3, 52.05, 5.0)  // ~5.6 km
	ix.Insert(4, 52.0, 5.05)  // ~3.4 km

	hits := ix.WithinRadius(52.0, 5.0, 4000)
	ids := []int64{}
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	assert.ElementsMatch(t, []int64{1, 2, 4}, ids)
}
