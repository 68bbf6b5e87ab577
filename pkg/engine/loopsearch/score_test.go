package loopsearch

import (
	"context"
	"testing"

	"lintang/knooppuntx/pkg/datastructure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	g := hexagon(t).WithWind(datastructure.WindSample{Speed: 15, Direction: 0})
	res, err := NewLoopSearch(nil).Search(context.Background(), g, 1, Params{TargetM: 30000, Tolerance: 0.1})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)

	c := res.Candidates[0]
	manual := 0.0
	for i := 0; i+1 < len(c.Nodes); i++ {
		e, ok := g.Edge(c.Nodes[i], c.Nodes[i+1])
		require.True(t, ok)
		manual += e.EffortFrom(c.Nodes[i])
	}
	score, eff := Score(c, g, 30000)
	assert.InDelta(t, manual, eff, 1e-6)
	assert.InDelta(t, manual+DeviationPenalty*abs(c.Length-30000), score, 1e-6)

	t.Run("monotonic in deviation", func(t *testing.T) {
		near := c
		near.Length = 30100
		far := c
		far.Length = 31000
		sNear, _ := Score(near, g, 30000)
		sFar, _ := Score(far, g, 30000)
		assert.Less(t, sNear, sFar)
	})

	t.Run("rank orders by score", func(t *testing.T) {
		far := c
		far.Length = 33000
		ranked := Rank([]datastructure.Candidate{far, c}, g, 30000)
		require.Len(t, ranked, 2)
		assert.Equal(t, c.Length, ranked[0].Length)
		assert.LessOrEqual(t, ranked[0].Score, ranked[1].Score)
	})

	t.Run("missing edge scores infinite", func(t *testing.T) {
		s, _ := Score(datastructure.Candidate{Nodes: []int64{1, 3, 1}, Length: 30000}, g, 30000)
		assert.True(t, s > 1e300)
	})
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
