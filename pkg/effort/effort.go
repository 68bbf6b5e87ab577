// Package effort models direction-dependent cycling effort under wind.
package effort

import (
	"math"

	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/geo"
)

const (
	// WindScale wind speed (m/s) at which a direct headwind doubles the cost.
	WindScale = 10.0
	// MinFactor lower bound of cost/length, strong tailwinds never make an edge free.
	MinFactor = 0.2
)

// Cost effort of riding length meters on bearing under wind. wind.Direction is where the wind comes from,
// so riding into it (delta 0) is a headwind.
func Cost(length, bearing float64, wind datastructure.WindSample) float64 {
	if length <= 0 {
		return 0
	}
	delta := geo.AngleDiff(bearing, wind.Direction)
	factor := math.Cos(delta * math.Pi / 180.0)
	cost := length * (1 + wind.Speed/WindScale*factor)
	return math.Max(cost, MinFactor*length)
}

// EdgeEfforts effort of the edge in both directions. Per-segment bearings are used when present,
// otherwise the edge's own bearing.
func EdgeEfforts(e datastructure.CondensedEdge, wind datastructure.WindSample) (fwd, rev float64) {
	if len(e.Segments) == 0 {
		return Cost(e.Length, e.Bearing, wind), Cost(e.Length, geo.ReverseBearing(e.Bearing), wind)
	}
	for _, seg := range e.Segments {
		fwd += Cost(seg.Length, seg.Bearing, wind)
		rev += Cost(seg.Length, geo.ReverseBearing(seg.Bearing), wind)
	}
	return fwd, rev
}

// Annotate fills EffortFwd/EffortRev on a copy of edges.
func Annotate(edges []datastructure.CondensedEdge, wind datastructure.WindSample) []datastructure.CondensedEdge {
	out := make([]datastructure.CondensedEdge, len(edges))
	copy(out, edges)
	for i := range out {
		out[i].EffortFwd, out[i].EffortRev = EdgeEfforts(out[i], wind)
	}
	return out
}
