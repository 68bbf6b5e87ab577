package loopsearch

import (
	"math"
	"sort"

	"lintang/knooppuntx/pkg/datastructure"
)

// DeviationPenalty effort units per meter of distance from the target.
const DeviationPenalty = 5.0

// Score total wind effort in travel direction plus DeviationPenalty * |length - target|. Lower is better.
func Score(c datastructure.Candidate, g Graph, targetM float64) (score float64, effort float64) {
	for i := 0; i+1 < len(c.Nodes); i++ {
		u, v := c.Nodes[i], c.Nodes[i+1]
		e, ok := g.Edge(u, v)
		if !ok {
			return math.Inf(1), math.Inf(1)
		}
		effort += e.EffortFrom(u)
	}
	return effort + DeviationPenalty*math.Abs(c.Length-targetM), effort
}

// Rank scores every candidate and orders them best first. Ties keep enumeration order.
func Rank(cands []datastructure.Candidate, g Graph, targetM float64) []datastructure.ScoredCandidate {
	scored := make([]datastructure.ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		s, eff := Score(c, g, targetM)
		scored = append(scored, datastructure.ScoredCandidate{Candidate: c, Effort: eff, Score: s})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score < scored[j].Score })
	return scored
}
