package loopsearch

import (
	"context"
	"errors"
	"math"
	"time"

	"lintang/knooppuntx/pkg/contractor"
	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/geo"

	"go.uber.org/zap"
)

var (
	ErrNoLoopFound  = errors.New("no loop found within tolerance")
	ErrUnknownStart = errors.New("start junction is not in the graph")
)

const (
	DefaultTolerance       = 0.2
	DefaultTimeBudget      = 30 * time.Second
	DefaultMaxCandidates   = 500
	DefaultCheckEvery      = 10000
	DefaultHeuristicFactor = 0.7
	// tolerance is widened by this step on each retry
	ToleranceStep  = 0.1
	ToleranceTries = 3

	denseDegree   = 8.0
	minDenseDepth = 6
)

type Graph interface {
	GetNode(id int64) (datastructure.Knooppunt, bool)
	Neighbors(id int64) []contractor.Neighbor
	GetEdge(edgeIDx int32) *datastructure.CondensedEdge
	Edge(u, v int64) (*datastructure.CondensedEdge, bool)
}

type Params struct {
	TargetM         float64
	Tolerance       float64
	MaxDepth        int
	TimeBudget      time.Duration
	MaxCandidates   int
	CheckEvery      int
	HeuristicFactor float64
}

func (p Params) withDefaults() Params {
	if p.Tolerance <= 0 {
		p.Tolerance = DefaultTolerance
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = DefaultMaxDepth(p.TargetM)
	}
	if p.TimeBudget <= 0 {
		p.TimeBudget = DefaultTimeBudget
	}
	if p.MaxCandidates <= 0 {
		p.MaxCandidates = DefaultMaxCandidates
	}
	if p.CheckEvery <= 0 {
		p.CheckEvery = DefaultCheckEvery
	}
	if p.HeuristicFactor <= 0 {
		p.HeuristicFactor = DefaultHeuristicFactor
	}
	return p
}

// DefaultMaxDepth max(15, km/4 + 8) junctions.
func DefaultMaxDepth(targetM float64) int {
	km := targetM / 1000.0
	d := int(km/4.0) + 8
	if d < 15 {
		d = 15
	}
	return d
}

type Result struct {
	Candidates []datastructure.Candidate
	Iterations int
	TimedOut   bool
	Cancelled  bool
	CapReached bool
	Tolerance  float64
	MaxDepth   int
}

type frame struct {
	node   int64
	cursor int
	dist   float64
}

type LoopSearch struct {
	log *zap.Logger
}

func NewLoopSearch(log *zap.Logger) *LoopSearch {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoopSearch{log: log}
}

/*
Search enumerates simple cycles through start whose length is within TargetM*(1±Tolerance).
Depth-first over an explicit stack; a branch is cut when the neighbor is already on the path, the path is
MaxDepth long, the length exceeds the upper bound, or length + HeuristicFactor*crowflies(neighbor, start)
exceeds it. The time budget and ctx are polled every CheckEvery iterations; hitting either returns the
candidates found so far without an error.
*/
func (ls *LoopSearch) Search(ctx context.Context, g Graph, start int64, p Params) (Result, error) {
	p = p.withDefaults()
	res := Result{Candidates: make([]datastructure.Candidate, 0), Tolerance: p.Tolerance, MaxDepth: p.MaxDepth}

	startNode, ok := g.GetNode(start)
	if !ok {
		return res, ErrUnknownStart
	}
	lower := p.TargetM * (1 - p.Tolerance)
	upper := p.TargetM * (1 + p.Tolerance)
	deadline := time.Now().Add(p.TimeBudget)

	visited := map[int64]bool{start: true}
	path := []int64{start}
	stack := []frame{{node: start}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		nbs := g.Neighbors(top.node)
		if top.cursor >= len(nbs) {
			if top.node != start {
				visited[top.node] = false
			}
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
			continue
		}
		nb := nbs[top.cursor]
		top.cursor++

		res.Iterations++
		if res.Iterations%p.CheckEvery == 0 {
			if time.Now().After(deadline) {
				res.TimedOut = true
				break
			}
			if ctx.Err() != nil {
				res.Cancelled = true
				break
			}
		}

		newDist := top.dist + g.GetEdge(nb.EdgeIDx).Length
		if nb.To == start {
			if len(path) >= 3 && newDist >= lower && newDist <= upper {
				cycle := make([]int64, len(path), len(path)+1)
				copy(cycle, path)
				cycle = append(cycle, start)
				res.Candidates = append(res.Candidates, datastructure.Candidate{Nodes: cycle, Length: newDist})
				if len(res.Candidates) >= p.MaxCandidates {
					res.CapReached = true
					break
				}
			}
			continue
		}
		if visited[nb.To] || len(path) >= p.MaxDepth || newDist > upper {
			continue
		}
		nbNode, ok := g.GetNode(nb.To)
		if !ok {
			continue
		}
		crow := geo.CalculateHaversineDistance(nbNode.Lat, nbNode.Lon, startNode.Lat, startNode.Lon)
		if newDist+p.HeuristicFactor*crow > upper {
			continue
		}

		visited[nb.To] = true
		path = append(path, nb.To)
		stack = append(stack, frame{node: nb.To, dist: newDist})
	}

	return res, nil
}

// FindLoops Search with widening tolerance (tol, tol+0.1, tol+0.2) until a candidate shows up.
// Max depth is cut back around very dense starts.
func (ls *LoopSearch) FindLoops(ctx context.Context, g Graph, start int64, p Params) (Result, error) {
	p = p.withDefaults()
	if _, ok := g.GetNode(start); !ok {
		return Result{}, ErrUnknownStart
	}
	if avg := LocalAverageDegree(g, start); avg > denseDegree {
		reduced := p.MaxDepth * 2 / 3
		if reduced < minDenseDepth {
			reduced = minDenseDepth
		}
		ls.log.Debug("dense start, reducing search depth",
			zap.Float64("avg_degree", avg), zap.Int("from", p.MaxDepth), zap.Int("to", reduced))
		p.MaxDepth = reduced
	}

	baseTol := p.Tolerance
	iterations := 0
	var last Result
	for i := 0; i < ToleranceTries; i++ {
		attempt := p
		attempt.Tolerance = baseTol + float64(i)*ToleranceStep
		res, err := ls.Search(ctx, g, start, attempt)
		if err != nil {
			return res, err
		}
		iterations += res.Iterations
		res.Iterations = iterations
		ls.log.Debug("loop search attempt",
			zap.Int64("start", start), zap.Float64("tolerance", attempt.Tolerance),
			zap.Int("candidates", len(res.Candidates)), zap.Int("iterations", res.Iterations),
			zap.Bool("timed_out", res.TimedOut))
		if len(res.Candidates) > 0 {
			return res, nil
		}
		last = res
		if res.Cancelled {
			break
		}
	}
	return last, ErrNoLoopFound
}

// LocalAverageDegree mean degree of the junctions within two hops of start.
func LocalAverageDegree(g Graph, start int64) float64 {
	seen := map[int64]bool{start: true}
	frontier := []int64{start}
	for hop := 0; hop < 2; hop++ {
		next := make([]int64, 0)
		for _, u := range frontier {
			for _, nb := range g.Neighbors(u) {
				if !seen[nb.To] {
					seen[nb.To] = true
					next = append(next, nb.To)
				}
			}
		}
		frontier = next
	}
	total := 0
	for id := range seen {
		total += len(g.Neighbors(id))
	}
	return float64(total) / math.Max(1, float64(len(seen)))
}
