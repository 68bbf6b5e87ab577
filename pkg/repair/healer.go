package repair

import (
	"fmt"
	"sort"

	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/geo"
	"lintang/knooppuntx/pkg/spatialindex"

	"go.uber.org/zap"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusHealed  Status = "HEALED"
	StatusBroken  Status = "BROKEN"
	StatusNoData  Status = "NO_DATA"
)

const (
	ReasonNoData             = "No Data"
	ReasonEndpointMissing    = "Endpoint Missing"
	ReasonInternallyFracture = "Internally Fractured"
	ReasonCoordDataMissing   = "Coord Data Missing"
	ReasonGapTooLarge        = "Gap Too Large"
	ReasonNotEnoughComponent = "Not Enough Components"
)

const DefaultGapThresholdM = 250.0

// CoordinateLookup resolves node coordinates. *network.RawNetwork satisfies it.
type CoordinateLookup interface {
	Coordinate(id int64) (datastructure.Coordinate, bool)
}

type CoordinateMap map[int64]datastructure.Coordinate

func (m CoordinateMap) Coordinate(id int64) (datastructure.Coordinate, bool) {
	c, ok := m[id]
	return c, ok
}

// Bridge synthetic segment inserted between two fragments.
type Bridge struct {
	From      int64
	To        int64
	DistanceM float64
}

type Result struct {
	RelationID int64
	Status     Status
	Reason     string
	Path       []int64
	Bridges    []Bridge
}

type Stats struct {
	Total   int
	Success int
	Healed  int
	Broken  int
	NoData  int
	Reasons map[string]int
}

type Healer struct {
	gapThresholdM float64
	log           *zap.Logger
}

type Option func(*Healer)

func WithGapThreshold(meters float64) Option {
	return func(h *Healer) {
		if meters > 0 {
			h.gapThresholdM = meters
		}
	}
}

func NewHealer(log *zap.Logger, opts ...Option) *Healer {
	h := &Healer{gapThresholdM: DefaultGapThresholdM, log: log}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	return h
}

func (h *Healer) GapThreshold() float64 {
	return h.gapThresholdM
}

/*
Heal checks whether the relation's ways connect its two claimed junctions.
If they do not, the closest pair of nodes between the fragment holding the start junction and any
other fragment is bridged while that pair is closer than the gap threshold, until both junctions
share a fragment. Never panics.
*/
func (h *Healer) Heal(rel datastructure.Relation, coords CoordinateLookup) (res Result) {
	res.RelationID = rel.ID
	defer func() {
		if r := recover(); r != nil {
			res = Result{RelationID: rel.ID, Status: StatusBroken, Reason: fmt.Sprintf("Error: %v", r)}
		}
	}()

	sg := newSegmentGraph(rel.Ways)
	if sg.empty() {
		return Result{RelationID: rel.ID, Status: StatusNoData, Reason: ReasonNoData}
	}
	if !sg.has(rel.FromNodeID) || !sg.has(rel.ToNodeID) {
		return Result{RelationID: rel.ID, Status: StatusBroken, Reason: ReasonEndpointMissing}
	}

	if path, ok := sg.shortestPath(rel.FromNodeID, rel.ToNodeID); ok {
		return Result{RelationID: rel.ID, Status: StatusSuccess, Path: path}
	}

	comp := sg.components()
	if comp[rel.FromNodeID] == comp[rel.ToNodeID] {
		return Result{RelationID: rel.ID, Status: StatusBroken, Reason: ReasonInternallyFracture}
	}

	bridges := make([]Bridge, 0)
	for comp[rel.FromNodeID] != comp[rel.ToNodeID] {
		bridge, reason := h.closestPair(sg, comp, comp[rel.FromNodeID], coords)
		if reason != "" {
			return Result{RelationID: rel.ID, Status: StatusBroken, Reason: reason, Bridges: bridges}
		}
		if bridge.DistanceM >= h.gapThresholdM {
			h.log.Debug("relation gap too large",
				zap.Int64("relation", rel.ID), zap.Float64("gap_m", bridge.DistanceM))
			return Result{RelationID: rel.ID, Status: StatusBroken, Reason: ReasonGapTooLarge, Bridges: bridges}
		}

		sg.addEdge(bridge.From, bridge.To)
		bridges = append(bridges, bridge)
		comp = sg.components()
	}

	path, ok := sg.shortestPath(rel.FromNodeID, rel.ToNodeID)
	if !ok {
		return Result{RelationID: rel.ID, Status: StatusBroken, Reason: ReasonInternallyFracture, Bridges: bridges}
	}
	return Result{RelationID: rel.ID, Status: StatusHealed, Path: path, Bridges: bridges}
}

// closestPair great-circle closest pair between component label and every other component.
func (h *Healer) closestPair(sg *segmentGraph, comp map[int64]int, label int, coords CoordinateLookup) (Bridge, string) {
	inside := make([]int64, 0)
	outside := spatialindex.NewIndex()
	for _, id := range sg.nodeIDs() {
		c, ok := coords.Coordinate(id)
		if comp[id] == label {
			if ok {
				inside = append(inside, id)
			}
			continue
		}
		if ok {
			outside.Insert(id, c.Lat, c.Lon)
		}
	}
	if len(inside) == 0 || outside.Size() == 0 {
		return Bridge{}, ReasonCoordDataMissing
	}

	best := Bridge{DistanceM: -1}
	for _, id := range inside {
		c, _ := coords.Coordinate(id)
		hits := outside.Nearest(c.Lat, c.Lon, 1)
		if len(hits) == 0 {
			continue
		}
		d := geo.CalculateHaversineDistance(c.Lat, c.Lon, hits[0].Lat, hits[0].Lon)
		if best.DistanceM < 0 || d < best.DistanceM {
			best = Bridge{From: id, To: hits[0].ID, DistanceM: d}
		}
	}
	if best.DistanceM < 0 {
		return Bridge{}, ReasonNotEnoughComponent
	}
	return best, ""
}

// HealAll repairs every relation and aggregates the outcome counts.
func (h *Healer) HealAll(relations []datastructure.Relation, coords CoordinateLookup) ([]Result, Stats) {
	results := make([]Result, 0, len(relations))
	stats := Stats{Reasons: make(map[string]int)}
	for _, rel := range relations {
		res := h.Heal(rel, coords)
		results = append(results, res)
		stats.Total++
		switch res.Status {
		case StatusSuccess:
			stats.Success++
		case StatusHealed:
			stats.Healed++
		case StatusBroken:
			stats.Broken++
			stats.Reasons[res.Reason]++
		case StatusNoData:
			stats.NoData++
		}
	}
	h.log.Sugar().Infof("relations repaired: total=%d success=%d healed=%d broken=%d no_data=%d",
		stats.Total, stats.Success, stats.Healed, stats.Broken, stats.NoData)
	return results, stats
}

// segmentGraph undirected graph of a relation's member ways.
type segmentGraph struct {
	adj map[int64][]int64
}

func newSegmentGraph(ways [][]int64) *segmentGraph {
	sg := &segmentGraph{adj: make(map[int64][]int64)}
	for _, way := range ways {
		for i := 0; i+1 < len(way); i++ {
			if way[i] == way[i+1] {
				continue
			}
			sg.addEdge(way[i], way[i+1])
		}
	}
	return sg
}

func (sg *segmentGraph) addEdge(u, v int64) {
	sg.adj[u] = append(sg.adj[u], v)
	sg.adj[v] = append(sg.adj[v], u)
}

func (sg *segmentGraph) empty() bool {
	return len(sg.adj) == 0
}

func (sg *segmentGraph) has(id int64) bool {
	_, ok := sg.adj[id]
	return ok
}

func (sg *segmentGraph) nodeIDs() []int64 {
	ids := make([]int64, 0, len(sg.adj))
	for id := range sg.adj {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// shortestPath fewest-hop path via bfs.
func (sg *segmentGraph) shortestPath(from, to int64) ([]int64, bool) {
	if from == to {
		return []int64{from}, true
	}
	prev := map[int64]int64{from: from}
	queue := []int64{from}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range sg.adj[u] {
			if _, seen := prev[v]; seen {
				continue
			}
			prev[v] = u
			if v == to {
				path := []int64{to}
				for cur := to; cur != from; {
					cur = prev[cur]
					path = append(path, cur)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, v)
		}
	}
	return nil, false
}

// components labels every node with its connected component number.
func (sg *segmentGraph) components() map[int64]int {
	label := make(map[int64]int, len(sg.adj))
	next := 0
	for _, start := range sg.nodeIDs() {
		if _, ok := label[start]; ok {
			continue
		}
		label[start] = next
		stack := []int64{start}
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, v := range sg.adj[u] {
				if _, ok := label[v]; !ok {
					label[v] = next
					stack = append(stack, v)
				}
			}
		}
		next++
	}
	return label
}
