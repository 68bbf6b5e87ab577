package network

import (
	"sort"

	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/geo"
)

// RawNetwork directed multigraph of way-level nodes. Nodes and edges are append-only.
type RawNetwork struct {
	nodes    []datastructure.RawNode
	nodeIdx  map[int64]int32
	edges    []datastructure.RawEdge
	firstOut [][]int32
}

func NewRawNetwork() *RawNetwork {
	return &RawNetwork{
		nodes:    make([]datastructure.RawNode, 0),
		nodeIdx:  make(map[int64]int32),
		edges:    make([]datastructure.RawEdge, 0),
		firstOut: make([][]int32, 0),
	}
}

// AddNode inserts a node, or fills in the junction ref of an existing one.
func (g *RawNetwork) AddNode(n datastructure.RawNode) {
	if idx, ok := g.nodeIdx[n.ID]; ok {
		if g.nodes[idx].JunctionRef == "" && n.JunctionRef != "" {
			g.nodes[idx].JunctionRef = n.JunctionRef
		}
		return
	}
	g.nodeIdx[n.ID] = int32(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.firstOut = append(g.firstOut, []int32{})
}

// AddEdge adds a directed edge. Both endpoints must already exist.
func (g *RawNetwork) AddEdge(e datastructure.RawEdge) bool {
	fromIdx, ok := g.nodeIdx[e.From]
	if !ok {
		return false
	}
	if _, ok := g.nodeIdx[e.To]; !ok {
		return false
	}
	e.Bearing = geo.NormalizeBearing(e.Bearing)
	if e.Length < 0 {
		e.Length = 0
	}
	g.firstOut[fromIdx] = append(g.firstOut[fromIdx], int32(len(g.edges)))
	g.edges = append(g.edges, e)
	return true
}

// AddSegment adds both directions of the segment (u,v). Length is the great-circle distance,
// bearings are 180 degrees apart.
func (g *RawNetwork) AddSegment(u, v int64) bool {
	from, ok := g.Node(u)
	if !ok {
		return false
	}
	to, ok := g.Node(v)
	if !ok {
		return false
	}
	length := geo.CalculateHaversineDistance(from.Lat, from.Lon, to.Lat, to.Lon)
	bearing := geo.BearingTo(from.Lat, from.Lon, to.Lat, to.Lon)
	g.AddEdge(datastructure.RawEdge{From: u, To: v, Length: length, Bearing: bearing})
	g.AddEdge(datastructure.RawEdge{From: v, To: u, Length: length, Bearing: geo.ReverseBearing(bearing)})
	return true
}

// AddWay adds every consecutive pair of the way as a bidirectional segment.
// Pairs with a missing node are skipped. Returns the number of segments added.
func (g *RawNetwork) AddWay(nodeIDs []int64) int {
	added := 0
	for i := 0; i+1 < len(nodeIDs); i++ {
		if nodeIDs[i] == nodeIDs[i+1] {
			continue
		}
		if g.AddSegment(nodeIDs[i], nodeIDs[i+1]) {
			added++
		}
	}
	return added
}

func (g *RawNetwork) Node(id int64) (datastructure.RawNode, bool) {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return datastructure.RawNode{}, false
	}
	return g.nodes[idx], true
}

func (g *RawNetwork) HasNode(id int64) bool {
	_, ok := g.nodeIdx[id]
	return ok
}

// OutEdges outgoing edges of the node in insertion order.
func (g *RawNetwork) OutEdges(id int64) []datastructure.RawEdge {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	out := make([]datastructure.RawEdge, 0, len(g.firstOut[idx]))
	for _, eIdx := range g.firstOut[idx] {
		out = append(out, g.edges[eIdx])
	}
	return out
}

func (g *RawNetwork) GetFirstOutEdge(id int64) []int32 {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	return g.firstOut[idx]
}

func (g *RawNetwork) GetOutEdge(edgeIDx int32) datastructure.RawEdge {
	return g.edges[edgeIDx]
}

func (g *RawNetwork) Nodes() []datastructure.RawNode {
	return g.nodes
}

func (g *RawNetwork) Edges() []datastructure.RawEdge {
	return g.edges
}

func (g *RawNetwork) NumNodes() int {
	return len(g.nodes)
}

func (g *RawNetwork) NumEdges() int {
	return len(g.edges)
}

// Junctions ids of all junction nodes, ascending.
func (g *RawNetwork) Junctions() []int64 {
	ids := make([]int64, 0)
	for _, n := range g.nodes {
		if n.IsJunction() {
			ids = append(ids, n.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Coordinate implements the coordinate lookup used by topology repair.
func (g *RawNetwork) Coordinate(id int64) (datastructure.Coordinate, bool) {
	n, ok := g.Node(id)
	if !ok {
		return datastructure.Coordinate{}, false
	}
	return datastructure.NewCoordinate(n.Lat, n.Lon), true
}

// Subgraph copy restricted to the given nodes. Edges are kept when both endpoints are included.
func (g *RawNetwork) Subgraph(ids []int64) *RawNetwork {
	sub := NewRawNetwork()
	for _, id := range ids {
		if n, ok := g.Node(id); ok {
			sub.AddNode(n)
		}
	}
	for _, n := range sub.nodes {
		for _, e := range g.OutEdges(n.ID) {
			if sub.HasNode(e.To) {
				sub.AddEdge(e)
			}
		}
	}
	return sub
}
