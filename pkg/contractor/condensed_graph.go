package contractor

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/effort"
	"lintang/knooppuntx/pkg/spatialindex"
	"lintang/knooppuntx/pkg/util"
)

var ErrCorruptArtifact = errors.New("condensed graph artifact is corrupt")

type RepairMetadata struct {
	Total   int
	Success int
	Healed  int
	Broken  int
	NoData  int
}

type Metadata struct {
	Knooppunten    int
	KnooppuntEdges int
	RawNodes       int
	RawEdges       int
	MeanDegree     float64
	CutoffM        float64
	BuildTimestamp time.Time
	BuildSeconds   float64
	Repair         RepairMetadata
}

// Neighbor adjacent junction and the index of the connecting edge.
type Neighbor struct {
	To      int64
	EdgeIDx int32
}

// CondensedGraph undirected junction-level graph. Read-only once built; per-request views are copies.
type CondensedGraph struct {
	Metadata   Metadata
	Nodes      []datastructure.Knooppunt
	Edges      []datastructure.CondensedEdge
	NodeMapIdx map[int64]int32
	FirstEdge  [][]Neighbor // per node, sorted by neighbor id

	index *spatialindex.Index
}

func NewCondensedGraph() *CondensedGraph {
	return &CondensedGraph{
		Nodes:      make([]datastructure.Knooppunt, 0),
		Edges:      make([]datastructure.CondensedEdge, 0),
		NodeMapIdx: make(map[int64]int32),
		FirstEdge:  make([][]Neighbor, 0),
	}
}

func (g *CondensedGraph) addNode(n datastructure.Knooppunt) {
	if _, ok := g.NodeMapIdx[n.ID]; ok {
		return
	}
	g.NodeMapIdx[n.ID] = int32(len(g.Nodes))
	g.Nodes = append(g.Nodes, n)
	g.FirstEdge = append(g.FirstEdge, []Neighbor{})
}

// addEdge keeps the first edge per unordered pair.
func (g *CondensedGraph) addEdge(e datastructure.CondensedEdge) bool {
	if e.From == e.To {
		return false
	}
	if _, ok := g.Edge(e.From, e.To); ok {
		return false
	}
	fromIdx, ok := g.NodeMapIdx[e.From]
	if !ok {
		return false
	}
	toIdx, ok := g.NodeMapIdx[e.To]
	if !ok {
		return false
	}
	eIdx := int32(len(g.Edges))
	g.Edges = append(g.Edges, e)
	g.FirstEdge[fromIdx] = append(g.FirstEdge[fromIdx], Neighbor{To: e.To, EdgeIDx: eIdx})
	g.FirstEdge[toIdx] = append(g.FirstEdge[toIdx], Neighbor{To: e.From, EdgeIDx: eIdx})
	return true
}

func (g *CondensedGraph) finalize() {
	for i := range g.FirstEdge {
		adj := g.FirstEdge[i]
		sort.Slice(adj, func(a, b int) bool { return adj[a].To < adj[b].To })
	}
	g.Metadata.Knooppunten = len(g.Nodes)
	g.Metadata.KnooppuntEdges = len(g.Edges)
	g.Metadata.MeanDegree = g.AverageDegree()
	g.buildIndex()
}

func (g *CondensedGraph) buildIndex() {
	g.index = spatialindex.NewIndex()
	for _, n := range g.Nodes {
		g.index.Insert(n.ID, n.Lat, n.Lon)
	}
}

func (g *CondensedGraph) GetNumNodes() int {
	return len(g.Nodes)
}

func (g *CondensedGraph) GetNumEdges() int {
	return len(g.Edges)
}

func (g *CondensedGraph) GetNode(id int64) (datastructure.Knooppunt, bool) {
	idx, ok := g.NodeMapIdx[id]
	if !ok {
		return datastructure.Knooppunt{}, false
	}
	return g.Nodes[idx], true
}

func (g *CondensedGraph) HasNode(id int64) bool {
	_, ok := g.NodeMapIdx[id]
	return ok
}

// Neighbors adjacency of id ordered by neighbor id.
func (g *CondensedGraph) Neighbors(id int64) []Neighbor {
	idx, ok := g.NodeMapIdx[id]
	if !ok {
		return nil
	}
	return g.FirstEdge[idx]
}

func (g *CondensedGraph) GetEdge(edgeIDx int32) *datastructure.CondensedEdge {
	return &g.Edges[edgeIDx]
}

// Edge the edge between u and v in either orientation.
func (g *CondensedGraph) Edge(u, v int64) (*datastructure.CondensedEdge, bool) {
	for _, nb := range g.Neighbors(u) {
		if nb.To == v {
			return &g.Edges[nb.EdgeIDx], true
		}
	}
	return nil, false
}

func (g *CondensedGraph) Degree(id int64) int {
	return len(g.Neighbors(id))
}

func (g *CondensedGraph) AverageDegree() float64 {
	if len(g.Nodes) == 0 {
		return 0
	}
	return 2 * float64(len(g.Edges)) / float64(len(g.Nodes))
}

// NearestJunction closest junction to (lat, lon) and its great-circle distance.
func (g *CondensedGraph) NearestJunction(lat, lon float64) (datastructure.Knooppunt, float64, bool) {
	if g.index == nil {
		g.buildIndex()
	}
	hits := g.index.Nearest(lat, lon, 1)
	if len(hits) == 0 {
		return datastructure.Knooppunt{}, 0, false
	}
	n, ok := g.GetNode(hits[0].ID)
	return n, hits[0].DistanceM, ok
}

// Subgraph copy restricted to junctions within radiusM of (lat, lon).
func (g *CondensedGraph) Subgraph(lat, lon, radiusM float64) *CondensedGraph {
	if g.index == nil {
		g.buildIndex()
	}
	hits := g.index.WithinRadius(lat, lon, radiusM)
	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	sub := NewCondensedGraph()
	for _, id := range ids {
		n, _ := g.GetNode(id)
		sub.addNode(n)
	}
	for _, id := range ids {
		for _, nb := range g.Neighbors(id) {
			if id < nb.To && sub.HasNode(nb.To) {
				sub.addEdge(g.Edges[nb.EdgeIDx])
			}
		}
	}
	sub.Metadata = g.Metadata
	sub.finalize()
	return sub
}

// WithWind view sharing nodes and adjacency, with a private edge slice annotated for wind.
func (g *CondensedGraph) WithWind(wind datastructure.WindSample) *CondensedGraph {
	if g.index == nil {
		g.buildIndex()
	}
	return &CondensedGraph{
		Metadata:   g.Metadata,
		Nodes:      g.Nodes,
		Edges:      effort.Annotate(g.Edges, wind),
		NodeMapIdx: g.NodeMapIdx,
		FirstEdge:  g.FirstEdge,
		index:      g.index,
	}
}

// ExpandCycle raw node path of a junction sequence, each edge oriented in travel direction.
func (g *CondensedGraph) ExpandCycle(junctions []int64) ([]int64, error) {
	full := make([]int64, 0)
	for i := 0; i+1 < len(junctions); i++ {
		u, v := junctions[i], junctions[i+1]
		e, ok := g.Edge(u, v)
		if !ok {
			return nil, fmt.Errorf("no edge between junction %d and %d", u, v)
		}
		seg := e.PathFrom(u)
		if len(seg) == 0 {
			seg = []int64{u, v}
		}
		if len(full) > 0 {
			seg = seg[1:]
		}
		full = append(full, seg...)
	}
	return full, nil
}

func (g *CondensedGraph) validate() error {
	if len(g.NodeMapIdx) != len(g.Nodes) || len(g.FirstEdge) != len(g.Nodes) {
		return fmt.Errorf("%w: node tables disagree", ErrCorruptArtifact)
	}
	for i, e := range g.Edges {
		if !g.HasNode(e.From) || !g.HasNode(e.To) {
			return fmt.Errorf("%w: edge %d references unknown junction", ErrCorruptArtifact, i)
		}
		if len(e.FullPath) > 0 && (e.FullPath[0] != e.From || e.FullPath[len(e.FullPath)-1] != e.To) {
			return fmt.Errorf("%w: edge %d path does not match its endpoints", ErrCorruptArtifact, i)
		}
	}
	for _, adj := range g.FirstEdge {
		for _, nb := range adj {
			if nb.EdgeIDx < 0 || int(nb.EdgeIDx) >= len(g.Edges) {
				return fmt.Errorf("%w: adjacency points past edge table", ErrCorruptArtifact)
			}
		}
	}
	return nil
}

// SaveToFile gob + zstd, written atomically.
func (g *CondensedGraph) SaveToFile(path string) error {
	buf := new(bytes.Buffer)
	enc := gob.NewEncoder(buf)
	if err := enc.Encode(g); err != nil {
		return err
	}
	compressed, err := util.Compress(buf.Bytes())
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(path, compressed)
}

// LoadGraph reads an artifact written by SaveToFile. Any decode or consistency failure wraps ErrCorruptArtifact.
func LoadGraph(path string) (*CondensedGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := util.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	g := NewCondensedGraph()
	dec := gob.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	if g.NodeMapIdx == nil {
		g.NodeMapIdx = make(map[int64]int32)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	g.buildIndex()
	return g, nil
}
