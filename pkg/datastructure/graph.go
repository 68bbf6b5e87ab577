package datastructure

import (
	"github.com/twpayne/go-polyline"
)

// RawNode way-level node. JunctionRef is empty for plain shape/intersection nodes.
type RawNode struct {
	ID          int64
	Lat, Lon    float64
	JunctionRef string
}

func (n RawNode) IsJunction() bool {
	return n.JunctionRef != ""
}

// RawEdge directed way segment. Bearing in [0,360), Length in meters.
type RawEdge struct {
	From    int64
	To      int64
	Length  float64
	Bearing float64
}

// Knooppunt junction node of the condensed graph.
type Knooppunt struct {
	ID  int64
	Lat float64
	Lon float64
	Ref string
}

// Segment one raw edge along a condensed edge, in FullPath order.
type Segment struct {
	Length  float64
	Bearing float64
}

// CondensedEdge junction-to-junction edge. From == FullPath[0], To == FullPath[len-1].
// Bearing is the straight-line bearing From->To. EffortFwd is the cost of traveling From->To, EffortRev the cost of To->From.
type CondensedEdge struct {
	From      int64
	To        int64
	Length    float64
	Bearing   float64
	FullPath  []int64
	Segments  []Segment
	EffortFwd float64
	EffortRev float64
}

// Other returns the endpoint of the edge that is not u.
func (e *CondensedEdge) Other(u int64) int64 {
	if e.From == u {
		return e.To
	}
	return e.From
}

// EffortFrom effort of traversing the edge starting at u.
func (e *CondensedEdge) EffortFrom(u int64) float64 {
	if len(e.FullPath) > 0 && e.FullPath[0] == u {
		return e.EffortFwd
	}
	if len(e.FullPath) == 0 && e.From == u {
		return e.EffortFwd
	}
	return e.EffortRev
}

// PathFrom raw node path of the edge oriented to start at u.
func (e *CondensedEdge) PathFrom(u int64) []int64 {
	path := make([]int64, len(e.FullPath))
	copy(path, e.FullPath)
	if len(path) > 0 && path[0] != u {
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
	}
	return path
}

// Relation claimed junction-to-junction route relation with its member ways (ordered node ids).
type Relation struct {
	ID         int64
	FromNodeID int64
	ToNodeID   int64
	FromRef    string
	ToRef      string
	Ways       [][]int64
}

func RenderPath(coords []Coordinate) string {
	cs := make([][]float64, 0, len(coords))
	for _, c := range coords {
		cs = append(cs, []float64{c.Lat, c.Lon})
	}
	return string(polyline.EncodeCoords(cs))
}
