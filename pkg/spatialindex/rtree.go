package spatialindex

import (
	"sort"

	"lintang/knooppuntx/pkg/geo"

	"github.com/dhconnelly/rtreego"
)

var tol = 0.00001

// nearest neighbor candidates are ranked in degree space by rtreego, then re-ranked by great-circle distance.
const oversample = 4

// slack added to the refinement radius so the boundary point survives the cap rect rounding.
const radiusSlackM = 0.01

type PointRect struct {
	Location rtreego.Point
	ID       int64
}

func (p *PointRect) Bounds() rtreego.Rect {
	return p.Location.ToRect(tol)
}

type Hit struct {
	ID        int64
	Lat       float64
	Lon       float64
	DistanceM float64
}

// Index in-memory point index keyed by node id. Point 0 is latitude, point 1 longitude.
type Index struct {
	tree *rtreego.Rtree
	size int
}

func NewIndex() *Index {
	return &Index{
		tree: rtreego.NewTree(2, 25, 50), // 2 dimension, 25 min entries dan 50 max entries
	}
}

func (ix *Index) Insert(id int64, lat, lon float64) {
	ix.tree.Insert(&PointRect{Location: rtreego.Point{lat, lon}, ID: id})
	ix.size++
}

func (ix *Index) Size() int {
	return ix.size
}

// Nearest k points closest to (lat, lon) by great-circle distance, closest first.
func (ix *Index) Nearest(lat, lon float64, k int) []Hit {
	if ix.size == 0 || k <= 0 {
		return []Hit{}
	}
	n := k * oversample
	if n < 8 {
		n = 8
	}
	if n > ix.size {
		n = ix.size
	}
	objs := ix.tree.NearestNeighbors(n, rtreego.Point{lat, lon})
	hits := ix.toHits(objs, lat, lon)
	if len(hits) <= k {
		return hits
	}

	// degrees of longitude shrink with latitude, so the degree-space neighbours only bound the answer.
	// every true k-nearest point lies within the k-th candidate's great-circle distance.
	radius := hits[k-1].DistanceM + radiusSlackM
	if within := ix.WithinRadius(lat, lon, radius); len(within) >= k {
		hits = within
	}
	return hits[:k]
}

// WithinRadius every point whose great-circle distance to (lat, lon) is at most radiusM.
func (ix *Index) WithinRadius(lat, lon, radiusM float64) []Hit {
	if ix.size == 0 {
		return []Hit{}
	}
	box := geo.BoundingRect(lat, lon, radiusM)
	rect, err := rtreego.NewRect(rtreego.Point{box.MinLat, box.MinLon},
		[]float64{box.MaxLat - box.MinLat + tol, box.MaxLon - box.MinLon + tol})
	if err != nil {
		return []Hit{}
	}
	hits := ix.toHits(ix.tree.SearchIntersect(rect), lat, lon)
	within := hits[:0]
	for _, h := range hits {
		if h.DistanceM <= radiusM {
			within = append(within, h)
		}
	}
	return within
}

func (ix *Index) toHits(objs []rtreego.Spatial, lat, lon float64) []Hit {
	hits := make([]Hit, 0, len(objs))
	for _, obj := range objs {
		p, ok := obj.(*PointRect)
		if !ok || p == nil {
			continue
		}
		hits = append(hits, Hit{
			ID:        p.ID,
			Lat:       p.Location[0],
			Lon:       p.Location[1],
			DistanceM: geo.CalculateHaversineDistance(lat, lon, p.Location[0], p.Location[1]),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].DistanceM == hits[j].DistanceM {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].DistanceM < hits[j].DistanceM
	})
	return hits
}
