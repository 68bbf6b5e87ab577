package routingalgorithm

import (
	"lintang/knooppuntx/pkg/contractor"
	"lintang/knooppuntx/pkg/geo"
	"lintang/knooppuntx/pkg/network"
	"lintang/knooppuntx/pkg/util"
)

type RouteAlgorithm struct{}

func NewRouteAlgorithm() *RouteAlgorithm {
	return &RouteAlgorithm{}
}

/*
AStar shortest path by length from -> to over a raw network, haversine to the target as heuristic.
Returns the node path (from ... to), its length in meters and whether to was reached.
*/
func (rt *RouteAlgorithm) AStar(g *network.RawNetwork, from, to int64) ([]int64, float64, bool) {
	if !g.HasNode(from) || !g.HasNode(to) {
		return nil, 0, false
	}
	if from == to {
		return []int64{from}, 0, true
	}
	target, _ := g.Node(to)
	heuristic := func(id int64) float64 {
		n, _ := g.Node(id)
		return geo.CalculateHaversineDistance(n.Lat, n.Lon, target.Lat, target.Lon)
	}

	cameFrom := make(map[int64]int64)
	costSoFar := map[int64]float64{from: 0}
	closed := make(map[int64]bool)

	heap := contractor.NewMinHeap[int64]()
	heap.Insert(contractor.PriorityQueueNode[int64]{Rank: heuristic(from), Item: from})

	for heap.Size() > 0 {
		current, _ := heap.ExtractMin()
		u := current.Item
		if u == to {
			path := []int64{to}
			for cur := to; cur != from; {
				cur = cameFrom[cur]
				path = append(path, cur)
			}
			util.ReverseG(path)
			return path, costSoFar[to], true
		}
		closed[u] = true

		for _, eIdx := range g.GetFirstOutEdge(u) {
			edge := g.GetOutEdge(eIdx)
			v := edge.To
			if closed[v] {
				continue
			}
			newCost := costSoFar[u] + edge.Length
			old, seen := costSoFar[v]
			if seen && newCost >= old {
				continue
			}
			costSoFar[v] = newCost
			cameFrom[v] = u
			node := contractor.PriorityQueueNode[int64]{Rank: newCost + heuristic(v), Item: v}
			if heap.Contains(v) {
				heap.DecreaseKey(node)
			} else {
				heap.Insert(node)
			}
		}
	}
	return nil, 0, false
}
