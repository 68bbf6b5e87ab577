package contractor

import (
	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/network"
)

// junctionLink one junction reached from a search source.
type junctionLink struct {
	to       int64
	length   float64
	path     []int64
	segments []datastructure.Segment
}

/*
junctionSearch
dijkstra from junction src over the raw network. A popped junction other than src is recorded and not expanded,
so every recorded path has junctions only at its two ends. Relaxations longer than cutoffM are dropped.
Junctions are returned in settle order, the first path found to each wins.

time complexity: O((V+E)logV), priority queue pakai binary heap.
*/
func junctionSearch(raw *network.RawNetwork, src int64, cutoffM float64) []junctionLink {
	dist := map[int64]float64{src: 0}
	prevEdge := make(map[int64]datastructure.RawEdge)
	settled := make(map[int64]bool)
	links := make([]junctionLink, 0)

	pq := NewMinHeap[int64]()
	pq.Insert(PriorityQueueNode[int64]{Rank: 0, Item: src})

	for pq.Size() > 0 {
		curr, _ := pq.ExtractMin()
		u := curr.Item
		settled[u] = true

		if u != src {
			if node, ok := raw.Node(u); ok && node.IsJunction() {
				links = append(links, buildLink(src, u, dist[u], prevEdge))
				continue
			}
		}

		for _, eIdx := range raw.GetFirstOutEdge(u) {
			edge := raw.GetOutEdge(eIdx)
			v := edge.To
			if settled[v] {
				continue
			}
			newDist := curr.Rank + edge.Length
			if newDist > cutoffM {
				continue
			}
			old, seen := dist[v]
			if !seen {
				dist[v] = newDist
				prevEdge[v] = edge
				pq.Insert(PriorityQueueNode[int64]{Rank: newDist, Item: v})
			} else if newDist < old {
				dist[v] = newDist
				prevEdge[v] = edge
				pq.DecreaseKey(PriorityQueueNode[int64]{Rank: newDist, Item: v})
			}
		}
	}
	return links
}

// buildLink walks predecessor edges back from target to src.
func buildLink(src, target int64, length float64, prevEdge map[int64]datastructure.RawEdge) junctionLink {
	path := []int64{target}
	segments := make([]datastructure.Segment, 0)
	for cur := target; cur != src; {
		e := prevEdge[cur]
		segments = append(segments, datastructure.Segment{Length: e.Length, Bearing: e.Bearing})
		cur = e.From
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return junctionLink{to: target, length: length, path: path, segments: segments}
}
