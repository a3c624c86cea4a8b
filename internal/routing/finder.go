package routing

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"

	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/evacroute/evacroute_core/internal/network"
)

// ErrUnreachable is returned when no path exists between two matched
// nodes. Callers record it as a failed unit; it is never fatal to a run.
var ErrUnreachable = errors.New("no path between nodes")

// Path is one loop-free route through the graph. Cost is the
// unpenalized sum of edge costs, which alternatives are ranked by.
type Path struct {
	NodeIDs []int64
	Edges   []models.Edge
	Cost    float64
}

type edgeKey struct {
	from, to int64
}

// FindRoutes computes up to k distinct simple paths from origin to
// destination, ordered by ascending cost.
//
// The first path is the true lowest-cost path (Dijkstra over
// non-negative weights). Alternatives come from a penalize-and-recompute
// heuristic: after extracting a path, the cost of its edges is
// multiplied by penalty (>1) and the search repeats. Recomputed paths
// with a node sequence identical to a previous one are discarded. The
// loop stops after k distinct paths, an unreachable recompute, or
// maxAttempts iterations, so termination is guaranteed on graphs where
// genuine alternatives are scarce. Diversity is heuristic, not optimal.
func FindRoutes(g *network.Graph, origin, dest int64, k int, penalty float64, maxAttempts int) ([]Path, error) {
	if !g.HasNode(origin) || !g.HasNode(dest) {
		return nil, fmt.Errorf("origin %d or destination %d not in graph: %w", origin, dest, ErrUnreachable)
	}
	if k < 1 {
		k = 1
	}
	if penalty <= 1 {
		penalty = 1.5
	}
	if maxAttempts < k {
		maxAttempts = k
	}

	if origin == dest {
		return []Path{{NodeIDs: []int64{origin}}}, nil
	}

	overlay := make(map[edgeKey]float64)
	seen := make(map[string]bool)
	var paths []Path

	for attempt := 0; attempt < maxAttempts && len(paths) < k; attempt++ {
		path, ok := shortestPath(g, origin, dest, overlay)
		if !ok {
			break
		}

		sig := pathSignature(path.NodeIDs)
		if !seen[sig] {
			seen[sig] = true
			paths = append(paths, path)
		}

		// Push the next search away from this path's edges
		for _, e := range path.Edges {
			key := edgeKey{e.FromNodeID, e.ToNodeID}
			if _, exists := overlay[key]; !exists {
				overlay[key] = 1
			}
			overlay[key] *= penalty
		}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no path from %d to %d: %w", origin, dest, ErrUnreachable)
	}

	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].Cost < paths[j].Cost
	})
	return paths, nil
}

// shortestPath runs Dijkstra with the penalty overlay applied to edge
// costs. The returned Path carries the unpenalized cost.
func shortestPath(g *network.Graph, origin, dest int64, overlay map[edgeKey]float64) (Path, bool) {
	dist := make(map[int64]float64)
	prevEdge := make(map[int64]models.Edge)
	done := make(map[int64]bool)

	pq := &nodeQueue{}
	heap.Init(pq)
	heap.Push(pq, &queueItem{nodeID: origin, priority: 0})
	dist[origin] = 0

	for pq.Len() > 0 {
		current := heap.Pop(pq).(*queueItem)
		if done[current.nodeID] {
			continue
		}
		done[current.nodeID] = true

		if current.nodeID == dest {
			break
		}

		for _, e := range g.OutEdges(current.nodeID) {
			if done[e.ToNodeID] {
				continue
			}
			cost := e.Cost
			if mult, ok := overlay[edgeKey{e.FromNodeID, e.ToNodeID}]; ok {
				cost *= mult
			}
			tentative := dist[current.nodeID] + cost
			if existing, ok := dist[e.ToNodeID]; !ok || tentative < existing {
				dist[e.ToNodeID] = tentative
				prevEdge[e.ToNodeID] = e
				heap.Push(pq, &queueItem{nodeID: e.ToNodeID, priority: tentative})
			}
		}
	}

	if !done[dest] {
		return Path{}, false
	}

	// Walk predecessors back to the origin
	var edges []models.Edge
	for at := dest; at != origin; {
		e := prevEdge[at]
		edges = append(edges, e)
		at = e.FromNodeID
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	nodeIDs := make([]int64, 0, len(edges)+1)
	nodeIDs = append(nodeIDs, origin)
	cost := 0.0
	for _, e := range edges {
		nodeIDs = append(nodeIDs, e.ToNodeID)
		cost += e.Cost
	}

	return Path{NodeIDs: nodeIDs, Edges: edges, Cost: cost}, true
}

func pathSignature(nodeIDs []int64) string {
	sig := make([]byte, 0, len(nodeIDs)*8)
	for _, id := range nodeIDs {
		for shift := 0; shift < 64; shift += 8 {
			sig = append(sig, byte(id>>shift))
		}
	}
	return string(sig)
}

// queueItem is one entry in the Dijkstra open set
type queueItem struct {
	nodeID   int64
	priority float64
	index    int
}

// nodeQueue implements heap.Interface for the open set
type nodeQueue []*queueItem

func (pq nodeQueue) Len() int { return len(pq) }

func (pq nodeQueue) Less(i, j int) bool {
	return pq[i].priority < pq[j].priority
}

func (pq nodeQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *nodeQueue) Push(x interface{}) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *nodeQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}
