package network

import (
	"sync"

	"github.com/evacroute/evacroute_core/internal/models"
)

// CostFunc derives the traversal cost of an edge from its attributes.
// The builder applies it once per directed edge during construction.
type CostFunc func(length float64, class models.RoadClass, risk float64) float64

// Graph is the in-memory routable road network: an adjacency list of
// directed, cost-weighted edges. It is safe for concurrent reads and
// is never mutated once built.
type Graph struct {
	mu        sync.RWMutex
	nodes     map[int64]models.Node
	out       map[int64][]models.Edge
	incident  map[int64]int
	edgeCount int
}

// NewGraph returns an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[int64]models.Node),
		out:      make(map[int64][]models.Edge),
		incident: make(map[int64]int),
	}
}

// AddNode inserts or replaces a node
func (g *Graph) AddNode(n models.Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.ID] = n
}

// AddEdge appends a directed edge. Both endpoints must already exist.
func (g *Graph) AddEdge(e models.Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.out[e.FromNodeID] = append(g.out[e.FromNodeID], e)
	g.incident[e.FromNodeID]++
	g.incident[e.ToNodeID]++
	g.edgeCount++
}

// Node returns a node by ID
func (g *Graph) Node(id int64) (models.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// HasNode reports whether the node exists
func (g *Graph) HasNode(id int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// OutEdges returns the outgoing edges of a node
func (g *Graph) OutEdges(id int64) []models.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.out[id]
}

// IncidentCount returns the number of directed edges touching the node
// in either direction. Nodes with zero incident edges are unusable as
// matching targets.
func (g *Graph) IncidentCount(id int64) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.incident[id]
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of directed edges
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgeCount
}

// EachNode calls fn for every node. Iteration order is unspecified.
func (g *Graph) EachNode(fn func(models.Node)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, n := range g.nodes {
		fn(n)
	}
}

// EachEdge calls fn for every directed edge. Iteration order is unspecified.
func (g *Graph) EachEdge(fn func(models.Edge)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, edges := range g.out {
		for _, e := range edges {
			fn(e)
		}
	}
}
