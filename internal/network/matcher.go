package network

import (
	"errors"
	"fmt"
	"math"

	"github.com/evacroute/evacroute_core/internal/models"
)

// ErrNoReachableNode is returned when no usable network node lies
// within the configured snap distance of a POI coordinate.
var ErrNoReachableNode = errors.New("no reachable node within snap distance")

// matcherCellDeg is the grid cell size in degrees (~1.1 km at the
// equator). One cell ring is scanned per step, so lookups stay
// sublinear even on large networks.
const matcherCellDeg = 0.01

// metersPerDegree is the meters spanned by one degree of latitude. A
// degree of longitude spans metersPerDegree*cos(lat), which is what the
// ring bounds must use so the search stays correct away from the equator.
const metersPerDegree = 111320.0

type cellKey struct {
	x, y int
}

// Matcher snaps arbitrary coordinates onto the nearest usable network
// node using a grid-bucketed spatial index. Nodes without incident
// edges are excluded from the index: matching onto an isolated node
// would make every subsequent search fail.
type Matcher struct {
	graph        *Graph
	maxSnapDistM float64
	cells        map[cellKey][]int64
	indexed      int
}

// NewMatcher builds the spatial index over the graph's usable nodes
func NewMatcher(g *Graph, maxSnapDistM float64) *Matcher {
	m := &Matcher{
		graph:        g,
		maxSnapDistM: maxSnapDistM,
		cells:        make(map[cellKey][]int64),
	}
	g.EachNode(func(n models.Node) {
		if g.IncidentCount(n.ID) == 0 {
			return
		}
		key := cellOf(n.Lat, n.Lon)
		m.cells[key] = append(m.cells[key], n.ID)
		m.indexed++
	})
	return m
}

// IndexedNodes returns the number of nodes in the index
func (m *Matcher) IndexedNodes() int {
	return m.indexed
}

// Nearest returns the closest usable node to the coordinate, along
// with its distance in meters. Exact distance ties resolve to the
// lowest node id so matching is deterministic.
func (m *Matcher) Nearest(lat, lon float64) (models.Node, float64, error) {
	if m.indexed == 0 {
		return models.Node{}, 0, fmt.Errorf("matching (%f, %f): %w", lat, lon, ErrNoReachableNode)
	}

	// Ring bounds use the narrowest cell axis at this latitude. Cells
	// shrink in longitude by cos(lat), so sizing them equatorially
	// would stop the scan before the snap radius is covered.
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	cellMeters := matcherCellDeg * metersPerDegree * cosLat

	maxRings := int(math.Ceil(m.maxSnapDistM/cellMeters)) + 1
	center := cellOf(lat, lon)

	bestID := int64(-1)
	bestDist := math.Inf(1)

	for ring := 0; ring <= maxRings; ring++ {
		// Every cell in ring r is at least (r-1) cell widths away, so
		// once that lower bound exceeds the best candidate no farther
		// ring can hold a closer node.
		if bestID >= 0 && float64(ring-1)*cellMeters > bestDist {
			break
		}
		for _, key := range ringCells(center, ring) {
			for _, id := range m.cells[key] {
				n, ok := m.graph.Node(id)
				if !ok {
					continue
				}
				d := HaversineDistance(lat, lon, n.Lat, n.Lon)
				if d < bestDist || (d == bestDist && id < bestID) {
					bestDist = d
					bestID = id
				}
			}
		}
	}

	if bestID < 0 || bestDist > m.maxSnapDistM {
		return models.Node{}, 0, fmt.Errorf("matching (%f, %f): nearest node is beyond %.0fm: %w",
			lat, lon, m.maxSnapDistM, ErrNoReachableNode)
	}

	node, _ := m.graph.Node(bestID)
	return node, bestDist, nil
}

// Match resolves a POI in place, recording the matched node and snap
// distance. The POI record itself is the only thing mutated.
func (m *Matcher) Match(poi *models.POI) error {
	node, dist, err := m.Nearest(poi.Lat, poi.Lon)
	if err != nil {
		return err
	}
	poi.NodeID = node.ID
	poi.SnapDistM = dist
	poi.Matched = true
	return nil
}

func cellOf(lat, lon float64) cellKey {
	return cellKey{
		x: int(math.Floor(lon / matcherCellDeg)),
		y: int(math.Floor(lat / matcherCellDeg)),
	}
}

// ringCells enumerates the cells at Chebyshev distance ring from center
func ringCells(center cellKey, ring int) []cellKey {
	if ring == 0 {
		return []cellKey{center}
	}
	cells := make([]cellKey, 0, 8*ring)
	for dx := -ring; dx <= ring; dx++ {
		cells = append(cells, cellKey{center.x + dx, center.y - ring})
		cells = append(cells, cellKey{center.x + dx, center.y + ring})
	}
	for dy := -ring + 1; dy <= ring-1; dy++ {
		cells = append(cells, cellKey{center.x - ring, center.y + dy})
		cells = append(cells, cellKey{center.x + ring, center.y + dy})
	}
	return cells
}
