package network

import (
	"testing"

	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// matcherGraph has three connected nodes in a row plus one isolated
// node sitting right where queries land
func matcherGraph() *Graph {
	g := NewGraph()
	g.AddNode(models.Node{ID: 10, Lat: -7.800, Lon: 110.360})
	g.AddNode(models.Node{ID: 20, Lat: -7.805, Lon: 110.360})
	g.AddNode(models.Node{ID: 30, Lat: -7.900, Lon: 110.360})
	g.AddNode(models.Node{ID: 40, Lat: -7.800, Lon: 110.3601}) // isolated
	g.AddEdge(models.Edge{FromNodeID: 10, ToNodeID: 20, Cost: 1})
	g.AddEdge(models.Edge{FromNodeID: 20, ToNodeID: 30, Cost: 1})
	return g
}

func TestMatcher(t *testing.T) {
	t.Run("Finds the nearest connected node", func(t *testing.T) {
		m := NewMatcher(matcherGraph(), 2000)
		node, dist, err := m.Nearest(-7.8001, 110.3600)
		require.NoError(t, err)
		assert.Equal(t, int64(10), node.ID)
		assert.Less(t, dist, 50.0)
	})

	t.Run("Isolated nodes are never matched", func(t *testing.T) {
		m := NewMatcher(matcherGraph(), 2000)
		assert.Equal(t, 3, m.IndexedNodes())

		// Node 40 is closest to this query but has no edges
		node, _, err := m.Nearest(-7.800, 110.3601)
		require.NoError(t, err)
		assert.Equal(t, int64(10), node.ID)
	})

	t.Run("Rejects matches beyond the snap distance", func(t *testing.T) {
		m := NewMatcher(matcherGraph(), 100)
		_, _, err := m.Nearest(-7.85, 110.360) // ~5km from everything
		assert.ErrorIs(t, err, ErrNoReachableNode)
	})

	t.Run("Exact distance ties resolve to lowest id", func(t *testing.T) {
		g := NewGraph()
		g.AddNode(models.Node{ID: 7, Lat: -7.80, Lon: 110.36})
		g.AddNode(models.Node{ID: 3, Lat: -7.80, Lon: 110.36})
		g.AddEdge(models.Edge{FromNodeID: 7, ToNodeID: 3, Cost: 1})

		m := NewMatcher(g, 2000)
		for i := 0; i < 10; i++ {
			node, _, err := m.Nearest(-7.80, 110.36)
			require.NoError(t, err)
			assert.Equal(t, int64(3), node.ID)
		}
	})

	t.Run("Repeated queries are deterministic", func(t *testing.T) {
		m := NewMatcher(matcherGraph(), 20000)
		first, firstDist, err := m.Nearest(-7.84, 110.361)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			node, dist, err := m.Nearest(-7.84, 110.361)
			require.NoError(t, err)
			assert.Equal(t, first.ID, node.ID)
			assert.Equal(t, firstDist, dist)
		}
	})

	t.Run("Empty graph never matches", func(t *testing.T) {
		m := NewMatcher(NewGraph(), 2000)
		_, _, err := m.Nearest(-7.80, 110.36)
		assert.ErrorIs(t, err, ErrNoReachableNode)
	})

	t.Run("High latitude matches within the snap distance", func(t *testing.T) {
		// At lat 75 a degree of longitude spans only ~29 km, so a node
		// ~1.4 km east sits five grid cells away. Equatorially sized
		// rings would stop scanning long before reaching it.
		g := NewGraph()
		g.AddNode(models.Node{ID: 1, Lat: 75.0, Lon: 0.05})
		g.AddNode(models.Node{ID: 2, Lat: 75.0, Lon: 0.06})
		g.AddEdge(models.Edge{FromNodeID: 1, ToNodeID: 2, Cost: 1})

		m := NewMatcher(g, 2000)
		node, dist, err := m.Nearest(75.0, 0.0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), node.ID)
		assert.InDelta(t, 1439, dist, 30)
	})

	t.Run("High latitude returns the nearest node, not the first hit", func(t *testing.T) {
		// The northern node lands in an earlier ring than the eastern
		// one but is farther in meters. The scan must keep going until
		// the ring lower bound passes the eastern node's distance.
		g := NewGraph()
		g.AddNode(models.Node{ID: 1, Lat: 75.018, Lon: 0.0}) // ~2002m north
		g.AddNode(models.Node{ID: 2, Lat: 75.0, Lon: 0.04})  // ~1151m east
		g.AddEdge(models.Edge{FromNodeID: 1, ToNodeID: 2, Cost: 1})

		m := NewMatcher(g, 3000)
		node, dist, err := m.Nearest(75.0, 0.0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), node.ID)
		assert.InDelta(t, 1151, dist, 30)
	})

	t.Run("Match resolves the POI in place", func(t *testing.T) {
		m := NewMatcher(matcherGraph(), 2000)
		p := models.POI{Name: "Desa Contoh", Category: models.CategoryVillage, Lat: -7.8001, Lon: 110.3600}
		require.NoError(t, m.Match(&p))
		assert.True(t, p.Matched)
		assert.Equal(t, int64(10), p.NodeID)
		assert.Greater(t, p.SnapDistM, 0.0)
	})
}

func TestHaversineDistance(t *testing.T) {
	t.Run("Zero for identical points", func(t *testing.T) {
		assert.Zero(t, HaversineDistance(-7.80, 110.36, -7.80, 110.36))
	})

	t.Run("Known distance", func(t *testing.T) {
		// One degree of latitude is ~111 km
		d := HaversineDistance(-7.0, 110.0, -8.0, 110.0)
		assert.InDelta(t, 111195, d, 500)
	})

	t.Run("Symmetric", func(t *testing.T) {
		a := HaversineDistance(-7.80, 110.36, -7.85, 110.40)
		b := HaversineDistance(-7.85, 110.40, -7.80, 110.36)
		assert.InDelta(t, a, b, 1e-6)
	})
}
