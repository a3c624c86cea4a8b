package planner

import (
	"context"
	"testing"

	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/evacroute/evacroute_core/internal/network"
	"github.com/evacroute/evacroute_core/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// planGraph is a chain 1-2-3-4 plus a disconnected island 100-101
// roughly 30km north. All edges are bidirectional.
func planGraph(t *testing.T) *network.Graph {
	t.Helper()

	nodes := []models.NodeRecord{
		{ID: 1, Lat: -7.800, Lon: 110.360},
		{ID: 2, Lat: -7.801, Lon: 110.360},
		{ID: 3, Lat: -7.802, Lon: 110.360},
		{ID: 4, Lat: -7.803, Lon: 110.360},
		{ID: 100, Lat: -7.500, Lon: 110.360},
		{ID: 101, Lat: -7.501, Lon: 110.360},
	}
	edges := []models.EdgeRecord{
		{FromNodeID: 1, ToNodeID: 2, Length: 111, Class: models.ClassPrimary, Bidirectional: true},
		{FromNodeID: 2, ToNodeID: 3, Length: 111, Class: models.ClassPrimary, Bidirectional: true},
		{FromNodeID: 3, ToNodeID: 4, Length: 111, Class: models.ClassPrimary, Bidirectional: true},
		{FromNodeID: 100, ToNodeID: 101, Length: 111, Class: models.ClassPrimary, Bidirectional: true},
	}

	weights := routing.DefaultCostWeights()
	g, warnings, err := network.Build(nodes, edges, func(length float64, class models.RoadClass, risk float64) float64 {
		return routing.EdgeCost(length, class, risk, weights)
	})
	require.NoError(t, err)
	require.Empty(t, warnings)
	return g
}

func village(name string, lat, lon float64) models.POI {
	return models.POI{Name: name, Category: models.CategoryVillage, Lat: lat, Lon: lon}
}

func shelter(name string, lat, lon float64) models.POI {
	return models.POI{Name: name, Category: models.CategoryShelter, Lat: lat, Lon: lon}
}

func TestPlan(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerCount = 2
	cfg.MaxRoutes = 2

	t.Run("Routes every village to every shelter", func(t *testing.T) {
		orch := NewOrchestrator(planGraph(t), cfg)
		result := orch.Plan(context.Background(),
			[]models.POI{village("Desa A", -7.8001, 110.360), village("Desa B", -7.8031, 110.360)},
			[]models.POI{shelter("RSUD", -7.8021, 110.360)})

		assert.Empty(t, result.Failures)
		// The chain has a single simple path per pair
		require.Len(t, result.Routes, 2)
		villages := map[string]bool{}
		for _, r := range result.Routes {
			villages[r.Village] = true
			assert.Equal(t, "RSUD", r.Shelter)
			assert.Equal(t, 1, r.Rank)
			assert.Greater(t, r.DistanceM, 0.0)
		}
		assert.True(t, villages["Desa A"])
		assert.True(t, villages["Desa B"])
	})

	t.Run("One bad village never aborts the others", func(t *testing.T) {
		orch := NewOrchestrator(planGraph(t), cfg)
		result := orch.Plan(context.Background(),
			[]models.POI{
				village("Desa A", -7.8001, 110.360),
				village("", -7.8001, 110.360), // malformed
				village("Desa B", -7.8031, 110.360),
			},
			[]models.POI{shelter("RSUD", -7.8021, 110.360)})

		assert.Len(t, result.Routes, 2)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, models.ReasonMalformedInput, result.Failures[0].Reason)
	})

	t.Run("Unreachable pair becomes a manifest entry", func(t *testing.T) {
		orch := NewOrchestrator(planGraph(t), cfg)
		result := orch.Plan(context.Background(),
			[]models.POI{village("Pulau", -7.5001, 110.360)}, // island
			[]models.POI{shelter("RSUD", -7.8021, 110.360)})

		assert.Empty(t, result.Routes)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "Pulau", result.Failures[0].Village)
		assert.Equal(t, "RSUD", result.Failures[0].Shelter)
		assert.Equal(t, models.ReasonUnreachable, result.Failures[0].Reason)
	})

	t.Run("Village outside snap distance fails its unit only", func(t *testing.T) {
		orch := NewOrchestrator(planGraph(t), cfg)
		result := orch.Plan(context.Background(),
			[]models.POI{
				village("Jauh", 0, 0),
				village("Desa A", -7.8001, 110.360),
			},
			[]models.POI{shelter("RSUD", -7.8021, 110.360)})

		assert.Len(t, result.Routes, 1)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "Jauh", result.Failures[0].Village)
		assert.Equal(t, models.ReasonNoReachableNode, result.Failures[0].Reason)
	})

	t.Run("Unmatched shelter is reported once up front", func(t *testing.T) {
		orch := NewOrchestrator(planGraph(t), cfg)
		result := orch.Plan(context.Background(),
			[]models.POI{village("Desa A", -7.8001, 110.360)},
			[]models.POI{
				shelter("RSUD", -7.8021, 110.360),
				shelter("Nun Jauh", 0, 0),
			})

		assert.Len(t, result.Routes, 1)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "Nun Jauh", result.Failures[0].Shelter)
		assert.Equal(t, models.ReasonNoReachableNode, result.Failures[0].Reason)
	})

	t.Run("Cancelled context stops dispatch", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		orch := NewOrchestrator(planGraph(t), cfg)
		result := orch.Plan(ctx,
			[]models.POI{village("Desa A", -7.8001, 110.360)},
			[]models.POI{shelter("RSUD", -7.8021, 110.360)})

		assert.Empty(t, result.Routes)
	})

	t.Run("Ranks follow ascending cost", func(t *testing.T) {
		// Square 1-2-4-3-1 gives two simple paths between corners
		nodes := []models.NodeRecord{
			{ID: 1, Lat: -7.800, Lon: 110.360},
			{ID: 2, Lat: -7.800, Lon: 110.362},
			{ID: 3, Lat: -7.802, Lon: 110.360},
			{ID: 4, Lat: -7.802, Lon: 110.362},
		}
		edges := []models.EdgeRecord{
			{FromNodeID: 1, ToNodeID: 2, Length: 100, Class: models.ClassPrimary, Bidirectional: true},
			{FromNodeID: 2, ToNodeID: 4, Length: 100, Class: models.ClassPrimary, Bidirectional: true},
			{FromNodeID: 1, ToNodeID: 3, Length: 300, Class: models.ClassPrimary, Bidirectional: true},
			{FromNodeID: 3, ToNodeID: 4, Length: 300, Class: models.ClassPrimary, Bidirectional: true},
		}
		weights := routing.DefaultCostWeights()
		g, _, err := network.Build(nodes, edges, func(length float64, class models.RoadClass, risk float64) float64 {
			return routing.EdgeCost(length, class, risk, weights)
		})
		require.NoError(t, err)

		orch := NewOrchestrator(g, cfg)
		result := orch.Plan(context.Background(),
			[]models.POI{village("Desa", -7.800, 110.360)},
			[]models.POI{shelter("RSUD", -7.802, 110.362)})

		require.Len(t, result.Routes, 2)
		assert.Equal(t, 1, result.Routes[0].Rank)
		assert.Equal(t, 2, result.Routes[1].Rank)
		assert.LessOrEqual(t, result.Routes[0].Cost, result.Routes[1].Cost)
	})
}

func TestConfigValidated(t *testing.T) {
	t.Run("Defaults survive validation", func(t *testing.T) {
		assert.Equal(t, DefaultConfig(), DefaultConfig().Validated())
	})

	t.Run("Out of range values clamp to defaults", func(t *testing.T) {
		cfg := Config{
			RiskWeight:     -1,
			QualityWeight:  -2,
			MaxRoutes:      0,
			WorkerCount:    -3,
			MaxSnapDistM:   0,
			AltPathPenalty: 1.0,
			MaxAltAttempts: 0,
		}.Validated()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("Attempt cap never below route count", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxRoutes = 20
		cfg.MaxAltAttempts = 5
		assert.Equal(t, 20, cfg.Validated().MaxAltAttempts)
	})

	t.Run("Invalid attempt cap falls back to the default", func(t *testing.T) {
		// A small valid route count must not shrink the cap below 10
		cfg := DefaultConfig()
		cfg.MaxRoutes = 2
		cfg.MaxAltAttempts = 0
		assert.Equal(t, DefaultConfig().MaxAltAttempts, cfg.Validated().MaxAltAttempts)
	})
}
