package routing

import (
	"math"
	"testing"

	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestEdgeCost(t *testing.T) {
	w := DefaultCostWeights()

	t.Run("Primary road with zero risk costs its length", func(t *testing.T) {
		cost := EdgeCost(100, models.ClassPrimary, 0, w)
		assert.InDelta(t, 100.0, cost, 1e-9)
	})

	t.Run("Risk increases cost", func(t *testing.T) {
		safe := EdgeCost(100, models.ClassPrimary, 0, w)
		risky := EdgeCost(100, models.ClassPrimary, 0.8, w)
		assert.Greater(t, risky, safe)
		assert.InDelta(t, 180.0, risky, 1e-9)
	})

	t.Run("Worse road class increases cost", func(t *testing.T) {
		primary := EdgeCost(100, models.ClassPrimary, 0, w)
		path := EdgeCost(100, models.ClassPath, 0, w)
		assert.Greater(t, path, primary)
	})

	t.Run("Unknown class takes the worst penalty", func(t *testing.T) {
		unknown := EdgeCost(100, models.RoadClass("motorway_link"), 0, w)
		path := EdgeCost(100, models.ClassPath, 0, w)
		assert.Equal(t, path, unknown)
	})

	t.Run("Risk above one is clamped", func(t *testing.T) {
		clamped := EdgeCost(100, models.ClassPrimary, 5.0, w)
		atOne := EdgeCost(100, models.ClassPrimary, 1.0, w)
		assert.Equal(t, atOne, clamped)
	})

	t.Run("Negative risk counts as zero", func(t *testing.T) {
		cost := EdgeCost(100, models.ClassPrimary, -0.5, w)
		assert.InDelta(t, 100.0, cost, 1e-9)
	})

	t.Run("Result is always finite and positive", func(t *testing.T) {
		inputs := []struct {
			name   string
			length float64
			risk   float64
		}{
			{"zero length", 0, 0},
			{"negative length", -10, 0},
			{"NaN length", math.NaN(), 0.5},
			{"infinite length", math.Inf(1), 0.5},
			{"NaN risk", 100, math.NaN()},
		}
		for _, in := range inputs {
			cost := EdgeCost(in.length, models.ClassResidential, in.risk, w)
			assert.False(t, math.IsNaN(cost) || math.IsInf(cost, 0), in.name)
			assert.Greater(t, cost, 0.0, in.name)
		}
	})

	t.Run("Zero weights reduce to pure distance", func(t *testing.T) {
		cost := EdgeCost(250, models.ClassPath, 0.9, CostWeights{})
		assert.InDelta(t, 250.0, cost, 1e-9)
	})
}
