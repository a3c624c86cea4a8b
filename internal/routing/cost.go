package routing

import (
	"math"

	"github.com/evacroute/evacroute_core/internal/models"
)

// minEdgeCost is the floor applied to every derived edge cost.
// Zero-weight edges would make shortest-path results degenerate
// (zero-cost cycles), so the cost model never emits one.
const minEdgeCost = 1e-9

// CostWeights tunes the balance between distance, road quality and
// hazard risk in the edge cost. Both weights are non-negative; the
// defaults give equal emphasis to all three terms.
type CostWeights struct {
	RiskWeight    float64
	QualityWeight float64
}

// DefaultCostWeights returns the standard balanced weighting
func DefaultCostWeights() CostWeights {
	return CostWeights{RiskWeight: 1.0, QualityWeight: 1.0}
}

// EdgeCost derives the traversal cost for a single edge:
//
//	cost = length * (1 + qualityWeight*classPenalty + riskWeight*risk)
//
// This is the single place route preference is defined. Degenerate
// inputs never fail: missing risk counts as zero, an unknown road
// class takes the worst-case penalty, and non-finite or non-positive
// inputs are clamped so the result is always finite and > 0.
func EdgeCost(length float64, class models.RoadClass, risk float64, w CostWeights) float64 {
	if math.IsNaN(length) || math.IsInf(length, 0) || length < 0 {
		length = 0
	}
	if math.IsNaN(risk) || risk < 0 {
		risk = 0
	}
	if risk > 1 {
		risk = 1
	}

	rw := w.RiskWeight
	if math.IsNaN(rw) || rw < 0 {
		rw = 0
	}
	qw := w.QualityWeight
	if math.IsNaN(qw) || qw < 0 {
		qw = 0
	}

	cost := length * (1 + qw*class.Penalty() + rw*risk)
	if cost < minEdgeCost {
		cost = minEdgeCost
	}
	return cost
}
