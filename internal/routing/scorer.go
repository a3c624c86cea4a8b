package routing

import "github.com/evacroute/evacroute_core/internal/models"

// Score aggregates route metrics from a found path: total geometric
// distance (edge lengths, not cost), mean per-edge risk, and the worst
// road class traversed. Pure aggregation; the path is not mutated.
// A single-node path (origin == destination) scores as distance 0,
// risk 0, best class.
func Score(village, shelter string, path Path, rank int) models.Route {
	route := models.Route{
		Village:    village,
		Shelter:    shelter,
		NodeIDs:    path.NodeIDs,
		WorstClass: models.ClassPrimary,
		Cost:       path.Cost,
		Rank:       rank,
	}

	if len(path.Edges) == 0 {
		return route
	}

	totalRisk := 0.0
	for _, e := range path.Edges {
		route.DistanceM += e.Length
		totalRisk += e.Risk
		if e.Class.WorseThan(route.WorstClass) {
			route.WorstClass = e.Class
		}
	}
	route.MeanRisk = totalRisk / float64(len(path.Edges))

	return route
}
