package network

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/evacroute/evacroute_core/internal/models"
)

// Whole-graph-unusable conditions. These abort the run; everything
// else in graph construction degrades to per-record warnings.
var (
	ErrNoNodes = errors.New("network has no usable nodes")
	ErrNoEdges = errors.New("network has no usable edges")
)

// Build constructs the weighted routable graph from raw node and edge
// records. Every directed edge carries a cost derived by costFn;
// bidirectional records expand into two directed edges with
// independently computed costs. Malformed records and edges referencing
// unknown nodes are skipped and reported in the returned warning list.
//
// Build is idempotent: the same inputs always produce a graph with
// identical edge weights.
func Build(nodes []models.NodeRecord, edges []models.EdgeRecord, costFn CostFunc) (*Graph, []models.Failure, error) {
	if len(nodes) == 0 {
		return nil, nil, fmt.Errorf("building graph: %w", ErrNoNodes)
	}

	g := NewGraph()
	var warnings []models.Failure

	usableNodes := 0
	for _, rec := range nodes {
		if !validCoordinate(rec.Lat, rec.Lon) {
			warnings = append(warnings, models.Failure{
				Reason: models.ReasonMalformedInput,
				Detail: fmt.Sprintf("node %d: invalid coordinate (%v, %v)", rec.ID, rec.Lat, rec.Lon),
			})
			continue
		}
		g.AddNode(models.Node{
			ID:   rec.ID,
			Lat:  rec.Lat,
			Lon:  rec.Lon,
			Risk: models.AggregateRisk(rec.Risks),
		})
		usableNodes++
	}

	if usableNodes == 0 {
		return nil, warnings, fmt.Errorf("all %d node records malformed: %w", len(nodes), ErrNoNodes)
	}

	usableEdges := 0
	for _, rec := range edges {
		if rec.Length <= 0 || math.IsNaN(rec.Length) || math.IsInf(rec.Length, 0) {
			warnings = append(warnings, models.Failure{
				Reason: models.ReasonMalformedInput,
				Detail: fmt.Sprintf("edge %d->%d: non-positive length %v", rec.FromNodeID, rec.ToNodeID, rec.Length),
			})
			continue
		}
		if !g.HasNode(rec.FromNodeID) || !g.HasNode(rec.ToNodeID) {
			warnings = append(warnings, models.Failure{
				Reason: models.ReasonDanglingEdge,
				Detail: fmt.Sprintf("edge %d->%d references unknown node", rec.FromNodeID, rec.ToNodeID),
			})
			continue
		}

		risk := models.AggregateRisk(rec.Risks)
		g.AddEdge(models.Edge{
			FromNodeID: rec.FromNodeID,
			ToNodeID:   rec.ToNodeID,
			Length:     rec.Length,
			Class:      rec.Class,
			Risk:       risk,
			Cost:       costFn(rec.Length, rec.Class, risk),
		})
		if rec.Bidirectional {
			g.AddEdge(models.Edge{
				FromNodeID: rec.ToNodeID,
				ToNodeID:   rec.FromNodeID,
				Length:     rec.Length,
				Class:      rec.Class,
				Risk:       risk,
				Cost:       costFn(rec.Length, rec.Class, risk),
			})
		}
		usableEdges++
	}

	if usableEdges == 0 {
		return nil, warnings, fmt.Errorf("no usable edges among %d records: %w", len(edges), ErrNoEdges)
	}

	if len(warnings) > 0 {
		log.Printf("Warning: graph build skipped %d records (%d nodes, %d edges kept)",
			len(warnings), g.NodeCount(), g.EdgeCount())
	}
	log.Printf("Built weighted graph: %d nodes, %d directed edges", g.NodeCount(), g.EdgeCount())

	return g, warnings, nil
}

func validCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
