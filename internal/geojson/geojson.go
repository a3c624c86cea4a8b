package geojson

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/evacroute/evacroute_core/internal/network"
)

// Geometry is a GeoJSON geometry object
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// Feature is a GeoJSON feature object
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// FeatureCollection is a GeoJSON feature collection
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// RoutesToFeatureCollection converts routes into LineString features.
// Coordinates are [lon, lat] pairs resolved from the graph; routes
// whose nodes are missing from the graph are skipped with a warning.
func RoutesToFeatureCollection(g *network.Graph, routes []models.Route) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}

	for _, route := range routes {
		coords := make([][2]float64, 0, len(route.NodeIDs))
		ok := true
		for _, id := range route.NodeIDs {
			node, found := g.Node(id)
			if !found {
				log.Printf("Warning: route %s->%s references missing node %d, skipping feature",
					route.Village, route.Shelter, id)
				ok = false
				break
			}
			coords = append(coords, [2]float64{node.Lon, node.Lat})
		}
		if !ok {
			continue
		}

		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "LineString", Coordinates: coords},
			Properties: map[string]interface{}{
				"village":          route.Village,
				"shelter":          route.Shelter,
				"distance_meters":  route.DistanceM,
				"mean_risk":        route.MeanRisk,
				"worst_road_class": string(route.WorstClass),
				"rank":             route.Rank,
			},
		})
	}

	return fc
}

// POIsToFeatureCollection converts POIs into Point features
func POIsToFeatureCollection(pois []models.POI) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}

	for _, p := range pois {
		props := map[string]interface{}{
			"name":     p.Name,
			"category": string(p.Category),
			"risk":     p.Risk,
		}
		if p.Matched {
			props["node_id"] = p.NodeID
			props["snap_distance_meters"] = p.SnapDistM
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Point", Coordinates: [2]float64{p.Lon, p.Lat}},
			Properties: props,
		})
	}

	return fc
}

// WriteFile saves a feature collection to disk
func WriteFile(fc FeatureCollection, path string) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Printf("Saved %d features to %s", len(fc.Features), path)
	return nil
}
