package osm

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	overpass "github.com/serjvanilla/go-overpass"

	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/evacroute/evacroute_core/internal/network"
)

const defaultEndpoint = "https://overpass-api.de/api/interpreter"

// highwayFilter selects the road classes the routing core understands
const highwayFilter = "primary|secondary|tertiary|residential|service|living_street|footway|path"

// Collector pulls a road network from the Overpass API for areas where
// no prepared network file exists.
type Collector struct {
	client  overpass.Client
	timeout time.Duration
}

// NewCollector builds a collector against the public Overpass endpoint
func NewCollector(timeout time.Duration) *Collector {
	httpClient := &http.Client{Timeout: timeout}
	client := overpass.NewWithSettings(defaultEndpoint, 2, httpClient)
	return &Collector{client: client, timeout: timeout}
}

// NewCollectorWithEndpoint builds a collector against a custom endpoint
func NewCollectorWithEndpoint(endpoint string, timeout time.Duration) *Collector {
	httpClient := &http.Client{Timeout: timeout}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &Collector{client: client, timeout: timeout}
}

// CollectRoads fetches all routable highway ways inside the bounding
// box and converts them to node and edge records. Consecutive way
// nodes become bidirectional edges unless the way is tagged oneway.
func (c *Collector) CollectRoads(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]models.NodeRecord, []models.EdgeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_ = ctx // the overpass client does not take a context; the HTTP client timeout bounds the call

	bbox := fmt.Sprintf("%f,%f,%f,%f", minLat, minLon, maxLat, maxLon)
	query := fmt.Sprintf(`
		[out:json];
		(
			way["highway"~"%s"](%s);
		);
		out body;
		>;
		out skel qt;
	`, highwayFilter, bbox)

	log.Printf("Collecting road network from Overpass for bbox %s", bbox)

	result, err := c.client.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("overpass query failed: %w", err)
	}

	return convertResult(&result)
}

func convertResult(result *overpass.Result) ([]models.NodeRecord, []models.EdgeRecord, error) {
	seen := make(map[int64]bool)
	var nodes []models.NodeRecord
	var edges []models.EdgeRecord

	for _, way := range result.Ways {
		if way == nil || len(way.Nodes) < 2 {
			continue
		}

		class := models.RoadClass(way.Tags["highway"])
		oneway := way.Tags["oneway"] == "yes" || way.Tags["oneway"] == "1"

		for i := 0; i < len(way.Nodes)-1; i++ {
			from, to := way.Nodes[i], way.Nodes[i+1]
			if from == nil || to == nil {
				continue
			}

			for _, n := range []*overpass.Node{from, to} {
				if !seen[n.ID] {
					seen[n.ID] = true
					nodes = append(nodes, models.NodeRecord{ID: n.ID, Lat: n.Lat, Lon: n.Lon})
				}
			}

			edges = append(edges, models.EdgeRecord{
				FromNodeID:    from.ID,
				ToNodeID:      to.ID,
				Length:        network.HaversineDistance(from.Lat, from.Lon, to.Lat, to.Lon),
				Class:         class,
				Bidirectional: !oneway,
			})
		}
	}

	if len(nodes) == 0 {
		return nil, nil, fmt.Errorf("overpass returned no routable ways")
	}

	log.Printf("Collected %d nodes and %d road segments", len(nodes), len(edges))
	return nodes, edges, nil
}
