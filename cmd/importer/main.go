package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/evacroute/evacroute_core/internal/db"
	"github.com/evacroute/evacroute_core/internal/inarisk"
	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/evacroute/evacroute_core/internal/osm"
	"github.com/evacroute/evacroute_core/internal/poi"
	"github.com/evacroute/evacroute_core/internal/pycgr"
	"github.com/evacroute/evacroute_core/internal/store"
)

// boundsPadDeg widens the POI bounding box for Overpass downloads so
// routes near the edge still have road coverage
const boundsPadDeg = 0.05

func main() {
	networkPath := flag.String("network", "", "Path to PYCGR road network file")
	poisPath := flag.String("pois", "", "Path to POI CSV file (required)")
	fromOSM := flag.Bool("from-osm", false, "Download the road network from Overpass for the POI bounding box")
	fetchRisk := flag.Bool("fetch-risk", false, "Annotate POIs with INARISK hazard indices")
	initSchema := flag.Bool("init-schema", false, "Create database tables before importing")

	flag.Parse()

	if *poisPath == "" || (*networkPath == "" && !*fromOSM) {
		fmt.Println("Usage: evacroute-import --pois=<path.csv> (--network=<path.pycgr> | --from-osm) [--fetch-risk] [--init-schema]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	st := store.NewStore(pool)

	if *initSchema {
		if err := st.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		log.Println("✓ Schema initialized")
	}

	runID, err := st.CreateRunLog(ctx, "import")
	if err != nil {
		log.Fatalf("Failed to create run log: %v", err)
	}

	counts, err := runImport(ctx, st, *networkPath, *poisPath, *fromOSM, *fetchRisk)
	if err != nil {
		if logErr := st.CompleteRunLog(ctx, runID, "failed", models.RunLog{}, err.Error()); logErr != nil {
			log.Printf("Warning: failed to update run log: %v", logErr)
		}
		log.Fatalf("Import failed: %v", err)
	}

	if err := st.CompleteRunLog(ctx, runID, "completed", counts, ""); err != nil {
		log.Printf("Warning: failed to update run log: %v", err)
	}
	log.Println("Import completed successfully!")
}

func runImport(ctx context.Context, st *store.Store, networkPath, poisPath string, fromOSM, fetchRisk bool) (models.RunLog, error) {
	startTime := time.Now()
	var counts models.RunLog

	log.Println("Step 1/4: Reading POIs...")
	villages, shelters, err := poi.ReadFile(poisPath)
	if err != nil {
		return counts, fmt.Errorf("failed to read POIs: %w", err)
	}
	pois := append(append([]models.POI{}, villages...), shelters...)
	counts.POIsCount = len(pois)
	log.Printf("  Found %d villages, %d shelters", len(villages), len(shelters))

	log.Println("Step 2/4: Loading road network...")
	var nodes []models.NodeRecord
	var edges []models.EdgeRecord
	if fromOSM {
		minLat, minLon, maxLat, maxLon := poi.Bounds(pois, boundsPadDeg)
		log.Printf("  Downloading roads from Overpass for bbox (%.4f,%.4f)-(%.4f,%.4f)...", minLat, minLon, maxLat, maxLon)
		collector := osm.NewCollector(2 * time.Minute)
		nodes, edges, err = collector.CollectRoads(ctx, minLat, minLon, maxLat, maxLon)
		if err != nil {
			return counts, fmt.Errorf("failed to download roads: %w", err)
		}
	} else {
		net, err := pycgr.ParseFile(networkPath)
		if err != nil {
			return counts, fmt.Errorf("failed to parse network: %w", err)
		}
		nodes, edges = net.Nodes, net.Edges
	}
	counts.NodesCount = len(nodes)
	counts.EdgesCount = len(edges)
	log.Printf("  Loaded %d nodes, %d edges", len(nodes), len(edges))

	if fetchRisk {
		log.Println("Step 3/4: Fetching INARISK hazard indices...")
		client := inarisk.NewClient()
		pois, err = client.AnnotatePOIs(ctx, pois, models.AllHazards())
		if err != nil {
			return counts, fmt.Errorf("failed to annotate POIs: %w", err)
		}
	} else {
		log.Println("Step 3/4: Skipping risk annotation")
	}

	log.Println("Step 4/4: Saving to database...")
	if err := st.SaveNetwork(ctx, nodes, edges); err != nil {
		return counts, fmt.Errorf("failed to save network: %w", err)
	}
	if err := st.SavePOIs(ctx, pois); err != nil {
		return counts, fmt.Errorf("failed to save POIs: %w", err)
	}

	log.Printf("  Import took %s", time.Since(startTime).Round(time.Millisecond))
	return counts, nil
}
