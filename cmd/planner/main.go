package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/evacroute/evacroute_core/internal/geojson"
	"github.com/evacroute/evacroute_core/internal/inarisk"
	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/evacroute/evacroute_core/internal/network"
	"github.com/evacroute/evacroute_core/internal/planner"
	"github.com/evacroute/evacroute_core/internal/poi"
	"github.com/evacroute/evacroute_core/internal/pycgr"
	"github.com/evacroute/evacroute_core/internal/routing"
)

func main() {
	networkPath := flag.String("network", "", "Path to PYCGR road network file (required)")
	poisPath := flag.String("pois", "", "Path to POI CSV file (required)")
	outputDir := flag.String("output-dir", "output", "Directory for GeoJSON results")
	maxRoutes := flag.Int("max-routes", 0, "Alternative routes per village/shelter pair (0 = config default)")
	workers := flag.Int("workers", 0, "Concurrent planning workers (0 = config default)")
	fetchRisk := flag.Bool("fetch-risk", false, "Annotate POIs with INARISK hazard indices before planning")

	flag.Parse()

	if *networkPath == "" || *poisPath == "" {
		fmt.Println("Usage: evacroute-plan --network=<path.pycgr> --pois=<path.csv> [--output-dir=output] [--max-routes=3] [--workers=4] [--fetch-risk]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*networkPath); os.IsNotExist(err) {
		log.Fatalf("Network file not found: %s", *networkPath)
	}
	if _, err := os.Stat(*poisPath); os.IsNotExist(err) {
		log.Fatalf("POI file not found: %s", *poisPath)
	}

	cfg := planner.LoadConfigFromEnv()
	if *maxRoutes > 0 {
		cfg.MaxRoutes = *maxRoutes
	}
	if *workers > 0 {
		cfg.WorkerCount = *workers
	}
	cfg = cfg.Validated()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Println("Interrupt received, finishing in-flight work...")
		cancel()
	}()

	if err := run(ctx, cfg, *networkPath, *poisPath, *outputDir, *fetchRisk); err != nil {
		log.Fatalf("Planning failed: %v", err)
	}
}

func run(ctx context.Context, cfg planner.Config, networkPath, poisPath, outputDir string, fetchRisk bool) error {
	startTime := time.Now()

	log.Println("Step 1/5: Parsing road network...")
	net, err := pycgr.ParseFile(networkPath)
	if err != nil {
		return fmt.Errorf("failed to parse network: %w", err)
	}
	log.Printf("  Parsed %d nodes, %d edges", len(net.Nodes), len(net.Edges))

	log.Println("Step 2/5: Reading POIs...")
	villages, shelters, err := poi.ReadFile(poisPath)
	if err != nil {
		return fmt.Errorf("failed to read POIs: %w", err)
	}
	log.Printf("  Found %d villages, %d shelters", len(villages), len(shelters))
	if len(villages) == 0 || len(shelters) == 0 {
		return fmt.Errorf("need at least one village and one shelter")
	}

	if fetchRisk {
		log.Println("  Fetching INARISK hazard indices...")
		client := inarisk.NewClient()
		all := append(append([]models.POI{}, villages...), shelters...)
		annotated, err := client.AnnotatePOIs(ctx, all, models.AllHazards())
		if err != nil {
			log.Printf("Warning: risk annotation failed, continuing with zero risk: %v", err)
		} else {
			villages = annotated[:len(villages)]
			shelters = annotated[len(villages):]
		}
	}

	log.Println("Step 3/5: Building weighted graph...")
	weights := routing.CostWeights{RiskWeight: cfg.RiskWeight, QualityWeight: cfg.QualityWeight}
	g, warnings, err := network.Build(net.Nodes, net.Edges, func(length float64, class models.RoadClass, risk float64) float64 {
		return routing.EdgeCost(length, class, risk, weights)
	})
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}
	log.Printf("  Graph ready: %d nodes, %d edges (%d input warnings)", g.NodeCount(), g.EdgeCount(), len(warnings))

	log.Println("Step 4/5: Planning evacuation routes...")
	orch := planner.NewOrchestrator(g, cfg)
	result := orch.Plan(ctx, villages, shelters)
	result.Failures = append(warnings, result.Failures...)
	log.Printf("  Found %d routes, %d failures", len(result.Routes), len(result.Failures))

	log.Println("Step 5/5: Writing GeoJSON output...")
	if err := writeOutputs(g, result, villages, shelters, outputDir); err != nil {
		return err
	}

	printSummary(result, time.Since(startTime))
	return nil
}

func writeOutputs(g *network.Graph, result models.PlanResult, villages, shelters []models.POI, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	routesFC := geojson.RoutesToFeatureCollection(g, result.Routes)
	if err := geojson.WriteFile(routesFC, filepath.Join(outputDir, "routes.geojson")); err != nil {
		return fmt.Errorf("failed to write routes: %w", err)
	}

	poisFC := geojson.POIsToFeatureCollection(append(append([]models.POI{}, villages...), shelters...))
	if err := geojson.WriteFile(poisFC, filepath.Join(outputDir, "pois.geojson")); err != nil {
		return fmt.Errorf("failed to write POIs: %w", err)
	}

	if len(result.Failures) > 0 {
		if err := writeFailureManifest(result.Failures, filepath.Join(outputDir, "failures.json")); err != nil {
			return fmt.Errorf("failed to write failure manifest: %w", err)
		}
	}

	return nil
}

func writeFailureManifest(failures []models.Failure, path string) error {
	data, err := json.MarshalIndent(failures, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func printSummary(result models.PlanResult, elapsed time.Duration) {
	byVillage := make(map[string]int)
	for _, r := range result.Routes {
		byVillage[r.Village]++
	}

	log.Println("Planning completed!")
	log.Printf("  Villages routed: %d", len(byVillage))
	log.Printf("  Total routes:    %d", len(result.Routes))
	log.Printf("  Failures:        %d", len(result.Failures))
	log.Printf("  Elapsed:         %s", elapsed.Round(time.Millisecond))
}
