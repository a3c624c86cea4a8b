package api

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/evacroute/evacroute_core/internal/cache"
	"github.com/evacroute/evacroute_core/internal/db"
	"github.com/evacroute/evacroute_core/internal/inarisk"
	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/evacroute/evacroute_core/internal/network"
	"github.com/evacroute/evacroute_core/internal/planner"
	"github.com/evacroute/evacroute_core/internal/routing"
	"github.com/evacroute/evacroute_core/internal/store"
)

// Server wires the routing core to the HTTP layer. The graph is
// rebuilt atomically on reload; requests always see a consistent
// graph/orchestrator pair.
type Server struct {
	mu    sync.RWMutex
	graph *network.Graph
	orch  *planner.Orchestrator
	st    *store.Store
	cfg   planner.Config
}

// NewServer creates the API server around a store and planner config
func NewServer(st *store.Store, cfg planner.Config) *Server {
	return &Server{st: st, cfg: cfg.Validated()}
}

// ReloadNetwork loads the stored network and swaps in a freshly built
// weighted graph
func (s *Server) ReloadNetwork(ctx context.Context) error {
	nodes, edges, err := s.st.LoadNetwork(ctx)
	if err != nil {
		return fmt.Errorf("failed to load network: %w", err)
	}

	weights := routing.CostWeights{RiskWeight: s.cfg.RiskWeight, QualityWeight: s.cfg.QualityWeight}
	g, _, err := network.Build(nodes, edges, func(length float64, class models.RoadClass, risk float64) float64 {
		return routing.EdgeCost(length, class, risk, weights)
	})
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}

	orch := planner.NewOrchestrator(g, s.cfg)

	s.mu.Lock()
	s.graph = g
	s.orch = orch
	s.mu.Unlock()

	return nil
}

func (s *Server) current() (*network.Graph, *planner.Orchestrator) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph, s.orch
}

// Health handles the /health endpoint
func (s *Server) Health(c *fiber.Ctx) error {
	ctx := c.Context()

	dbStatus := "ok"
	dbErr := db.HealthCheck(ctx)
	if dbErr != nil {
		dbStatus = dbErr.Error()
	}

	redisStatus := "ok"
	redisErr := cache.HealthCheck(ctx)
	if redisErr != nil {
		redisStatus = redisErr.Error()
	}

	g, _ := s.current()
	graphStatus := "ok"
	if g == nil {
		graphStatus = "not loaded"
	}

	status := "healthy"
	httpStatus := fiber.StatusOK
	if dbErr != nil || redisErr != nil || g == nil {
		status = "unhealthy"
		httpStatus = fiber.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"graph":    graphStatus,
		},
	})
}

// VillageRoutes handles GET /v1/routes?village=NAME
func (s *Server) VillageRoutes(c *fiber.Ctx) error {
	village := c.Query("village")
	if village == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing required parameter: village",
		})
	}

	ctx := c.Context()
	fingerprint := cache.ConfigFingerprint(s.cfg.RiskWeight, s.cfg.QualityWeight, s.cfg.MaxRoutes)
	cacheKey := cache.VillageRoutesKey(village, fingerprint)

	if cached, err := cache.GetVillageRoutes(ctx, cacheKey); err == nil && cached != nil {
		return c.JSON(fiber.Map{"village": village, "routes": cached, "cached": true})
	}

	routes, err := s.st.RoutesForVillage(ctx, village)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to load routes: %v", err),
		})
	}
	if len(routes) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("no routes found for village %q", village),
		})
	}

	if err := cache.SetVillageRoutes(ctx, cacheKey, routes, cache.LoadConfigFromEnv().TTL); err != nil {
		log.Printf("Warning: failed to cache routes for %q: %v", village, err)
	}

	return c.JSON(fiber.Map{"village": village, "routes": routes})
}

// NearestNode handles GET /v1/nearest-node?at=lat,lon
func (s *Server) NearestNode(c *fiber.Ctx) error {
	at := c.Query("at")
	if at == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing required parameter: at",
		})
	}

	lat, lon, err := parseCoordinates(at)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid 'at' coordinates: %v", err),
		})
	}

	_, orch := s.current()
	if orch == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "network not loaded",
		})
	}

	node, dist, err := orch.Matcher().Nearest(lat, lon)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"node_id":         node.ID,
		"lat":             node.Lat,
		"lon":             node.Lon,
		"distance_meters": dist,
	})
}

// RunPlan handles POST /v1/plan: a full planning run over the stored
// POIs, guarded by a distributed lock so concurrent runs do not race.
func (s *Server) RunPlan(c *fiber.Ctx) error {
	ctx := c.Context()

	graph, orch := s.current()
	if graph == nil || orch == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "network not loaded",
		})
	}

	acquired, err := cache.AcquirePlanLock(ctx, 10*time.Minute)
	if err != nil {
		log.Printf("Warning: failed to acquire plan lock: %v", err)
		// Degrade gracefully: run without the lock
	} else if !acquired {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "a planning run is already in progress",
		})
	}
	defer func() {
		if acquired {
			if err := cache.ReleasePlanLock(context.Background()); err != nil {
				log.Printf("Warning: failed to release plan lock: %v", err)
			}
		}
	}()

	villages, shelters, err := s.st.LoadPOIs(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to load POIs: %v", err),
		})
	}
	if len(villages) == 0 || len(shelters) == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": fmt.Sprintf("need at least one village and one shelter (have %d/%d)", len(villages), len(shelters)),
		})
	}

	runID, err := s.st.CreateRunLog(ctx, "api-plan")
	if err != nil {
		log.Printf("Warning: failed to create run log: %v", err)
	}

	result := orch.Plan(ctx, villages, shelters)

	if err := s.st.SaveRoutes(ctx, runID, result.Routes); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save routes: %v", err),
		})
	}
	if runID != 0 {
		counts := models.RunLog{
			NodesCount:  graph.NodeCount(),
			EdgesCount:  graph.EdgeCount(),
			POIsCount:   len(villages) + len(shelters),
			RoutesCount: len(result.Routes),
		}
		if err := s.st.CompleteRunLog(ctx, runID, "completed", counts, ""); err != nil {
			log.Printf("Warning: failed to complete run log: %v", err)
		}
	}

	if err := cache.InvalidateRoutes(ctx); err != nil {
		log.Printf("Warning: failed to invalidate route cache: %v", err)
	}

	return c.JSON(fiber.Map{
		"routes_found": len(result.Routes),
		"failures":     result.Failures,
	})
}

// RefreshRisk re-annotates all stored POIs from INARISK and rebuilds
// the graph. Invoked by the nightly cron and usable over HTTP.
func (s *Server) RefreshRisk(ctx context.Context) error {
	villages, shelters, err := s.st.LoadPOIs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load POIs: %w", err)
	}

	all := append(append([]models.POI{}, villages...), shelters...)
	if len(all) == 0 {
		return fmt.Errorf("no POIs to refresh")
	}

	client := inarisk.NewClient()
	annotated, err := client.AnnotatePOIs(ctx, all, models.AllHazards())
	if err != nil {
		return fmt.Errorf("failed to annotate POIs: %w", err)
	}

	if err := s.st.SavePOIs(ctx, annotated); err != nil {
		return fmt.Errorf("failed to save annotated POIs: %w", err)
	}

	return s.ReloadNetwork(ctx)
}

// parseCoordinates parses a "lat,lon" string into floats
func parseCoordinates(coordStr string) (lat, lon float64, err error) {
	parts := strings.Split(coordStr, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected format: lat,lon")
	}

	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}

	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}

	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("longitude must be between -180 and 180")
	}

	return lat, lon, nil
}
