package planner

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/evacroute/evacroute_core/internal/network"
	"github.com/evacroute/evacroute_core/internal/routing"
)

// UnitStatus tracks one unit of work through its lifecycle
type UnitStatus string

const (
	UnitPending   UnitStatus = "pending"
	UnitRunning   UnitStatus = "running"
	UnitCompleted UnitStatus = "completed"
	UnitFailed    UnitStatus = "failed"
)

// unitResult is the tagged outcome of a single village unit: routes on
// success, manifest entries on failure, never a raised error.
type unitResult struct {
	village  string
	status   UnitStatus
	routes   []models.Route
	failures []models.Failure
}

// Orchestrator fans route computation out per village across a bounded
// worker pool. The graph is read-only during planning, so workers share
// it without copies or locks beyond the graph's own read guards.
type Orchestrator struct {
	graph   *network.Graph
	matcher *network.Matcher
	cfg     Config
}

// NewOrchestrator prepares a planner over a built graph
func NewOrchestrator(g *network.Graph, cfg Config) *Orchestrator {
	cfg = cfg.Validated()
	return &Orchestrator{
		graph:   g,
		matcher: network.NewMatcher(g, cfg.MaxSnapDistM),
		cfg:     cfg,
	}
}

// Matcher exposes the orchestrator's spatial index
func (o *Orchestrator) Matcher() *network.Matcher {
	return o.matcher
}

// Plan computes evacuation routes for every village against every
// shelter. One unit of work is one village; a unit's failure is
// isolated to its manifest entry and never aborts siblings. On context
// cancellation no new units are dispatched, in-flight units finish,
// and the partial result is returned.
//
// Route ordering across units is not guaranteed; within a unit routes
// are deterministic and ranked per shelter pair.
func (o *Orchestrator) Plan(ctx context.Context, villages, shelters []models.POI) models.PlanResult {
	startTime := time.Now()
	result := models.PlanResult{}

	// Resolve shelters once; unmatched shelters are excluded up front
	matched := make([]models.POI, 0, len(shelters))
	for _, shelter := range shelters {
		s := shelter
		if err := o.matcher.Match(&s); err != nil {
			log.Printf("Warning: shelter %q could not be matched: %v", s.Name, err)
			result.Failures = append(result.Failures, models.Failure{
				Shelter: s.Name,
				Reason:  models.ReasonNoReachableNode,
				Detail:  err.Error(),
			})
			continue
		}
		matched = append(matched, s)
	}

	log.Printf("Planning routes: %d villages x %d shelters, %d workers",
		len(villages), len(matched), o.cfg.WorkerCount)

	jobs := make(chan models.POI)
	results := make(chan unitResult, len(villages))

	var wg sync.WaitGroup
	for w := 0; w < o.cfg.WorkerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for village := range jobs {
				results <- o.runUnit(village, matched)
			}
		}()
	}

	dispatched := 0
dispatch:
	for _, village := range villages {
		// Checked separately so a cancelled context always wins over a
		// ready worker
		select {
		case <-ctx.Done():
			log.Printf("Planning cancelled: %d of %d units dispatched", dispatched, len(villages))
			break dispatch
		default:
		}
		select {
		case <-ctx.Done():
			log.Printf("Planning cancelled: %d of %d units dispatched", dispatched, len(villages))
			break dispatch
		case jobs <- village:
			dispatched++
		}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed, failed := 0, 0
	for res := range results {
		result.Routes = append(result.Routes, res.routes...)
		result.Failures = append(result.Failures, res.failures...)
		if res.status == UnitFailed {
			failed++
		} else {
			completed++
		}
	}

	log.Printf("Planning done in %v: %d routes, %d units completed, %d failed, %d manifest entries",
		time.Since(startTime), len(result.Routes), completed, failed, len(result.Failures))

	return result
}

// runUnit computes all ranked routes for one village. Panics inside a
// unit degrade to a failed manifest entry so one malformed input can
// never take down the run.
func (o *Orchestrator) runUnit(village models.POI, shelters []models.POI) (res unitResult) {
	res = unitResult{village: village.Name, status: UnitRunning}

	defer func() {
		if r := recover(); r != nil {
			res.status = UnitFailed
			res.failures = append(res.failures, models.Failure{
				Village: village.Name,
				Reason:  models.ReasonMalformedInput,
				Detail:  fmt.Sprintf("unit panic: %v", r),
			})
		}
	}()

	if village.Name == "" {
		res.status = UnitFailed
		res.failures = append(res.failures, models.Failure{
			Village: village.Name,
			Reason:  models.ReasonMalformedInput,
			Detail:  "village has no name",
		})
		return res
	}

	if !village.Matched {
		if err := o.matcher.Match(&village); err != nil {
			res.status = UnitFailed
			res.failures = append(res.failures, models.Failure{
				Village: village.Name,
				Reason:  models.ReasonNoReachableNode,
				Detail:  err.Error(),
			})
			return res
		}
	}

	for _, shelter := range shelters {
		paths, err := routing.FindRoutes(o.graph, village.NodeID, shelter.NodeID,
			o.cfg.MaxRoutes, o.cfg.AltPathPenalty, o.cfg.MaxAltAttempts)
		if err != nil {
			res.failures = append(res.failures, models.Failure{
				Village: village.Name,
				Shelter: shelter.Name,
				Reason:  models.ReasonUnreachable,
				Detail:  err.Error(),
			})
			continue
		}
		for i, path := range paths {
			res.routes = append(res.routes, routing.Score(village.Name, shelter.Name, path, i+1))
		}
	}

	res.status = UnitCompleted
	return res
}
