package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evacroute/evacroute_core/internal/models"
)

const batchSize = 1000

// Store persists road networks, POIs and computed routes in PostgreSQL
type Store struct {
	db *pgxpool.Pool
}

// NewStore wraps a connection pool
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// InitSchema creates the tables if they do not exist
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS road_node (
			id BIGINT PRIMARY KEY,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			earthquake_risk DOUBLE PRECISION,
			flood_risk DOUBLE PRECISION,
			volcanic_risk DOUBLE PRECISION,
			landslide_risk DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS road_edge (
			id BIGSERIAL PRIMARY KEY,
			from_node_id BIGINT NOT NULL,
			to_node_id BIGINT NOT NULL,
			length DOUBLE PRECISION NOT NULL,
			road_class TEXT NOT NULL,
			max_speed DOUBLE PRECISION,
			bidirectional BOOLEAN NOT NULL DEFAULT TRUE,
			earthquake_risk DOUBLE PRECISION,
			flood_risk DOUBLE PRECISION,
			volcanic_risk DOUBLE PRECISION,
			landslide_risk DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_road_edge_from ON road_edge(from_node_id)`,
		`CREATE TABLE IF NOT EXISTS poi (
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			risk DOUBLE PRECISION NOT NULL DEFAULT 0,
			node_id BIGINT,
			snap_distance DOUBLE PRECISION,
			PRIMARY KEY (name, category)
		)`,
		`CREATE TABLE IF NOT EXISTS route (
			id BIGSERIAL PRIMARY KEY,
			run_id BIGINT,
			village TEXT NOT NULL,
			shelter TEXT NOT NULL,
			node_ids BIGINT[] NOT NULL,
			distance DOUBLE PRECISION NOT NULL,
			mean_risk DOUBLE PRECISION NOT NULL,
			worst_road_class TEXT NOT NULL,
			cost DOUBLE PRECISION NOT NULL,
			rank INT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_route_village ON route(village)`,
		`CREATE TABLE IF NOT EXISTS run_log (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ,
			status TEXT NOT NULL,
			nodes_count INT NOT NULL DEFAULT 0,
			edges_count INT NOT NULL DEFAULT 0,
			pois_count INT NOT NULL DEFAULT 0,
			routes_count INT NOT NULL DEFAULT 0,
			error_msg TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SaveNetwork replaces the stored road network
func (s *Store) SaveNetwork(ctx context.Context, nodes []models.NodeRecord, edges []models.EdgeRecord) error {
	if _, err := s.db.Exec(ctx, "TRUNCATE TABLE road_edge, road_node"); err != nil {
		return fmt.Errorf("failed to clear network tables: %w", err)
	}

	batch := &pgx.Batch{}
	for _, n := range nodes {
		batch.Queue(`
			INSERT INTO road_node (id, lat, lon, earthquake_risk, flood_risk, volcanic_risk, landslide_risk)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, n.ID, n.Lat, n.Lon,
			riskColumn(n.Risks, models.HazardEarthquake),
			riskColumn(n.Risks, models.HazardFlood),
			riskColumn(n.Risks, models.HazardVolcanic),
			riskColumn(n.Risks, models.HazardLandslide))

		if batch.Len() >= batchSize {
			if err := s.executeBatch(ctx, batch); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() > 0 {
		if err := s.executeBatch(ctx, batch); err != nil {
			return err
		}
	}

	batch = &pgx.Batch{}
	for _, e := range edges {
		batch.Queue(`
			INSERT INTO road_edge (from_node_id, to_node_id, length, road_class, max_speed, bidirectional,
				earthquake_risk, flood_risk, volcanic_risk, landslide_risk)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, e.FromNodeID, e.ToNodeID, e.Length, string(e.Class), e.MaxSpeed, e.Bidirectional,
			riskColumn(e.Risks, models.HazardEarthquake),
			riskColumn(e.Risks, models.HazardFlood),
			riskColumn(e.Risks, models.HazardVolcanic),
			riskColumn(e.Risks, models.HazardLandslide))

		if batch.Len() >= batchSize {
			if err := s.executeBatch(ctx, batch); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() > 0 {
		if err := s.executeBatch(ctx, batch); err != nil {
			return err
		}
	}

	log.Printf("Saved network: %d nodes, %d edges", len(nodes), len(edges))
	return nil
}

// LoadNetwork reads the stored road network
func (s *Store) LoadNetwork(ctx context.Context) ([]models.NodeRecord, []models.EdgeRecord, error) {
	nodeRows, err := s.db.Query(ctx, `
		SELECT id, lat, lon, earthquake_risk, flood_risk, volcanic_risk, landslide_risk
		FROM road_node
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer nodeRows.Close()

	var nodes []models.NodeRecord
	for nodeRows.Next() {
		var n models.NodeRecord
		var eq, fl, vo, la *float64
		if err := nodeRows.Scan(&n.ID, &n.Lat, &n.Lon, &eq, &fl, &vo, &la); err != nil {
			log.Printf("Warning: failed to scan node: %v", err)
			continue
		}
		n.Risks = risksFromColumns(eq, fl, vo, la)
		nodes = append(nodes, n)
	}

	edgeRows, err := s.db.Query(ctx, `
		SELECT from_node_id, to_node_id, length, road_class, COALESCE(max_speed, 0), bidirectional,
			earthquake_risk, flood_risk, volcanic_risk, landslide_risk
		FROM road_edge
		ORDER BY from_node_id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load edges: %w", err)
	}
	defer edgeRows.Close()

	var edges []models.EdgeRecord
	for edgeRows.Next() {
		var e models.EdgeRecord
		var class string
		var eq, fl, vo, la *float64
		if err := edgeRows.Scan(&e.FromNodeID, &e.ToNodeID, &e.Length, &class, &e.MaxSpeed,
			&e.Bidirectional, &eq, &fl, &vo, &la); err != nil {
			log.Printf("Warning: failed to scan edge: %v", err)
			continue
		}
		e.Class = models.RoadClass(class)
		e.Risks = risksFromColumns(eq, fl, vo, la)
		edges = append(edges, e)
	}

	log.Printf("Loaded network: %d nodes, %d edges", len(nodes), len(edges))
	return nodes, edges, nil
}

// SavePOIs upserts the POI set
func (s *Store) SavePOIs(ctx context.Context, pois []models.POI) error {
	batch := &pgx.Batch{}
	for _, p := range pois {
		var nodeID *int64
		var snapDist *float64
		if p.Matched {
			nodeID = &p.NodeID
			snapDist = &p.SnapDistM
		}
		batch.Queue(`
			INSERT INTO poi (name, category, lat, lon, risk, node_id, snap_distance)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (name, category) DO UPDATE
			SET lat = EXCLUDED.lat, lon = EXCLUDED.lon, risk = EXCLUDED.risk,
				node_id = EXCLUDED.node_id, snap_distance = EXCLUDED.snap_distance
		`, p.Name, string(p.Category), p.Lat, p.Lon, p.Risk, nodeID, snapDist)

		if batch.Len() >= batchSize {
			if err := s.executeBatch(ctx, batch); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() > 0 {
		return s.executeBatch(ctx, batch)
	}
	return nil
}

// LoadPOIs reads all POIs grouped by category
func (s *Store) LoadPOIs(ctx context.Context) (villages, shelters []models.POI, err error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, category, lat, lon, risk, node_id, snap_distance
		FROM poi
		ORDER BY name
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load POIs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.POI
		var category string
		var nodeID *int64
		var snapDist *float64
		if err := rows.Scan(&p.Name, &category, &p.Lat, &p.Lon, &p.Risk, &nodeID, &snapDist); err != nil {
			log.Printf("Warning: failed to scan POI: %v", err)
			continue
		}
		p.Category = models.POICategory(category)
		if nodeID != nil {
			p.NodeID = *nodeID
			p.Matched = true
		}
		if snapDist != nil {
			p.SnapDistM = *snapDist
		}

		switch p.Category {
		case models.CategoryVillage:
			villages = append(villages, p)
		case models.CategoryShelter:
			shelters = append(shelters, p)
		}
	}

	return villages, shelters, nil
}

// SaveRoutes stores the routes of one planning run, replacing earlier runs
func (s *Store) SaveRoutes(ctx context.Context, runID int64, routes []models.Route) error {
	if _, err := s.db.Exec(ctx, "TRUNCATE TABLE route"); err != nil {
		return fmt.Errorf("failed to clear routes: %w", err)
	}

	batch := &pgx.Batch{}
	for _, r := range routes {
		batch.Queue(`
			INSERT INTO route (run_id, village, shelter, node_ids, distance, mean_risk, worst_road_class, cost, rank)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, runID, r.Village, r.Shelter, r.NodeIDs, r.DistanceM, r.MeanRisk, string(r.WorstClass), r.Cost, r.Rank)

		if batch.Len() >= batchSize {
			if err := s.executeBatch(ctx, batch); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() > 0 {
		if err := s.executeBatch(ctx, batch); err != nil {
			return err
		}
	}

	log.Printf("Saved %d routes", len(routes))
	return nil
}

// RoutesForVillage reads the stored routes of one village, ranked per shelter
func (s *Store) RoutesForVillage(ctx context.Context, village string) ([]models.Route, error) {
	rows, err := s.db.Query(ctx, `
		SELECT village, shelter, node_ids, distance, mean_risk, worst_road_class, cost, rank
		FROM route
		WHERE village = $1
		ORDER BY shelter, rank
	`, village)
	if err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}
	defer rows.Close()

	var routes []models.Route
	for rows.Next() {
		var r models.Route
		var class string
		if err := rows.Scan(&r.Village, &r.Shelter, &r.NodeIDs, &r.DistanceM, &r.MeanRisk, &class, &r.Cost, &r.Rank); err != nil {
			log.Printf("Warning: failed to scan route: %v", err)
			continue
		}
		r.WorstClass = models.RoadClass(class)
		routes = append(routes, r)
	}

	return routes, nil
}

// CreateRunLog opens a run log entry and returns its id
func (s *Store) CreateRunLog(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO run_log (name, status) VALUES ($1, 'running') RETURNING id
	`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create run log: %w", err)
	}
	return id, nil
}

// CompleteRunLog closes a run log entry
func (s *Store) CompleteRunLog(ctx context.Context, id int64, status string, counts models.RunLog, errMsg string) error {
	now := time.Now()
	_, err := s.db.Exec(ctx, `
		UPDATE run_log
		SET completed_at = $2, status = $3, nodes_count = $4, edges_count = $5,
			pois_count = $6, routes_count = $7, error_msg = $8
		WHERE id = $1
	`, id, now, status, counts.NodesCount, counts.EdgesCount, counts.POIsCount, counts.RoutesCount, errMsg)
	if err != nil {
		return fmt.Errorf("failed to update run log: %w", err)
	}
	return nil
}

func (s *Store) executeBatch(ctx context.Context, batch *pgx.Batch) error {
	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch execution failed at query %d: %w", i, err)
		}
	}
	return nil
}

func riskColumn(risks map[models.HazardKind]float64, kind models.HazardKind) *float64 {
	if risks == nil {
		return nil
	}
	if v, ok := risks[kind]; ok {
		return &v
	}
	return nil
}

func risksFromColumns(eq, fl, vo, la *float64) map[models.HazardKind]float64 {
	risks := make(map[models.HazardKind]float64)
	if eq != nil {
		risks[models.HazardEarthquake] = *eq
	}
	if fl != nil {
		risks[models.HazardFlood] = *fl
	}
	if vo != nil {
		risks[models.HazardVolcanic] = *vo
	}
	if la != nil {
		risks[models.HazardLandslide] = *la
	}
	if len(risks) == 0 {
		return nil
	}
	return risks
}
