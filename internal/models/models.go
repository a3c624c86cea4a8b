package models

import "time"

// HazardKind identifies one of the INARISK hazard layers
type HazardKind string

const (
	HazardEarthquake HazardKind = "earthquake"
	HazardFlood      HazardKind = "flood"
	HazardVolcanic   HazardKind = "volcanic"
	HazardLandslide  HazardKind = "landslide"
)

// AllHazards returns every supported hazard kind
func AllHazards() []HazardKind {
	return []HazardKind{HazardEarthquake, HazardFlood, HazardVolcanic, HazardLandslide}
}

// RoadClass is the ordinal road quality label from the network source
type RoadClass string

const (
	ClassPrimary      RoadClass = "primary"
	ClassSecondary    RoadClass = "secondary"
	ClassTertiary     RoadClass = "tertiary"
	ClassResidential  RoadClass = "residential"
	ClassService      RoadClass = "service"
	ClassLivingStreet RoadClass = "living_street"
	ClassFootway      RoadClass = "footway"
	ClassPath         RoadClass = "path"
)

// classQuality maps each road class to a quality score in (0,1].
// Higher is better; primary roads carry no penalty.
var classQuality = map[RoadClass]float64{
	ClassPrimary:      1.0,
	ClassSecondary:    0.9,
	ClassTertiary:     0.8,
	ClassResidential:  0.7,
	ClassService:      0.6,
	ClassLivingStreet: 0.5,
	ClassFootway:      0.4,
	ClassPath:         0.3,
}

// Quality returns the quality score for the class.
// Unknown or missing classes get the worst known quality so that
// unclassified segments are never preferred over classified ones.
func (c RoadClass) Quality() float64 {
	if q, ok := classQuality[c]; ok {
		return q
	}
	return classQuality[ClassPath]
}

// Penalty returns the normalized routing penalty in [0,1) for the class
// (0 = best road, approaching 1 = worst).
func (c RoadClass) Penalty() float64 {
	return 1.0 - c.Quality()
}

// WorseThan reports whether c is a lower-quality class than other
func (c RoadClass) WorseThan(other RoadClass) bool {
	return c.Quality() < other.Quality()
}

// POICategory is the normalized point-of-interest category
type POICategory string

const (
	CategoryVillage POICategory = "village"
	CategoryShelter POICategory = "shelter"
)

// categoryAliases maps accepted source categories to their normalized
// routing category. Depots, warehouses, airports, hospitals and clinics
// all act as evacuation shelters.
var categoryAliases = map[string]POICategory{
	"village":   CategoryVillage,
	"shelter":   CategoryShelter,
	"depot":     CategoryShelter,
	"warehouse": CategoryShelter,
	"airport":   CategoryShelter,
	"hospital":  CategoryShelter,
	"clinic":    CategoryShelter,
}

// NormalizeCategory maps a raw source category onto village/shelter.
// The second return value is false for categories outside the accepted set.
func NormalizeCategory(raw string) (POICategory, bool) {
	cat, ok := categoryAliases[raw]
	return cat, ok
}

// AggregateRisk averages the present hazard scores. Missing or empty
// risk data aggregates to zero, never an error.
func AggregateRisk(risks map[HazardKind]float64) float64 {
	if len(risks) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range risks {
		sum += v
	}
	return sum / float64(len(risks))
}

// NodeRecord is a raw network node as produced by the input adapters
type NodeRecord struct {
	ID    int64
	Lat   float64
	Lon   float64
	Risks map[HazardKind]float64
}

// EdgeRecord is a raw network edge as produced by the input adapters.
// Bidirectional records expand into two directed edges at build time.
type EdgeRecord struct {
	FromNodeID    int64
	ToNodeID      int64
	Length        float64 // meters
	Class         RoadClass
	MaxSpeed      float64 // km/h, advisory only
	Risks         map[HazardKind]float64
	Bidirectional bool
}

// Node is a routable network node
type Node struct {
	ID   int64
	Lat  float64
	Lon  float64
	Risk float64 // aggregated hazard risk, advisory
}

// Edge is a directed, cost-weighted edge of the routable graph
type Edge struct {
	FromNodeID int64
	ToNodeID   int64
	Length     float64 // meters
	Class      RoadClass
	Risk       float64 // aggregated hazard risk in [0,1]
	Cost       float64 // derived traversal cost, always > 0
}

// POI is a named point of interest, matched to a network node before routing
type POI struct {
	Name      string
	Category  POICategory
	Lat       float64
	Lon       float64
	Risk      float64
	NodeID    int64
	SnapDistM float64
	Matched   bool
}

// Route is one ranked evacuation route from a village to a shelter.
// Routes are immutable once produced.
type Route struct {
	Village    string    `json:"village"`
	Shelter    string    `json:"shelter"`
	NodeIDs    []int64   `json:"node_ids"`
	DistanceM  float64   `json:"distance_meters"`
	MeanRisk   float64   `json:"mean_risk"`
	WorstClass RoadClass `json:"worst_road_class"`
	Cost       float64   `json:"cost"`
	Rank       int       `json:"rank"`
}

// FailureReason classifies a recoverable per-record or per-unit failure
type FailureReason string

const (
	ReasonNoReachableNode FailureReason = "no_reachable_node"
	ReasonUnreachable     FailureReason = "unreachable"
	ReasonDanglingEdge    FailureReason = "dangling_edge"
	ReasonMalformedInput  FailureReason = "malformed_input"
)

// Failure is one manifest entry for a unit or record that could not be
// processed. The run continues past failures; the manifest is part of
// the planner output.
type Failure struct {
	Village string        `json:"village,omitempty"`
	Shelter string        `json:"shelter,omitempty"`
	Reason  FailureReason `json:"reason"`
	Detail  string        `json:"detail,omitempty"`
}

// PlanResult is the complete output of one planning run
type PlanResult struct {
	Routes   []Route   `json:"routes"`
	Failures []Failure `json:"failures"`
}

// RunLog records one planning or import run for auditing
type RunLog struct {
	ID          int64
	Name        string
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      string
	NodesCount  int
	EdgesCount  int
	POIsCount   int
	RoutesCount int
	ErrorMsg    string
}
