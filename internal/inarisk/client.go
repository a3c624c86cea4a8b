package inarisk

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/evacroute/evacroute_core/internal/models"
)

const defaultBaseURL = "https://gis.bnpb.go.id/server/rest/services/inarisk"

// hazardLayers maps hazard kinds onto INARISK ImageServer layer names
var hazardLayers = map[models.HazardKind]string{
	models.HazardEarthquake: "INDEKS_BAHAYA_GEMPABUMI",
	models.HazardFlood:      "INDEKS_BAHAYA_BANJIR",
	models.HazardVolcanic:   "INDEKS_BAHAYA_GUNUNGAPI",
	models.HazardLandslide:  "INDEKS_BAHAYA_TANAHLONGSOR",
}

// Point is a WGS84 coordinate to sample risk for
type Point struct {
	Lat float64
	Lon float64
}

// Client queries the INARISK hazard index rasters in batches.
// Sampling failures degrade to zero risk rather than aborting a run;
// missing risk data must never block route planning.
type Client struct {
	baseURL    string
	httpClient *http.Client
	batchSize  int
	pause      time.Duration
}

// NewClient builds a client against the public INARISK service
func NewClient() *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		batchSize:  20,
		pause:      time.Second,
	}
}

// NewClientWithBase builds a client against a custom endpoint (tests)
func NewClientWithBase(baseURL string, batchSize int, pause time.Duration) *Client {
	if batchSize < 1 {
		batchSize = 20
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		batchSize:  batchSize,
		pause:      pause,
	}
}

// SupportedHazard reports whether the service has a layer for the kind
func SupportedHazard(kind models.HazardKind) bool {
	_, ok := hazardLayers[kind]
	return ok
}

// GetRiskForPoints samples one hazard layer for every point, preserving
// input order. Values are normalized hazard indices in [0,1]; points
// the service cannot sample come back as 0.
func (c *Client) GetRiskForPoints(ctx context.Context, points []Point, kind models.HazardKind) ([]float64, error) {
	layer, ok := hazardLayers[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported hazard kind %q", kind)
	}

	log.Printf("Getting %s risk for %d points...", kind, len(points))

	results := make([]float64, 0, len(points))
	for start := 0; start < len(points); start += c.batchSize {
		end := start + c.batchSize
		if end > len(points) {
			end = len(points)
		}

		batch, err := c.sampleBatch(ctx, layer, points[start:end])
		if err != nil {
			log.Printf("Warning: %s batch %d-%d failed, using zero risk: %v", kind, start, end, err)
			batch = make([]float64, end-start)
		}
		results = append(results, batch...)

		// The public service throttles aggressive clients
		if end < len(points) && c.pause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pause):
			}
		}
	}

	return results, nil
}

// AnnotatePOIs fills each POI's aggregated risk from every supported
// hazard kind in kinds.
func (c *Client) AnnotatePOIs(ctx context.Context, pois []models.POI, kinds []models.HazardKind) ([]models.POI, error) {
	points := make([]Point, len(pois))
	for i, p := range pois {
		points[i] = Point{Lat: p.Lat, Lon: p.Lon}
	}

	perPoint := make([]map[models.HazardKind]float64, len(pois))
	for i := range perPoint {
		perPoint[i] = make(map[models.HazardKind]float64)
	}

	for _, kind := range kinds {
		if !SupportedHazard(kind) {
			log.Printf("Warning: skipping unsupported hazard kind %q", kind)
			continue
		}
		values, err := c.GetRiskForPoints(ctx, points, kind)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			perPoint[i][kind] = v
		}
	}

	annotated := make([]models.POI, len(pois))
	for i, p := range pois {
		p.Risk = models.AggregateRisk(perPoint[i])
		annotated[i] = p
	}
	return annotated, nil
}

type sampleResponse struct {
	Samples []struct {
		Value json.RawMessage `json:"value"`
	} `json:"samples"`
}

func (c *Client) sampleBatch(ctx context.Context, layer string, points []Point) ([]float64, error) {
	coords := make([][2]float64, len(points))
	for i, p := range points {
		x, y := latLonToMeters(p.Lat, p.Lon)
		coords[i] = [2]float64{x, y}
	}

	geometry, err := json.Marshal(map[string]interface{}{
		"points":           coords,
		"spatialReference": map[string]int{"wkid": 3857},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode geometry: %w", err)
	}

	params := url.Values{}
	params.Set("geometryType", "esriGeometryMultipoint")
	params.Set("geometry", string(geometry))
	params.Set("sampleDistance", "1.25")
	params.Set("returnFirstValueOnly", "true")
	params.Set("interpolation", "RSP_BilinearInterpolation")
	params.Set("f", "pjson")

	endpoint := fmt.Sprintf("%s/%s/ImageServer/getSamples?%s", c.baseURL, layer, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed sampleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	values := make([]float64, len(points))
	for i := range values {
		if i < len(parsed.Samples) {
			values[i] = parseSampleValue(parsed.Samples[i].Value)
		}
	}
	return values, nil
}

// parseSampleValue tolerates the service returning numbers as strings,
// empty strings, or nulls
func parseSampleValue(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if math.IsNaN(num) {
			return 0
		}
		return num
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil && str != "" {
		if v, err := strconv.ParseFloat(str, 64); err == nil {
			return v
		}
	}
	return 0
}

// latLonToMeters converts WGS84 to Spherical Mercator (EPSG:3857)
func latLonToMeters(lat, lon float64) (x, y float64) {
	originShift := 2 * math.Pi * 6378137 / 2.0
	x = lon / 180.0 * originShift
	y = math.Log(math.Tan(((lat*math.Pi/180)+math.Pi/2.0)/2)) * 180 / math.Pi
	y = y / 180.0 * originShift
	return x, y
}
