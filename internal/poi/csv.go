package poi

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/evacroute/evacroute_core/internal/models"
)

// outlierThresholdDeg flags POIs unusually far from the dataset
// centroid; these are often transposed or mistyped coordinates.
const outlierThresholdDeg = 0.3

// ReadFile reads a POI CSV file with rows of
// name,category,lat,lng[,extra...] and returns the POIs grouped into
// villages and shelters.
func ReadFile(path string) (villages, shelters []models.POI, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open POI file: %w", err)
	}
	defer file.Close()

	log.Printf("Reading POI file: %s", path)
	return Read(file)
}

// Read parses POIs from a reader. Malformed rows and unrecognized
// categories are skipped with a warning; a file with no valid rows at
// all is a fatal input error.
func Read(r io.Reader) (villages, shelters []models.POI, err error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	rowNum := 0
	for {
		record, readErr := csvReader.Read()
		if readErr == io.EOF {
			break
		}
		rowNum++
		if readErr != nil {
			log.Printf("Warning: skipping malformed POI row %d: %v", rowNum, readErr)
			continue
		}

		p, parseErr := parseRow(record)
		if parseErr != nil {
			log.Printf("Warning: skipping POI row %d: %v", rowNum, parseErr)
			continue
		}

		switch p.Category {
		case models.CategoryVillage:
			villages = append(villages, p)
		case models.CategoryShelter:
			shelters = append(shelters, p)
		}
	}

	if len(villages)+len(shelters) == 0 {
		return nil, nil, fmt.Errorf("no valid POI records found")
	}

	warnOutliers(append(append([]models.POI{}, villages...), shelters...))

	log.Printf("Loaded %d villages and %d shelters", len(villages), len(shelters))
	return villages, shelters, nil
}

func parseRow(record []string) (models.POI, error) {
	if len(record) < 4 {
		return models.POI{}, fmt.Errorf("expected at least 4 columns (name, category, lat, lng), got %d", len(record))
	}

	name := strings.TrimSpace(record[0])
	if name == "" {
		return models.POI{}, fmt.Errorf("empty POI name")
	}

	rawCategory := strings.ToLower(strings.TrimSpace(record[1]))
	category, ok := models.NormalizeCategory(rawCategory)
	if !ok {
		return models.POI{}, fmt.Errorf("unrecognized category %q", rawCategory)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return models.POI{}, fmt.Errorf("invalid latitude %q: %w", record[2], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
	if err != nil {
		return models.POI{}, fmt.Errorf("invalid longitude %q: %w", record[3], err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return models.POI{}, fmt.Errorf("coordinate out of range (%v, %v)", lat, lon)
	}

	return models.POI{Name: name, Category: category, Lat: lat, Lon: lon}, nil
}

// warnOutliers reports POIs far from the dataset centroid
func warnOutliers(pois []models.POI) {
	if len(pois) == 0 {
		return
	}

	latSum, lonSum := 0.0, 0.0
	for _, p := range pois {
		latSum += p.Lat
		lonSum += p.Lon
	}
	latAvg := latSum / float64(len(pois))
	lonAvg := lonSum / float64(len(pois))

	for _, p := range pois {
		if math.Abs(p.Lat-latAvg) > outlierThresholdDeg || math.Abs(p.Lon-lonAvg) > outlierThresholdDeg {
			log.Printf("Warning: unusual coordinates for %q (%v, %v), far from dataset center (%.4f, %.4f)",
				p.Name, p.Lat, p.Lon, latAvg, lonAvg)
		}
	}
}

// Bounds returns the bounding box of a POI set padded by pad degrees
func Bounds(pois []models.POI, pad float64) (minLat, minLon, maxLat, maxLon float64) {
	if len(pois) == 0 {
		return 0, 0, 0, 0
	}

	minLat, maxLat = pois[0].Lat, pois[0].Lat
	minLon, maxLon = pois[0].Lon, pois[0].Lon
	for _, p := range pois[1:] {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}

	return minLat - pad, minLon - pad, maxLat + pad, maxLon + pad
}
