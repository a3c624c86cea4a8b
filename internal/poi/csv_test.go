package poi

import (
	"strings"
	"testing"

	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	t.Run("Groups rows into villages and shelters", func(t *testing.T) {
		input := `name,category,lat,lng
Desa Barat,village,-7.80,110.36
RSUD Pusat,hospital,-7.81,110.37
Gudang Logistik,warehouse,-7.82,110.38
Desa Timur,village,-7.83,110.39
`
		villages, shelters, err := Read(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, villages, 2)
		require.Len(t, shelters, 2)
		assert.Equal(t, "Desa Barat", villages[0].Name)
		assert.Equal(t, models.CategoryShelter, shelters[0].Category)
	})

	t.Run("Category aliases normalize to shelter", func(t *testing.T) {
		tests := []struct {
			raw      string
			expected models.POICategory
		}{
			{"village", models.CategoryVillage},
			{"shelter", models.CategoryShelter},
			{"depot", models.CategoryShelter},
			{"warehouse", models.CategoryShelter},
			{"airport", models.CategoryShelter},
			{"hospital", models.CategoryShelter},
			{"clinic", models.CategoryShelter},
		}
		for _, tt := range tests {
			t.Run(tt.raw, func(t *testing.T) {
				cat, ok := models.NormalizeCategory(tt.raw)
				require.True(t, ok)
				assert.Equal(t, tt.expected, cat)
			})
		}
	})

	t.Run("Unrecognized category is skipped", func(t *testing.T) {
		input := `Desa A,village,-7.80,110.36
Toko Roti,bakery,-7.81,110.37
`
		villages, shelters, err := Read(strings.NewReader(input))
		require.NoError(t, err)
		assert.Len(t, villages, 1)
		assert.Empty(t, shelters)
	})

	t.Run("Category matching is case insensitive", func(t *testing.T) {
		input := "Desa A,VILLAGE,-7.80,110.36\nRSUD,Hospital,-7.81,110.37\n"
		villages, shelters, err := Read(strings.NewReader(input))
		require.NoError(t, err)
		assert.Len(t, villages, 1)
		assert.Len(t, shelters, 1)
	})

	t.Run("Malformed rows are skipped", func(t *testing.T) {
		input := `Desa A,village,-7.80,110.36
,village,-7.81,110.37
Desa C,village,not-a-number,110.38
Desa D,village,-95.0,110.39
Desa E,village,-7.82
Desa F,village,-7.83,110.40
`
		villages, _, err := Read(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, villages, 2)
		assert.Equal(t, "Desa A", villages[0].Name)
		assert.Equal(t, "Desa F", villages[1].Name)
	})

	t.Run("Extra columns are tolerated", func(t *testing.T) {
		input := "Desa A,village,-7.80,110.36,extra,columns\n"
		villages, _, err := Read(strings.NewReader(input))
		require.NoError(t, err)
		assert.Len(t, villages, 1)
	})

	t.Run("No valid rows is an error", func(t *testing.T) {
		_, _, err := Read(strings.NewReader("name,category,lat,lng\n"))
		assert.Error(t, err)
	})

	t.Run("Empty input is an error", func(t *testing.T) {
		_, _, err := Read(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestBounds(t *testing.T) {
	t.Run("Padded bounding box", func(t *testing.T) {
		pois := []models.POI{
			{Lat: -7.80, Lon: 110.36},
			{Lat: -7.90, Lon: 110.40},
			{Lat: -7.85, Lon: 110.30},
		}
		minLat, minLon, maxLat, maxLon := Bounds(pois, 0.05)
		assert.InDelta(t, -7.95, minLat, 1e-9)
		assert.InDelta(t, 110.25, minLon, 1e-9)
		assert.InDelta(t, -7.75, maxLat, 1e-9)
		assert.InDelta(t, 110.45, maxLon, 1e-9)
	})

	t.Run("Empty set collapses to zero", func(t *testing.T) {
		minLat, minLon, maxLat, maxLon := Bounds(nil, 0.05)
		assert.Zero(t, minLat)
		assert.Zero(t, minLon)
		assert.Zero(t, maxLat)
		assert.Zero(t, maxLon)
	})
}
