package inarisk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRiskForPoints(t *testing.T) {
	t.Run("Samples values in input order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "INDEKS_BAHAYA_BANJIR")
			assert.Contains(t, r.URL.Path, "getSamples")
			fmt.Fprint(w, `{"samples":[{"value":"0.4"},{"value":0.7}]}`)
		}))
		defer server.Close()

		client := NewClientWithBase(server.URL, 20, 0)
		points := []Point{{Lat: -7.80, Lon: 110.36}, {Lat: -7.81, Lon: 110.37}}

		values, err := client.GetRiskForPoints(context.Background(), points, models.HazardFlood)
		require.NoError(t, err)
		require.Len(t, values, 2)
		assert.InDelta(t, 0.4, values[0], 1e-9)
		assert.InDelta(t, 0.7, values[1], 1e-9)
	})

	t.Run("Failed batch degrades to zero risk", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClientWithBase(server.URL, 20, 0)
		values, err := client.GetRiskForPoints(context.Background(),
			[]Point{{Lat: -7.80, Lon: 110.36}}, models.HazardEarthquake)
		require.NoError(t, err)
		require.Len(t, values, 1)
		assert.Zero(t, values[0])
	})

	t.Run("Batching splits large requests", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			fmt.Fprint(w, `{"samples":[{"value":"0.1"},{"value":"0.1"}]}`)
		}))
		defer server.Close()

		client := NewClientWithBase(server.URL, 2, 0)
		points := make([]Point, 5)
		values, err := client.GetRiskForPoints(context.Background(), points, models.HazardFlood)
		require.NoError(t, err)
		assert.Len(t, values, 5)
		assert.Equal(t, 3, requests)
	})

	t.Run("Unsupported hazard kind is an error", func(t *testing.T) {
		client := NewClientWithBase("http://localhost:0", 20, 0)
		_, err := client.GetRiskForPoints(context.Background(), nil, models.HazardKind("tsunami"))
		assert.Error(t, err)
	})
}

func TestAnnotatePOIs(t *testing.T) {
	t.Run("Risk averages across hazard kinds", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Flood reads 0.2, earthquake 0.8
			if strings.Contains(r.URL.Path, "BANJIR") {
				fmt.Fprint(w, `{"samples":[{"value":"0.2"}]}`)
				return
			}
			fmt.Fprint(w, `{"samples":[{"value":"0.8"}]}`)
		}))
		defer server.Close()

		client := NewClientWithBase(server.URL, 20, 0)
		pois := []models.POI{{Name: "Desa A", Lat: -7.80, Lon: 110.36}}

		annotated, err := client.AnnotatePOIs(context.Background(), pois,
			[]models.HazardKind{models.HazardFlood, models.HazardEarthquake})
		require.NoError(t, err)
		require.Len(t, annotated, 1)
		assert.InDelta(t, 0.5, annotated[0].Risk, 1e-9)
	})
}

func TestParseSampleValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected float64
	}{
		{"number", `0.42`, 0.42},
		{"quoted number", `"0.42"`, 0.42},
		{"null", `null`, 0},
		{"empty string", `""`, 0},
		{"garbage", `"NoData"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, parseSampleValue(json.RawMessage(tt.raw)), 1e-9)
		})
	}
}

func TestLatLonToMeters(t *testing.T) {
	t.Run("Origin maps to origin", func(t *testing.T) {
		x, y := latLonToMeters(0, 0)
		assert.InDelta(t, 0, x, 1e-6)
		assert.InDelta(t, 0, y, 1e-6)
	})

	t.Run("Known projection values", func(t *testing.T) {
		x, y := latLonToMeters(-7.80, 110.36)
		assert.InDelta(t, 12285219, x, 5000)
		assert.InDelta(t, -871084, y, 5000)
	})
}
