package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foodrush/tracking/internal/pkg/models"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name      string
		a         models.GeoPoint
		b         models.GeoPoint
		expected  float64
		tolerance float64
	}{
		{
			name:      "Same point",
			a:         models.GeoPoint{Latitude: 36.806389, Longitude: 10.181667},
			b:         models.GeoPoint{Latitude: 36.806389, Longitude: 10.181667},
			expected:  0.0,
			tolerance: 0.001,
		},
		{
			name:      "Tunis center to La Marsa (approximately)",
			a:         models.GeoPoint{Latitude: 36.806389, Longitude: 10.181667},
			b:         models.GeoPoint{Latitude: 36.878000, Longitude: 10.324722},
			expected:  15000.0,
			tolerance: 1000.0,
		},
		{
			name:      "Short hop across town",
			a:         models.GeoPoint{Latitude: 36.80, Longitude: 10.18},
			b:         models.GeoPoint{Latitude: 36.81, Longitude: 10.19},
			expected:  1420.0,
			tolerance: 100.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, tt.tolerance)
		})
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := models.GeoPoint{Latitude: 36.80, Longitude: 10.18}
	b := models.GeoPoint{Latitude: 35.82, Longitude: 10.64}

	assert.Equal(t, Distance(a, b), Distance(b, a))
}

func TestBearing(t *testing.T) {
	origin := models.GeoPoint{Latitude: 36.80, Longitude: 10.18}

	tests := []struct {
		name      string
		to        models.GeoPoint
		expected  float64
		tolerance float64
	}{
		{
			name:      "Due north",
			to:        models.GeoPoint{Latitude: 37.80, Longitude: 10.18},
			expected:  0.0,
			tolerance: 0.5,
		},
		{
			name:      "Due east",
			to:        models.GeoPoint{Latitude: 36.80, Longitude: 11.18},
			expected:  90.0,
			tolerance: 1.0,
		},
		{
			name:      "Due south",
			to:        models.GeoPoint{Latitude: 35.80, Longitude: 10.18},
			expected:  180.0,
			tolerance: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(origin, tt.to)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.Less(t, got, 360.0)
			assert.InDelta(t, tt.expected, got, tt.tolerance)
		})
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters   float64
		expected string
	}{
		{0, "0 m"},
		{42.4, "42 m"},
		{999, "999 m"},
		{1000, "1.0 km"},
		{2500, "2.5 km"},
		{15320, "15.3 km"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDistance(tt.meters))
	}
}

func TestEncodeArea(t *testing.T) {
	point := models.GeoPoint{Latitude: 36.80, Longitude: 10.18}
	hash := EncodeArea(point)

	assert.Len(t, hash, int(AreaPrecision))

	decoded := DecodeArea(hash)
	assert.InDelta(t, point.Latitude, decoded.Latitude, 0.05)
	assert.InDelta(t, point.Longitude, decoded.Longitude, 0.05)
}

func TestAreaNeighbors(t *testing.T) {
	hash := EncodeArea(models.GeoPoint{Latitude: 36.80, Longitude: 10.18})
	neighbors := AreaNeighbors(hash)

	assert.Len(t, neighbors, 8)
	for _, n := range neighbors {
		assert.NotEqual(t, hash, n)
	}
}
