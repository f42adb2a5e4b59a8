package geo

import (
	"fmt"
	"math"

	"github.com/foodrush/tracking/internal/pkg/models"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle math.
const EarthRadiusMeters = 6371000.0

// Distance calculates the great-circle distance between two points in meters
// using the Haversine formula.
func Distance(a, b models.GeoPoint) float64 {
	lat1 := a.Latitude * math.Pi / 180.0
	lon1 := a.Longitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	lon2 := b.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Bearing calculates the initial bearing in degrees from one point toward
// another, normalized to [0, 360). Used for camera-facing hints only.
func Bearing(from, to models.GeoPoint) float64 {
	lat1 := from.Latitude * math.Pi / 180.0
	lat2 := to.Latitude * math.Pi / 180.0
	dLon := (to.Longitude - from.Longitude) * math.Pi / 180.0

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180.0 / math.Pi
	return math.Mod(deg+360.0, 360.0)
}

// FormatDistance renders a distance for display: meters below 1 km, one
// decimal of kilometers from 1 km up.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1f km", meters/1000.0)
}
