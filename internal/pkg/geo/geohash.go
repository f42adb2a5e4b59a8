package geo

import (
	"github.com/mmcloughlin/geohash"

	"github.com/foodrush/tracking/internal/pkg/models"
)

// AreaPrecision is the geohash precision used for the order area index
// (precision 5 covers roughly a 5 km cell).
const AreaPrecision uint = 5

// EncodeArea converts a point to the geohash cell used as an area index key.
func EncodeArea(point models.GeoPoint) string {
	return geohash.EncodeWithPrecision(point.Latitude, point.Longitude, AreaPrecision)
}

// DecodeArea converts a geohash cell back to its center point.
func DecodeArea(hash string) models.GeoPoint {
	lat, lng := geohash.Decode(hash)
	return models.GeoPoint{Latitude: lat, Longitude: lng}
}

// AreaNeighbors returns the neighboring cells of a geohash cell.
func AreaNeighbors(hash string) []string {
	return geohash.Neighbors(hash)
}
