package models

// GeoPoint represents a WGS84 coordinate pair.
//
// The zero value (0, 0) is treated as "unset": it is never rendered,
// routed, or sent over the wire.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// IsZero reports whether the point is the unset (0, 0) marker.
func (p GeoPoint) IsZero() bool {
	return p.Latitude == 0 && p.Longitude == 0
}

// Valid reports whether the point lies within valid WGS84 bounds.
func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}
