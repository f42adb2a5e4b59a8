package models

import "time"

// LocationFix is a single timestamped GPS observation, produced locally by a
// sampler or received from the counterpart over the tracking channel.
type LocationFix struct {
	Point GeoPoint `json:"point"`
	// Accuracy is the estimated horizontal accuracy in meters; 0 means unknown.
	Accuracy float64 `json:"accuracy,omitempty"`
	// CapturedAt is the capture time in Unix milliseconds. Fixes are monotonic
	// per source: a fix older than the last accepted one is discarded.
	CapturedAt int64 `json:"captured_at"`
}

// After reports whether the fix was captured strictly after other.
func (f LocationFix) After(other LocationFix) bool {
	return f.CapturedAt > other.CapturedAt
}

// LocationUpdate is the wire payload of a location_update event.
type LocationUpdate struct {
	OrderID   string  `json:"order_id,omitempty"`
	Role      Role    `json:"role,omitempty"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// Fix converts the wire payload to a LocationFix. A missing timestamp is
// stamped with the current time so stale-fix filtering still applies.
func (u LocationUpdate) Fix() LocationFix {
	ts := u.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	return LocationFix{
		Point:      GeoPoint{Latitude: u.Lat, Longitude: u.Lng},
		Accuracy:   u.Accuracy,
		CapturedAt: ts,
	}
}

// UpdateFromFix builds the wire payload for a local fix.
func UpdateFromFix(fix LocationFix) LocationUpdate {
	return LocationUpdate{
		Lat:       fix.Point.Latitude,
		Lng:       fix.Point.Longitude,
		Accuracy:  fix.Accuracy,
		Timestamp: fix.CapturedAt,
	}
}
