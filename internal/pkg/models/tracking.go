package models

// Route is an ordered, non-empty driving path from origin to destination.
// Routes are recomputed wholesale, never patched incrementally. When route
// computation fails the route degenerates to the 2-point straight line
// [origin, destination].
type Route struct {
	Points []GeoPoint `json:"points"`
	// Distance is the driving distance in meters as reported by the router;
	// for a fallback route it is the great-circle distance.
	Distance float64 `json:"distance_meters"`
}

// Fallback reports whether the route is the 2-point straight-line substitute.
func (r Route) Fallback() bool {
	return len(r.Points) == 2
}

// Origin returns the first point of the route.
func (r Route) Origin() GeoPoint {
	if len(r.Points) == 0 {
		return GeoPoint{}
	}
	return r.Points[0]
}

// Destination returns the last point of the route.
func (r Route) Destination() GeoPoint {
	if len(r.Points) == 0 {
		return GeoPoint{}
	}
	return r.Points[len(r.Points)-1]
}

// ErrorInfo describes the latest error surfaced to the presentation layer.
// Soft errors (routing, individual sends) are overwritten by the next
// success; fatal errors persist until the caller restarts the capability.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

// TrackingState is the single externally visible snapshot of a tracking
// session. It is owned exclusively by the session control loop; consumers
// only ever read a copy. Pointer fields reference immutable values that are
// replaced, never mutated in place.
type TrackingState struct {
	IsConnected bool `json:"is_connected"`
	IsSharing   bool `json:"is_sharing"`

	CurrentLocation     *LocationFix        `json:"current_location,omitempty"`
	CounterpartLocation *LocationFix        `json:"counterpart_location,omitempty"`
	Restaurant          *RestaurantEndpoint `json:"restaurant,omitempty"`

	Route             *Route  `json:"route,omitempty"`
	DistanceMeters    float64 `json:"distance_meters,omitempty"`
	DistanceFormatted string  `json:"distance_formatted,omitempty"`

	Error *ErrorInfo `json:"error,omitempty"`
}

// TrackingSnapshot is the REST representation of the last known positions on
// an order, served by the tracking service.
type TrackingSnapshot struct {
	OrderID            string       `json:"order_id"`
	CustomerLocation   *LocationFix `json:"customer_location,omitempty"`
	RestaurantLocation *LocationFix `json:"restaurant_location,omitempty"`
	DistanceMeters     float64      `json:"distance_meters,omitempty"`
	DistanceFormatted  string       `json:"distance_formatted,omitempty"`
}
