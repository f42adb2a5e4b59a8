package constants

// Redis key formats
const (
	// Tracking Service
	KeyOrderFix     = "order:fix:%s:%s" // Format: order:fix:{order_id}:{role}
	KeyOrderGeo     = "order:geo:%s"    // Format: order:geo:{role}, GEO set of latest positions per role
	KeyOrderArea    = "order:area:%s"   // Format: order:area:{geohash}, orders active in an area
	KeyActiveOrders = "orders:tracking" // Set of order IDs with an open tracking room
)

// Redis hash fields
const (
	FieldLatitude  = "lat"
	FieldLongitude = "lng"
	FieldAccuracy  = "accuracy"
	FieldTimestamp = "ts"
)
