package constants

// NATS Subjects
const (
	// Tracking Service
	SubjectTrackingLocation = "tracking.location.updated"
	SubjectTrackingJoined   = "tracking.order.joined"
	SubjectTrackingLeft     = "tracking.order.left"
)
