package constants

// WebSocket event types
const (
	// Common events
	EventError = "error"
	EventPing  = "ping"
	EventPong  = "pong"

	// Tracking events
	EventLocationUpdate = "location_update"
	EventPeerJoined     = "peer_joined"
	EventPeerLeft       = "peer_left"
)

// WebSocket error codes
const (
	ErrorInvalidFormat   = "invalid_format"
	ErrorUnauthorized    = "unauthorized"
	ErrorInternalError   = "internal_error"
	ErrorInvalidLocation = "invalid_location"
	ErrorOrderNotFound   = "order_not_found"
	ErrorOrderInactive   = "order_inactive"
	ErrorNotParticipant  = "not_participant"
	ErrorStaleFix        = "stale_fix"
)

// Tracking session error codes surfaced in TrackingState.Error
const (
	ErrorPermissionDenied    = "permission_denied"
	ErrorProviderUnavailable = "provider_unavailable"
	ErrorConnectFailed       = "connect_failed"
	ErrorDisconnected        = "disconnected"
	ErrorRouteFailed         = "route_failed"
)
