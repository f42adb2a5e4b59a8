package tracking

import (
	"context"

	"github.com/foodrush/tracking/internal/pkg/models"
)

// TrackingUC defines the interface for tracking business logic operations
type TrackingUC interface {
	// Channel membership
	AuthorizeParticipant(ctx context.Context, identity models.OrderTrackingIdentity) (*models.OrderTracking, error)
	ParticipantJoined(ctx context.Context, identity models.OrderTrackingIdentity) error
	ParticipantLeft(ctx context.Context, identity models.OrderTrackingIdentity, roomEmpty bool) error

	// Location relay
	AcceptFix(ctx context.Context, identity models.OrderTrackingIdentity, fix models.LocationFix) error

	// Read model
	Snapshot(ctx context.Context, orderID string) (*models.TrackingSnapshot, error)
}
