package tracking

import (
	"context"

	"github.com/foodrush/tracking/internal/pkg/models"
)

// TrackingGW defines the tracking gateways interface
type TrackingGW interface {
	PublishLocationUpdate(ctx context.Context, update *models.LocationUpdate) error
	PublishPeerJoined(ctx context.Context, event *models.PeerEvent) error
	PublishPeerLeft(ctx context.Context, event *models.PeerEvent) error
}
