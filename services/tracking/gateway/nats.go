package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foodrush/tracking/internal/pkg/constants"
	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/models"
	natspkg "github.com/foodrush/tracking/internal/pkg/nats"
	"github.com/foodrush/tracking/internal/pkg/retry"
	"github.com/foodrush/tracking/services/tracking"
)

type trackingGW struct {
	natsClient *natspkg.Client
	retrier    *retry.Retrier
}

// NewTrackingGW creates a new tracking gateway. Publishes are retried a few
// times with backoff so a short NATS hiccup does not drop events.
func NewTrackingGW(natsClient *natspkg.Client, l *logger.Logger) tracking.TrackingGW {
	return &trackingGW{
		natsClient: natsClient,
		retrier: retry.New(retry.Config{
			MaxRetries: 2,
			BaseDelay:  50 * time.Millisecond,
			MaxDelay:   time.Second,
			Multiplier: 2.0,
			Jitter:     true,
		}, l),
	}
}

// PublishLocationUpdate publishes an accepted fix to NATS for downstream
// consumers (ETA computation, delivery history).
func (g *trackingGW) PublishLocationUpdate(ctx context.Context, update *models.LocationUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal location update: %w", err)
	}

	return g.publish(ctx, constants.SubjectTrackingLocation, data)
}

// PublishPeerJoined publishes a participant join event to NATS
func (g *trackingGW) PublishPeerJoined(ctx context.Context, event *models.PeerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal peer joined event: %w", err)
	}

	return g.publish(ctx, constants.SubjectTrackingJoined, data)
}

// PublishPeerLeft publishes a participant leave event to NATS
func (g *trackingGW) PublishPeerLeft(ctx context.Context, event *models.PeerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal peer left event: %w", err)
	}

	return g.publish(ctx, constants.SubjectTrackingLeft, data)
}

func (g *trackingGW) publish(ctx context.Context, subject string, data []byte) error {
	return g.retrier.Execute(ctx, func(ctx context.Context) error {
		return g.natsClient.Publish(subject, data)
	})
}
