package sampler

import (
	"context"
	"errors"
	"time"

	"github.com/foodrush/tracking/internal/pkg/models"
)

// SimProvider replays a waypoint path as a raw fix stream. It backs the
// simulator CLI and tests; real builds plug in a platform provider instead.
type SimProvider struct {
	Waypoints []models.GeoPoint
	Interval  time.Duration
	Accuracy  float64

	// Denied simulates a permission refusal, Unavailable a dead provider.
	Denied      bool
	Unavailable bool
}

// Authorize simulates the permission prompt.
func (p *SimProvider) Authorize(ctx context.Context) error {
	if p.Denied {
		return ErrPermissionDenied
	}
	return nil
}

// Subscribe replays the waypoints at the configured interval, stamping each
// fix with the wall clock. The channel closes after the last waypoint.
func (p *SimProvider) Subscribe(ctx context.Context) (<-chan models.LocationFix, error) {
	if p.Unavailable {
		return nil, errors.New("simulated provider unavailable")
	}

	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}

	out := make(chan models.LocationFix)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for _, point := range p.Waypoints {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			fix := models.LocationFix{
				Point:      point,
				Accuracy:   p.Accuracy,
				CapturedAt: time.Now().UnixMilli(),
			}
			select {
			case out <- fix:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
