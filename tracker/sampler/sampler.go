package sampler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/foodrush/tracking/internal/pkg/geo"
	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/models"
)

// Terminal sampler errors. Both end the fix stream; the session surfaces
// them and does not restart sampling on its own.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrProviderUnavailable = errors.New("location provider unavailable")
	ErrAlreadyStarted      = errors.New("sampler already started")
)

// Provider abstracts the platform location source behind the sampler.
type Provider interface {
	// Authorize performs the one-time permission acquisition. It must return
	// ErrPermissionDenied (possibly wrapped) when the user refuses.
	Authorize(ctx context.Context) error
	// Subscribe starts raw fix delivery. The returned channel closes when the
	// context is cancelled or the provider dies.
	Subscribe(ctx context.Context) (<-chan models.LocationFix, error)
}

// Config holds the sampling thresholds.
type Config struct {
	// MinInterval is the minimum time between emitted fixes.
	MinInterval time.Duration
	// MinDisplacement is the minimum movement in meters between emitted fixes.
	MinDisplacement float64
}

// Sampler filters a raw provider fix stream down to fixes worth sending:
// the first fix always passes, later ones only after both the interval and
// the displacement thresholds are met.
type Sampler struct {
	provider Provider
	cfg      Config
	logger   *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	err     error
	done    chan struct{}
}

// New creates a sampler over the given provider.
func New(provider Provider, cfg Config, l *logger.Logger) *Sampler {
	return &Sampler{
		provider: provider,
		cfg:      cfg,
		logger:   l,
	}
}

// Start authorizes the provider and begins emitting filtered fixes on the
// returned channel. The channel has capacity 1 and carries only the latest
// fix: a slow consumer sees fresh positions, never a backlog. The channel
// closes when the stream ends; Err reports why.
func (s *Sampler) Start(ctx context.Context) (<-chan models.LocationFix, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	s.started = true
	s.err = nil
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	if err := s.provider.Authorize(runCtx); err != nil {
		terminal := ErrProviderUnavailable
		if errors.Is(err, ErrPermissionDenied) {
			terminal = ErrPermissionDenied
		}
		s.abortStart(cancel, terminal)
		return nil, terminal
	}

	raw, err := s.provider.Subscribe(runCtx)
	if err != nil {
		s.abortStart(cancel, ErrProviderUnavailable)
		return nil, ErrProviderUnavailable
	}

	out := make(chan models.LocationFix, 1)
	go s.run(runCtx, raw, out)
	return out, nil
}

func (s *Sampler) run(ctx context.Context, raw <-chan models.LocationFix, out chan models.LocationFix) {
	defer close(out)
	defer close(s.done)

	var last *models.LocationFix
	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-raw:
			if !ok {
				// Provider died mid-stream.
				if ctx.Err() == nil {
					s.setErr(ErrProviderUnavailable)
				}
				return
			}
			if !s.accept(last, fix) {
				continue
			}
			last = &fix
			sendLatest(out, fix)
		}
	}
}

// accept applies the emission thresholds against the last emitted fix.
func (s *Sampler) accept(last *models.LocationFix, fix models.LocationFix) bool {
	if fix.Point.IsZero() || !fix.Point.Valid() {
		return false
	}
	if last == nil {
		return true
	}
	if !fix.After(*last) {
		return false
	}
	if time.Duration(fix.CapturedAt-last.CapturedAt)*time.Millisecond < s.cfg.MinInterval {
		return false
	}
	if geo.Distance(last.Point, fix.Point) < s.cfg.MinDisplacement {
		return false
	}
	return true
}

// sendLatest delivers a fix with latest-wins semantics on a capacity-1
// channel: an unread older fix is replaced by the newer one.
func sendLatest(out chan models.LocationFix, fix models.LocationFix) {
	for {
		select {
		case out <- fix:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}

// Err returns the terminal error after the fix channel closed, or nil when
// the stream ended by Stop or context cancellation.
func (s *Sampler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop ends sampling and makes the sampler startable again. It is
// idempotent and safe to call before Start.
func (s *Sampler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	s.mu.Lock()
	s.started = false
	s.done = nil
	s.mu.Unlock()
}

// abortStart resets the sampler after a failed Start so it can be retried.
func (s *Sampler) abortStart(cancel context.CancelFunc, terminal error) {
	cancel()
	close(s.done)
	s.mu.Lock()
	s.err = terminal
	s.started = false
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()
}

func (s *Sampler) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
