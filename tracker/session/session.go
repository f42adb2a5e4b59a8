package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/foodrush/tracking/internal/pkg/constants"
	"github.com/foodrush/tracking/internal/pkg/geo"
	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/models"
	"github.com/foodrush/tracking/tracker/channel"
	"github.com/foodrush/tracking/tracker/sampler"
)

// ErrSessionClosed is returned by commands issued after Close.
var ErrSessionClosed = errors.New("tracking session is closed")

// Channel is the duplex wire to the tracking server.
type Channel interface {
	Connect(ctx context.Context) error
	Send(fix models.LocationFix) error
	Events() <-chan channel.Event
	Disconnect()
}

// Sampler is the filtered local fix source.
type Sampler interface {
	Start(ctx context.Context) (<-chan models.LocationFix, error)
	Err() error
	Stop()
}

// Router fetches driving routes.
type Router interface {
	FetchRoute(ctx context.Context, origin, destination models.GeoPoint) (*models.Route, error)
}

// Config holds the session tunables.
type Config struct {
	// ReconnectAttempts is the number of consecutive failed connects before
	// the session gives up until the next Start.
	ReconnectAttempts int
	// ReconnectBackoff is the fixed delay between connect attempts.
	ReconnectBackoff time.Duration
	// RouteDebounce is the minimum time between route recomputations.
	RouteDebounce time.Duration
	// RouteTimeout bounds a single route fetch.
	RouteTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ReconnectAttempts: 3,
		ReconnectBackoff:  3 * time.Second,
		RouteDebounce:     time.Second,
		RouteTimeout:      10 * time.Second,
	}
}

// ConfigFromTracking maps the service configuration onto session tunables.
func ConfigFromTracking(cfg models.TrackingConfig) Config {
	out := DefaultConfig()
	if cfg.ReconnectAttempts > 0 {
		out.ReconnectAttempts = cfg.ReconnectAttempts
	}
	if cfg.ReconnectBackoffSeconds > 0 {
		out.ReconnectBackoff = time.Duration(cfg.ReconnectBackoffSeconds) * time.Second
	}
	if cfg.RouteDebounceMillis > 0 {
		out.RouteDebounce = time.Duration(cfg.RouteDebounceMillis) * time.Millisecond
	}
	return out
}

type phase int

const (
	phaseIdle phase = iota
	phaseConnecting
	phaseConnected
	phaseDisconnected
	phaseClosed
)

type samplerResult struct {
	fixes <-chan models.LocationFix
	err   error
}

type routeResult struct {
	seq    uint64
	route  *models.Route
	origin models.GeoPoint
	dest   models.GeoPoint
	err    error
}

// Session owns the live tracking lifecycle for one order: it connects the
// channel, shares sampled fixes, mirrors the counterpart and keeps the route
// fresh. All state lives on a single control goroutine; public methods only
// enqueue work, so none of them block on I/O.
type Session struct {
	identity models.OrderTrackingIdentity
	ch       Channel
	sampler  Sampler
	router   Router
	cfg      Config
	logger   *logger.Logger

	cmds chan func()
	done chan struct{}

	// Everything below is owned by the control goroutine.
	state           models.TrackingState
	phase           phase
	events          <-chan channel.Event
	fixes           <-chan models.LocationFix
	samplerStarted  bool
	pending         *models.LocationFix
	connectAttempts int
	connectResults  chan error
	samplerResults  chan samplerResult
	retryC          <-chan time.Time
	debounceC       <-chan time.Time
	routeResults    chan routeResult
	routeSeq        uint64
	routeCancel     context.CancelFunc
	lastRouteAt     time.Time
	routeDirty      bool
	subs            []chan models.TrackingState

	snapMu   sync.RWMutex
	snapshot models.TrackingState
}

// New creates a session and starts its control goroutine. The session is
// idle until Start.
func New(
	identity models.OrderTrackingIdentity,
	restaurant models.RestaurantEndpoint,
	ch Channel,
	smp Sampler,
	router Router,
	cfg Config,
	l *logger.Logger,
) *Session {
	s := &Session{
		identity:       identity,
		ch:             ch,
		sampler:        smp,
		router:         router,
		cfg:            cfg,
		logger:         l,
		cmds:           make(chan func()),
		done:           make(chan struct{}),
		events:         ch.Events(),
		connectResults: make(chan error, 1),
		samplerResults: make(chan samplerResult, 1),
		routeResults:   make(chan routeResult, 4),
	}
	if !restaurant.Location.IsZero() {
		s.state.Restaurant = &restaurant
	}
	s.snapshot = s.state

	go s.loop()
	return s
}

// Start begins connecting to the tracking server.
func (s *Session) Start() error {
	return s.do(func() {
		if s.phase != phaseIdle && s.phase != phaseDisconnected {
			return
		}
		s.connectAttempts = 0
		s.retryC = nil
		s.beginConnect()
		s.publish()
	})
}

// StartSharing begins emitting local fixes to the counterpart. It requires a
// connected session; permission and provider failures surface as fatal
// errors in the state.
func (s *Session) StartSharing() error {
	return s.do(func() {
		if s.phase != phaseConnected || s.state.IsSharing || s.samplerStarted {
			return
		}
		s.samplerStarted = true
		go func() {
			fixes, err := s.sampler.Start(context.Background())
			s.samplerResults <- samplerResult{fixes: fixes, err: err}
		}()
	})
}

// StopSharing stops emitting local fixes. The last known positions and the
// route stay on the state.
func (s *Session) StopSharing() error {
	return s.do(func() {
		if !s.samplerStarted {
			return
		}
		s.sampler.Stop()
		s.fixes = nil
		s.samplerStarted = false
		s.state.IsSharing = false
		s.publish()
	})
}

// Close tears the session down: sampler stopped, channel disconnected,
// subscribers closed. The session cannot be reused afterwards.
func (s *Session) Close() error {
	err := s.do(func() {
		s.phase = phaseClosed
	})
	if err != nil {
		return nil // already closed
	}
	<-s.done
	return nil
}

// Subscribe returns a capacity-1 stream of state snapshots. A slow consumer
// always sees the latest state, never a backlog. The current state is
// delivered immediately.
func (s *Session) Subscribe() (<-chan models.TrackingState, error) {
	out := make(chan models.TrackingState, 1)
	err := s.do(func() {
		s.subs = append(s.subs, out)
		out <- s.state
	})
	if err != nil {
		close(out)
		return out, err
	}
	return out, nil
}

// State returns the latest published snapshot.
func (s *Session) State() models.TrackingState {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snapshot
}

// Done is closed when the control goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) do(fn func()) error {
	select {
	case s.cmds <- fn:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.cmds:
			fn()
		case err := <-s.connectResults:
			s.onConnectResult(err)
		case <-s.retryC:
			s.retryC = nil
			s.beginConnect()
		case res := <-s.samplerResults:
			s.onSamplerStarted(res)
		case fix, ok := <-s.fixes:
			s.onLocalFix(fix, ok)
		case ev, ok := <-s.events:
			s.onChannelEvent(ev, ok)
		case res := <-s.routeResults:
			s.onRouteResult(res)
		case <-s.debounceC:
			s.debounceC = nil
			s.maybeScheduleRoute()
		}

		if s.phase == phaseClosed {
			s.shutdown()
			return
		}
	}
}

func (s *Session) shutdown() {
	if s.routeCancel != nil {
		s.routeCancel()
		s.routeCancel = nil
	}
	if s.samplerStarted {
		s.sampler.Stop()
		s.samplerStarted = false
	}
	s.ch.Disconnect()

	s.state.IsConnected = false
	s.state.IsSharing = false
	s.publish()

	for _, sub := range s.subs {
		close(sub)
	}
	s.subs = nil
}

func (s *Session) beginConnect() {
	s.phase = phaseConnecting
	go func() {
		err := s.ch.Connect(context.Background())
		select {
		case s.connectResults <- err:
		case <-s.done:
		}
	}()
}

func (s *Session) onConnectResult(err error) {
	if s.phase == phaseClosed {
		return
	}

	if err == nil {
		s.onConnected()
		return
	}

	s.connectAttempts++
	s.phase = phaseDisconnected
	s.state.IsConnected = false

	if errors.Is(err, channel.ErrClosed) || s.connectAttempts >= s.cfg.ReconnectAttempts {
		s.logger.Error("Giving up connecting to tracking server",
			logger.String("order_id", s.identity.OrderID),
			logger.Int("attempts", s.connectAttempts),
			logger.Err(err))
		s.state.Error = &models.ErrorInfo{
			Code:    constants.ErrorConnectFailed,
			Message: err.Error(),
			Fatal:   true,
		}
		s.publish()
		return
	}

	s.logger.Warn("Connect attempt failed, retrying",
		logger.String("order_id", s.identity.OrderID),
		logger.Int("attempt", s.connectAttempts),
		logger.Err(err))
	s.state.Error = &models.ErrorInfo{
		Code:    constants.ErrorConnectFailed,
		Message: err.Error(),
	}
	s.retryC = time.After(s.cfg.ReconnectBackoff)
	s.publish()
}

func (s *Session) onConnected() {
	if s.phase == phaseConnected {
		return
	}
	s.phase = phaseConnected
	s.connectAttempts = 0
	s.state.IsConnected = true
	if s.state.Error != nil &&
		(s.state.Error.Code == constants.ErrorConnectFailed || s.state.Error.Code == constants.ErrorDisconnected) {
		s.state.Error = nil
	}

	// Exactly one buffered fix survives an outage; flush it now.
	if s.pending != nil {
		if err := s.ch.Send(*s.pending); err != nil {
			s.logger.Warn("Failed to flush buffered fix",
				logger.String("order_id", s.identity.OrderID),
				logger.Err(err))
		} else {
			s.pending = nil
		}
	}

	s.routeDirty = true
	s.maybeScheduleRoute()
	s.publish()
}

func (s *Session) onChannelEvent(ev channel.Event, ok bool) {
	if !ok {
		// Channel closed for good; stop selecting on it.
		s.events = nil
		return
	}

	switch ev.Type {
	case channel.EventRemoteFix:
		s.onRemoteFix(ev.Fix)
	case channel.EventReconnected:
		s.onConnected()
	case channel.EventDisconnected:
		if s.phase != phaseConnected {
			return
		}
		s.logger.Warn("Tracking channel dropped",
			logger.String("order_id", s.identity.OrderID),
			logger.String("reason", ev.Reason))
		s.phase = phaseDisconnected
		s.state.IsConnected = false
		s.state.Error = &models.ErrorInfo{
			Code:    constants.ErrorDisconnected,
			Message: ev.Reason,
		}
		s.connectAttempts = 0
		s.retryC = time.After(s.cfg.ReconnectBackoff)
		s.publish()
	case channel.EventPeerJoined:
		s.logger.Info("Peer joined tracking",
			logger.String("order_id", s.identity.OrderID),
			logger.String("role", string(ev.Role)))
	case channel.EventPeerLeft:
		// Last known counterpart position stays on the map.
		s.logger.Info("Peer left tracking",
			logger.String("order_id", s.identity.OrderID),
			logger.String("role", string(ev.Role)))
	}
}

func (s *Session) onRemoteFix(fix *models.LocationFix) {
	if fix == nil || fix.Point.IsZero() || !fix.Point.Valid() {
		return
	}
	if s.state.CounterpartLocation != nil && !fix.After(*s.state.CounterpartLocation) {
		return
	}
	s.state.CounterpartLocation = fix
	s.routeDirty = true
	s.maybeScheduleRoute()
	s.publish()
}

func (s *Session) onSamplerStarted(res samplerResult) {
	if s.phase == phaseClosed {
		return
	}
	if res.err != nil {
		s.samplerStarted = false
		code := constants.ErrorProviderUnavailable
		if errors.Is(res.err, sampler.ErrPermissionDenied) {
			code = constants.ErrorPermissionDenied
		}
		s.state.Error = &models.ErrorInfo{
			Code:    code,
			Message: res.err.Error(),
			Fatal:   true,
		}
		s.publish()
		return
	}

	s.fixes = res.fixes
	s.state.IsSharing = true
	s.publish()
}

func (s *Session) onLocalFix(fix models.LocationFix, ok bool) {
	if !ok {
		// The sampler stream ended on its own.
		err := s.sampler.Err()
		s.sampler.Stop()
		s.fixes = nil
		s.samplerStarted = false
		s.state.IsSharing = false
		if err != nil {
			code := constants.ErrorProviderUnavailable
			if errors.Is(err, sampler.ErrPermissionDenied) {
				code = constants.ErrorPermissionDenied
			}
			s.state.Error = &models.ErrorInfo{Code: code, Message: err.Error(), Fatal: true}
		}
		s.publish()
		return
	}

	if s.state.CurrentLocation != nil && !fix.After(*s.state.CurrentLocation) {
		return
	}
	s.state.CurrentLocation = &fix

	if s.phase == phaseConnected {
		if err := s.ch.Send(fix); err != nil {
			s.logger.Warn("Failed to send fix, buffering",
				logger.String("order_id", s.identity.OrderID),
				logger.Err(err))
			s.pending = &fix
		} else {
			// A delivered fix supersedes anything buffered earlier.
			s.pending = nil
		}
	} else {
		// Latest-wins outage buffer: one fix, replaced by every newer one.
		s.pending = &fix
	}

	s.routeDirty = true
	s.maybeScheduleRoute()
	s.publish()
}

// routeDestination picks the point we route toward: the live counterpart
// position when known, otherwise the restaurant pin.
func (s *Session) routeDestination() models.GeoPoint {
	if s.state.CounterpartLocation != nil {
		return s.state.CounterpartLocation.Point
	}
	if s.state.Restaurant != nil {
		return s.state.Restaurant.Location
	}
	return models.GeoPoint{}
}

func (s *Session) maybeScheduleRoute() {
	if !s.routeDirty || s.phase == phaseClosed {
		return
	}
	if s.state.CurrentLocation == nil {
		return
	}
	dest := s.routeDestination()
	if dest.IsZero() {
		return
	}

	since := time.Since(s.lastRouteAt)
	if since < s.cfg.RouteDebounce {
		if s.debounceC == nil {
			s.debounceC = time.After(s.cfg.RouteDebounce - since)
		}
		return
	}

	s.fetchRoute(s.state.CurrentLocation.Point, dest)
}

func (s *Session) fetchRoute(origin, dest models.GeoPoint) {
	s.routeDirty = false
	s.lastRouteAt = time.Now()
	s.routeSeq++
	seq := s.routeSeq

	if s.routeCancel != nil {
		s.routeCancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RouteTimeout)
	s.routeCancel = cancel

	go func() {
		route, err := s.router.FetchRoute(ctx, origin, dest)
		res := routeResult{seq: seq, route: route, origin: origin, dest: dest, err: err}
		// Best effort: a stale result losing its buffer slot is harmless,
		// the loop discards superseded sequence numbers anyway.
		select {
		case s.routeResults <- res:
		case <-s.done:
		}
	}()
}

func (s *Session) onRouteResult(res routeResult) {
	// A newer request supersedes this result.
	if res.seq != s.routeSeq || s.phase == phaseClosed {
		return
	}
	if s.routeCancel != nil {
		s.routeCancel()
		s.routeCancel = nil
	}

	if res.err != nil {
		s.logger.Warn("Route computation failed, using straight line",
			logger.String("order_id", s.identity.OrderID),
			logger.Err(res.err))
		s.state.Route = &models.Route{
			Points:   []models.GeoPoint{res.origin, res.dest},
			Distance: geo.Distance(res.origin, res.dest),
		}
		if s.state.Error == nil || !s.state.Error.Fatal {
			s.state.Error = &models.ErrorInfo{
				Code:    constants.ErrorRouteFailed,
				Message: res.err.Error(),
			}
		}
	} else {
		s.state.Route = res.route
		if s.state.Error != nil && s.state.Error.Code == constants.ErrorRouteFailed {
			s.state.Error = nil
		}
	}

	s.state.DistanceMeters = s.state.Route.Distance
	s.state.DistanceFormatted = geo.FormatDistance(s.state.Route.Distance)
	s.publish()

	// Positions may have moved while the fetch was in flight.
	s.maybeScheduleRoute()
}

// publish snapshots the state for State() and fans it out to subscribers
// with latest-wins delivery.
func (s *Session) publish() {
	snap := s.state

	s.snapMu.Lock()
	s.snapshot = snap
	s.snapMu.Unlock()

	for _, sub := range s.subs {
		select {
		case sub <- snap:
		default:
			// Only this goroutine ever sends, so after draining one stale
			// snapshot the buffer has room again.
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- snap:
			default:
			}
		}
	}
}
