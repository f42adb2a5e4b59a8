package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/foodrush/tracking/internal/pkg/constants"
	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/models"
)

// Channel state errors.
var (
	ErrNotConnected = errors.New("channel is not connected")
	ErrClosed       = errors.New("channel is closed")
)

// EventType tags the events a channel surfaces to its consumer.
type EventType int

const (
	// EventRemoteFix carries the counterpart's location.
	EventRemoteFix EventType = iota
	// EventPeerJoined signals the counterpart joined the room.
	EventPeerJoined
	// EventPeerLeft signals the counterpart left the room.
	EventPeerLeft
	// EventDisconnected signals the connection dropped unexpectedly.
	EventDisconnected
	// EventReconnected signals a successful connect after a drop.
	EventReconnected
)

// Event is one occurrence on the tracking channel.
type Event struct {
	Type   EventType
	Fix    *models.LocationFix
	Role   models.Role
	Reason string
}

// Config holds the endpoint and credentials for the tracking channel.
type Config struct {
	// ServerURL is the websocket endpoint, e.g. wss://host/ws/tracking.
	ServerURL string
	// Token is the bearer JWT presented on every dial.
	Token string
}

// Channel is the client side of the order tracking duplex. It hides the
// wire encoding and surfaces typed events; reconnection policy stays with
// the session.
type Channel struct {
	identity models.OrderTrackingIdentity
	cfg      Config
	dialer   *websocket.Dialer
	logger   *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	wasOnline bool

	events    chan Event
	closeOnce sync.Once
}

// New creates a channel for one order room. Events() is valid immediately;
// nothing is delivered until Connect succeeds.
func New(identity models.OrderTrackingIdentity, cfg Config, l *logger.Logger) *Channel {
	return &Channel{
		identity: identity,
		cfg:      cfg,
		dialer:   websocket.DefaultDialer,
		logger:   l,
		events:   make(chan Event, 16),
	}
}

// Events returns the event stream. It closes after Disconnect.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Connect dials the server and starts the read loop. Connecting an already
// connected channel is a no-op. A successful connect after a drop emits
// EventReconnected.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.Token)

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to dial tracking server: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.connected = true
	reconnect := c.wasOnline
	c.wasOnline = true
	c.mu.Unlock()

	if reconnect {
		c.emit(Event{Type: EventReconnected})
	}

	go c.readLoop(conn)
	return nil
}

func (c *Channel) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.ServerURL)
	if err != nil {
		return "", fmt.Errorf("invalid tracking server URL: %w", err)
	}
	q := u.Query()
	q.Set("order_id", c.identity.OrderID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Send transmits a local fix as a location_update event.
func (c *Channel) Send(fix models.LocationFix) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !connected || conn == nil {
		return ErrNotConnected
	}

	update := models.UpdateFromFix(fix)
	update.OrderID = c.identity.OrderID
	update.Role = c.identity.Role

	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal location update: %w", err)
	}

	// The read loop never writes, so the session goroutine is the only writer.
	if err := conn.WriteJSON(models.WSMessage{
		Event: constants.EventLocationUpdate,
		Data:  data,
	}); err != nil {
		return fmt.Errorf("failed to send location update: %w", err)
	}
	return nil
}

// Disconnect closes the channel for good. Idempotent. The events channel
// closes once the read loop has drained.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		// The read loop owns closing the events channel.
		return
	}
	c.closeEvents()
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		var msg models.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			deliberate := c.closed
			c.connected = false
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()

			if deliberate {
				c.closeEvents()
				return
			}
			c.emit(Event{Type: EventDisconnected, Reason: err.Error()})
			return
		}
		c.dispatch(&msg)
	}
}

func (c *Channel) dispatch(msg *models.WSMessage) {
	switch msg.Event {
	case constants.EventLocationUpdate:
		var update models.LocationUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			c.logger.Warn("Dropping malformed location update", logger.Err(err))
			return
		}
		fix := update.Fix()
		c.emit(Event{Type: EventRemoteFix, Fix: &fix, Role: update.Role})
	case constants.EventPeerJoined:
		c.emit(Event{Type: EventPeerJoined, Role: peerRole(msg.Data)})
	case constants.EventPeerLeft:
		c.emit(Event{Type: EventPeerLeft, Role: peerRole(msg.Data)})
	case constants.EventError:
		var wsErr models.WSErrorMessage
		if err := json.Unmarshal(msg.Data, &wsErr); err == nil {
			c.logger.Warn("Tracking server reported error",
				logger.String("code", wsErr.Code),
				logger.String("message", wsErr.Message))
		}
	case constants.EventPong:
		// Keepalive answer, nothing to surface.
	default:
		c.logger.Debug("Ignoring unknown channel event",
			logger.String("event", msg.Event))
	}
}

func peerRole(data json.RawMessage) models.Role {
	var event models.PeerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return ""
	}
	return event.Role
}

// emit delivers an event without ever blocking the read loop: when the
// buffer is full the oldest event is dropped.
func (c *Channel) emit(ev Event) {
	for {
		select {
		case c.events <- ev:
			return
		default:
			select {
			case <-c.events:
			default:
			}
		}
	}
}

func (c *Channel) closeEvents() {
	c.closeOnce.Do(func() {
		close(c.events)
	})
}
