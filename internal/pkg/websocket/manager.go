package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/foodrush/tracking/internal/pkg/constants"
	jwtpkg "github.com/foodrush/tracking/internal/pkg/jwt"
	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/models"
)

// Client is one authenticated participant connection inside an order room.
type Client struct {
	OrderID string
	UserID  string
	Role    models.Role
	Conn    *websocket.Conn

	// writeMu serializes writes; gorilla connections allow one writer at a time.
	writeMu sync.Mutex
}

// Manager owns the websocket rooms: one room per order, at most one client
// per role slot.
type Manager struct {
	sync.RWMutex
	rooms    map[string]map[models.Role]*Client
	cfg      models.JWTConfig
	upgrader websocket.Upgrader
}

// NewManager creates a new WebSocket manager
func NewManager(jwtConfig models.JWTConfig) *Manager {
	return &Manager{
		rooms: make(map[string]map[models.Role]*Client),
		cfg:   jwtConfig,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection authenticates and upgrades a new WebSocket connection,
// then hands the client to the provided handler for the connection lifetime.
func (m *Manager) HandleConnection(c echo.Context, handleClient func(*Client, *websocket.Conn) error) error {
	client, err := m.authenticateClient(c)
	if err != nil {
		return err
	}

	ws, err := m.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	return handleClient(client, ws)
}

// authenticateClient validates the bearer token and the order_id query param.
func (m *Manager) authenticateClient(c echo.Context) (*Client, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
	}

	claims, err := jwtpkg.ValidateToken(parts[1], m.cfg.Secret)
	if err != nil {
		logger.Warn("Token validation failed",
			logger.Err(err))
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	orderID := c.QueryParam("order_id")
	if orderID == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "order_id is required")
	}
	if !claims.Role.Valid() {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid role claim")
	}

	return &Client{
		OrderID: orderID,
		UserID:  claims.UserID,
		Role:    claims.Role,
	}, nil
}

// AddClient places a client into its order room, returning the previous
// occupant of the role slot when one was connected.
func (m *Manager) AddClient(client *Client) *Client {
	m.Lock()
	defer m.Unlock()

	room, ok := m.rooms[client.OrderID]
	if !ok {
		room = make(map[models.Role]*Client)
		m.rooms[client.OrderID] = room
	}

	previous := room[client.Role]
	room[client.Role] = client
	return previous
}

// RemoveClient removes a client from its room; empty rooms are dropped.
// A slot taken over by a newer connection is left untouched.
func (m *Manager) RemoveClient(client *Client) {
	m.Lock()
	defer m.Unlock()

	room, ok := m.rooms[client.OrderID]
	if !ok {
		return
	}
	if room[client.Role] != client {
		return
	}

	delete(room, client.Role)
	if len(room) == 0 {
		delete(m.rooms, client.OrderID)
	}
}

// Peer returns the counterpart client in the same order room.
func (m *Manager) Peer(orderID string, role models.Role) (*Client, bool) {
	m.RLock()
	defer m.RUnlock()

	room, ok := m.rooms[orderID]
	if !ok {
		return nil, false
	}
	peer, ok := room[role.Counterpart()]
	return peer, ok
}

// SendMessage sends an enveloped event to a client.
func (m *Manager) SendMessage(client *Client, event string, data interface{}) error {
	if client == nil || client.Conn == nil {
		return nil // nil connection tolerated for tests
	}

	rawData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("error marshaling message data: %v", err)
	}

	response := models.WSMessage{
		Event: event,
		Data:  rawData,
	}

	client.writeMu.Lock()
	defer client.writeMu.Unlock()
	return client.Conn.WriteJSON(response)
}

// SendErrorMessage sends an error event to a client.
func (m *Manager) SendErrorMessage(client *Client, code string, message string) error {
	return m.SendMessage(client, constants.EventError, models.WSErrorMessage{
		Code:    code,
		Message: message,
	})
}

// NotifyPeer sends an event to the counterpart of the given role, reporting
// whether a counterpart was connected.
func (m *Manager) NotifyPeer(orderID string, role models.Role, event string, data interface{}) bool {
	peer, ok := m.Peer(orderID, role)
	if !ok {
		return false
	}

	if err := m.SendMessage(peer, event, data); err != nil {
		logger.Warn("Error sending message to peer",
			logger.String("order_id", orderID),
			logger.String("role", string(peer.Role)),
			logger.Err(err))
	}
	return true
}
