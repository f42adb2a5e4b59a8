package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/foodrush/tracking/internal/pkg/constants"
	pkgcontext "github.com/foodrush/tracking/internal/pkg/context"
	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/models"
	wspkg "github.com/foodrush/tracking/internal/pkg/websocket"
	"github.com/foodrush/tracking/services/tracking"
	"github.com/foodrush/tracking/services/tracking/usecase"
)

// WebSocketHandler relays location fixes between the two participants of an
// order room.
type WebSocketHandler struct {
	trackingUC tracking.TrackingUC
	manager    *wspkg.Manager
}

// NewWebSocketHandler creates a new tracking websocket handler
func NewWebSocketHandler(trackingUC tracking.TrackingUC, manager *wspkg.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		trackingUC: trackingUC,
		manager:    manager,
	}
}

// HandleTracking upgrades the connection and runs the relay loop for its
// lifetime.
func (h *WebSocketHandler) HandleTracking(c echo.Context) error {
	return h.manager.HandleConnection(c, h.handleClient)
}

func (h *WebSocketHandler) handleClient(client *wspkg.Client, conn *websocket.Conn) error {
	client.Conn = conn
	ctx := pkgcontext.WithUserID(pkgcontext.WithRequestID(context.Background(), ""), client.UserID)

	identity := models.OrderTrackingIdentity{
		OrderID:       client.OrderID,
		ParticipantID: client.UserID,
		Role:          client.Role,
	}

	if _, err := h.trackingUC.AuthorizeParticipant(ctx, identity); err != nil {
		code := joinErrorCode(err)
		if sendErr := h.manager.SendErrorMessage(client, code, err.Error()); sendErr != nil {
			logger.Warn("Failed to send join error", logger.Err(sendErr))
		}
		return err
	}

	// A reconnect replaces the previous connection for the same role slot.
	if previous := h.manager.AddClient(client); previous != nil && previous.Conn != nil {
		previous.Conn.Close()
	}
	defer h.leave(ctx, client, identity)

	logger.Info("Tracking client joined",
		logger.String("order_id", client.OrderID),
		logger.String("user_id", client.UserID),
		logger.String("role", string(client.Role)))

	h.manager.NotifyPeer(client.OrderID, client.Role, constants.EventPeerJoined,
		models.PeerEvent{OrderID: client.OrderID, Role: client.Role})

	if err := h.trackingUC.ParticipantJoined(ctx, identity); err != nil {
		logger.Warn("Failed to record participant join",
			logger.String("order_id", client.OrderID),
			logger.Err(err))
	}

	h.sendPeerSnapshot(ctx, client)

	return h.readLoop(ctx, client, identity)
}

// sendPeerSnapshot delivers the counterpart's last known fix to a joiner so
// a late joiner does not start with an empty map.
func (h *WebSocketHandler) sendPeerSnapshot(ctx context.Context, client *wspkg.Client) {
	snapshot, err := h.trackingUC.Snapshot(ctx, client.OrderID)
	if err != nil {
		logger.Warn("Failed to load tracking snapshot",
			logger.String("order_id", client.OrderID),
			logger.Err(err))
		return
	}

	var peerFix *models.LocationFix
	if client.Role == models.RoleCustomer {
		peerFix = snapshot.RestaurantLocation
	} else {
		peerFix = snapshot.CustomerLocation
	}
	if peerFix == nil {
		return
	}

	update := models.UpdateFromFix(*peerFix)
	update.OrderID = client.OrderID
	update.Role = client.Role.Counterpart()
	if err := h.manager.SendMessage(client, constants.EventLocationUpdate, update); err != nil {
		logger.Warn("Failed to send peer snapshot",
			logger.String("order_id", client.OrderID),
			logger.Err(err))
	}
}

func (h *WebSocketHandler) readLoop(ctx context.Context, client *wspkg.Client, identity models.OrderTrackingIdentity) error {
	for {
		var msg models.WSMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if websocket.IsUnexpectedCloseError(err) {
				logger.Info("Tracking client disconnected",
					logger.String("order_id", client.OrderID),
					logger.String("user_id", client.UserID))
				return nil
			}
			// Malformed frame: tell the client and keep the connection.
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				h.manager.SendErrorMessage(client, constants.ErrorInvalidFormat, "invalid message format")
				continue
			}
			return err
		}

		if err := h.handleMessage(ctx, client, identity, &msg); err != nil {
			logger.Error("Error handling message",
				logger.String("order_id", client.OrderID),
				logger.String("event", msg.Event),
				logger.Err(err))
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, client *wspkg.Client, identity models.OrderTrackingIdentity, msg *models.WSMessage) error {
	switch msg.Event {
	case constants.EventPing:
		return h.manager.SendMessage(client, constants.EventPong, nil)
	case constants.EventLocationUpdate:
		return h.handleLocationUpdate(ctx, client, identity, msg.Data)
	default:
		return h.manager.SendErrorMessage(client, constants.ErrorInvalidFormat,
			fmt.Sprintf("unknown event: %s", msg.Event))
	}
}

// handleLocationUpdate validates, stores and relays a participant fix.
func (h *WebSocketHandler) handleLocationUpdate(ctx context.Context, client *wspkg.Client, identity models.OrderTrackingIdentity, data json.RawMessage) error {
	var update models.LocationUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return h.manager.SendErrorMessage(client, constants.ErrorInvalidFormat, "invalid location format")
	}

	fix := update.Fix()
	if err := h.trackingUC.AcceptFix(ctx, identity, fix); err != nil {
		switch {
		case errors.Is(err, usecase.ErrStaleFix):
			// Stale fixes are dropped silently apart from the error event;
			// the connection stays up.
			return h.manager.SendErrorMessage(client, constants.ErrorStaleFix, err.Error())
		case errors.Is(err, usecase.ErrInvalidFix):
			return h.manager.SendErrorMessage(client, constants.ErrorInvalidLocation, err.Error())
		default:
			return h.manager.SendErrorMessage(client, constants.ErrorInternalError, "failed to process location")
		}
	}

	relay := models.UpdateFromFix(fix)
	relay.OrderID = client.OrderID
	relay.Role = client.Role
	h.manager.NotifyPeer(client.OrderID, client.Role, constants.EventLocationUpdate, relay)
	return nil
}

func (h *WebSocketHandler) leave(ctx context.Context, client *wspkg.Client, identity models.OrderTrackingIdentity) {
	h.manager.RemoveClient(client)

	_, peerConnected := h.manager.Peer(client.OrderID, client.Role)
	h.manager.NotifyPeer(client.OrderID, client.Role, constants.EventPeerLeft,
		models.PeerEvent{OrderID: client.OrderID, Role: client.Role})

	if err := h.trackingUC.ParticipantLeft(ctx, identity, !peerConnected); err != nil {
		logger.Warn("Failed to record participant leave",
			logger.String("order_id", client.OrderID),
			logger.Err(err))
	}

	logger.Info("Tracking client left",
		logger.String("order_id", client.OrderID),
		logger.String("user_id", client.UserID),
		logger.String("role", string(client.Role)))
}

// joinErrorCode maps join failures to wire error codes.
func joinErrorCode(err error) string {
	switch {
	case errors.Is(err, usecase.ErrOrderInactive):
		return constants.ErrorOrderInactive
	case errors.Is(err, usecase.ErrNotParticipant), errors.Is(err, usecase.ErrRoleMismatch):
		return constants.ErrorNotParticipant
	default:
		return constants.ErrorOrderNotFound
	}
}
