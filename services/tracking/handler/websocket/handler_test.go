package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrush/tracking/internal/pkg/constants"
	jwtpkg "github.com/foodrush/tracking/internal/pkg/jwt"
	"github.com/foodrush/tracking/internal/pkg/models"
	wspkg "github.com/foodrush/tracking/internal/pkg/websocket"
	"github.com/foodrush/tracking/services/tracking/usecase"
)

var testJWTConfig = models.JWTConfig{
	Secret:     "test-secret",
	Expiration: 60,
	Issuer:     "foodrush-test",
}

type fakeTrackingUC struct {
	mu       sync.Mutex
	authErr  error
	fixErr   error
	fixes    []models.LocationFix
	joined   []models.OrderTrackingIdentity
	left     []models.OrderTrackingIdentity
	snapshot *models.TrackingSnapshot
}

func (f *fakeTrackingUC) AuthorizeParticipant(ctx context.Context, identity models.OrderTrackingIdentity) (*models.OrderTracking, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &models.OrderTracking{
		OrderID:      identity.OrderID,
		Status:       models.OrderStatusDelivering,
		CustomerID:   "cust-1",
		RestaurantID: "rest-1",
	}, nil
}

func (f *fakeTrackingUC) ParticipantJoined(ctx context.Context, identity models.OrderTrackingIdentity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, identity)
	return nil
}

func (f *fakeTrackingUC) ParticipantLeft(ctx context.Context, identity models.OrderTrackingIdentity, roomEmpty bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, identity)
	return nil
}

func (f *fakeTrackingUC) AcceptFix(ctx context.Context, identity models.OrderTrackingIdentity, fix models.LocationFix) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fixErr != nil {
		return f.fixErr
	}
	f.fixes = append(f.fixes, fix)
	return nil
}

func (f *fakeTrackingUC) Snapshot(ctx context.Context, orderID string) (*models.TrackingSnapshot, error) {
	if f.snapshot != nil {
		return f.snapshot, nil
	}
	return &models.TrackingSnapshot{OrderID: orderID}, nil
}

func setupTestServer(t *testing.T, uc *fakeTrackingUC) (*httptest.Server, string) {
	manager := wspkg.NewManager(testJWTConfig)
	handler := NewWebSocketHandler(uc, manager)

	e := echo.New()
	e.GET("/ws/tracking", handler.HandleTracking)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tracking"
	return srv, wsURL
}

func dialParticipant(t *testing.T, wsURL, orderID, userID string, role models.Role) *websocket.Conn {
	token, _, err := jwtpkg.GenerateToken(userID, role, testJWTConfig)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL+"?order_id="+orderID, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) models.WSMessage {
	conn.SetReadDeadline(time.Now().Add(timeout))
	var msg models.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// awaitRegistered round-trips a ping so the server has finished the join
// sequence before the test proceeds.
func awaitRegistered(t *testing.T, conn *websocket.Conn) {
	require.NoError(t, conn.WriteJSON(models.WSMessage{Event: constants.EventPing}))
	msg := readEvent(t, conn, 2*time.Second)
	require.Equal(t, constants.EventPong, msg.Event)
}

func TestRejectsMissingToken(t *testing.T) {
	_, wsURL := setupTestServer(t, &fakeTrackingUC{})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?order_id=order-1", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLocationUpdateRelayedToPeer(t *testing.T) {
	uc := &fakeTrackingUC{}
	_, wsURL := setupTestServer(t, uc)

	customer := dialParticipant(t, wsURL, "order-1", "cust-1", models.RoleCustomer)
	awaitRegistered(t, customer)
	restaurant := dialParticipant(t, wsURL, "order-1", "rest-1", models.RoleRestaurant)

	// The customer learns about the restaurant joining.
	joined := readEvent(t, customer, 2*time.Second)
	require.Equal(t, constants.EventPeerJoined, joined.Event)
	var peer models.PeerEvent
	require.NoError(t, json.Unmarshal(joined.Data, &peer))
	assert.Equal(t, models.RoleRestaurant, peer.Role)

	update := models.LocationUpdate{Lat: 36.8065, Lng: 10.1815, Timestamp: 1700000000000}
	data, err := json.Marshal(update)
	require.NoError(t, err)
	require.NoError(t, customer.WriteJSON(models.WSMessage{
		Event: constants.EventLocationUpdate,
		Data:  data,
	}))

	relayed := readEvent(t, restaurant, 2*time.Second)
	require.Equal(t, constants.EventLocationUpdate, relayed.Event)

	var got models.LocationUpdate
	require.NoError(t, json.Unmarshal(relayed.Data, &got))
	assert.Equal(t, "order-1", got.OrderID)
	assert.Equal(t, models.RoleCustomer, got.Role)
	assert.InDelta(t, 36.8065, got.Lat, 1e-9)
	assert.Equal(t, int64(1700000000000), got.Timestamp)
}

func TestStaleFixAnsweredWithError(t *testing.T) {
	uc := &fakeTrackingUC{fixErr: usecase.ErrStaleFix}
	_, wsURL := setupTestServer(t, uc)

	customer := dialParticipant(t, wsURL, "order-1", "cust-1", models.RoleCustomer)

	update := models.LocationUpdate{Lat: 36.8065, Lng: 10.1815, Timestamp: 900}
	data, err := json.Marshal(update)
	require.NoError(t, err)
	require.NoError(t, customer.WriteJSON(models.WSMessage{
		Event: constants.EventLocationUpdate,
		Data:  data,
	}))

	msg := readEvent(t, customer, 2*time.Second)
	require.Equal(t, constants.EventError, msg.Event)

	var wsErr models.WSErrorMessage
	require.NoError(t, json.Unmarshal(msg.Data, &wsErr))
	assert.Equal(t, constants.ErrorStaleFix, wsErr.Code)
}

func TestJoinRejectedForInactiveOrder(t *testing.T) {
	uc := &fakeTrackingUC{authErr: usecase.ErrOrderInactive}
	_, wsURL := setupTestServer(t, uc)

	conn := dialParticipant(t, wsURL, "order-1", "cust-1", models.RoleCustomer)

	msg := readEvent(t, conn, 2*time.Second)
	require.Equal(t, constants.EventError, msg.Event)

	var wsErr models.WSErrorMessage
	require.NoError(t, json.Unmarshal(msg.Data, &wsErr))
	assert.Equal(t, constants.ErrorOrderInactive, wsErr.Code)
}

func TestPeerSnapshotSentToLateJoiner(t *testing.T) {
	uc := &fakeTrackingUC{
		snapshot: &models.TrackingSnapshot{
			OrderID: "order-1",
			RestaurantLocation: &models.LocationFix{
				Point:      models.GeoPoint{Latitude: 36.8008, Longitude: 10.1817},
				CapturedAt: 1700000000000,
			},
		},
	}
	_, wsURL := setupTestServer(t, uc)

	customer := dialParticipant(t, wsURL, "order-1", "cust-1", models.RoleCustomer)

	msg := readEvent(t, customer, 2*time.Second)
	require.Equal(t, constants.EventLocationUpdate, msg.Event)

	var got models.LocationUpdate
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, models.RoleRestaurant, got.Role)
	assert.InDelta(t, 36.8008, got.Lat, 1e-9)
}

func TestPingAnsweredWithPong(t *testing.T) {
	uc := &fakeTrackingUC{}
	_, wsURL := setupTestServer(t, uc)

	customer := dialParticipant(t, wsURL, "order-1", "cust-1", models.RoleCustomer)

	require.NoError(t, customer.WriteJSON(models.WSMessage{Event: constants.EventPing}))

	msg := readEvent(t, customer, 2*time.Second)
	assert.Equal(t, constants.EventPong, msg.Event)
}

func TestPeerLeftNotification(t *testing.T) {
	uc := &fakeTrackingUC{}
	_, wsURL := setupTestServer(t, uc)

	customer := dialParticipant(t, wsURL, "order-1", "cust-1", models.RoleCustomer)
	awaitRegistered(t, customer)
	restaurant := dialParticipant(t, wsURL, "order-1", "rest-1", models.RoleRestaurant)

	joined := readEvent(t, customer, 2*time.Second)
	require.Equal(t, constants.EventPeerJoined, joined.Event)

	require.NoError(t, restaurant.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	restaurant.Close()

	msg := readEvent(t, customer, 2*time.Second)
	require.Equal(t, constants.EventPeerLeft, msg.Event)

	var peer models.PeerEvent
	require.NoError(t, json.Unmarshal(msg.Data, &peer))
	assert.Equal(t, models.RoleRestaurant, peer.Role)
}
