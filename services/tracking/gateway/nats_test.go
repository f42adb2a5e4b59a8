package gateway

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrush/tracking/internal/pkg/constants"
	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/models"
	natspkg "github.com/foodrush/tracking/internal/pkg/nats"
	"github.com/foodrush/tracking/services/tracking"
)

var (
	testNatsServer *server.Server
	testNatsURL    = "nats://127.0.0.1:8369"
)

func TestMain(m *testing.M) {
	opts := natsserver.DefaultTestOptions
	opts.Port = 8369
	testNatsServer = natsserver.RunServer(&opts)
	code := m.Run()
	testNatsServer.Shutdown()
	os.Exit(code)
}

func setupGateway(t *testing.T) (tracking.TrackingGW, *nats.Conn) {
	client, err := natspkg.NewClient(testNatsURL)
	require.NoError(t, err, "Failed to connect to NATS server")
	t.Cleanup(client.Close)

	sub, err := nats.Connect(testNatsURL)
	require.NoError(t, err)
	t.Cleanup(sub.Close)

	l, err := logger.New(models.LoggerConfig{Level: "debug"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	return NewTrackingGW(client, l), sub
}

func TestPublishLocationUpdate(t *testing.T) {
	gw, sub := setupGateway(t)

	received := make(chan *nats.Msg, 1)
	_, err := sub.ChanSubscribe(constants.SubjectTrackingLocation, received)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	update := &models.LocationUpdate{
		OrderID:   "order-123",
		Role:      models.RoleCustomer,
		Lat:       36.8065,
		Lng:       10.1815,
		Accuracy:  10,
		Timestamp: 1700000000000,
	}
	require.NoError(t, gw.PublishLocationUpdate(context.Background(), update))

	select {
	case msg := <-received:
		var got models.LocationUpdate
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, *update, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for location update")
	}
}

func TestPublishPeerEvents(t *testing.T) {
	gw, sub := setupGateway(t)

	joined := make(chan *nats.Msg, 1)
	left := make(chan *nats.Msg, 1)
	_, err := sub.ChanSubscribe(constants.SubjectTrackingJoined, joined)
	require.NoError(t, err)
	_, err = sub.ChanSubscribe(constants.SubjectTrackingLeft, left)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	event := &models.PeerEvent{OrderID: "order-123", Role: models.RoleRestaurant}
	require.NoError(t, gw.PublishPeerJoined(context.Background(), event))
	require.NoError(t, gw.PublishPeerLeft(context.Background(), event))

	for name, ch := range map[string]chan *nats.Msg{"joined": joined, "left": left} {
		select {
		case msg := <-ch:
			var got models.PeerEvent
			require.NoError(t, json.Unmarshal(msg.Data, &got))
			assert.Equal(t, *event, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s event", name)
		}
	}
}
