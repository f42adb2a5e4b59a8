package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrush/tracking/internal/pkg/models"
	"github.com/foodrush/tracking/internal/utils"
	"github.com/foodrush/tracking/services/tracking/repository"
)

type fakeTrackingUC struct {
	snapshot *models.TrackingSnapshot
	err      error
}

func (f *fakeTrackingUC) AuthorizeParticipant(ctx context.Context, identity models.OrderTrackingIdentity) (*models.OrderTracking, error) {
	return nil, nil
}

func (f *fakeTrackingUC) ParticipantJoined(ctx context.Context, identity models.OrderTrackingIdentity) error {
	return nil
}

func (f *fakeTrackingUC) ParticipantLeft(ctx context.Context, identity models.OrderTrackingIdentity, roomEmpty bool) error {
	return nil
}

func (f *fakeTrackingUC) AcceptFix(ctx context.Context, identity models.OrderTrackingIdentity, fix models.LocationFix) error {
	return nil
}

func (f *fakeTrackingUC) Snapshot(ctx context.Context, orderID string) (*models.TrackingSnapshot, error) {
	return f.snapshot, f.err
}

func performGetSnapshot(t *testing.T, uc *fakeTrackingUC, orderID string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/orders/:id/tracking")
	c.SetParamNames("id")
	c.SetParamValues(orderID)

	handler := NewTrackingHandler(uc)
	require.NoError(t, handler.GetSnapshot(c))
	return rec
}

func TestGetSnapshotSuccess(t *testing.T) {
	uc := &fakeTrackingUC{
		snapshot: &models.TrackingSnapshot{
			OrderID: "order-1",
			CustomerLocation: &models.LocationFix{
				Point:      models.GeoPoint{Latitude: 36.8065, Longitude: 10.1815},
				CapturedAt: 1700000000000,
			},
			DistanceMeters:    640,
			DistanceFormatted: "640 m",
		},
	}

	rec := performGetSnapshot(t, uc, "order-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp utils.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var snapshot models.TrackingSnapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, "order-1", snapshot.OrderID)
	assert.Equal(t, "640 m", snapshot.DistanceFormatted)
}

func TestGetSnapshotNotFound(t *testing.T) {
	uc := &fakeTrackingUC{err: repository.ErrOrderNotFound}

	rec := performGetSnapshot(t, uc, "missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSnapshotMissingID(t *testing.T) {
	uc := &fakeTrackingUC{}

	rec := performGetSnapshot(t, uc, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
