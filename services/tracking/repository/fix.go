package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/foodrush/tracking/internal/pkg/constants"
	"github.com/foodrush/tracking/internal/pkg/database"
	"github.com/foodrush/tracking/internal/pkg/geo"
	"github.com/foodrush/tracking/internal/pkg/models"
	"github.com/foodrush/tracking/services/tracking"
)

const (
	// FixTTL is how long we keep the last fix in Redis. An order is live for
	// at most a few hours, 24h leaves room for delivery history analysis.
	FixTTL = 24 * time.Hour
)

type trackingRepo struct {
	redisClient *database.RedisClient
}

// NewTrackingRepository creates a new tracking fix repository
func NewTrackingRepository(redisClient *database.RedisClient) tracking.TrackingRepo {
	return &trackingRepo{
		redisClient: redisClient,
	}
}

// StoreFix stores the last fix for one role on an order and refreshes the
// per-role GEO index and the geohash area index.
func (r *trackingRepo) StoreFix(ctx context.Context, orderID string, role models.Role, fix models.LocationFix) error {
	fixKey := fmt.Sprintf(constants.KeyOrderFix, orderID, role)
	fixData := []interface{}{
		constants.FieldLatitude, strconv.FormatFloat(fix.Point.Latitude, 'f', -1, 64),
		constants.FieldLongitude, strconv.FormatFloat(fix.Point.Longitude, 'f', -1, 64),
		constants.FieldAccuracy, strconv.FormatFloat(fix.Accuracy, 'f', -1, 64),
		constants.FieldTimestamp, strconv.FormatInt(fix.CapturedAt, 10),
	}

	if err := r.redisClient.HSet(ctx, fixKey, fixData...); err != nil {
		return fmt.Errorf("failed to store fix: %w", err)
	}
	if err := r.redisClient.Expire(ctx, fixKey, FixTTL); err != nil {
		return fmt.Errorf("failed to set fix TTL: %w", err)
	}

	geoKey := fmt.Sprintf(constants.KeyOrderGeo, role)
	if err := r.redisClient.GeoAdd(ctx, geoKey, fix.Point.Longitude, fix.Point.Latitude, orderID); err != nil {
		return fmt.Errorf("failed to update geo index: %w", err)
	}

	areaKey := fmt.Sprintf(constants.KeyOrderArea, geo.EncodeArea(fix.Point))
	if err := r.redisClient.SAdd(ctx, areaKey, orderID); err != nil {
		return fmt.Errorf("failed to update area index: %w", err)
	}
	if err := r.redisClient.Expire(ctx, areaKey, FixTTL); err != nil {
		return fmt.Errorf("failed to set area TTL: %w", err)
	}

	return nil
}

// GetLastFix returns the last stored fix for one role on an order, or nil
// when none was ever stored.
func (r *trackingRepo) GetLastFix(ctx context.Context, orderID string, role models.Role) (*models.LocationFix, error) {
	fixKey := fmt.Sprintf(constants.KeyOrderFix, orderID, role)

	values, err := r.redisClient.HGetAll(ctx, fixKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get last fix: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(values[constants.FieldLatitude], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude in stored fix: %w", err)
	}
	lng, err := strconv.ParseFloat(values[constants.FieldLongitude], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude in stored fix: %w", err)
	}
	ts, err := strconv.ParseInt(values[constants.FieldTimestamp], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp in stored fix: %w", err)
	}
	accuracy, _ := strconv.ParseFloat(values[constants.FieldAccuracy], 64)

	return &models.LocationFix{
		Point:      models.GeoPoint{Latitude: lat, Longitude: lng},
		Accuracy:   accuracy,
		CapturedAt: ts,
	}, nil
}

// AddActiveOrder marks an order as having an open tracking room.
func (r *trackingRepo) AddActiveOrder(ctx context.Context, orderID string) error {
	if err := r.redisClient.SAdd(ctx, constants.KeyActiveOrders, orderID); err != nil {
		return fmt.Errorf("failed to add active order: %w", err)
	}
	return nil
}

// RemoveActiveOrder clears the active marker for an order.
func (r *trackingRepo) RemoveActiveOrder(ctx context.Context, orderID string) error {
	if err := r.redisClient.SRem(ctx, constants.KeyActiveOrders, orderID); err != nil {
		return fmt.Errorf("failed to remove active order: %w", err)
	}
	return nil
}
