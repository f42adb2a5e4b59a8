package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrush/tracking/internal/pkg/constants"
	"github.com/foodrush/tracking/internal/pkg/database"
	"github.com/foodrush/tracking/internal/pkg/models"
)

// setupMiniredis creates a new miniredis server and returns a Redis client connected to it
func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}

func TestStoreFix(t *testing.T) {
	mr, client := setupMiniredis(t)
	defer mr.Close()

	repo := NewTrackingRepository(database.NewRedisClientFromConn(client))

	fix := models.LocationFix{
		Point:      models.GeoPoint{Latitude: 36.8065, Longitude: 10.1815},
		Accuracy:   12.5,
		CapturedAt: 1700000000000,
	}

	err := repo.StoreFix(context.Background(), "order-1", models.RoleCustomer, fix)
	require.NoError(t, err)

	fixKey := fmt.Sprintf(constants.KeyOrderFix, "order-1", models.RoleCustomer)
	assert.Equal(t, "36.8065", mr.HGet(fixKey, constants.FieldLatitude))
	assert.Equal(t, "10.1815", mr.HGet(fixKey, constants.FieldLongitude))
	assert.Equal(t, "12.5", mr.HGet(fixKey, constants.FieldAccuracy))
	assert.Equal(t, "1700000000000", mr.HGet(fixKey, constants.FieldTimestamp))

	ttl := mr.TTL(fixKey)
	assert.Equal(t, FixTTL, ttl)
}

func TestStoreFixThenGetLastFix(t *testing.T) {
	mr, client := setupMiniredis(t)
	defer mr.Close()

	repo := NewTrackingRepository(database.NewRedisClientFromConn(client))
	ctx := context.Background()

	fix := models.LocationFix{
		Point:      models.GeoPoint{Latitude: 36.8065, Longitude: 10.1815},
		Accuracy:   8,
		CapturedAt: 1700000001000,
	}
	require.NoError(t, repo.StoreFix(ctx, "order-1", models.RoleRestaurant, fix))

	got, err := repo.GetLastFix(ctx, "order-1", models.RoleRestaurant)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, fix.Point.Latitude, got.Point.Latitude, 1e-9)
	assert.InDelta(t, fix.Point.Longitude, got.Point.Longitude, 1e-9)
	assert.InDelta(t, fix.Accuracy, got.Accuracy, 1e-9)
	assert.Equal(t, fix.CapturedAt, got.CapturedAt)
}

func TestGetLastFixMissing(t *testing.T) {
	mr, client := setupMiniredis(t)
	defer mr.Close()

	repo := NewTrackingRepository(database.NewRedisClientFromConn(client))

	got, err := repo.GetLastFix(context.Background(), "order-unknown", models.RoleCustomer)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetLastFixCorruptData(t *testing.T) {
	mr, client := setupMiniredis(t)
	defer mr.Close()

	fixKey := fmt.Sprintf(constants.KeyOrderFix, "order-1", models.RoleCustomer)
	mr.HSet(fixKey, constants.FieldLatitude, "not-a-number")
	mr.HSet(fixKey, constants.FieldLongitude, "10.1815")
	mr.HSet(fixKey, constants.FieldTimestamp, "1700000000000")

	repo := NewTrackingRepository(database.NewRedisClientFromConn(client))

	got, err := repo.GetLastFix(context.Background(), "order-1", models.RoleCustomer)
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestActiveOrderSet(t *testing.T) {
	mr, client := setupMiniredis(t)
	defer mr.Close()

	repo := NewTrackingRepository(database.NewRedisClientFromConn(client))
	ctx := context.Background()

	require.NoError(t, repo.AddActiveOrder(ctx, "order-1"))
	require.NoError(t, repo.AddActiveOrder(ctx, "order-2"))

	members, err := mr.SMembers(constants.KeyActiveOrders)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"order-1", "order-2"}, members)

	require.NoError(t, repo.RemoveActiveOrder(ctx, "order-1"))

	members, err = mr.SMembers(constants.KeyActiveOrders)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"order-2"}, members)
}
