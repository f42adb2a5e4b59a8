package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/foodrush/tracking/internal/pkg/database"
	"github.com/foodrush/tracking/internal/pkg/models"
	"github.com/foodrush/tracking/services/tracking"
)

// ErrOrderNotFound is returned when the order does not exist.
var ErrOrderNotFound = errors.New("order not found")

type orderRepo struct {
	db *database.PostgresClient
}

// NewOrderRepository creates a new order metadata repository
func NewOrderRepository(db *database.PostgresClient) tracking.OrderRepo {
	return &orderRepo{
		db: db,
	}
}

// GetOrder loads the tracking-relevant order metadata.
func (r *orderRepo) GetOrder(ctx context.Context, orderID string) (*models.OrderTracking, error) {
	query := `
		SELECT o.id, o.status, o.customer_id, o.restaurant_id,
		       rs.name AS restaurant_name, rs.address AS restaurant_address,
		       rs.latitude AS restaurant_lat, rs.longitude AS restaurant_lng
		FROM orders o
		JOIN restaurants rs ON rs.id = o.restaurant_id
		WHERE o.id = $1`

	var order models.OrderTracking
	err := r.db.GetDB().GetContext(ctx, &order, query, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}
