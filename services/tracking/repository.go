package tracking

import (
	"context"

	"github.com/foodrush/tracking/internal/pkg/models"
)

// TrackingRepo defines the tracking fix store interface
type TrackingRepo interface {
	StoreFix(ctx context.Context, orderID string, role models.Role, fix models.LocationFix) error
	GetLastFix(ctx context.Context, orderID string, role models.Role) (*models.LocationFix, error)
	AddActiveOrder(ctx context.Context, orderID string) error
	RemoveActiveOrder(ctx context.Context, orderID string) error
}

// OrderRepo defines the order metadata lookup interface
type OrderRepo interface {
	GetOrder(ctx context.Context, orderID string) (*models.OrderTracking, error)
}
