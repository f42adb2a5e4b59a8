package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodrush/tracking/internal/pkg/geo"
	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/models"
	"github.com/foodrush/tracking/services/tracking"
)

// Errors surfaced to the websocket handler so it can map them to wire codes.
var (
	ErrOrderInactive  = errors.New("order is not active for tracking")
	ErrNotParticipant = errors.New("participant does not belong to order")
	ErrRoleMismatch   = errors.New("role does not match participant on order")
	ErrStaleFix       = errors.New("fix is older than the last accepted fix")
	ErrInvalidFix     = errors.New("fix has invalid coordinates")
)

// TrackingUC implements the tracking.TrackingUC interface
type TrackingUC struct {
	orderRepo    tracking.OrderRepo
	trackingRepo tracking.TrackingRepo
	trackingGW   tracking.TrackingGW
}

// NewTrackingUC creates a new tracking use case
func NewTrackingUC(
	orderRepo tracking.OrderRepo,
	trackingRepo tracking.TrackingRepo,
	trackingGW tracking.TrackingGW,
) tracking.TrackingUC {
	return &TrackingUC{
		orderRepo:    orderRepo,
		trackingRepo: trackingRepo,
		trackingGW:   trackingGW,
	}
}

// AuthorizeParticipant checks that the order exists, is in a trackable state
// and that the participant joins under the role it holds on the order.
func (uc *TrackingUC) AuthorizeParticipant(ctx context.Context, identity models.OrderTrackingIdentity) (*models.OrderTracking, error) {
	order, err := uc.orderRepo.GetOrder(ctx, identity.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Active() {
		return nil, ErrOrderInactive
	}

	role, ok := order.ParticipantRole(identity.ParticipantID)
	if !ok {
		return nil, ErrNotParticipant
	}
	if role != identity.Role {
		return nil, ErrRoleMismatch
	}

	return order, nil
}

// ParticipantJoined marks the order as actively tracked and announces the
// join to downstream consumers.
func (uc *TrackingUC) ParticipantJoined(ctx context.Context, identity models.OrderTrackingIdentity) error {
	if err := uc.trackingRepo.AddActiveOrder(ctx, identity.OrderID); err != nil {
		return err
	}

	event := &models.PeerEvent{OrderID: identity.OrderID, Role: identity.Role}
	if err := uc.trackingGW.PublishPeerJoined(ctx, event); err != nil {
		logger.Warn("Failed to publish peer joined event",
			logger.String("order_id", identity.OrderID),
			logger.Err(err))
	}
	return nil
}

// ParticipantLeft announces the leave; when the room emptied the order is no
// longer actively tracked.
func (uc *TrackingUC) ParticipantLeft(ctx context.Context, identity models.OrderTrackingIdentity, roomEmpty bool) error {
	event := &models.PeerEvent{OrderID: identity.OrderID, Role: identity.Role}
	if err := uc.trackingGW.PublishPeerLeft(ctx, event); err != nil {
		logger.Warn("Failed to publish peer left event",
			logger.String("order_id", identity.OrderID),
			logger.Err(err))
	}

	if roomEmpty {
		return uc.trackingRepo.RemoveActiveOrder(ctx, identity.OrderID)
	}
	return nil
}

// AcceptFix validates and stores a participant fix. Fixes are monotonic per
// (order, role): a fix not strictly newer than the last accepted one is
// rejected with ErrStaleFix.
func (uc *TrackingUC) AcceptFix(ctx context.Context, identity models.OrderTrackingIdentity, fix models.LocationFix) error {
	if fix.Point.IsZero() || !fix.Point.Valid() {
		return ErrInvalidFix
	}

	last, err := uc.trackingRepo.GetLastFix(ctx, identity.OrderID, identity.Role)
	if err != nil {
		return fmt.Errorf("failed to load last fix: %w", err)
	}
	if last != nil && !fix.After(*last) {
		return ErrStaleFix
	}

	if err := uc.trackingRepo.StoreFix(ctx, identity.OrderID, identity.Role, fix); err != nil {
		return err
	}

	update := models.UpdateFromFix(fix)
	update.OrderID = identity.OrderID
	update.Role = identity.Role
	if err := uc.trackingGW.PublishLocationUpdate(ctx, &update); err != nil {
		// Relay must not fail because downstream consumers are unreachable.
		logger.Warn("Failed to publish location update",
			logger.String("order_id", identity.OrderID),
			logger.String("role", string(identity.Role)),
			logger.Err(err))
	}

	return nil
}

// Snapshot returns the last known positions on an order and the straight-line
// distance between them when both sides have reported.
func (uc *TrackingUC) Snapshot(ctx context.Context, orderID string) (*models.TrackingSnapshot, error) {
	customer, err := uc.trackingRepo.GetLastFix(ctx, orderID, models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	restaurant, err := uc.trackingRepo.GetLastFix(ctx, orderID, models.RoleRestaurant)
	if err != nil {
		return nil, err
	}

	snapshot := &models.TrackingSnapshot{
		OrderID:            orderID,
		CustomerLocation:   customer,
		RestaurantLocation: restaurant,
	}
	if customer != nil && restaurant != nil {
		snapshot.DistanceMeters = geo.Distance(customer.Point, restaurant.Point)
		snapshot.DistanceFormatted = geo.FormatDistance(snapshot.DistanceMeters)
	}

	return snapshot, nil
}
