package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/utils"
	"github.com/foodrush/tracking/services/tracking"
	"github.com/foodrush/tracking/services/tracking/repository"
)

// TrackingHandler handles HTTP requests for tracking read operations
type TrackingHandler struct {
	trackingUC tracking.TrackingUC
}

// NewTrackingHandler creates a new tracking HTTP handler
func NewTrackingHandler(trackingUC tracking.TrackingUC) *TrackingHandler {
	return &TrackingHandler{
		trackingUC: trackingUC,
	}
}

// GetSnapshot returns the last known positions on an order.
func (h *TrackingHandler) GetSnapshot(c echo.Context) error {
	orderID := c.Param("id")
	if orderID == "" {
		return utils.BadRequestResponse(c, "order_id is required")
	}

	snapshot, err := h.trackingUC.Snapshot(c.Request().Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return utils.NotFoundResponse(c, "order not found")
		}
		logger.Error("Failed to load tracking snapshot",
			logger.String("order_id", orderID),
			logger.Err(err))
		return utils.InternalServerErrorResponse(c, "failed to load tracking snapshot")
	}

	return utils.SuccessResponse(c, http.StatusOK, "Tracking snapshot", snapshot)
}
