package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/foodrush/tracking/internal/pkg/middleware"
	"github.com/foodrush/tracking/internal/pkg/models"
	"github.com/foodrush/tracking/services/tracking"
	httpHandler "github.com/foodrush/tracking/services/tracking/handler/http"
	wsHandler "github.com/foodrush/tracking/services/tracking/handler/websocket"
)

// Handler combines all protocol handlers for the tracking service
type Handler struct {
	trackingHTTP *httpHandler.TrackingHandler
	trackingWS   *wsHandler.WebSocketHandler
	cfg          *models.Config
}

// NewHandler creates a new combined handler
func NewHandler(
	trackingUC tracking.TrackingUC,
	trackingWS *wsHandler.WebSocketHandler,
	cfg *models.Config,
) *Handler {
	return &Handler{
		trackingHTTP: httpHandler.NewTrackingHandler(trackingUC),
		trackingWS:   trackingWS,
		cfg:          cfg,
	}
}

// RegisterRoutes registers all HTTP and websocket routes
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// The websocket endpoint authenticates from the bearer token itself so a
	// reconnecting client re-presents its credentials on every dial.
	e.GET("/ws/tracking", h.trackingWS.HandleTracking)

	api := e.Group("/api/v1", middleware.JWTAuthMiddleware(h.cfg.JWT))
	api.GET("/orders/:id/tracking", h.trackingHTTP.GetSnapshot)
}
