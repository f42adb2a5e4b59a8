package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/foodrush/tracking/internal/pkg/circuitbreaker"
	pkghttp "github.com/foodrush/tracking/internal/pkg/http"
	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/models"
)

// Errors returned by route fetching. Callers fall back to a straight-line
// route on any of them; they are distinguished only for logging.
var (
	ErrNoRoute       = errors.New("router returned no route")
	ErrInvalidPoint  = errors.New("route endpoint is unset or out of range")
	ErrMalformedBody = errors.New("router returned a malformed response")
)

// Client fetches driving routes from an OSRM-compatible router.
type Client struct {
	http    *pkghttp.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
}

// NewClient creates a route client for the configured router endpoint.
func NewClient(cfg models.RoutingConfig, l *logger.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &Client{
		http:    pkghttp.NewClient(cfg.BaseURL, timeout),
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("osrm"), l),
		logger:  l,
	}
}

// osrmResponse is the subset of the OSRM route response we consume.
type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// FetchRoute requests a driving route from origin to destination. Any failure
// is returned as an error; the caller decides on the fallback.
func (c *Client) FetchRoute(ctx context.Context, origin, destination models.GeoPoint) (*models.Route, error) {
	if origin.IsZero() || !origin.Valid() || destination.IsZero() || !destination.Valid() {
		return nil, ErrInvalidPoint
	}

	var route *models.Route
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		route, err = c.fetch(ctx, origin, destination)
		return err
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

func (c *Client) fetch(ctx context.Context, origin, destination models.GeoPoint) (*models.Route, error) {
	// OSRM takes coordinates as lon,lat pairs.
	url := fmt.Sprintf("%s/route/v1/driving/%s,%s;%s,%s?overview=full&geometries=geojson",
		c.http.BaseURL,
		formatCoord(origin.Longitude), formatCoord(origin.Latitude),
		formatCoord(destination.Longitude), formatCoord(destination.Latitude))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build route request: %w", err)
	}

	resp, err := c.http.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("router returned status %d", resp.StatusCode)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	if body.Code != "Ok" {
		return nil, fmt.Errorf("%w: code %s", ErrNoRoute, body.Code)
	}
	if len(body.Routes) == 0 {
		return nil, ErrNoRoute
	}

	best := body.Routes[0]
	if len(best.Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("%w: route has %d points", ErrMalformedBody, len(best.Geometry.Coordinates))
	}

	points := make([]models.GeoPoint, 0, len(best.Geometry.Coordinates))
	for _, pair := range best.Geometry.Coordinates {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: truncated coordinate pair", ErrMalformedBody)
		}
		point := models.GeoPoint{Latitude: pair[1], Longitude: pair[0]}
		if !point.Valid() {
			return nil, fmt.Errorf("%w: coordinate out of range", ErrMalformedBody)
		}
		points = append(points, point)
	}

	return &models.Route{
		Points:   points,
		Distance: best.Distance,
	}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
