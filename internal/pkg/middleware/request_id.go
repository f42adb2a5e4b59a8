package middleware

import (
	"github.com/labstack/echo/v4"

	pkgcontext "github.com/foodrush/tracking/internal/pkg/context"
)

// RequestIDMiddleware assigns every request an X-Request-ID header, keeping an
// inbound one when the caller already set it. The ID is also placed on the
// request context so downstream layers can log it.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)

			ctx := pkgcontext.WithRequestID(c.Request().Context(), requestID)
			requestID = pkgcontext.GetRequestID(ctx)
			c.SetRequest(c.Request().WithContext(ctx))

			c.Set("request_id", requestID)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			return next(c)
		}
	}
}
