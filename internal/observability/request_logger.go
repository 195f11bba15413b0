package observability

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const routeKey = "route_name"

// UnmatchedRoute labels requests that did not select a route.
const UnmatchedRoute = "unmatched"

// SetRoute records the selected route name on the request for logs and metrics.
func SetRoute(c *fiber.Ctx, name string) {
	c.Locals(routeKey, name)
}

// RouteName returns the route recorded by SetRoute.
func RouteName(c *fiber.Ctx) string {
	if name, ok := c.Locals(routeKey).(string); ok && name != "" {
		return name
	}
	return UnmatchedRoute
}

// RequestLogger logs every request once it completes and records its metrics.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			// the app error handler has not written the response yet
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		route := RouteName(c)
		metrics.RecordRequest(route, c.Method(), status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("ip", c.IP()),
		}
		if status >= fiber.StatusInternalServerError {
			logger.Warn("request", fields...)
		} else {
			logger.Info("request", fields...)
		}
		return err
	}
}
