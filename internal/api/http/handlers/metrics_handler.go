package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/issue-tracker/internal/api/http/response"
	"github.com/spec-kit/issue-tracker/internal/observability"
	"github.com/spec-kit/issue-tracker/internal/router"
)

// MetricsHandler serves the Prometheus exposition.
type MetricsHandler struct {
	handler fiber.Handler
}

// NewMetricsHandler wraps the registry's net/http handler for fiber.
func NewMetricsHandler(metrics *observability.Metrics) *MetricsHandler {
	return &MetricsHandler{handler: adaptor.HTTPHandler(metrics.Handler())}
}

// Serve GET /metrics. The body is Prometheus text, so only the CORS headers
// of the usual set survive.
func (h *MetricsHandler) Serve(c *fiber.Ctx, _ router.Params) error {
	response.ApplyHeaders(c)
	return h.handler(c)
}
