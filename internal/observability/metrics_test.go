package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("issues.list", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("issues.list", "GET", 200, 20*time.Millisecond)
	m.RecordError("auth.login", "POST", "AuthenticationError")
	m.RecordRateLimit("auth", true)
	m.RecordRateLimit("auth", false)
	m.RecordRateLimit("auth", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("issues.list", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("auth.login", "POST", "AuthenticationError")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimitAllowed.WithLabelValues("auth")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rateLimitRejected.WithLabelValues("auth")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("x", "GET", 200, time.Millisecond)
		m.RecordError("x", "GET", "InternalError")
		m.RecordRateLimit("auth", true)
	})
}

func TestMetrics_HandlerExposesRegistry(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("issues.get", "GET", 404, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `issuetracker_http_requests_total{method="GET",route="issues.get",status="404"} 1`)
}

func TestRequestLogger_RecordsRoute(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/ping", func(c *fiber.Ctx) error {
		SetRoute(c, "ping")
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("ping", "GET", "200")))

	_, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(UnmatchedRoute, "GET", "404")))
}
