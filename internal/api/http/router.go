package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/http/handlers"
	"github.com/spec-kit/issue-tracker/internal/api/http/response"
	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/observability"
	"github.com/spec-kit/issue-tracker/internal/router"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// Access says how a route treats the Authorization header.
type Access int

const (
	// AccessNone never looks at the header.
	AccessNone Access = iota
	// AccessOptional ignores a missing header but rejects an invalid one.
	AccessOptional
	// AccessRequired rejects requests without a valid bearer token.
	AccessRequired
)

// HandlerFunc is a route handler with its captured path parameters.
type HandlerFunc func(c *fiber.Ctx, params router.Params) error

// Route binds a pattern to its handler.
type Route struct {
	Method  string
	Pattern string
	Name    string
	Access  Access
	Handler HandlerFunc
}

// Dispatcher selects a route, resolves the caller, then runs the handler.
type Dispatcher struct {
	table  *router.Router
	routes map[string]Route
	authn  *auth.Authenticator
}

// NewDispatcher registers routes in order. It panics on malformed or duplicate routes.
func NewDispatcher(authn *auth.Authenticator, routes []Route) *Dispatcher {
	d := &Dispatcher{table: router.New(), routes: make(map[string]Route, len(routes)), authn: authn}
	for _, r := range routes {
		d.table.Handle(r.Method, r.Pattern, r.Name)
		d.routes[routeKey(r.Method, r.Pattern)] = r
	}
	return d
}

// Handle is the terminal fiber handler.
func (d *Dispatcher) Handle(c *fiber.Ctx) error {
	path := c.Path()
	if c.Method() == fiber.MethodOptions {
		if !d.table.Allows(path) {
			return apperrors.NewRouteNotFound()
		}
		observability.SetRoute(c, "preflight")
		return response.NoContent(c)
	}

	match, ok := d.table.Match(c.Method(), path)
	if !ok {
		return apperrors.NewRouteNotFound()
	}
	route := d.routes[routeKey(match.Route.Method, match.Route.Pattern)]
	observability.SetRoute(c, route.Name)

	switch route.Access {
	case AccessRequired:
		if err := d.authn.Require(c); err != nil {
			return err
		}
	case AccessOptional:
		if err := d.authn.Optional(c); err != nil {
			return err
		}
	}
	return route.Handler(c, match.Params)
}

// RouteConfig bundles the handlers behind the route table.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Metrics *handlers.MetricsHandler
	Auth    *handlers.AuthHandler
	Issues  *handlers.IssuesHandler
}

// Routes is the service route table.
func Routes(cfg RouteConfig) []Route {
	return []Route{
		{fiber.MethodGet, "/issues", "issues.list", AccessOptional, cfg.Issues.List},
		{fiber.MethodPost, "/issues", "issues.create", AccessOptional, cfg.Issues.Create},
		{fiber.MethodGet, "/issues/{id}", "issues.get", AccessOptional, cfg.Issues.Get},
		{fiber.MethodPut, "/issues/{id}", "issues.update", AccessOptional, cfg.Issues.Update},
		{fiber.MethodDelete, "/issues/{id}", "issues.delete", AccessOptional, cfg.Issues.Delete},
		{fiber.MethodPost, "/auth/register", "auth.register", AccessNone, cfg.Auth.Register},
		{fiber.MethodPost, "/auth/login", "auth.login", AccessNone, cfg.Auth.Login},
		{fiber.MethodPost, "/auth/refresh", "auth.refresh", AccessNone, cfg.Auth.Refresh},
		{fiber.MethodGet, "/auth/me", "auth.me", AccessRequired, cfg.Auth.Me},
		{fiber.MethodPost, "/auth/logout", "auth.logout", AccessNone, cfg.Auth.Logout},
		{fiber.MethodGet, "/health/live", "health.live", AccessNone, cfg.Health.Live},
		{fiber.MethodGet, "/health/ready", "health.ready", AccessNone, cfg.Health.Ready},
		{fiber.MethodGet, "/metrics", "metrics", AccessNone, cfg.Metrics.Serve},
	}
}

// RegisterRoutes mounts the dispatcher as the terminal handler.
func RegisterRoutes(app *fiber.App, authn *auth.Authenticator, cfg RouteConfig) *Dispatcher {
	d := NewDispatcher(authn, Routes(cfg))
	app.Use(d.Handle)
	return d
}

func routeKey(method, pattern string) string {
	return method + " " + pattern
}
