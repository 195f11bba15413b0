// Package app assembles the service from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/issue-tracker/internal/api/http"
	"github.com/spec-kit/issue-tracker/internal/api/http/handlers"
	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/config"
	"github.com/spec-kit/issue-tracker/internal/events"
	"github.com/spec-kit/issue-tracker/internal/observability"
	"github.com/spec-kit/issue-tracker/internal/persistence"
	"github.com/spec-kit/issue-tracker/internal/repository"
	"github.com/spec-kit/issue-tracker/internal/service"
	"github.com/spec-kit/issue-tracker/internal/worker"
)

// Dependencies are the stateful collaborators behind the services. Nil
// repositories and stores fall back to in-memory implementations.
type Dependencies struct {
	Users       repository.UserRepository
	Issues      repository.IssueRepository
	Revocations auth.RevocationStore
	Postgres    *persistence.Postgres
	Redis       *persistence.Redis
}

// App is a fully wired service.
type App struct {
	Fiber   *fiber.App
	Auth    *service.AuthService
	Issues  *service.IssueService
	Metrics *observability.Metrics

	logger  *zap.Logger
	closers []func()
}

// New wires services, handlers and middleware around deps.
func New(cfg config.Config, logger *zap.Logger, deps Dependencies) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Users == nil {
		deps.Users = repository.NewMemoryUserRepository()
	}
	if deps.Issues == nil {
		deps.Issues = repository.NewMemoryIssueRepository()
	}
	if deps.Revocations == nil {
		deps.Revocations = auth.NewMemoryRevocationStore()
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:    deps.Users,
		Revocations: deps.Revocations,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:  deps.Issues,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	metrics := observability.NewMetrics()
	fiberApp := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(fiberApp, logger, metrics, cfg)
	httptransport.RegisterRoutes(fiberApp, authService.Authenticator(), httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps.Postgres, deps.Redis),
		Metrics: handlers.NewMetricsHandler(metrics),
		Auth:    handlers.NewAuthHandler(authService),
		Issues:  handlers.NewIssuesHandler(issueService),
	})

	return &App{
		Fiber:   fiberApp,
		Auth:    authService,
		Issues:  issueService,
		Metrics: metrics,
		logger:  logger,
	}
}

// Open connects the backends selected by cfg and wires the app. Call Close
// when done.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	var (
		deps    Dependencies
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Storage.Driver == config.DriverPostgres {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Storage, logger); err != nil {
				cleanup()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		deps.Postgres = pg
		deps.Users = repository.NewUserRepository(pg.Pool, cfg.Storage.UsersTable)
		deps.Issues = repository.NewIssueRepository(pg.Pool, cfg.Storage.IssuesTable)
	}

	if cfg.Auth.RevocationDriver == config.DriverRedis {
		rd := persistence.NewRedis(ctx, cfg.Redis, logger)
		closers = append(closers, rd.Close)
		deps.Redis = rd
		deps.Revocations = auth.NewRedisRevocationStore(rd.Client)
	}

	a := New(cfg, logger, deps)
	a.closers = closers
	logger.Info("application wired",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("revocation", cfg.Auth.RevocationDriver))
	return a, nil
}

// Close releases backend connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Listen serves HTTP on addr until Shutdown.
func (a *App) Listen(addr string) error {
	a.logger.Info("http server listening", zap.String("addr", addr))
	return a.Fiber.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Fiber.ShutdownWithContext(ctx)
}
