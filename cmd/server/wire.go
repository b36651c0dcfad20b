package main

import (
	"context"
	"fmt"
	"log/slog"
	nethttp "net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"

	adapthttp "github.com/jsamuelsen11/todo-service/internal/adapters/http"
	"github.com/jsamuelsen11/todo-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/todo-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen11/todo-service/internal/adapters/storage"
	"github.com/jsamuelsen11/todo-service/internal/adapters/storage/memory"
	"github.com/jsamuelsen11/todo-service/internal/adapters/storage/postgres"
	"github.com/jsamuelsen11/todo-service/internal/app"
	"github.com/jsamuelsen11/todo-service/internal/platform/config"
	"github.com/jsamuelsen11/todo-service/internal/platform/health"
	"github.com/jsamuelsen11/todo-service/internal/platform/telemetry"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

// storageBackend is the selected store together with whatever must be
// released at shutdown.
type storageBackend struct {
	name   string
	store  ports.TodoStore
	checks []ports.HealthChecker
	pool   *pgxpool.Pool
}

// Close releases the database pool, if any.
func (b *storageBackend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

// provideStorage builds exactly one todo store from cfg.Storage.Backend and
// registers it, already instrumented, as ports.TodoStore. For postgres the
// pool is opened and migrated before anything else is wired.
func provideStorage(ctx context.Context, injector do.Injector, cfg *config.Config, logger *slog.Logger) (*storageBackend, error) {
	b := &storageBackend{name: cfg.Storage.Backend}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		store := memory.New()
		b.store = store
		b.checks = []ports.HealthChecker{store}

	case config.BackendPostgres:
		pool, err := postgres.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		store := postgres.New(pool, cfg.Storage.CircuitBreaker, logger)
		b.pool = pool
		b.store = store
		b.checks = []ports.HealthChecker{store, health.CheckFunc("postgres-pool", pool.Ping)}

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}

	logger.Info("storage backend selected", slog.String("backend", b.name))

	do.ProvideValue(injector, b)
	do.Provide(injector, func(i do.Injector) (ports.TodoStore, error) {
		metrics := do.MustInvoke[*telemetry.Metrics](i)
		return storage.Instrument(b.store, b.name, metrics), nil
	})
	return b, nil
}

func registerDependencies(injector do.Injector, cfg *config.Config, logger *slog.Logger) {
	do.Provide(injector, func(i do.Injector) (ports.TodoService, error) {
		store := do.MustInvoke[ports.TodoStore](i)
		return app.NewTodoService(store, logger), nil
	})

	do.Provide(injector, func(i do.Injector) (ports.HealthRegistry, error) {
		b := do.MustInvoke[*storageBackend](i)
		registry := health.New()
		for _, c := range b.checks {
			registry.Register(c)
		}
		return registry, nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.TodoHandler, error) {
		svc := do.MustInvoke[ports.TodoService](i)
		return handlers.NewTodoHandler(svc), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.HealthHandler, error) {
		registry := do.MustInvoke[ports.HealthRegistry](i)
		return handlers.NewHealthHandler(registry, cfg.Storage.Backend), nil
	})

	do.Provide(injector, func(i do.Injector) (nethttp.Handler, error) {
		todoH := do.MustInvoke[*handlers.TodoHandler](i)
		healthH := do.MustInvoke[*handlers.HealthHandler](i)
		metrics := do.MustInvoke[*telemetry.Metrics](i)

		return adapthttp.NewRouter(todoH, healthH,
			middleware.Recovery(logger),
			middleware.RequestID(),
			middleware.CorrelationID(),
			middleware.OpenTelemetry(metrics),
			middleware.Logging(logger),
			middleware.RateLimit(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*adapthttp.Server, error) {
		handler := do.MustInvoke[nethttp.Handler](i)
		return adapthttp.NewServer(cfg.Server, handler, logger), nil
	})
}
