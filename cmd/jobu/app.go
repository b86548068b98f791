package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/petabytecl/jobu/eventbus"
	"github.com/petabytecl/jobu/health"
	healthpgx "github.com/petabytecl/jobu/health/checks/pgx"
	healthsql "github.com/petabytecl/jobu/health/checks/sql"
	"github.com/petabytecl/jobu/internal/handler"
	"github.com/petabytecl/jobu/internal/store"
)

// app holds the shared services every process role composes from: one
// store.Engine, one *slog.Logger, one eventbus.EventBus, and one handler
// registry. Each subcommand builds the role-specific pieces (dispatcher,
// pool, admin API) on top of this shared core; its roleRunner registers the
// workers among them with a worker.Manager and runs the HTTP servers beside
// it.
type app struct {
	cfg     AppConfig
	logger  *slog.Logger
	engine  store.Engine
	bus     *eventbus.EventBus
	reg     *handler.Registry
	healthM *health.Manager
}

// newApp builds the shared services: opens the configured store engine,
// runs its migrations, constructs the logger, event bus, handler registry,
// and a health.Manager wired to the engine's own connection health.
func newApp(ctx context.Context, cfg AppConfig) (*app, error) {
	log := loggerFromConfig(cfg)

	engine, err := openEngine(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("jobu: open store engine: %w", err)
	}
	if err := engine.Migrate(ctx); err != nil {
		engine.Close()
		return nil, fmt.Errorf("jobu: migrate store engine: %w", err)
	}

	bus := eventbus.New(log)

	reg := handler.NewRegistry()
	for _, h := range defaultHandlers() {
		if err := reg.Register(h.name, h.handler); err != nil {
			engine.Close()
			return nil, fmt.Errorf("jobu: register handler %q: %w", h.name, err)
		}
	}

	healthM := health.NewManager()
	wireEngineHealthCheck(healthM, engine)

	return &app{cfg: cfg, logger: log, engine: engine, bus: bus, reg: reg, healthM: healthM}, nil
}

func (a *app) Close() error {
	return a.engine.Close()
}

type namedHandler struct {
	name    string
	handler handler.Handler
}

// defaultHandlers are the two demonstration handlers §6.7 ships: sleep
// drives the TIMEOUT path, echo drives the SUCCESS path.
func defaultHandlers() []namedHandler {
	return []namedHandler{
		{name: "sleep", handler: handler.SleepHandler{}},
		{name: "echo", handler: handler.EchoHandler{}},
	}
}

func openEngine(ctx context.Context, cfg AppConfig, log *slog.Logger) (store.Engine, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return store.NewPostgresEngine(ctx, cfg.Postgres, log)
	case "sqlite", "":
		return store.NewSQLiteEngine(ctx, cfg.SQLite, log)
	default:
		return nil, fmt.Errorf("jobu: unknown store_driver %q", cfg.StoreDriver)
	}
}

// wireEngineHealthCheck registers a readiness check backed by the concrete
// engine's own ping, using health/checks/sql for the file-backed engine and
// health/checks/pgx for the remote one.
func wireEngineHealthCheck(m *health.Manager, engine store.Engine) {
	switch e := engine.(type) {
	case *store.SQLiteEngine:
		m.AddReadinessCheck("store", healthsql.New(healthsql.Config{DB: e.DB()}))
	case *store.PostgresEngine:
		m.AddReadinessCheck("store", healthpgx.New(healthpgx.Config{Pool: e.Pool()}))
	}
}
