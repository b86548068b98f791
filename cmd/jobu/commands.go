package main

import (
	"context"
	"fmt"

	"github.com/petabytecl/jobu/health"
	"github.com/petabytecl/jobu/internal/admin"
	serverhttp "github.com/petabytecl/jobu/server/http"
)

// runDispatcher runs only the cron dispatcher, exposing liveness/readiness
// on its own management port.
func runDispatcher(ctx context.Context, cfg AppConfig) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	r := newRoleRunner(a.logger)
	if err := r.register(a.bus); err != nil {
		return err
	}
	if err := r.register(buildCronDispatcher(a)); err != nil {
		return err
	}
	r.addExtra("management-server", health.NewManagementServer(cfg.Health, a.healthM, health.NewShutdownCheck(), a.logger))

	return r.run(ctx)
}

// runQueueDispatcher runs only the queue dispatcher against the shipped
// in-process LocalAdapter.
func runQueueDispatcher(ctx context.Context, cfg AppConfig) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	r := newRoleRunner(a.logger)
	if err := r.register(a.bus); err != nil {
		return err
	}
	if err := r.register(buildQueueDispatcher(a)); err != nil {
		return err
	}
	r.addExtra("management-server", health.NewManagementServer(cfg.Health, a.healthM, health.NewShutdownCheck(), a.logger))

	return r.run(ctx)
}

// runWorker runs only the execution worker pool.
func runWorker(ctx context.Context, cfg AppConfig) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	r := newRoleRunner(a.logger)
	if err := r.register(a.bus); err != nil {
		return err
	}
	if err := r.register(buildPool(a)); err != nil {
		return err
	}
	r.addExtra("management-server", health.NewManagementServer(cfg.Health, a.healthM, health.NewShutdownCheck(), a.logger))

	return r.run(ctx)
}

// runAdmin runs only the admin HTTP API, which serves its own /health and
// /ready alongside the cron/job routes.
func runAdmin(ctx context.Context, cfg AppConfig) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	r := newRoleRunner(a.logger)
	if err := r.register(a.bus); err != nil {
		return err
	}

	api := admin.NewAPI(cfg.Admin, a.engine, a.bus)
	router := admin.NewRouter(api, a.healthM)
	srv := serverhttp.NewServer(cfg.HTTP, router, a.logger)
	r.addExtra("admin-http-server", srv)

	return r.run(ctx)
}

// runAll is the no-subcommand default: dispatcher + worker + admin
// together in one process, per the CLI scaffolding's scope.
func runAll(ctx context.Context, cfg AppConfig) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	r := newRoleRunner(a.logger)
	if err := r.register(a.bus); err != nil {
		return err
	}
	if err := r.register(buildCronDispatcher(a)); err != nil {
		return fmt.Errorf("jobu: register cron dispatcher: %w", err)
	}
	if err := r.register(buildPool(a)); err != nil {
		return fmt.Errorf("jobu: register worker pool: %w", err)
	}

	api := admin.NewAPI(cfg.Admin, a.engine, a.bus)
	router := admin.NewRouter(api, a.healthM)
	srv := serverhttp.NewServer(cfg.HTTP, router, a.logger)
	r.addExtra("admin-http-server", srv)

	return r.run(ctx)
}
