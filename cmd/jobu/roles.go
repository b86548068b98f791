package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/petabytecl/jobu/internal/dispatcher"
	"github.com/petabytecl/jobu/internal/execpool"
	"github.com/petabytecl/jobu/internal/queueadapter"
	"github.com/petabytecl/jobu/worker"
)

const shutdownGrace = 30 * time.Second

// lifecycle is satisfied by any service with the gaz OnStart/OnStop shape
// that does not itself implement worker.Worker (server/http.Server and
// health.ManagementServer have no Name(), so they are run outside
// worker.Manager and stopped by hand in roleRunner.stop).
type lifecycle interface {
	OnStart(ctx context.Context) error
	OnStop(ctx context.Context) error
}

// roleRunner starts a worker.Manager plus any unsupervised lifecycle
// services (HTTP servers), then blocks until SIGINT/SIGTERM or a critical
// worker failure, shutting everything down in reverse start order.
type roleRunner struct {
	logger     *slog.Logger
	mgr        *worker.Manager
	extras     []lifecycle
	extraNames []string
}

func newRoleRunner(logger *slog.Logger) *roleRunner {
	mgr := worker.NewManager(logger)
	return &roleRunner{logger: logger, mgr: mgr}
}

func (r *roleRunner) register(w worker.Worker, opts ...worker.WorkerOption) error {
	return r.mgr.Register(w, opts...)
}

func (r *roleRunner) addExtra(name string, l lifecycle) {
	r.extras = append(r.extras, l)
	r.extraNames = append(r.extraNames, name)
}

// run starts everything, blocks until shutdown is requested, then stops
// everything in reverse order within shutdownGrace.
func (r *roleRunner) run(ctx context.Context) error {
	stopCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	critical := make(chan struct{}, 1)
	r.mgr.SetCriticalFailHandler(func() {
		select {
		case critical <- struct{}{}:
		default:
		}
	})

	if err := r.mgr.Start(stopCtx); err != nil {
		return fmt.Errorf("jobu: start worker manager: %w", err)
	}

	for i, extra := range r.extras {
		if err := extra.OnStart(stopCtx); err != nil {
			return fmt.Errorf("jobu: start %s: %w", r.extraNames[i], err)
		}
	}

	r.logger.Info("jobu started, waiting for shutdown signal")

	select {
	case <-stopCtx.Done():
		r.logger.Info("shutdown signal received")
	case <-critical:
		r.logger.Error("critical worker failed, shutting down")
	case <-r.mgr.Done():
		r.logger.Warn("all workers stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	for i := len(r.extras) - 1; i >= 0; i-- {
		if err := r.extras[i].OnStop(shutdownCtx); err != nil {
			r.logger.Error("error stopping service", slog.String("service", r.extraNames[i]), slog.Any("error", err))
		}
	}

	return r.mgr.Stop()
}

// buildCronDispatcher builds a CronDispatcher worker.
func buildCronDispatcher(a *app) *dispatcher.CronDispatcher {
	return dispatcher.NewCronDispatcher(a.cfg.Cron, a.engine, a.bus, a.logger)
}

// buildQueueDispatcher builds a QueueDispatcher over the in-process
// LocalAdapter -- the shipped concrete adapter behind queueadapter.Adapter,
// spec.md's Kafka transport being an out-of-scope external collaborator.
func buildQueueDispatcher(a *app) *dispatcher.QueueDispatcher {
	adapter := queueadapter.NewLocalAdapter(a.cfg.QueueBufferSize)
	return dispatcher.NewQueueDispatcher(a.cfg.Queue, a.engine, adapter, a.bus, a.logger)
}

// buildPool builds the execpool.Pool claim/execute worker.
func buildPool(a *app) *execpool.Pool {
	return execpool.NewPool(a.cfg.ExecPool, a.engine, a.reg, a.bus, a.logger)
}
