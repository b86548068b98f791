package execpool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/petabytecl/jobu/eventbus"
	"github.com/petabytecl/jobu/internal/handler"
	"github.com/petabytecl/jobu/internal/store"
)

// Pool polls PENDING executions and runs each through an Executor, bounded
// to cfg.PoolSize concurrent runs, grounded on original_source/worker/main.py's
// WorkerPool: a semaphore caps concurrency, _poll_and_assign only claims as
// many rows as there are free slots, and shutdown waits a bounded time for
// in-flight work before giving up.
//
// Implements worker.Worker (OnStart/OnStop/Name).
type Pool struct {
	cfg      Config
	engine   store.Engine
	executor *Executor
	logger   *slog.Logger

	sem  chan struct{}
	wg   sync.WaitGroup
	stop chan struct{}
	done chan struct{}
}

// NewPool creates a Pool against engine, resolving handlers from registry
// and publishing lifecycle events on bus (nil is accepted).
func NewPool(cfg Config, engine store.Engine, registry *handler.Registry, bus *eventbus.EventBus, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "execpool.Pool"))
	return &Pool{
		cfg:      cfg,
		engine:   engine,
		executor: NewExecutor(engine, registry, bus, logger),
		logger:   logger,
	}
}

// Name implements worker.Worker.
func (p *Pool) Name() string { return "execpool.Pool" }

// OnStart implements worker.Worker. Non-blocking: spawns the poll loop in
// its own goroutine.
func (p *Pool) OnStart(ctx context.Context) error {
	p.sem = make(chan struct{}, p.cfg.PoolSize)
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.logger.InfoContext(ctx, "execution pool starting",
		slog.Int("pool_size", p.cfg.PoolSize), slog.Int("claim_batch_size", p.cfg.ClaimBatchSize))
	go p.run()
	return nil
}

// OnStop implements worker.Worker: signals the poll loop to exit, then
// waits up to cfg.ShutdownTimeout for in-flight executions to finish.
// Unlike asyncio.Task.cancel(), a goroutine cannot be force-cancelled --
// when the timeout elapses, OnStop returns while those goroutines keep
// running to completion in the background, logged as a warning mirroring
// the original's own "force cancelling" log line.
func (p *Pool) OnStop(ctx context.Context) error {
	close(p.stop)
	<-p.done // poll loop always exits promptly; it never blocks on sem

	waited := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(waited)
	}()

	timeout := p.cfg.ShutdownTimeout
	select {
	case <-waited:
		p.logger.InfoContext(ctx, "execution pool stopped, all executions finished")
		return nil
	case <-time.After(timeout):
		p.logger.Warn("shutdown timeout elapsed, abandoning in-flight executions", slog.Duration("timeout", timeout))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) run() {
	defer close(p.done)
	ctx := context.Background()
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		p.pollAndAssign(ctx)

		select {
		case <-p.stop:
			return
		case <-ticker.C:
		}
	}
}

// pollAndAssign mirrors _poll_and_assign: compute free slots, claim at most
// that many PENDING rows (capped by ClaimBatchSize), then spawn one tracked
// goroutine per claimed row.
func (p *Pool) pollAndAssign(ctx context.Context) {
	available := cap(p.sem) - len(p.sem)
	if available <= 0 {
		return
	}
	batchSize := available
	if p.cfg.ClaimBatchSize < batchSize {
		batchSize = p.cfg.ClaimBatchSize
	}

	var jobs []store.ClaimBatch
	err := store.RunInTransactionReadOnly(ctx, func(txCtx context.Context) error {
		var err error
		jobs, err = store.ListClaimable(txCtx, p.engine.Name(), batchSize)
		return err
	}, p.engine)
	if err != nil {
		p.logger.Error("poll claimable executions failed", slog.Any("error", err))
		return
	}

	for _, job := range jobs {
		p.sem <- struct{}{}
		p.wg.Add(1)
		go func(job store.ClaimBatch) {
			defer p.wg.Done()
			defer func() { <-p.sem }()
			if err := p.executor.Execute(ctx, job); err != nil {
				p.logger.Error("executor failed", slog.Int64("execution_id", job.ID), slog.Any("error", err))
			}
		}(job)
	}
}
