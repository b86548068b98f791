package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/petabytecl/jobu/eventbus"
	"github.com/petabytecl/jobu/internal/cronspec"
	"github.com/petabytecl/jobu/internal/domain"
	"github.com/petabytecl/jobu/internal/events"
	"github.com/petabytecl/jobu/internal/store"
)

// CronDispatcher polls enabled cron definitions and materializes a PENDING
// execution row whenever one fires, grounded on
// original_source/dispatcher/main.py's Dispatcher class: load enabled
// definitions in one read transaction, process each in isolation so one
// bad cron expression never blocks the rest, then sleep until the earliest
// next fire (floored at PollInterval, capped at MaxSleep).
//
// Implements worker.Worker (OnStart/OnStop/Name) so gaz's worker.Manager
// supervises it with panic recovery and restart backoff.
type CronDispatcher struct {
	cfg    CronConfig
	engine store.Engine
	bus    *eventbus.EventBus
	logger *slog.Logger

	stop chan struct{}
	done chan struct{}
}

// NewCronDispatcher creates a CronDispatcher against engine, publishing
// lifecycle events on bus (nil is accepted: publication becomes a no-op).
func NewCronDispatcher(cfg CronConfig, engine store.Engine, bus *eventbus.EventBus, logger *slog.Logger) *CronDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronDispatcher{
		cfg:    cfg,
		engine: engine,
		bus:    bus,
		logger: logger.With(slog.String("component", "dispatcher.CronDispatcher")),
	}
}

// Name implements worker.Worker.
func (d *CronDispatcher) Name() string { return "dispatcher.CronDispatcher" }

// OnStart implements worker.Worker. Non-blocking: spawns the poll loop in
// its own goroutine.
func (d *CronDispatcher) OnStart(ctx context.Context) error {
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.logger.InfoContext(ctx, "cron dispatcher starting",
		slog.Duration("poll_interval", d.cfg.PollInterval),
		slog.Duration("max_sleep", d.cfg.MaxSleep))
	go d.run()
	return nil
}

// OnStop implements worker.Worker: signals the loop to exit and waits for
// it, bounded by ctx.
func (d *CronDispatcher) OnStop(ctx context.Context) error {
	close(d.stop)
	select {
	case <-d.done:
		d.logger.InfoContext(ctx, "cron dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *CronDispatcher) run() {
	defer close(d.done)
	ctx := context.Background()

	for {
		select {
		case <-d.stop:
			return
		default:
		}

		sleep := d.tick(ctx)

		select {
		case <-d.stop:
			return
		case <-time.After(sleep):
		}
	}
}

// tick runs one poll iteration and returns how long to sleep before the
// next one.
func (d *CronDispatcher) tick(ctx context.Context) time.Duration {
	var jobs []domain.CronDefinition
	err := store.RunInTransactionReadOnly(ctx, func(txCtx context.Context) error {
		var err error
		jobs, err = store.ListEnabledCronDefinitions(txCtx, d.engine.Name())
		return err
	}, d.engine)
	if err != nil {
		d.logger.Error("poll enabled cron definitions failed", slog.Any("error", err))
		return d.cfg.PollInterval
	}
	if len(jobs) == 0 {
		return d.cfg.PollInterval
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		d.processJob(ctx, job, now)
	}
	return d.nextSleep(jobs, now)
}

// processJob mirrors _process_cron_job: errors from one definition never
// propagate to another.
func (d *CronDispatcher) processJob(ctx context.Context, job domain.CronDefinition, now time.Time) {
	logger := d.logger.With(slog.String("cron_name", job.Name), slog.Int64("job_id", job.ID))

	sched, err := cronspec.Parse(job.CronExpression, d.cfg.MinCronInterval)
	if err != nil {
		if errors.Is(err, cronspec.ErrIntervalTooShort) {
			logger.Warn("cron interval too short, skipping", slog.Any("error", err))
		} else {
			logger.Error("cron parse failed, skipping", slog.Any("error", err))
		}
		return
	}

	prev, err := sched.Prev(now)
	if err != nil {
		logger.Warn("no prior fire within lookback, skipping", slog.Any("error", err))
		return
	}
	if now.Sub(prev) > d.cfg.PollInterval {
		return // not due this tick
	}

	if !job.AllowOverlap {
		var active bool
		err := store.RunInTransactionReadOnly(ctx, func(txCtx context.Context) error {
			var err error
			active, err = store.HasActiveExecution(txCtx, d.engine.Name(), job.ID)
			return err
		}, d.engine)
		if err != nil {
			logger.Error("overlap check failed", slog.Any("error", err))
			return
		}
		if active {
			logger.Debug("skipping: incomplete execution exists", slog.Bool("allow_overlap", false))
			return
		}
	}

	jobID := job.ID
	err = store.RunInTransaction(ctx, false, func(txCtx context.Context) error {
		return store.InsertPendingExecutionIgnoreDuplicate(txCtx, d.engine.Name(), &jobID, prev,
			job.HandlerName, job.HandlerParams, job.MaxRetry, job.TimeoutSeconds)
	}, d.engine)
	if err != nil {
		logger.Error("insert pending execution failed", slog.Any("error", err))
		return
	}

	logger.Info("cron fired", slog.Time("scheduled_time", prev))
	events.PublishCreated(ctx, d.bus, events.ExecutionCreated{
		JobID:       &jobID,
		HandlerName: job.HandlerName,
		ScheduledAt: prev,
	})
}

// nextSleep mirrors _calculate_next_sleep: the earliest next fire across
// every polled definition, clamped to [PollInterval, MaxSleep].
func (d *CronDispatcher) nextSleep(jobs []domain.CronDefinition, now time.Time) time.Duration {
	minWait := d.cfg.MaxSleep
	for _, job := range jobs {
		sched, err := cronspec.Parse(job.CronExpression, d.cfg.MinCronInterval)
		if err != nil {
			continue
		}
		if wait := sched.Next(now).Sub(now); wait > 0 && wait < minWait {
			minWait = wait
		}
	}
	switch {
	case minWait < d.cfg.PollInterval:
		return d.cfg.PollInterval
	case minWait > d.cfg.MaxSleep:
		return d.cfg.MaxSleep
	default:
		return minWait
	}
}
