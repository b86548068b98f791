package execpool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/petabytecl/jobu/eventbus"
	"github.com/petabytecl/jobu/internal/domain"
	"github.com/petabytecl/jobu/internal/events"
	"github.com/petabytecl/jobu/internal/handler"
	"github.com/petabytecl/jobu/internal/store"
)

// Executor runs a single claimed execution end to end, grounded on
// original_source/worker/executor.py's Executor.execute: claim (the only
// concurrency primitive -- spec.md §4.6), resolve the handler, deserialize
// params, run under a per-execution timeout, then apply the terminal (or
// retry) transition.
type Executor struct {
	engine   store.Engine
	registry *handler.Registry
	bus      *eventbus.EventBus
	logger   *slog.Logger
}

// NewExecutor creates an Executor against engine, resolving handlers from
// registry and publishing lifecycle events on bus (nil is accepted).
func NewExecutor(engine store.Engine, registry *handler.Registry, bus *eventbus.EventBus, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{engine: engine, registry: registry, bus: bus, logger: logger.With(slog.String("component", "execpool.Executor"))}
}

// Execute claims job and runs it to a terminal (or retry-pending) state.
// Returns nil even when the job's own handler fails -- a handler error is
// not an Executor error, it is recorded on the row and possibly retried.
// The only error Execute returns is a failure to even transition the row
// (a store error), mirroring the original's log-and-continue posture.
func (x *Executor) Execute(ctx context.Context, job domain.JobInfo) error {
	logger := x.logger.With(slog.Int64("execution_id", job.ID), slog.String("handler_name", job.HandlerName))
	logger.Info("starting job execution")

	claimed, err := x.claim(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("execpool: claim execution %d: %w", job.ID, err)
	}
	if !claimed {
		logger.Warn("failed to claim execution: already claimed by another worker")
		return nil
	}
	events.PublishClaimed(ctx, x.bus, events.ExecutionClaimed{
		ExecutionID: job.ID, HandlerName: job.HandlerName, ClaimedAt: time.Now().UTC(),
	})

	h, err := x.registry.Get(job.HandlerName)
	if err != nil {
		logger.Error("handler not found", slog.Any("error", err))
		return x.fail(ctx, job, err.Error())
	}

	params := map[string]any{}
	if job.HandlerParams != "" {
		if err := json.Unmarshal([]byte(job.HandlerParams), &params); err != nil {
			logger.Error("invalid handler_params", slog.Any("error", err))
			return x.fail(ctx, job, fmt.Sprintf("invalid handler_params: %s", err))
		}
	}

	timeout := time.Duration(job.TimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := h.Execute(runCtx, params)
	switch {
	case err == nil:
		return x.complete(ctx, job, result)
	case errors.Is(err, context.DeadlineExceeded):
		logger.Error("job execution timed out")
		return x.timeout(ctx, job)
	default:
		logger.Error("job execution failed", slog.Any("error", err))
		return x.fail(ctx, job, err.Error())
	}
}

func (x *Executor) claim(ctx context.Context, id int64) (bool, error) {
	var claimed bool
	err := store.RunInTransaction(ctx, false, func(txCtx context.Context) error {
		var err error
		claimed, err = store.ClaimExecution(txCtx, x.engine.Name(), id)
		return err
	}, x.engine)
	return claimed, err
}

func (x *Executor) complete(ctx context.Context, job domain.JobInfo, result map[string]any) error {
	var resultPtr *string
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return x.fail(ctx, job, fmt.Sprintf("marshal result: %s", err))
		}
		s := string(raw)
		resultPtr = &s
	}

	err := store.RunInTransaction(ctx, false, func(txCtx context.Context) error {
		return store.FinishExecution(txCtx, x.engine.Name(), job.ID, domain.StatusSuccess, nil, resultPtr, false)
	}, x.engine)
	if err != nil {
		return fmt.Errorf("execpool: complete execution %d: %w", job.ID, err)
	}

	x.logger.InfoContext(ctx, "job execution completed", slog.Int64("execution_id", job.ID))
	events.PublishFinished(ctx, x.bus, events.ExecutionFinished{
		ExecutionID: job.ID, HandlerName: job.HandlerName, Status: domain.StatusSuccess, FinishedAt: time.Now().UTC(),
	})
	return nil
}

func (x *Executor) fail(ctx context.Context, job domain.JobInfo, errMsg string) error {
	return x.terminalOrRetry(ctx, job, domain.StatusFailed, errMsg)
}

func (x *Executor) timeout(ctx context.Context, job domain.JobInfo) error {
	return x.terminalOrRetry(ctx, job, domain.StatusTimeout, fmt.Sprintf("execution exceeded timeout of %ds", job.TimeoutSeconds))
}

// terminalOrRetry applies status (FAILED or TIMEOUT) to job's row, then
// requeues it to PENDING when its retry budget allows -- mirrors
// _fail_execution/_timeout_execution both incrementing retry_count and
// conditionally calling reset_to_pending based on current_retry+1 < max_retry.
func (x *Executor) terminalOrRetry(ctx context.Context, job domain.JobInfo, status domain.Status, errMsg string) error {
	retry := job.RetryCount+1 < job.MaxRetry

	err := store.RunInTransaction(ctx, false, func(txCtx context.Context) error {
		return store.FinishExecution(txCtx, x.engine.Name(), job.ID, status, &errMsg, nil, retry)
	}, x.engine)
	if err != nil {
		return fmt.Errorf("execpool: terminal transition for execution %d: %w", job.ID, err)
	}

	if retry {
		x.logger.InfoContext(ctx, "scheduling retry", slog.Int64("execution_id", job.ID),
			slog.Int("retry", job.RetryCount+1), slog.Int("max_retry", job.MaxRetry))
	}
	events.PublishFinished(ctx, x.bus, events.ExecutionFinished{
		ExecutionID: job.ID, HandlerName: job.HandlerName, Status: status, Retried: retry,
		ErrorMessage: &errMsg, FinishedAt: time.Now().UTC(),
	})
	return nil
}
