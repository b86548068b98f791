package dispatcher

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
	"github.com/petabytecl/jobu/internal/queueadapter"
	"github.com/petabytecl/jobu/internal/store"
)

// defaultMaxRetry/defaultTimeoutSeconds back a queue message whose
// handler_name matches no cron definition (so there is no row to snapshot
// these from), mirroring executions' own column defaults.
const (
	defaultMaxRetry       = 3
	defaultTimeoutSeconds = 300
)

// QueueDispatcher consumes an external queue adapter and materializes a
// PENDING execution row per message, grounded on
// original_source/dispatcher/queue/main.py's QueueDispatcher class: resolve
// the message's handler_name against cron_definitions for base params (if
// registered), merge the message's own params over that base (message wins
// on conflicting keys), then insert.
//
// Implements worker.Worker (OnStart/OnStop/Name).
type QueueDispatcher struct {
	cfg     QueueConfig
	engine  store.Engine
	adapter queueadapter.Adapter
	bus     *eventbus.EventBus
	logger  *slog.Logger

	stop chan struct{}
	done chan struct{}
}

// NewQueueDispatcher creates a QueueDispatcher against engine and adapter,
// publishing lifecycle events on bus (nil is accepted).
func NewQueueDispatcher(cfg QueueConfig, engine store.Engine, adapter queueadapter.Adapter, bus *eventbus.EventBus, logger *slog.Logger) *QueueDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueDispatcher{
		cfg:     cfg,
		engine:  engine,
		adapter: adapter,
		bus:     bus,
		logger:  logger.With(slog.String("component", "dispatcher.QueueDispatcher")),
	}
}

// Name implements worker.Worker.
func (d *QueueDispatcher) Name() string { return "dispatcher.QueueDispatcher" }

// OnStart implements worker.Worker: connects the adapter, then spawns the
// receive loop.
func (d *QueueDispatcher) OnStart(ctx context.Context) error {
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("dispatcher: queue dispatcher connect: %w", err)
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.logger.InfoContext(ctx, "queue dispatcher starting")
	go d.run()
	return nil
}

// OnStop implements worker.Worker: disconnecting the adapter unblocks any
// in-flight Receive, same as the original's forced adapter.disconnect()
// breaking its `async for message in adapter.receive()` loop.
func (d *QueueDispatcher) OnStop(ctx context.Context) error {
	close(d.stop)
	if err := d.adapter.Disconnect(ctx); err != nil {
		d.logger.Error("queue dispatcher disconnect failed", slog.Any("error", err))
	}
	select {
	case <-d.done:
		d.logger.InfoContext(ctx, "queue dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *QueueDispatcher) run() {
	defer close(d.done)
	ctx := context.Background()

	for {
		msg, err := d.adapter.Receive(ctx)
		if err != nil {
			if errors.Is(err, queueadapter.ErrClosed) || errors.Is(err, context.Canceled) {
				return
			}
			d.logger.Error("receive failed", slog.Any("error", err))
			continue
		}

		select {
		case <-d.stop:
			return
		default:
		}

		if err := d.processMessage(ctx, msg); err != nil {
			d.logger.Error("failed to process message", slog.Any("error", err),
				slog.String("handler_name", msg.HandlerName))
			if abErr := d.adapter.Abandon(ctx, msg); abErr != nil {
				d.logger.Error("abandon failed", slog.Any("error", abErr))
			}
			continue
		}
		if err := d.adapter.Complete(ctx, msg); err != nil {
			d.logger.Error("complete failed", slog.Any("error", err))
		}
	}
}

func (d *QueueDispatcher) processMessage(ctx context.Context, msg domain.QueueMessage) error {
	d.logger.Debug("processing message", slog.String("handler_name", msg.HandlerName), slog.Any("idempotency_key", msg.Handle))

	jobID := msg.JobID
	baseParams := "{}"
	maxRetry := defaultMaxRetry
	timeoutSeconds := defaultTimeoutSeconds

	if jobID == nil {
		var def domain.CronDefinition
		err := store.RunInTransactionReadOnly(ctx, func(txCtx context.Context) error {
			var err error
			def, err = store.GetCronDefinitionByHandlerName(txCtx, d.engine.Name(), msg.HandlerName)
			return err
		}, d.engine)
		switch {
		case err == nil:
			jobID = &def.ID
			baseParams = def.HandlerParams
			maxRetry = def.MaxRetry
			timeoutSeconds = def.TimeoutSeconds
		case errors.Is(err, store.ErrNoRows):
			// No registered cron for this handler_name: proceed on message
			// params alone, same as original's `job = None` fallthrough.
		default:
			return fmt.Errorf("lookup cron definition by handler: %w", err)
		}
	}

	merged, err := mergeParams(baseParams, msg.Params)
	if err != nil {
		return fmt.Errorf("merge params: %w", err)
	}

	var executionID int64
	err = store.RunInTransaction(ctx, false, func(txCtx context.Context) error {
		var err error
		executionID, err = store.InsertQueueExecution(txCtx, d.engine.Name(), jobID, msg.HandlerName, merged, maxRetry, timeoutSeconds)
		return err
	}, d.engine)
	if err != nil {
		return fmt.Errorf("create event execution: %w", err)
	}

	d.logger.InfoContext(ctx, "created event execution",
		slog.Int64("execution_id", executionID), slog.String("handler_name", msg.HandlerName),
		slog.Any("idempotency_key", msg.Handle))
	events.PublishCreated(ctx, d.bus, events.ExecutionCreated{
		ExecutionID: executionID,
		JobID:       jobID,
		HandlerName: msg.HandlerName,
		ScheduledAt: time.Now().UTC(),
	})
	return nil
}

// mergeParams JSON-decodes base and override (both executions.handler_params
// -shaped JSON objects, "" treated as "{}"), merges override over base
// (override wins on conflicting keys, spec.md §4.5 point 2), and
// re-encodes the result.
func mergeParams(base, override string) (string, error) {
	baseMap := map[string]any{}
	if base != "" {
		if err := json.Unmarshal([]byte(base), &baseMap); err != nil {
			return "", fmt.Errorf("unmarshal base params: %w", err)
		}
	}
	if override != "" {
		overrideMap := map[string]any{}
		if err := json.Unmarshal([]byte(override), &overrideMap); err != nil {
			return "", fmt.Errorf("unmarshal override params: %w", err)
		}
		for k, v := range overrideMap {
			baseMap[k] = v
		}
	}
	merged, err := json.Marshal(baseMap)
	if err != nil {
		return "", fmt.Errorf("marshal merged params: %w", err)
	}
	return string(merged), nil
}
