// Package events defines the execution lifecycle events published on gaz's
// eventbus.EventBus, and thin wrappers around eventbus.Publish so callers
// never need the generic instantiation at the call site. Published only
// after a transaction that performed the corresponding transition commits,
// so a rolled-back transition never produces a phantom event.
package events

import (
	"context"
	"time"

	"github.com/petabytecl/jobu/eventbus"
	"github.com/petabytecl/jobu/internal/domain"
)

// ExecutionCreated is published once a PENDING row has been durably
// inserted, by either dispatcher.
type ExecutionCreated struct {
	ExecutionID int64
	JobID       *int64
	HandlerName string
	ScheduledAt time.Time
}

// EventName implements eventbus.Event.
func (ExecutionCreated) EventName() string { return "ExecutionCreated" }

// ExecutionClaimed is published once execpool.Pool wins the claim race on a
// row and transitions it to RUNNING.
type ExecutionClaimed struct {
	ExecutionID int64
	HandlerName string
	ClaimedAt   time.Time
}

// EventName implements eventbus.Event.
func (ExecutionClaimed) EventName() string { return "ExecutionClaimed" }

// ExecutionFinished is published once an execution reaches a terminal
// status (SUCCESS, FAILED, TIMEOUT) or is sent back to PENDING for retry.
type ExecutionFinished struct {
	ExecutionID  int64
	HandlerName  string
	Status       domain.Status
	Retried      bool
	ErrorMessage *string
	FinishedAt   time.Time
}

// EventName implements eventbus.Event.
func (ExecutionFinished) EventName() string { return "ExecutionFinished" }

// PublishCreated publishes an ExecutionCreated on bus. A nil bus is a
// no-op, so callers that run without an eventbus wired (most unit tests)
// need no special casing.
func PublishCreated(ctx context.Context, bus *eventbus.EventBus, e ExecutionCreated) {
	if bus == nil {
		return
	}
	eventbus.Publish(ctx, bus, e, "")
}

// PublishClaimed publishes an ExecutionClaimed on bus.
func PublishClaimed(ctx context.Context, bus *eventbus.EventBus, e ExecutionClaimed) {
	if bus == nil {
		return
	}
	eventbus.Publish(ctx, bus, e, "")
}

// PublishFinished publishes an ExecutionFinished on bus.
func PublishFinished(ctx context.Context, bus *eventbus.EventBus, e ExecutionFinished) {
	if bus == nil {
		return
	}
	eventbus.Publish(ctx, bus, e, "")
}
