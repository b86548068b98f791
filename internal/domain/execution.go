package domain

import (
	"errors"
	"time"
)

// Status is the execution state machine: PENDING -> RUNNING -> terminal,
// with a retry-budget-gated terminal -> PENDING back-transition.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusTimeout Status = "TIMEOUT"
)

// IsTerminal reports whether s is SUCCESS, FAILED, or TIMEOUT.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusTimeout
}

// ErrInvalidTransition is returned by Execution.Retry/Terminal-state helpers
// when a transition is attempted from a state that does not permit it.
var ErrInvalidTransition = errors.New("domain: invalid execution state transition")

// Execution is one scheduled invocation of a handler, materialized as a row.
// HandlerName/HandlerParams/MaxRetry/TimeoutSeconds are snapshotted onto the
// row at insert time (from the cron definition for dispatcher-originated
// rows, from the message for queue-originated ones) rather than joined at
// claim time, so a row remains fully self-describing even after its
// cron_definitions parent is deleted (job_id set NULL) or was never
// registered (a queue message with no matching handler).
type Execution struct {
	ID             int64
	JobID          *int64 // nullable: queue-originated rows with no registered cron
	ScheduledTime  time.Time
	Status         Status
	HandlerName    string
	HandlerParams  string
	MaxRetry       int
	TimeoutSeconds int
	StartedAt      *time.Time
	FinishedAt     *time.Time
	RetryCount     int
	ErrorMessage   *string
	Result         *string
	CreatedAt      time.Time
}

// CanRetry reports whether a terminal execution with the given max_retry may
// transition back to PENDING: retry_count + 1 < max_retry.
func (e *Execution) CanRetry(maxRetry int) bool {
	return e.Status.IsTerminal() && e.Status != StatusSuccess && e.RetryCount+1 < maxRetry
}

// JobInfo is the claimed-execution value type the executor runs from: an
// Execution already carrying everything needed to invoke its handler.
type JobInfo = Execution

// QueueMessage is a unit of work received from the Queue Dispatcher's
// adapter, before it has been resolved against the cron-definition table.
type QueueMessage struct {
	HandlerName string
	Params      string // JSON
	JobID       *int64
	Handle      any // opaque broker handle, passed back to Complete/Abandon
}
