// Package domain holds the scheduler's persistent entities and the
// execution state machine both dispatchers and the worker pool depend on.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel validation errors surfaced by the admin API as 400s.
var (
	ErrNameEmpty          = errors.New("domain: name must not be empty")
	ErrHandlerNameEmpty   = errors.New("domain: handler_name must not be empty")
	ErrMaxRetryRange      = errors.New("domain: max_retry must be between 0 and 10")
	ErrTimeoutRange       = errors.New("domain: timeout_seconds must be between 60 and 86400")
	ErrCronIntervalTooShort = errors.New("domain: cron interval too short")
)

const (
	MinMaxRetry = 0
	MaxMaxRetry = 10

	MinTimeoutSeconds = 60
	MaxTimeoutSeconds = 86400

	MinCronIntervalSeconds = 60
)

// CronDefinition is an admin-managed schedule: a cron expression bound to a
// handler name and its default parameters. Immutable once created except
// through admin mutation.
type CronDefinition struct {
	ID             int64
	Name           string
	Description    string
	CronExpression string
	HandlerName    string
	HandlerParams  string // JSON, stored as text
	IsEnabled      bool
	AllowOverlap   bool
	MaxRetry       int
	TimeoutSeconds int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the invariants spec.md §3 places on CronDefinition,
// excluding cron-expression parsing and minimum-interval enforcement which
// require a schedule parser (see internal/cronspec.Parse) and are
// therefore not duplicated here.
func (d *CronDefinition) Validate() error {
	if d.Name == "" {
		return ErrNameEmpty
	}
	if d.HandlerName == "" {
		return ErrHandlerNameEmpty
	}
	if d.MaxRetry < MinMaxRetry || d.MaxRetry > MaxMaxRetry {
		return fmt.Errorf("%w: got %d", ErrMaxRetryRange, d.MaxRetry)
	}
	if d.TimeoutSeconds < MinTimeoutSeconds || d.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("%w: got %d", ErrTimeoutRange, d.TimeoutSeconds)
	}
	return nil
}

// CronJob is the hydrated, read-only view of a CronDefinition used by the
// dispatcher loop (spec.md §3's "CronJob" in-memory value type).
type CronJob struct {
	CronDefinition
}
