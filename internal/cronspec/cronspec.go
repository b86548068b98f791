// Package cronspec parses standard 5-field cron expressions and computes
// fire times either side of a reference time, wrapping
// github.com/robfig/cron/v3 (forward-only Schedule.Next) with a bounded
// backward search for Prev.
package cronspec

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// MinInterval is the default minimum inter-fire interval enforced when a
// caller has no operator-configured value of its own (spec.md §2's cron
// definition invariant and §4.4's dialect note; dispatcher.CronConfig's
// MinCronInterval overrides this at runtime).
const MinInterval = 60 * time.Second

// maxLookback bounds the backward search Prev performs: a schedule with no
// fire in five years is treated as if it failed to parse.
const maxLookback = 5 * 365 * 24 * time.Hour

// ErrNoPriorFire is returned by Prev when no fire time is found within
// maxLookback of ref.
var ErrNoPriorFire = errors.New("cronspec: no prior fire time within lookback window")

// ErrIntervalTooShort is returned by Parse when the expression's earliest
// two fires are closer together than the minInterval passed to Parse.
var ErrIntervalTooShort = errors.New("cronspec: fire interval is shorter than the minimum")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Schedule wraps a parsed cron expression.
type Schedule struct {
	expr     string
	schedule cron.Schedule
}

// Parse parses a standard 5-field cron expression and validates its minimum
// fire interval against minInterval. Returns ErrIntervalTooShort if two
// successive fires from the current moment are closer together than
// minInterval. Callers with no operator-configured minimum should pass
// MinInterval.
func Parse(expr string, minInterval time.Duration) (*Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("cronspec: parse %q: %w", expr, err)
	}
	s := &Schedule{expr: expr, schedule: sched}
	if err := s.validateMinInterval(minInterval); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schedule) validateMinInterval(minInterval time.Duration) error {
	now := time.Now().UTC()
	first := s.schedule.Next(now)
	second := s.schedule.Next(first)
	if second.Sub(first) < minInterval {
		return fmt.Errorf("%w: %q fires every %s", ErrIntervalTooShort, s.expr, second.Sub(first))
	}
	return nil
}

// Next returns the first fire time strictly after ref.
func (s *Schedule) Next(ref time.Time) time.Time {
	return s.schedule.Next(ref)
}

// Prev returns the last fire time at or before ref, found by a doubling
// backward search: starting from a one-hour lookback window, walk forward
// with Next from ref.Add(-window) until a fire exceeds ref, keeping the
// last one that doesn't; double window (up to maxLookback) and retry if no
// fire is found at all in the window. Returns ErrNoPriorFire if nothing
// fires within maxLookback of ref.
func (s *Schedule) Prev(ref time.Time) (time.Time, error) {
	window := time.Hour
	for window <= maxLookback {
		if t, ok := s.lastFireInWindow(ref, window); ok {
			return t, nil
		}
		window *= 2
	}
	return time.Time{}, ErrNoPriorFire
}

func (s *Schedule) lastFireInWindow(ref time.Time, window time.Duration) (time.Time, bool) {
	cursor := ref.Add(-window)
	var last time.Time
	found := false
	for {
		next := s.schedule.Next(cursor)
		if next.After(ref) {
			break
		}
		last = next
		found = true
		cursor = next
	}
	return last, found
}

// String returns the original expression text.
func (s *Schedule) String() string {
	return s.expr
}
