package handler

import (
	"context"
	"fmt"
	"time"
)

// SleepParamSeconds is the params key SleepHandler reads its sleep duration
// from. Missing or zero defaults to one second.
const SleepParamSeconds = "seconds"

// SleepHandler sleeps for a configurable duration, honoring ctx cancellation.
// It exists to drive the timeout/TIMEOUT branch of the execution state
// machine in tests: a sleep longer than the execution's timeout_seconds
// reliably produces a TIMEOUT terminal state.
type SleepHandler struct{}

// Execute implements Handler.
func (SleepHandler) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	seconds := 1.0
	if v, ok := params[SleepParamSeconds]; ok {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("handler: sleep: %q must be a number", SleepParamSeconds)
		}
		if f != 0 {
			seconds = f
		}
	}

	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return map[string]any{"slept_seconds": seconds}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
