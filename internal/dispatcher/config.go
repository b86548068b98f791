// Package dispatcher implements the two ways executions enter the system:
// CronDispatcher polls enabled cron definitions and materializes PENDING
// rows at their fire times, and QueueDispatcher consumes an external queue
// adapter and does the same for event-originated work. Both are grounded on
// original_source/dispatcher/main.py and dispatcher/queue/main.py, and both
// implement worker.Worker (OnStart/OnStop/Name) so gaz's worker.Manager
// supervises them with panic recovery and restart backoff.
package dispatcher

import (
	"fmt"
	"time"
)

// CronConfig configures CronDispatcher, mirroring
// original_source/dispatcher/model/dispatcher.py's DispatcherConfig.
type CronConfig struct {
	Database        string        `mapstructure:"database" validate:"required"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxSleep        time.Duration `mapstructure:"max_sleep"`
	MinCronInterval time.Duration `mapstructure:"min_cron_interval"`
}

// Default applies gaz config.Defaulter defaults, matching the original's
// Pydantic field defaults (poll_interval_seconds=60, max_sleep_seconds=300,
// min_cron_interval_seconds=60).
func (c *CronConfig) Default() {
	if c.Database == "" {
		c.Database = "default"
	}
	if c.PollInterval == 0 {
		c.PollInterval = 60 * time.Second
	}
	if c.MaxSleep == 0 {
		c.MaxSleep = 300 * time.Second
	}
	if c.MinCronInterval == 0 {
		c.MinCronInterval = 60 * time.Second
	}
}

// Validate implements gaz config.Validator, reproducing the Pydantic
// ge/le bounds the original config model declares.
func (c *CronConfig) Validate() error {
	if c.PollInterval < 10*time.Second || c.PollInterval > 600*time.Second {
		return fmt.Errorf("dispatcher: poll_interval must be between 10s and 600s, got %s", c.PollInterval)
	}
	if c.MaxSleep < 60*time.Second || c.MaxSleep > 600*time.Second {
		return fmt.Errorf("dispatcher: max_sleep must be between 60s and 600s, got %s", c.MaxSleep)
	}
	if c.MinCronInterval < 60*time.Second || c.MinCronInterval > time.Hour {
		return fmt.Errorf("dispatcher: min_cron_interval must be between 60s and 1h, got %s", c.MinCronInterval)
	}
	return nil
}

// QueueConfig configures QueueDispatcher, mirroring
// original_source/dispatcher/queue/model/queue.py's QueueDispatcherConfig.
type QueueConfig struct {
	Database string `mapstructure:"database" validate:"required"`
}

// Default applies gaz config.Defaulter defaults.
func (c *QueueConfig) Default() {
	if c.Database == "" {
		c.Database = "default"
	}
}
