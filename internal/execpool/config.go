// Package execpool implements the claim/execute side of the pipeline: Pool
// polls PENDING executions and hands each to a bounded number of concurrent
// Executor runs, grounded on original_source/worker/main.py's WorkerPool and
// worker/executor.py's Executor.
package execpool

import (
	"fmt"
	"time"
)

// Config configures Pool, mirroring original_source/worker/main.py's
// WorkerConfig.
type Config struct {
	Database        string        `mapstructure:"database" validate:"required"`
	PoolSize        int           `mapstructure:"pool_size"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	ClaimBatchSize  int           `mapstructure:"claim_batch_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Default applies gaz config.Defaulter defaults.
func (c *Config) Default() {
	if c.Database == "" {
		c.Database = "default"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 5
	}
	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.ClaimBatchSize == 0 {
		c.ClaimBatchSize = 10
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Validate implements gaz config.Validator.
func (c *Config) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("execpool: pool_size must be at least 1, got %d", c.PoolSize)
	}
	if c.ClaimBatchSize < 1 {
		return fmt.Errorf("execpool: claim_batch_size must be at least 1, got %d", c.ClaimBatchSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("execpool: poll_interval must be positive, got %s", c.PollInterval)
	}
	return nil
}
