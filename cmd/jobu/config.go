package main

import (
	"fmt"
	"time"

	"github.com/petabytecl/jobu/health"
	"github.com/petabytecl/jobu/internal/admin"
	"github.com/petabytecl/jobu/internal/dispatcher"
	"github.com/petabytecl/jobu/internal/execpool"
	"github.com/petabytecl/jobu/internal/store"
	"github.com/petabytecl/jobu/logger"
	serverhttp "github.com/petabytecl/jobu/server/http"
)

// AppConfig is the top-level configuration struct loaded via config.Manager,
// aggregating every component's own config type the way gaz's own multi-
// service examples compose per-package config structs into one root.
type AppConfig struct {
	Log    logger.Config     `mapstructure:"log"`
	HTTP   serverhttp.Config `mapstructure:"http"`
	Health health.Config     `mapstructure:"health"`

	// StoreDriver selects which store.Engine backs the process: "sqlite"
	// (the file-backed engine, default) or "postgres" (the remote engine).
	StoreDriver string               `mapstructure:"store_driver" validate:"required,oneof=sqlite postgres"`
	SQLite      store.SQLiteConfig   `mapstructure:"sqlite"`
	Postgres    store.PostgresConfig `mapstructure:"postgres"`

	Cron     dispatcher.CronConfig  `mapstructure:"cron"`
	Queue    dispatcher.QueueConfig `mapstructure:"queue"`
	ExecPool execpool.Config        `mapstructure:"execpool"`
	Admin    admin.Config           `mapstructure:"admin"`

	// QueueBufferSize sizes the in-process LocalAdapter broker used by the
	// queue-dispatcher subcommand (§3's "ship one concrete implementation
	// behind the abstraction" adapter).
	QueueBufferSize int `mapstructure:"queue_buffer_size"`
}

// Default implements config.Defaulter. LoadInto only calls Default() on the
// top-level target, so it must cascade into every embedded config by hand.
func (c *AppConfig) Default() {
	c.Log.SetDefaults()

	if c.StoreDriver == "" {
		c.StoreDriver = "sqlite"
	}
	if c.SQLite.Name == "" {
		c.SQLite.Name = "default"
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "jobu.db"
	}
	if c.SQLite.PoolSize == 0 {
		c.SQLite.PoolSize = 5
	}
	if c.SQLite.PoolTimeout == 0 {
		c.SQLite.PoolTimeout = 30 * time.Second
	}
	if c.SQLite.BusyTimeout == 0 {
		c.SQLite.BusyTimeout = 5 * time.Second
	}
	if c.Postgres.Name == "" {
		c.Postgres.Name = "default"
	}
	if c.Postgres.PoolSize == 0 {
		c.Postgres.PoolSize = 10
	}
	if c.Postgres.PoolTimeout == 0 {
		c.Postgres.PoolTimeout = 30 * time.Second
	}

	c.Cron.Default()
	c.Queue.Default()
	c.ExecPool.Default()

	c.Admin.Default()

	if c.HTTP.Port == 0 {
		c.HTTP = serverhttp.DefaultConfig()
	}
	if c.Health.Port == 0 {
		c.Health = health.DefaultConfig()
	}
	if c.QueueBufferSize == 0 {
		c.QueueBufferSize = 100
	}
}

// Validate implements config.Validator, cascading into the Validate of Log,
// Cron, ExecPool and Admin; HTTP, Health and Queue are not validated here
// (struct-tag validation already covers the
// `validate:"required"` fields, this layer covers cross-field/range rules).
func (c *AppConfig) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.StoreDriver == "postgres" && c.Postgres.DSN == "" {
		return fmt.Errorf("config: postgres.dsn is required when store_driver=postgres")
	}
	if err := c.Cron.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.ExecPool.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Admin.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
