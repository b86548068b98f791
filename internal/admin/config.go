// Package admin implements the read/write HTTP surface over cron
// definitions and executions: spec.md §6's "collaborator, spec'd for
// completeness of the contract boundary" API, routed with the standard
// library's 1.22+ method-and-wildcard ServeMux and wrapped in
// github.com/rs/cors, grounded on
// original_source/admin/api/handler/{cron,job}.py and
// admin/api/model/{common,cron,job}.py.
package admin

import "fmt"

// Config configures the admin API's routing and CORS policy.
type Config struct {
	Database       string   `mapstructure:"database" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RecentBuffer   int      `mapstructure:"recent_buffer"`
}

// Default applies gaz config.Defaulter defaults.
func (c *Config) Default() {
	if c.Database == "" {
		c.Database = "default"
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RecentBuffer == 0 {
		c.RecentBuffer = 100
	}
}

// Validate implements gaz config.Validator.
func (c *Config) Validate() error {
	if c.RecentBuffer < 1 {
		return fmt.Errorf("admin: recent_buffer must be at least 1, got %d", c.RecentBuffer)
	}
	return nil
}
