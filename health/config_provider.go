package health

// HealthConfigProvider is implemented by config structs that provide health settings.
// No code in this module checks for it; implementing it registers nothing.
//
// Example:
//
//	type AppConfig struct {
//	    Port   int
//	    Health health.Config
//	}
//
//	func (c *AppConfig) HealthConfig() health.Config {
//	    return c.Health
//	}
type HealthConfigProvider interface {
	HealthConfig() Config
}
