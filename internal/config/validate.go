package config

import (
	"errors"
	"fmt"
)

// Validate ensures the resolved configuration is usable. Violations are
// usage errors: the daemon reports them and exits without touching state.
func (c *Config) Validate() error {
	if c.ListenPort == 0 {
		return errors.New("listen port is required (pass --listen)")
	}
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("listen port %d out of range 1-65535", c.ListenPort)
	}
	if c.BasePort < 1 || c.BasePort > 65535 {
		return fmt.Errorf("base port %d out of range 1-65535", c.BasePort)
	}
	if c.DriverName == "" {
		return errors.New("driver name must not be empty")
	}
	switch c.Backend {
	case BackendSQLite, BackendJSONFile:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
