package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings a command needs. Mode is the command name:
// serve, kpi, simulate, export or snapshots.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		errs = append(errs, c.validateSimulation()...)
		errs = append(errs, c.validateStore()...)
	case "simulate":
		errs = append(errs, c.validateSimulation()...)
	case "snapshots":
		errs = append(errs, c.validateStore()...)
	case "kpi", "export":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Data.TimeoutSecs < 0 {
		errs = append(errs, "data.timeout_secs must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateSimulation() []string {
	var errs []string
	s := c.Simulation
	if s.MaxDraws <= 0 {
		errs = append(errs, "simulation.max_draws must be > 0")
	}
	if s.DefaultDraws <= 0 || (s.MaxDraws > 0 && s.DefaultDraws > s.MaxDraws) {
		errs = append(errs, fmt.Sprintf("simulation.default_draws must be in 1..%d", s.MaxDraws))
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite", "postgres", "postgresql":
	default:
		return []string{fmt.Sprintf("store.driver %q is not one of sqlite, postgres", c.Store.Driver)}
	}
	if c.Store.DatabaseURL == "" {
		return []string{"store.database_url is required"}
	}
	return nil
}
