package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together as a joined error with descriptive
// field paths.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// server.max_body_size must be positive.
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none", "bearer":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\" or \"bearer\", got %q", c.Auth.Type))
	}

	// If auth.type is "bearer", a secret must be available.
	if c.Auth.Type == "bearer" {
		if c.Auth.Secret == "" && c.Auth.SecretFile == "" {
			errs = append(errs, fmt.Errorf("auth.secret or auth.secret_file is required when auth.type is \"bearer\""))
		}
	}

	// An enabled metrics endpoint needs a mountable path.
	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	// logging.level must be a known value.
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be \"debug\", \"info\", \"warn\", or \"error\", got %q", c.Logging.Level))
	}

	// logging.format must be a known value.
	switch c.Logging.Format {
	case "text", "json":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
