package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	defaultSlowQueryThreshold = 200 * time.Millisecond
	defaultMaxQueryLength     = 1000
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then rules that span several fields.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if err := validateDatabase(&cfg.Database); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	return nil
}

func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func validateDatabase(cfg *DatabaseConfig) error {
	if cfg.ConnectionString == "" {
		switch cfg.Type {
		case "sqlite":
			if cfg.Path == "" {
				return fmt.Errorf("sqlite requires path or connection string")
			}
		case "mysql", "postgresql", "oracle":
			if cfg.Host == "" {
				return fmt.Errorf("%s requires host or connection string", cfg.Type)
			}
			if cfg.Port == 0 {
				return fmt.Errorf("%s requires port", cfg.Type)
			}
		}
	}

	if cfg.Type == "oracle" && cfg.ConnectionString == "" {
		if cfg.Oracle.Service.Name == "" && cfg.Oracle.Service.SID == "" && cfg.Database == "" {
			return fmt.Errorf("oracle requires service name, sid or database")
		}
	}

	if cfg.Pool.Max.Connections > 0 && cfg.Pool.Idle.Connections > cfg.Pool.Max.Connections {
		return fmt.Errorf("idle connections (%d) exceed max connections (%d)",
			cfg.Pool.Idle.Connections, cfg.Pool.Max.Connections)
	}

	if cfg.Query.Slow.Enabled && cfg.Query.Slow.Threshold <= 0 {
		return fmt.Errorf("slow query threshold must be positive when enabled")
	}

	if cfg.Timestamps.Enabled && (cfg.Timestamps.Created == "" || cfg.Timestamps.Updated == "") {
		return fmt.Errorf("timestamp column names are required when timestamps are enabled")
	}

	return nil
}
