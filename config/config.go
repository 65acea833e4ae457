// Package config loads querykit configuration from defaults, YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultFile is the YAML file read by Load when present.
	DefaultFile = "querykit.yaml"
	// EnvPrefix scopes environment overrides, e.g. QUERYKIT_DATABASE_TYPE.
	EnvPrefix = "QUERYKIT_"
)

// Options selects configuration sources for LoadFrom. Sources apply in order:
// defaults, Files, YAML, environment.
type Options struct {
	Files []string
	// YAML is parsed after Files; used mainly by tests.
	YAML []byte
	// SkipEnv disables environment overrides.
	SkipEnv   bool
	EnvPrefix string
}

// Load reads defaults, the optional querykit.yaml and QUERYKIT_ environment variables.
func Load() (*Config, error) {
	return LoadFrom(Options{Files: []string{DefaultFile}})
}

// LoadFrom builds a validated Config from the given sources. Missing files are skipped.
func LoadFrom(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	for _, path := range opts.Files {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if len(opts.YAML) > 0 {
		if err := k.Load(rawbytes.Provider(opts.YAML), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}

	if !opts.SkipEnv {
		prefix := opts.EnvPrefix
		if prefix == "" {
			prefix = EnvPrefix
		}
		if err := k.Load(env.Provider(".", env.Opt{
			Prefix: prefix,
			TransformFunc: func(key, value string) (string, any) {
				// QUERYKIT_DATABASE_QUERY_SLOW_THRESHOLD -> database.query.slow.threshold
				key = strings.ToLower(strings.TrimPrefix(key, prefix))
				return strings.ReplaceAll(key, "_", "."), value
			},
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "querykit",
		"app.version": "v0.1.0",
		"app.env":     EnvDevelopment,

		"database.type":                  "sqlite",
		"database.path":                  ":memory:",
		"database.pool.max.connections":  25,
		"database.pool.idle.connections": 2,
		"database.pool.idle.time":        "5m",
		"database.pool.lifetime.max":     "30m",
		"database.query.slow.enabled":    true,
		"database.query.slow.threshold":  defaultSlowQueryThreshold.String(),
		"database.query.slow.rate":       1.0,
		"database.query.log.parameters":  false,
		"database.query.log.max":         defaultMaxQueryLength,
		"database.query.strict":          false,
		"database.timestamps.enabled":    true,
		"database.timestamps.created":    "created_at",
		"database.timestamps.updated":    "updated_at",
		"database.postgresql.sslmode":    "disable",

		"log.level":  "info",
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
