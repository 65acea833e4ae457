package config

import (
	"fmt"
	"time"
)

// GetString returns the value at key, or the first default when the key is absent.
func (c *Config) GetString(key string, defaultVal ...string) string {
	if c.k == nil || !c.k.Exists(key) {
		return optionalDefault("", defaultVal...)
	}
	return c.k.String(key)
}

func (c *Config) GetInt(key string, defaultVal ...int) int {
	if c.k == nil || !c.k.Exists(key) {
		return optionalDefault(0, defaultVal...)
	}
	return c.k.Int(key)
}

func (c *Config) GetBool(key string, defaultVal ...bool) bool {
	if c.k == nil || !c.k.Exists(key) {
		return optionalDefault(false, defaultVal...)
	}
	return c.k.Bool(key)
}

func (c *Config) GetDuration(key string, defaultVal ...time.Duration) time.Duration {
	if c.k == nil || !c.k.Exists(key) {
		return optionalDefault(time.Duration(0), defaultVal...)
	}
	return c.k.Duration(key)
}

// GetRequiredString returns an error when key is missing or empty.
func (c *Config) GetRequiredString(key string) (string, error) {
	v := c.GetString(key)
	if v == "" {
		return "", fmt.Errorf("required configuration key %q is missing", key)
	}
	return v, nil
}

// Exists reports whether key was set by any source.
func (c *Config) Exists(key string) bool {
	return c.k != nil && c.k.Exists(key)
}

// All returns a flattened copy of every loaded key.
func (c *Config) All() map[string]any {
	if c.k == nil {
		return map[string]any{}
	}
	return c.k.All()
}

func optionalDefault[T any](zero T, overrides ...T) T {
	if len(overrides) > 0 {
		return overrides[0]
	}
	return zero
}
