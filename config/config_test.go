package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mysqlYAML = `
app:
  name: orders
  env: staging
database:
  type: mysql
  host: db.internal
  port: 3306
  database: shop
  username: app
  password: secret
  query:
    strict: true
    slow:
      threshold: 50ms
log:
  level: debug
`

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(Options{SkipEnv: true})
	require.NoError(t, err)

	assert.Equal(t, "querykit", cfg.App.Name)
	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, defaultSlowQueryThreshold, cfg.Database.Query.Slow.Threshold)
	assert.Equal(t, defaultMaxQueryLength, cfg.Database.Query.Log.MaxLength)
	assert.False(t, cfg.Database.Query.Strict)
	assert.Equal(t, 5*time.Minute, cfg.Database.Pool.Idle.Time)
	assert.Equal(t, TimestampConfig{Enabled: true, Created: "created_at", Updated: "updated_at"}, cfg.Database.Timestamps)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromYAML(t *testing.T) {
	cfg, err := LoadFrom(Options{YAML: []byte(mysqlYAML), SkipEnv: true})
	require.NoError(t, err)

	assert.Equal(t, "orders", cfg.App.Name)
	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.True(t, cfg.Database.Query.Strict)
	assert.Equal(t, 50*time.Millisecond, cfg.Database.Query.Slow.Threshold)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "querykit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(mysqlYAML), 0o600))

	cfg, err := LoadFrom(Options{Files: []string{filepath.Join(dir, "missing.yaml"), path}, SkipEnv: true})
	require.NoError(t, err)
	assert.Equal(t, "shop", cfg.Database.Database)
}

func TestLoadFromEnvironmentOverrides(t *testing.T) {
	t.Setenv("QUERYKIT_DATABASE_HOST", "override.internal")
	t.Setenv("QUERYKIT_DATABASE_QUERY_STRICT", "false")
	t.Setenv("QUERYKIT_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(Options{YAML: []byte(mysqlYAML)})
	require.NoError(t, err)

	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.False(t, cfg.Database.Query.Strict)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFromInvalidYAML(t *testing.T) {
	_, err := LoadFrom(Options{YAML: []byte("database: [unclosed"), SkipEnv: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse yaml")
}

func TestLoadFromRejectsInvalidConfig(t *testing.T) {
	_, err := LoadFrom(Options{YAML: []byte("database:\n  type: mongodb\n"), SkipEnv: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.type")
}

func TestAccessors(t *testing.T) {
	cfg, err := LoadFrom(Options{YAML: []byte(mysqlYAML), SkipEnv: true})
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.GetString("database.type"))
	assert.Equal(t, "fallback", cfg.GetString("custom.missing", "fallback"))
	assert.Equal(t, 3306, cfg.GetInt("database.port"))
	assert.Equal(t, 7, cfg.GetInt("custom.missing", 7))
	assert.True(t, cfg.GetBool("database.query.strict"))
	assert.Equal(t, 50*time.Millisecond, cfg.GetDuration("database.query.slow.threshold"))
	assert.True(t, cfg.Exists("database.host"))
	assert.False(t, cfg.Exists("custom.missing"))
	assert.Equal(t, "db.internal", cfg.All()["database.host"])

	_, err = cfg.GetRequiredString("custom.missing")
	assert.Error(t, err)
}

func TestAccessorsWithoutKoanf(t *testing.T) {
	var cfg Config
	assert.Equal(t, "x", cfg.GetString("a", "x"))
	assert.False(t, cfg.Exists("a"))
	assert.Empty(t, cfg.All())
}
