package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{Name: "svc", Version: "v1", Env: EnvProduction},
		Database: DatabaseConfig{
			Type: "postgresql",
			Host: "localhost",
			Port: 5432,
			Pool: PoolConfig{
				Max:  PoolMaxConfig{Connections: 10},
				Idle: PoolIdleConfig{Connections: 2},
			},
			Query: QueryConfig{
				Slow: SlowQueryConfig{Enabled: true, Threshold: time.Second},
			},
			Timestamps: TimestampConfig{Enabled: true, Created: "created_at", Updated: "updated_at"},
		},
		Log: LogConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing_app_name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: "app.name"},
		{name: "bad_env", mutate: func(c *Config) { c.App.Env = "qa" }, wantErr: "app.env"},
		{name: "bad_vendor", mutate: func(c *Config) { c.Database.Type = "mssql" }, wantErr: "database.type"},
		{name: "bad_log_level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "port_out_of_range", mutate: func(c *Config) { c.Database.Port = 70000 }, wantErr: "database.port"},
		{name: "missing_host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: "requires host"},
		{name: "missing_port", mutate: func(c *Config) { c.Database.Port = 0 }, wantErr: "requires port"},
		{name: "connection_string_skips_host", mutate: func(c *Config) {
			c.Database.Host = ""
			c.Database.ConnectionString = "postgres://u:p@h/db"
		}},
		{name: "sqlite_needs_path", mutate: func(c *Config) { c.Database.Type = "sqlite" }, wantErr: "requires path"},
		{name: "oracle_needs_service", mutate: func(c *Config) { c.Database.Type = "oracle" }, wantErr: "service name"},
		{name: "idle_exceeds_max", mutate: func(c *Config) { c.Database.Pool.Idle.Connections = 20 }, wantErr: "idle connections"},
		{name: "slow_threshold_zero", mutate: func(c *Config) { c.Database.Query.Slow.Threshold = 0 }, wantErr: "slow query threshold"},
		{name: "timestamps_unnamed", mutate: func(c *Config) { c.Database.Timestamps.Updated = "" }, wantErr: "timestamp column"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
