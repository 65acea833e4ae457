package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the loaded, validated configuration. Treat it as immutable once returned
// from Load; constructors take it by value or pointer and never modify it.
type Config struct {
	App      AppConfig      `koanf:"app" json:"app" yaml:"app"`
	Database DatabaseConfig `koanf:"database" json:"database" yaml:"database"`
	Log      LogConfig      `koanf:"log" json:"log" yaml:"log"`

	k *koanf.Koanf `json:"-" yaml:"-"`
}

// AppConfig identifies the embedding application in logs and telemetry.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" validate:"required"`
	Version string `koanf:"version" json:"version" yaml:"version" validate:"required"`
	Env     string `koanf:"env" json:"env" yaml:"env" validate:"oneof=development staging production"`
}

// DatabaseConfig holds connection and query engine settings.
type DatabaseConfig struct {
	Type     string `koanf:"type" json:"type" yaml:"type" validate:"required,oneof=mysql sqlite postgresql oracle"`
	Host     string `koanf:"host" json:"host" yaml:"host"`
	Port     int    `koanf:"port" json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Database string `koanf:"database" json:"database" yaml:"database"`
	Username string `koanf:"username" json:"username" yaml:"username"`
	Password string `koanf:"password" json:"password" yaml:"password"`
	// Path is the SQLite database file (":memory:" for an in-memory database).
	Path string `koanf:"path" json:"path" yaml:"path"`

	// ConnectionString takes precedence over the individual fields when set.
	ConnectionString string `koanf:"connectionstring" json:"connectionstring" yaml:"connectionstring"`

	Pool       PoolConfig       `koanf:"pool" json:"pool" yaml:"pool"`
	Query      QueryConfig      `koanf:"query" json:"query" yaml:"query"`
	Timestamps TimestampConfig  `koanf:"timestamps" json:"timestamps" yaml:"timestamps"`
	PostgreSQL PostgreSQLConfig `koanf:"postgresql" json:"postgresql" yaml:"postgresql"`
	Oracle     OracleConfig     `koanf:"oracle" json:"oracle" yaml:"oracle"`
}

// PoolConfig holds database/sql pool settings applied by the connectors.
type PoolConfig struct {
	Max      PoolMaxConfig  `koanf:"max" json:"max" yaml:"max"`
	Idle     PoolIdleConfig `koanf:"idle" json:"idle" yaml:"idle"`
	Lifetime LifetimeConfig `koanf:"lifetime" json:"lifetime" yaml:"lifetime"`
}

type PoolMaxConfig struct {
	Connections int `koanf:"connections" json:"connections" yaml:"connections" validate:"gte=0"`
}

type PoolIdleConfig struct {
	Connections int           `koanf:"connections" json:"connections" yaml:"connections" validate:"gte=0"`
	Time        time.Duration `koanf:"time" json:"time" yaml:"time"`
}

type LifetimeConfig struct {
	Max time.Duration `koanf:"max" json:"max" yaml:"max"`
}

// QueryConfig holds statement tracking and safety settings.
type QueryConfig struct {
	Slow SlowQueryConfig `koanf:"slow" json:"slow" yaml:"slow"`
	Log  QueryLogConfig  `koanf:"log" json:"log" yaml:"log"`
	// Strict refuses UPDATE and DELETE statements that carry no WHERE clause.
	Strict bool `koanf:"strict" json:"strict" yaml:"strict"`
}

// SlowQueryConfig controls slow statement warnings.
type SlowQueryConfig struct {
	Enabled   bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Threshold time.Duration `koanf:"threshold" json:"threshold" yaml:"threshold"`
	// Rate caps slow statement warnings per second; 0 disables throttling.
	Rate float64 `koanf:"rate" json:"rate" yaml:"rate" validate:"gte=0"`
}

// QueryLogConfig controls how statements are rendered in logs.
type QueryLogConfig struct {
	Parameters bool `koanf:"parameters" json:"parameters" yaml:"parameters"`
	MaxLength  int  `koanf:"max" json:"max" yaml:"max" validate:"gte=0"`
}

// TimestampConfig names the columns maintained automatically on insert and update.
type TimestampConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Created string `koanf:"created" json:"created" yaml:"created"`
	Updated string `koanf:"updated" json:"updated" yaml:"updated"`
}

// PostgreSQLConfig holds PostgreSQL-specific settings.
type PostgreSQLConfig struct {
	Schema  string `koanf:"schema" json:"schema" yaml:"schema"`
	SSLMode string `koanf:"sslmode" json:"sslmode" yaml:"sslmode"`
}

// OracleConfig holds Oracle-specific settings.
type OracleConfig struct {
	Service ServiceConfig `koanf:"service" json:"service" yaml:"service"`
}

// ServiceConfig holds Oracle service connection settings.
type ServiceConfig struct {
	Name string `koanf:"name" json:"name" yaml:"name"`
	SID  string `koanf:"sid" json:"sid" yaml:"sid"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}
