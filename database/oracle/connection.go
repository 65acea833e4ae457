// Package oracle opens Oracle connections for querykit through the pure Go go-ora driver.
package oracle

import (
	"context"
	"database/sql"
	"fmt"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/internal/sqlconn"
	"github.com/gaborage/querykit/database/types"
	"github.com/gaborage/querykit/logger"
)

var (
	openOracleDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("oracle", dsn)
	}
	pingOracleDB = func(ctx context.Context, db *sql.DB) error {
		return db.PingContext(ctx)
	}
)

// BuildDSN renders the go-ora URL for cfg. A service name is preferred over a SID,
// and the database name is the last fallback.
func BuildDSN(cfg *config.DatabaseConfig) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}

	service := cfg.Oracle.Service
	switch {
	case service.Name != "":
		return go_ora.BuildUrl(cfg.Host, cfg.Port, service.Name, cfg.Username, cfg.Password, nil)
	case service.SID != "":
		return go_ora.BuildUrl(cfg.Host, cfg.Port, "", cfg.Username, cfg.Password, map[string]string{"SID": service.SID})
	default:
		return go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, nil)
	}
}

// NewConnection opens and pings an Oracle pool configured from cfg.
func NewConnection(cfg *config.DatabaseConfig, log logger.Logger) (types.Interface, error) {
	db, err := openOracleDB(BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open Oracle connection: %w", err)
	}
	sqlconn.ConfigurePool(db, cfg)

	if err := sqlconn.Ping(db, pingOracleDB, types.Oracle, log); err != nil {
		return nil, fmt.Errorf("failed to ping Oracle database: %w", err)
	}

	ev := log.Info().Str("host", cfg.Host).Int("port", cfg.Port)
	switch {
	case cfg.Oracle.Service.Name != "":
		ev = ev.Str("service_name", cfg.Oracle.Service.Name)
	case cfg.Oracle.Service.SID != "":
		ev = ev.Str("sid", cfg.Oracle.Service.SID)
	default:
		ev = ev.Str("database", cfg.Database)
	}
	ev.Msg("Connected to Oracle database")

	return sqlconn.New(db, types.Oracle, log), nil
}
