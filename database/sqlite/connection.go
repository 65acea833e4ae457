// Package sqlite opens SQLite databases for querykit through mattn/go-sqlite3 (cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/internal/sqlconn"
	"github.com/gaborage/querykit/database/types"
	"github.com/gaborage/querykit/logger"
)

const memoryPath = ":memory:"

var (
	openSQLiteDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("sqlite3", dsn)
	}
	pingSQLiteDB = func(ctx context.Context, db *sql.DB) error {
		return db.PingContext(ctx)
	}
)

func isMemory(cfg *config.DatabaseConfig) bool {
	return cfg.ConnectionString == "" && (cfg.Path == "" || cfg.Path == memoryPath)
}

// BuildDSN renders the driver DSN for cfg with foreign keys enforced. An in-memory
// database uses a shared cache so every pooled connection sees the same data.
func BuildDSN(cfg *config.DatabaseConfig) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}
	if isMemory(cfg) {
		return "file::memory:?cache=shared&_foreign_keys=on"
	}
	path := cfg.Path
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

// NewConnection opens and pings a SQLite database configured from cfg.
func NewConnection(cfg *config.DatabaseConfig, log logger.Logger) (types.Interface, error) {
	db, err := openSQLiteDB(BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	sqlconn.ConfigurePool(db, cfg)
	if isMemory(cfg) {
		// the shared in-memory database is dropped once its last connection closes
		db.SetMaxIdleConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	}

	if err := sqlconn.Ping(db, pingSQLiteDB, types.SQLite, log); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	log.Info().Str("path", cfg.Path).Msg("Opened SQLite database")

	return sqlconn.New(db, types.SQLite, log), nil
}
