// Package mysql opens MySQL connections for querykit through go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/internal/sqlconn"
	"github.com/gaborage/querykit/database/types"
	"github.com/gaborage/querykit/logger"
)

var (
	openMySQLDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("mysql", dsn)
	}
	pingMySQLDB = func(ctx context.Context, db *sql.DB) error {
		return db.PingContext(ctx)
	}
)

// BuildDSN renders the driver DSN for cfg. ConnectionString wins when set.
// Time values are parsed into time.Time.
func BuildDSN(cfg *config.DatabaseConfig) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}

	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

// NewConnection opens and pings a MySQL pool configured from cfg.
func NewConnection(cfg *config.DatabaseConfig, log logger.Logger) (types.Interface, error) {
	db, err := openMySQLDB(BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	sqlconn.ConfigurePool(db, cfg)

	if err := sqlconn.Ping(db, pingMySQLDB, types.MySQL, log); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to MySQL database")

	return sqlconn.New(db, types.MySQL, log), nil
}
