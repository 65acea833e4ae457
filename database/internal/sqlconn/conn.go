// Package sqlconn adapts a *sql.DB to types.Interface. The vendor connector packages
// differ only in how they build the DSN and open the pool.
package sqlconn

import (
	"context"
	"database/sql"
	"time"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/internal/tracking"
	"github.com/gaborage/querykit/database/types"
	"github.com/gaborage/querykit/logger"
)

const (
	// ConnectTimeout bounds the initial ping performed by the connectors.
	ConnectTimeout = 10 * time.Second
	healthTimeout  = 5 * time.Second
)

// Connection implements types.Interface over a database/sql pool.
type Connection struct {
	db     *sql.DB
	vendor string
	logger logger.Logger
}

var _ types.Interface = (*Connection)(nil)

// New wraps db, which the returned Connection owns and closes.
func New(db *sql.DB, vendor string, log logger.Logger) *Connection {
	return &Connection{db: db, vendor: vendor, logger: log}
}

// ConfigurePool applies the pool settings from cfg; zero values keep database/sql defaults.
func ConfigurePool(db *sql.DB, cfg *config.DatabaseConfig) {
	if cfg == nil {
		return
	}
	if cfg.Pool.Max.Connections > 0 {
		db.SetMaxOpenConns(cfg.Pool.Max.Connections)
	}
	if cfg.Pool.Idle.Connections > 0 {
		db.SetMaxIdleConns(cfg.Pool.Idle.Connections)
	}
	if cfg.Pool.Idle.Time > 0 {
		db.SetConnMaxIdleTime(cfg.Pool.Idle.Time)
	}
	if cfg.Pool.Lifetime.Max > 0 {
		db.SetConnMaxLifetime(cfg.Pool.Lifetime.Max)
	}
}

// Ping verifies db within ConnectTimeout, closing it when the ping fails.
func Ping(db *sql.DB, ping func(context.Context, *sql.DB) error, vendor string, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
	defer cancel()

	if err := ping(ctx, db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("vendor", vendor).Msg("Failed to close database connection after ping failure")
		}
		return err
	}
	return nil
}

// DB returns the underlying pool.
func (c *Connection) DB() *sql.DB {
	return c.db
}

func (c *Connection) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

func (c *Connection) QueryRow(ctx context.Context, query string, args ...any) types.Row {
	return types.NewRowFromSQL(c.db.QueryRowContext(ctx, query, args...))
}

func (c *Connection) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

func (c *Connection) Prepare(ctx context.Context, query string) (types.Statement, error) {
	stmt, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &tracking.BasicStatement{Stmt: stmt}, nil
}

func (c *Connection) Begin(ctx context.Context) (types.Tx, error) {
	return c.BeginTx(ctx, nil)
}

func (c *Connection) BeginTx(ctx context.Context, opts *sql.TxOptions) (types.Tx, error) {
	tx, err := c.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Transaction{tx: tx, vendor: c.vendor}, nil
}

// Health pings the database, bounded by a short timeout.
func (c *Connection) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return c.db.PingContext(ctx)
}

// Stats reports database/sql pool statistics.
func (c *Connection) Stats() (map[string]any, error) {
	stats := c.db.Stats()
	return map[string]any{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration.String(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_idle_time_closed": stats.MaxIdleTimeClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}, nil
}

func (c *Connection) Close() error {
	c.logger.Info().Str("vendor", c.vendor).Msg("Closing database connection")
	return c.db.Close()
}

func (c *Connection) DatabaseType() string {
	return c.vendor
}

// Transaction adapts *sql.Tx to types.Tx.
type Transaction struct {
	tx     *sql.Tx
	vendor string
}

var _ types.Tx = (*Transaction)(nil)

func (t *Transaction) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *Transaction) QueryRow(ctx context.Context, query string, args ...any) types.Row {
	return types.NewRowFromSQL(t.tx.QueryRowContext(ctx, query, args...))
}

func (t *Transaction) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Transaction) Prepare(ctx context.Context, query string) (types.Statement, error) {
	stmt, err := t.tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &tracking.BasicStatement{Stmt: stmt}, nil
}

func (t *Transaction) DatabaseType() string {
	return t.vendor
}

func (t *Transaction) Commit() error {
	return t.tx.Commit()
}

func (t *Transaction) Rollback() error {
	return t.tx.Rollback()
}
