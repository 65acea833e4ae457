package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/internal/columns"
	"github.com/gaborage/querykit/database/internal/sqlconn"
	"github.com/gaborage/querykit/database/internal/tracking"
	"github.com/gaborage/querykit/logger"
)

// Scope hands out Builders bound to one connection or transaction.
type Scope struct {
	conn Conn
	opts []Option
}

// Table starts a statement against table.
func (s *Scope) Table(table string) *Builder {
	return NewBuilder(s.conn, s.opts...).Table(table)
}

// Raw starts a statement from a raw SQL base.
func (s *Scope) Raw(query string, args ...any) *Builder {
	return NewBuilder(s.conn, s.opts...).Raw(query, args...)
}

// DB owns a connection and hands out Builders for it.
type DB struct {
	Scope
	conn         Interface
	logger       logger.Logger
	closeMetrics func()
}

// Open connects using cfg and registers pool metrics for the connection.
func Open(cfg *config.DatabaseConfig, log logger.Logger) (*DB, error) {
	return openWith(NewConnection, cfg, log)
}

func openWith(connect Connector, cfg *config.DatabaseConfig, log logger.Logger) (*DB, error) {
	conn, err := connect(cfg, log)
	if err != nil {
		return nil, err
	}
	db := Wrap(conn, cfg, log)
	db.closeMetrics = tracking.RegisterConnectionPoolMetrics(conn, conn.DatabaseType())
	return db, nil
}

// Wrap builds a DB around an existing connection. The caller keeps ownership of
// pool metrics; Close still closes conn. Table metadata is cached per DB. It is
// read through conn also inside a transaction, unless the pool holds a single
// connection.
func Wrap(conn Interface, cfg *config.DatabaseConfig, log logger.Logger, opts ...Option) *DB {
	all := []Option{WithConfig(cfg), WithLogger(log), withTables(columns.NewTableRegistry())}
	if cfg == nil || cfg.Pool.Max.Connections != 1 {
		all = append(all, withDescriber(conn))
	}
	all = append(all, opts...)
	return &DB{
		Scope:  Scope{conn: conn, opts: all},
		conn:   conn,
		logger: log,
	}
}

// FromSQL wraps an already opened *sql.DB of the given vendor with statement
// tracking. Closing the DB closes sqlDB.
func FromSQL(sqlDB *sql.DB, vendor string, cfg *config.DatabaseConfig, log logger.Logger, opts ...Option) *DB {
	tracked := NewTrackedConnection(sqlconn.New(sqlDB, vendor, log), log, cfg)
	return Wrap(tracked, cfg, log, opts...)
}

// Conn returns the underlying connection.
func (db *DB) Conn() Interface { return db.conn }

// Health pings the database.
func (db *DB) Health(ctx context.Context) error { return db.conn.Health(ctx) }

// Stats returns connection pool statistics.
func (db *DB) Stats() (map[string]any, error) { return db.conn.Stats() }

// Close stops pool metrics and closes the connection.
func (db *DB) Close() error {
	if db.closeMetrics != nil {
		db.closeMetrics()
		db.closeMetrics = nil
	}
	return db.conn.Close()
}

// Transaction runs fn inside a transaction. It commits when fn returns nil and
// rolls back on an error or panic; a panic is re-raised after the rollback.
func (db *DB) Transaction(ctx context.Context, fn func(tx *Scope) error) (err error) {
	tx, err := db.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				db.logger.Error().Err(rbErr).Msg("Failed to roll back transaction after panic")
			}
			panic(p)
		}
	}()

	if err := fn(&Scope{conn: tx, opts: db.opts}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back transaction: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
