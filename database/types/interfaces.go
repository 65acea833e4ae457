// Package types holds the connection contracts and sentinel errors shared by the
// querykit database packages. It imports nothing from them so every layer can depend on it.
//
//nolint:revive // generic name keeps the import graph acyclic
package types

import (
	"context"
	"database/sql"
)

// Row is a single-row result. *sql.Row satisfies it.
type Row interface {
	Scan(dest ...any) error
	Err() error
}

// NewRowFromSQL returns row as a Row, keeping a nil *sql.Row a nil interface.
func NewRowFromSQL(row *sql.Row) Row {
	if row == nil {
		return nil
	}
	return row
}

// Statement is a prepared statement. Arguments bind positionally in the order the
// placeholders appear in the prepared SQL.
type Statement interface {
	Query(ctx context.Context, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, args ...any) Row
	Exec(ctx context.Context, args ...any) (sql.Result, error)
	Close() error
}

// Preparer is the boundary the executor runs compiled statements through. Both
// Interface and Tx satisfy it, so a builder can run against either.
type Preparer interface {
	Prepare(ctx context.Context, query string) (Statement, error)
	DatabaseType() string
}

// Querier runs SQL text without preparing it first. Raw schema statements and
// table descriptions go through it.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Tx is an open transaction.
type Tx interface {
	Querier
	Preparer
	Commit() error
	Rollback() error
}

// Interface is a pooled connection handle. Opening and pool sizing belong to the
// connector packages; the query engine never closes a handle it did not create.
type Interface interface {
	Querier
	Preparer
	Begin(ctx context.Context) (Tx, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	Health(ctx context.Context) error
	Stats() (map[string]any, error)
	Close() error
}
