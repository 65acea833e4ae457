package tracking

import (
	"context"
	"database/sql"
	"time"

	"github.com/gaborage/querykit/database/types"
)

// BasicStatement adapts *sql.Stmt to types.Statement. Connectors return it from Prepare.
type BasicStatement struct {
	*sql.Stmt
}

func (s *BasicStatement) Query(ctx context.Context, args ...any) (*sql.Rows, error) {
	return s.QueryContext(ctx, args...)
}

func (s *BasicStatement) QueryRow(ctx context.Context, args ...any) types.Row {
	return types.NewRowFromSQL(s.QueryRowContext(ctx, args...))
}

func (s *BasicStatement) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	return s.ExecContext(ctx, args...)
}

// Statement tracks executions of a prepared statement under the SQL it was prepared with.
type Statement struct {
	stmt  types.Statement
	obs   observer
	query string
}

func (s *Statement) Query(ctx context.Context, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.stmt.Query(ctx, args...)
	s.obs.query(ctx, s.query, args, start, err)
	return rows, err
}

func (s *Statement) QueryRow(ctx context.Context, args ...any) types.Row {
	start := time.Now()
	return s.obs.row(ctx, s.stmt.QueryRow(ctx, args...), s.query, args, start)
}

func (s *Statement) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := s.stmt.Exec(ctx, args...)
	s.obs.exec(ctx, s.query, args, start, res, err)
	return res, err
}

func (s *Statement) Close() error { return s.stmt.Close() }
