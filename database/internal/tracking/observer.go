package tracking

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/gaborage/querykit/database/types"
)

// observer reports the driver calls of one connection and everything derived from it.
type observer struct {
	tc *Context
}

func (o observer) query(ctx context.Context, query string, args []any, start time.Time, err error) {
	Track(ctx, o.tc, Op{Kind: KindQuery, Query: query, Args: args, Start: start, Err: err})
}

func (o observer) exec(ctx context.Context, query string, args []any, start time.Time, res sql.Result, err error) {
	Track(ctx, o.tc, Op{Kind: KindExec, Query: query, Args: args, Start: start, Rows: rowsAffected(res, err), Err: err})
}

func (o observer) call(ctx context.Context, kind Kind, query string, start time.Time, err error) {
	Track(ctx, o.tc, Op{Kind: kind, Query: query, Start: start, Err: err})
}

// row defers reporting a QueryRow call until the row is scanned, since database/sql
// surfaces the query error only then.
func (o observer) row(ctx context.Context, row types.Row, query string, args []any, start time.Time) types.Row {
	if row == nil {
		return nil
	}
	return &trackedRow{row: row, finish: func(err error) { o.query(ctx, query, args, start, err) }}
}

func (o observer) statement(stmt types.Statement, query string) types.Statement {
	return &Statement{stmt: stmt, obs: o, query: query}
}

func rowsAffected(res sql.Result, err error) int64 {
	if res == nil || err != nil {
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

type trackedRow struct {
	row    types.Row
	finish func(error)
	once   sync.Once
}

func (r *trackedRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	r.once.Do(func() { r.finish(err) })
	return err
}

func (r *trackedRow) Err() error {
	err := r.row.Err()
	if err != nil {
		r.once.Do(func() { r.finish(err) })
	}
	return err
}
