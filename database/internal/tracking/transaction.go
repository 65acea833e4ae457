package tracking

import (
	"context"
	"database/sql"
	"time"

	"github.com/gaborage/querykit/database/types"
)

// Transaction tracks every operation of a types.Tx. Commit and rollback carry no
// context, so they are reported without a statement label.
type Transaction struct {
	tx  types.Tx
	obs observer
}

var _ types.Tx = (*Transaction)(nil)

func (t *Transaction) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.tx.Query(ctx, query, args...)
	t.obs.query(ctx, query, args, start, err)
	return rows, err
}

func (t *Transaction) QueryRow(ctx context.Context, query string, args ...any) types.Row {
	start := time.Now()
	return t.obs.row(ctx, t.tx.QueryRow(ctx, query, args...), query, args, start)
}

func (t *Transaction) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := t.tx.Exec(ctx, query, args...)
	t.obs.exec(ctx, query, args, start, res, err)
	return res, err
}

func (t *Transaction) Prepare(ctx context.Context, query string) (types.Statement, error) {
	start := time.Now()
	stmt, err := t.tx.Prepare(ctx, query)
	t.obs.call(ctx, KindPrepare, query, start, err)
	if err != nil {
		return nil, err
	}
	return t.obs.statement(stmt, query), nil
}

func (t *Transaction) DatabaseType() string { return t.tx.DatabaseType() }

func (t *Transaction) Commit() error {
	start := time.Now()
	err := t.tx.Commit()
	t.obs.call(context.Background(), KindCommit, "", start, err)
	return err
}

func (t *Transaction) Rollback() error {
	start := time.Now()
	err := t.tx.Rollback()
	t.obs.call(context.Background(), KindRollback, "", start, err)
	return err
}
