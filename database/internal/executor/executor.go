// Package executor runs compiled statements against a borrowed connection:
// rebind, prepare, bind check, execute, and scan, with every failure folded into
// the returned Result instead of escaping as a raw driver error.
package executor

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gaborage/querykit/database/dialect"
	"github.com/gaborage/querykit/database/internal/builder"
	"github.com/gaborage/querykit/database/internal/tracking"
	"github.com/gaborage/querykit/database/types"
	"github.com/gaborage/querykit/logger"
)

// Result is the outcome of one executed statement.
type Result struct {
	ID           uuid.UUID
	Columns      []string
	Rows         []map[string]any
	Runtime      time.Duration
	RawQuery     string
	Bindings     map[string]any
	RowsAffected int64
	LastInsertID int64
	Err          error
}

// Failed reports whether the statement did not complete.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// FirstRow returns the first scanned row.
func (r *Result) FirstRow() (map[string]any, bool) {
	if len(r.Rows) == 0 {
		return nil, false
	}
	return r.Rows[0], true
}

// Column returns the values of one column across all rows.
func (r *Result) Column(name string) []any {
	values := make([]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		values = append(values, row[name])
	}
	return values
}

// QueryError returns Err as a *QueryError, if it is one.
func (r *Result) QueryError() (*QueryError, bool) {
	var qe *QueryError
	ok := errors.As(r.Err, &qe)
	return qe, ok
}

// Executor is the execution bridge for one dialect.
type Executor struct {
	dialect dialect.Dialect
	logger  logger.Logger
}

// New creates an executor for d.
func New(d dialect.Dialect, log logger.Logger) *Executor {
	return &Executor{dialect: d, logger: log}
}

// Dialect returns the executor's dialect.
func (e *Executor) Dialect() dialect.Dialect {
	return e.dialect
}

// Fail builds the Result of a statement that never compiled.
func (e *Executor) Fail(err error) *Result {
	return e.FailQuery("", err)
}

// FailQuery is Fail for a statement whose SQL is partly known, such as a raw base
// that could not be combined with the accumulated clauses.
func (e *Executor) FailQuery(query string, err error) *Result {
	res := &Result{ID: uuid.New(), Rows: []map[string]any{}}
	res.Err = newQueryError(KindCompile, query, err, dialect.DriverError{Message: err.Error()})
	e.logFailure(res)
	return res
}

// Execute runs stmt on conn, which may be a connection or a transaction. It always
// returns a Result; failures are reported through Result.Err as *QueryError.
func (e *Executor) Execute(ctx context.Context, conn types.Preparer, stmt *builder.CompiledStatement) *Result {
	res := &Result{ID: uuid.New(), Bindings: stmt.BindingMap(), Rows: []map[string]any{}}
	ctx = tracking.WithLabel(ctx, tracking.Label{ID: res.ID.String(), Context: stmt.Context.String(), Table: stmt.Table})

	start := time.Now()
	defer func() { res.Runtime = time.Since(start) }()

	query, args, err := builder.Rebind(stmt, e.dialect.Placeholder())
	if err != nil {
		res.Err = newQueryError(KindCompile, stmt.SQL, err, dialect.DriverError{Message: err.Error()})
		e.logFailure(res)
		return res
	}
	res.RawQuery = query

	if conn == nil {
		res.Err = newQueryError(KindConnection, query, types.ErrNoConnection, dialect.DriverError{
			Class:   dialect.ClassConnection,
			Message: types.ErrNoConnection.Error(),
		})
		e.logFailure(res)
		return res
	}

	if err := checkBindings(args); err != nil {
		res.Err = newQueryError(KindBind, query, err, dialect.DriverError{Class: dialect.ClassData, Message: err.Error()})
		e.logFailure(res)
		return res
	}

	prepared, err := conn.Prepare(ctx, query)
	if err != nil {
		res.Err = e.driverFailure(KindPrepare, query, err)
		return res
	}
	defer prepared.Close()

	if err := e.run(ctx, prepared, stmt, query, args, res); err != nil {
		res.Err = e.driverFailure(KindExecution, query, err)
	}
	return res
}

func (e *Executor) run(ctx context.Context, prepared types.Statement, stmt *builder.CompiledStatement, query string, args []any, res *Result) error {
	switch {
	case stmt.Context == builder.ContextInsert && stmt.Returning != "":
		rows, err := prepared.Query(ctx, args...)
		if err != nil {
			return err
		}
		if err := scanRows(rows, res); err != nil {
			return err
		}
		res.RowsAffected = int64(len(res.Rows))
		if len(res.Rows) > 0 {
			if id, ok := ToInt64(res.Rows[0][stmt.Returning]); ok {
				res.LastInsertID = id
			}
		}
		return nil

	case stmt.Context.Mutates() || (stmt.Context == builder.ContextRaw && !ReturnsRows(query)):
		result, err := prepared.Exec(ctx, args...)
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err == nil {
			res.RowsAffected = n
		}
		if stmt.Context == builder.ContextInsert {
			// drivers without LastInsertId support report an error here
			if id, err := result.LastInsertId(); err == nil {
				res.LastInsertID = id
			}
		}
		return nil

	default:
		rows, err := prepared.Query(ctx, args...)
		if err != nil {
			return err
		}
		return scanRows(rows, res)
	}
}

// driverFailure classifies err through the dialect; connection-class failures are
// reported as connection errors whatever stage they surfaced in.
func (e *Executor) driverFailure(kind Kind, query string, err error) *QueryError {
	de := e.dialect.ClassifyError(err)
	if de.Class == dialect.ClassConnection {
		kind = KindConnection
	}
	return newQueryError(kind, query, err, de)
}

func (e *Executor) logFailure(res *Result) {
	if e.logger == nil {
		return
	}
	qe, ok := res.QueryError()
	if !ok {
		return
	}
	e.logger.Error().
		Str("statement_id", res.ID.String()).
		Str("kind", qe.Kind.String()).
		Str("query", qe.Query).
		Interface("bindings", res.Bindings).
		Err(qe.Unwrap()).
		Msg("Statement rejected before execution")
}

// checkBindings verifies every argument is a value database/sql can hand to a driver.
func checkBindings(args []any) error {
	for i, arg := range args {
		if _, ok := arg.(driver.Valuer); ok {
			continue
		}
		if _, err := driver.DefaultParameterConverter.ConvertValue(arg); err != nil {
			return fmt.Errorf("argument %d (%T): %w", i+1, arg, err)
		}
	}
	return nil
}

// scanRows reads every row into column-keyed maps. Text returned as []byte is
// converted to string.
func scanRows(rows *sql.Rows, res *Result) error {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	res.Columns = cols
	res.Rows = make([]map[string]any, 0)

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	return rows.Err()
}

var rowReturningKeywords = []string{"SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN", "DESCRIBE", "DESC", "VALUES", "TABLE"}

// ReturnsRows reports whether raw SQL is a statement that yields a result set.
func ReturnsRows(query string) bool {
	query = strings.TrimLeft(query, " \t\r\n(")
	word, _, _ := strings.Cut(query, " ")
	word = strings.ToUpper(strings.TrimSpace(word))
	for _, kw := range rowReturningKeywords {
		if word == kw {
			return true
		}
	}
	return strings.Contains(strings.ToUpper(query), " RETURNING ")
}

// ToInt64 converts the integer shapes drivers return for counts and keys.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err == nil {
			return id, true
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}
