// Package database is querykit's public query builder. A Builder accumulates one
// statement at a time through chained calls and compiles and executes it when a
// terminal method (Get, First, Insert, Update, Delete, Count, Paginate, ...) runs.
package database

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/dialect"
	"github.com/gaborage/querykit/database/internal/builder"
	"github.com/gaborage/querykit/database/internal/columns"
	"github.com/gaborage/querykit/database/internal/executor"
	"github.com/gaborage/querykit/database/types"
	"github.com/gaborage/querykit/logger"
)

// Conn is what a Builder borrows to run statements: a connection or a transaction.
type Conn interface {
	types.Preparer
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// State is the lifecycle position of the statement a Builder is accumulating.
type State int

const (
	// StateNew means a target was designated and nothing accumulated yet.
	StateNew State = iota
	StateAccumulating
	StateCompiled
	StateExecuted
	// StateClosed means the last statement finished and its clauses were reset.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAccumulating:
		return "accumulating"
	case StateCompiled:
		return "compiled"
	case StateExecuted:
		return "executed"
	case StateClosed:
		return "closed"
	default:
		return "new"
	}
}

// Clauses is the predicate accumulator handed to WhereGroup callbacks.
type Clauses = builder.Accumulator

// ColumnPair is one column-to-column comparison for WhereColumns.
type ColumnPair = builder.ColumnPair

// ColumnValue is one ordered column assignment.
type ColumnValue = builder.ColumnValue

// CompiledStatement is SQL with named placeholders plus its ordered bindings.
type CompiledStatement = builder.CompiledStatement

// ExecContext tags the terminal operation a statement is compiled for.
type ExecContext = builder.ExecContext

const (
	ContextPlain    = builder.ContextPlain
	ContextFirst    = builder.ContextFirst
	ContextPaginate = builder.ContextPaginate
	ContextCount    = builder.ContextCount
	ContextExists   = builder.ContextExists
	ContextPluck    = builder.ContextPluck
	ContextInsert   = builder.ContextInsert
	ContextUpdate   = builder.ContextUpdate
	ContextDelete   = builder.ContextDelete
	ContextRaw      = builder.ContextRaw
)

// Builder composes the accumulator, assembler and executor for one connection.
// It is not safe for concurrent use; give every goroutine its own Builder.
type Builder struct {
	conn      Conn
	dialect   dialect.Dialect
	acc       *builder.Accumulator
	assembler *builder.Assembler
	executor  *executor.Executor
	tables    *columns.TableRegistry
	describer columns.Querier
	cfg       config.DatabaseConfig
	logger    logger.Logger
	now       func() time.Time
	state     State
}

// Option customizes a Builder.
type Option func(*Builder)

// WithConfig applies timestamp and strict-mode settings from cfg.
func WithConfig(cfg *config.DatabaseConfig) Option {
	return func(b *Builder) {
		if cfg != nil {
			b.cfg = *cfg
		}
	}
}

// WithLogger sets the logger used for rejected statements.
func WithLogger(log logger.Logger) Option {
	return func(b *Builder) {
		if log != nil {
			b.logger = log
		}
	}
}

// WithDialect overrides the dialect derived from the connection's database type.
func WithDialect(d dialect.Dialect) Option {
	return func(b *Builder) { b.dialect = d }
}

// WithClock overrides the time source for automatic timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// withTables shares a table-metadata cache between Builders of the same database.
// Builders on different databases must not share one.
func withTables(tables *columns.TableRegistry) Option {
	return func(b *Builder) {
		if tables != nil {
			b.tables = tables
		}
	}
}

// withDescriber reads table metadata through q instead of the statement connection,
// so a failed catalog query cannot abort an open transaction.
func withDescriber(q columns.Querier) Option {
	return func(b *Builder) { b.describer = q }
}

// NewBuilder returns a Builder borrowing conn. Without WithDialect the dialect is
// chosen from conn.DatabaseType(), panicking when it is not supported.
// Builders made here cache table metadata on their own; those from a DB share its cache.
func NewBuilder(conn Conn, opts ...Option) *Builder {
	b := &Builder{
		conn:   conn,
		acc:    builder.NewAccumulator(""),
		tables: columns.NewTableRegistry(),
		logger: logger.New("disabled", false),
		now:    time.Now,
	}
	b.cfg.Timestamps = config.TimestampConfig{Enabled: true, Created: "created_at", Updated: "updated_at"}
	for _, opt := range opts {
		opt(b)
	}
	if b.dialect == nil {
		b.dialect = dialect.MustFor(conn.DatabaseType())
	}
	b.assembler = builder.NewAssembler(b.dialect)
	b.executor = executor.New(b.dialect, b.logger)
	return b
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() dialect.Dialect { return b.dialect }

// State returns the lifecycle state of the current statement.
func (b *Builder) State() State { return b.state }

// Table designates table as the target and discards anything accumulated.
func (b *Builder) Table(table string) *Builder {
	b.acc.Table(table)
	b.state = StateNew
	return b
}

// Raw designates a raw SQL base. Structured predicates, joins, grouping, ordering
// and pagination are appended to it. Arguments are sql.Named values matching
// ":name" placeholders, or plain values matching "?" markers in order.
func (b *Builder) Raw(query string, args ...any) *Builder {
	b.acc.Raw(query, args...)
	b.state = StateNew
	return b
}

// Reset discards accumulated clauses, keeping the target.
func (b *Builder) Reset() *Builder {
	b.acc.Reset()
	b.state = StateClosed
	return b
}

func (b *Builder) accumulate(fn func(*builder.Accumulator)) *Builder {
	fn(b.acc)
	b.state = StateAccumulating
	return b
}

// Where adds an AND predicate: Where(col, value) or Where(col, op, value).
func (b *Builder) Where(column string, args ...any) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.Where(column, args...) })
}

// OrWhere adds an OR predicate with Where's argument forms.
func (b *Builder) OrWhere(column string, args ...any) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.OrWhere(column, args...) })
}

// WhereLike is Where(column, "LIKE", pattern).
func (b *Builder) WhereLike(column, pattern string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.WhereLike(column, pattern) })
}

// WhereNull adds an AND "column IS NULL" predicate.
func (b *Builder) WhereNull(column string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.WhereNull(column) })
}

// WhereNotNull adds an AND "column IS NOT NULL" predicate.
func (b *Builder) WhereNotNull(column string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.WhereNotNull(column) })
}

// OrWhereNull is WhereNull joined by OR.
func (b *Builder) OrWhereNull(column string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.OrWhereNull(column) })
}

// OrWhereNotNull is WhereNotNull joined by OR.
func (b *Builder) OrWhereNotNull(column string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.OrWhereNotNull(column) })
}

// WhereBetween adds an AND "column BETWEEN low AND high" predicate with both bounds bound.
func (b *Builder) WhereBetween(column string, low, high any) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.WhereBetween(column, low, high) })
}

// WhereNotBetween is the negation of WhereBetween.
func (b *Builder) WhereNotBetween(column string, low, high any) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.WhereNotBetween(column, low, high) })
}

// WhereIn binds one placeholder per value. An empty list matches nothing.
func (b *Builder) WhereIn(column string, values ...any) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.WhereIn(column, values...) })
}

// WhereNotIn binds one placeholder per value. An empty list matches everything.
func (b *Builder) WhereNotIn(column string, values ...any) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.WhereNotIn(column, values...) })
}

// OrWhereIn is WhereIn joined by OR.
func (b *Builder) OrWhereIn(column string, values ...any) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.OrWhereIn(column, values...) })
}

// WhereColumn compares two columns: WhereColumn(a, b) or WhereColumn(a, op, b). Nothing is bound.
func (b *Builder) WhereColumn(first string, args ...string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.WhereColumn(first, args...) })
}

// OrWhereColumn is WhereColumn joined by OR.
func (b *Builder) OrWhereColumn(first string, args ...string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.OrWhereColumn(first, args...) })
}

// WhereColumns adds several column comparisons joined by AND as one predicate.
func (b *Builder) WhereColumns(pairs ...ColumnPair) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.WhereColumns(pairs...) })
}

// WhereRaw adds a verbatim SQL fragment; "?" markers bind args in order.
func (b *Builder) WhereRaw(query string, args ...any) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.WhereRaw(query, args...) })
}

// OrWhereRaw is WhereRaw joined by OR.
func (b *Builder) OrWhereRaw(query string, args ...any) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.OrWhereRaw(query, args...) })
}

// WhereExpr adds a squirrel expression such as sq.Eq or sq.Like.
func (b *Builder) WhereExpr(expr sq.Sqlizer) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.WhereExpr(expr) })
}

// WhereGroup adds the predicates fn accumulates as one parenthesized AND predicate.
func (b *Builder) WhereGroup(fn func(*Clauses)) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.WhereGroup(fn) })
}

// OrWhereGroup is WhereGroup joined by OR.
func (b *Builder) OrWhereGroup(fn func(*Clauses)) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.OrWhereGroup(fn) })
}

// Join adds an INNER JOIN on table with the condition "first op second".
func (b *Builder) Join(table, first, op, second string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.Join(table, first, op, second) })
}

// LeftJoin is Join as a LEFT JOIN.
func (b *Builder) LeftJoin(table, first, op, second string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.LeftJoin(table, first, op, second) })
}

// RightJoin is Join as a RIGHT JOIN.
func (b *Builder) RightJoin(table, first, op, second string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.RightJoin(table, first, op, second) })
}

// Select replaces the projection.
func (b *Builder) Select(columns ...string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.Select(columns...) })
}

// GroupBy appends grouping columns. Count on a grouped query counts groups.
func (b *Builder) GroupBy(columns ...string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.GroupBy(columns...) })
}

// Having adds a HAVING fragment; "?" markers bind args in order.
func (b *Builder) Having(query string, args ...any) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.Having(query, args...) })
}

// OrderBy appends an ordering. Direction is "asc" or "desc" in any case, empty
// meaning ascending; anything else panics.
func (b *Builder) OrderBy(column, direction string) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.OrderBy(column, direction) })
}

// Limit caps the number of rows. It panics on a negative n.
func (b *Builder) Limit(n int) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.Limit(n) })
}

// Offset skips n rows. It panics on a negative n.
func (b *Builder) Offset(n int) *Builder {
	return b.accumulate(func(a *builder.Accumulator) { a.Offset(n) })
}
