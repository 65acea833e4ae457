package builder

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/gaborage/querykit/database/dialect"
)

// Accumulator collects the parts of one statement in call order. It is not safe
// for concurrent use; Reset clears everything except the target table.
type Accumulator struct {
	table   string
	raw     string
	rawArgs []any

	columns []string
	clauses []Clause
	joins   []JoinSpec
	groupBy []string
	having  []Clause
	orderBy []OrderSpec
	limit   int
	offset  int
}

// NewAccumulator returns an empty accumulator targeting table.
func NewAccumulator(table string) *Accumulator {
	return &Accumulator{table: table, limit: dialect.Unset, offset: dialect.Unset}
}

// Table designates a new target and clears all accumulated state.
func (a *Accumulator) Table(table string) *Accumulator {
	a.Reset()
	a.table = table
	a.raw = ""
	a.rawArgs = nil
	return a
}

// Raw designates a raw SQL base. Arguments are sql.NamedArg values matching ":name"
// placeholders in query, or plain values matching "?" markers in order.
func (a *Accumulator) Raw(query string, args ...any) *Accumulator {
	a.Reset()
	a.raw = query
	a.rawArgs = args
	return a
}

// Reset clears accumulated predicates, joins, projections, grouping, ordering and
// pagination. The target table is kept.
func (a *Accumulator) Reset() *Accumulator {
	a.columns = nil
	a.clauses = nil
	a.joins = nil
	a.groupBy = nil
	a.having = nil
	a.orderBy = nil
	a.limit = dialect.Unset
	a.offset = dialect.Unset
	return a
}

// Where adds an AND predicate. Where(col, v) is Where(col, "=", v). A nil value with
// "=" becomes IS NULL and with "<>" or "!=" becomes IS NOT NULL; nil with any other
// operator panics.
func (a *Accumulator) Where(column string, args ...any) *Accumulator {
	return a.appendWhere(And, column, args)
}

// OrWhere adds an OR predicate.
func (a *Accumulator) OrWhere(column string, args ...any) *Accumulator {
	return a.appendWhere(Or, column, args)
}

func (a *Accumulator) appendWhere(conn Connector, column string, args []any) *Accumulator {
	var op string
	var value any
	switch len(args) {
	case 1:
		op, value = "=", args[0]
	case 2:
		s, ok := args[0].(string)
		if !ok {
			panic(fmt.Sprintf("querykit: where operator for %s must be a string, got %T", column, args[0]))
		}
		op, value = normalizeOperator(s), args[1]
	default:
		panic(fmt.Sprintf("querykit: where on %s takes a value or an operator and a value", column))
	}

	if value == nil {
		switch op {
		case "=":
			return a.appendClause(Clause{Kind: ClauseWhereNull, Column: column, Connector: conn})
		case "<>", "!=":
			return a.appendClause(Clause{Kind: ClauseWhereNotNull, Column: column, Connector: conn})
		default:
			panic(fmt.Sprintf("querykit: operator %s cannot be used with a null value on %s", op, column))
		}
	}

	return a.appendClause(Clause{
		Kind:      ClauseWhere,
		Column:    column,
		Operator:  op,
		Values:    []any{value},
		Connector: conn,
	})
}

// WhereLike is Where(column, "LIKE", pattern).
func (a *Accumulator) WhereLike(column, pattern string) *Accumulator {
	return a.Where(column, "LIKE", pattern)
}

// WhereNull adds an AND "column IS NULL" predicate.
func (a *Accumulator) WhereNull(column string) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseWhereNull, Column: column})
}

// WhereNotNull adds an AND "column IS NOT NULL" predicate.
func (a *Accumulator) WhereNotNull(column string) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseWhereNotNull, Column: column})
}

// OrWhereNull is WhereNull joined by OR.
func (a *Accumulator) OrWhereNull(column string) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseWhereNull, Column: column, Connector: Or})
}

// OrWhereNotNull is WhereNotNull joined by OR.
func (a *Accumulator) OrWhereNotNull(column string) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseWhereNotNull, Column: column, Connector: Or})
}

// WhereBetween adds an AND "column BETWEEN low AND high" predicate with both bounds bound.
func (a *Accumulator) WhereBetween(column string, low, high any) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseWhereBetween, Column: column, Values: []any{low, high}})
}

// WhereNotBetween is the negation of WhereBetween.
func (a *Accumulator) WhereNotBetween(column string, low, high any) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseWhereNotBetween, Column: column, Values: []any{low, high}})
}

// WhereIn binds one placeholder per value. An empty list matches nothing.
func (a *Accumulator) WhereIn(column string, values ...any) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseWhereIn, Column: column, Values: values})
}

// WhereNotIn binds one placeholder per value. An empty list matches everything.
func (a *Accumulator) WhereNotIn(column string, values ...any) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseWhereNotIn, Column: column, Values: values})
}

// OrWhereIn is WhereIn joined by OR.
func (a *Accumulator) OrWhereIn(column string, values ...any) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseWhereIn, Column: column, Values: values, Connector: Or})
}

// WhereColumn compares two columns: WhereColumn(a, b) or WhereColumn(a, op, b).
func (a *Accumulator) WhereColumn(first string, args ...string) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseWhereColumn, Pairs: []ColumnPair{columnPair(first, args)}})
}

// OrWhereColumn is WhereColumn joined by OR.
func (a *Accumulator) OrWhereColumn(first string, args ...string) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseWhereColumn, Pairs: []ColumnPair{columnPair(first, args)}, Connector: Or})
}

// WhereColumns adds several column comparisons joined by AND as one clause.
func (a *Accumulator) WhereColumns(pairs ...ColumnPair) *Accumulator {
	if len(pairs) == 0 {
		return a
	}
	normalized := make([]ColumnPair, len(pairs))
	for i, p := range pairs {
		op := p.Operator
		if op == "" {
			op = "="
		}
		normalized[i] = ColumnPair{First: p.First, Operator: normalizeComparison(op), Second: p.Second}
	}
	return a.appendClause(Clause{Kind: ClauseWhereColumn, Pairs: normalized})
}

func columnPair(first string, args []string) ColumnPair {
	switch len(args) {
	case 1:
		return ColumnPair{First: first, Operator: "=", Second: args[0]}
	case 2:
		return ColumnPair{First: first, Operator: normalizeComparison(args[0]), Second: args[1]}
	}
	panic(fmt.Sprintf("querykit: where column on %s takes a column or an operator and a column", first))
}

// WhereRaw adds a verbatim predicate. Each "?" in query binds the next argument.
func (a *Accumulator) WhereRaw(query string, args ...any) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseRaw, Raw: query, Values: args})
}

// OrWhereRaw is WhereRaw joined by OR.
func (a *Accumulator) OrWhereRaw(query string, args ...any) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseRaw, Raw: query, Values: args, Connector: Or})
}

// WhereExpr adds a squirrel expression such as sq.Gt{"total": 10}.
func (a *Accumulator) WhereExpr(expr sq.Sqlizer) *Accumulator {
	return a.appendClause(Clause{Kind: ClauseExpr, Expr: expr})
}

// WhereGroup compiles the predicates added by fn as one parenthesized fragment.
func (a *Accumulator) WhereGroup(fn func(*Accumulator)) *Accumulator {
	return a.appendGroup(And, fn)
}

// OrWhereGroup is WhereGroup joined by OR.
func (a *Accumulator) OrWhereGroup(fn func(*Accumulator)) *Accumulator {
	return a.appendGroup(Or, fn)
}

func (a *Accumulator) appendGroup(conn Connector, fn func(*Accumulator)) *Accumulator {
	nested := NewAccumulator(a.table)
	fn(nested)
	if len(nested.clauses) == 0 {
		return a
	}
	return a.appendClause(Clause{Kind: ClauseGroup, Group: nested.clauses, Connector: conn})
}

func (a *Accumulator) appendClause(c Clause) *Accumulator {
	a.clauses = append(a.clauses, c)
	return a
}

// Join adds an INNER JOIN. Joins are emitted in call order.
func (a *Accumulator) Join(table, first, op, second string) *Accumulator {
	return a.appendJoin(InnerJoin, table, first, op, second)
}

// LeftJoin is Join as a LEFT JOIN.
func (a *Accumulator) LeftJoin(table, first, op, second string) *Accumulator {
	return a.appendJoin(LeftJoin, table, first, op, second)
}

// RightJoin is Join as a RIGHT JOIN.
func (a *Accumulator) RightJoin(table, first, op, second string) *Accumulator {
	return a.appendJoin(RightJoin, table, first, op, second)
}

func (a *Accumulator) appendJoin(style JoinStyle, table, first, op, second string) *Accumulator {
	a.joins = append(a.joins, JoinSpec{
		Style:    style,
		Table:    table,
		First:    first,
		Operator: normalizeComparison(op),
		Second:   second,
	})
	return a
}

// Select sets the projection; it replaces any earlier Select.
func (a *Accumulator) Select(columns ...string) *Accumulator {
	a.columns = append([]string(nil), columns...)
	return a
}

// GroupBy appends grouping columns. Count on a grouped query counts groups.
func (a *Accumulator) GroupBy(columns ...string) *Accumulator {
	a.groupBy = append(a.groupBy, columns...)
	return a
}

// Having adds a raw HAVING predicate joined by AND; "?" markers bind args.
func (a *Accumulator) Having(query string, args ...any) *Accumulator {
	a.having = append(a.having, Clause{Kind: ClauseRaw, Raw: query, Values: args})
	return a
}

// OrderBy appends an ORDER BY entry; direction is ASC or DESC, empty meaning ASC.
func (a *Accumulator) OrderBy(column, direction string) *Accumulator {
	a.orderBy = append(a.orderBy, OrderSpec{Column: column, Direction: normalizeDirection(direction)})
	return a
}

// Limit panics on a negative count.
func (a *Accumulator) Limit(n int) *Accumulator {
	if n < 0 {
		panic(fmt.Sprintf("querykit: negative limit %d", n))
	}
	a.limit = n
	return a
}

// Offset panics on a negative count.
func (a *Accumulator) Offset(n int) *Accumulator {
	if n < 0 {
		panic(fmt.Sprintf("querykit: negative offset %d", n))
	}
	a.offset = n
	return a
}

// TableName returns the designated target table.
func (a *Accumulator) TableName() string { return a.table }

// IsRaw reports whether a raw SQL base was designated.
func (a *Accumulator) IsRaw() bool { return a.raw != "" }

// RawSQL returns the raw SQL base, empty for a table target.
func (a *Accumulator) RawSQL() string { return a.raw }

// HasWhere reports whether any predicate was accumulated.
func (a *Accumulator) HasWhere() bool { return len(a.clauses) > 0 }

// HasJoins reports whether any join was accumulated.
func (a *Accumulator) HasJoins() bool { return len(a.joins) > 0 }

// Columns returns the projection set by Select.
func (a *Accumulator) Columns() []string { return append([]string(nil), a.columns...) }

// IsGrouped reports whether GroupBy was called.
func (a *Accumulator) IsGrouped() bool { return len(a.groupBy) > 0 }

// Clauses returns a copy of the accumulated predicates.
func (a *Accumulator) Clauses() []Clause { return append([]Clause(nil), a.clauses...) }

// Joins returns a copy of the accumulated joins.
func (a *Accumulator) Joins() []JoinSpec { return append([]JoinSpec(nil), a.joins...) }

// Pagination returns the limit and offset, dialect.Unset when not supplied.
func (a *Accumulator) Pagination() (limit, offset int) { return a.limit, a.offset }

// namedRawArg reports whether arg binds by name.
func namedRawArg(arg any) (sql.NamedArg, bool) {
	n, ok := arg.(sql.NamedArg)
	return n, ok
}
