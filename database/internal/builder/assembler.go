package builder

import (
	"fmt"
	"strings"

	"github.com/gaborage/querykit/database/dialect"
	"github.com/gaborage/querykit/database/types"
)

// CompiledStatement is the immutable output of one compilation: SQL with named
// ":key" placeholders and the bindings in the order their fragments were emitted.
type CompiledStatement struct {
	SQL      string
	Bindings []BindingEntry
	Table    string
	Limit    int
	Offset   int
	GroupBy  []string
	OrderBy  []OrderSpec
	Context  ExecContext
	// Returning names the column a RETURNING clause yields, if the SQL has one.
	Returning string
}

// Lookup returns the value bound under key.
func (s *CompiledStatement) Lookup(key string) (any, bool) {
	for _, b := range s.Bindings {
		if b.Key == key {
			return b.Value, true
		}
	}
	return nil, false
}

// BindingMap returns the bindings keyed by placeholder name.
func (s *CompiledStatement) BindingMap() map[string]any {
	m := make(map[string]any, len(s.Bindings))
	for _, b := range s.Bindings {
		m[b.Key] = b.Value
	}
	return m
}

// Values returns the bound values in binding order.
func (s *CompiledStatement) Values() []any {
	vals := make([]any, len(s.Bindings))
	for i, b := range s.Bindings {
		vals[i] = b.Value
	}
	return vals
}

// ColumnValue is one column assignment for INSERT or UPDATE, kept ordered.
type ColumnValue struct {
	Column string
	Value  any
}

// Assembler orders compiled fragments into complete statements:
// SELECT, FROM, joins, WHERE, GROUP BY, HAVING, ORDER BY, then limit/offset.
type Assembler struct {
	dialect    dialect.Dialect
	predicates *PredicateCompiler
}

// NewAssembler creates an assembler for d.
func NewAssembler(d dialect.Dialect) *Assembler {
	return &Assembler{dialect: d, predicates: NewPredicateCompiler(d)}
}

// Dialect returns the dialect the assembler compiles for.
func (a *Assembler) Dialect() dialect.Dialect { return a.dialect }

// Select compiles acc as a query. ContextFirst and ContextExists cap the result at one row.
func (a *Assembler) Select(acc *Accumulator, ctx ExecContext) (*CompiledStatement, error) {
	st := newCompileState(acc.HasJoins())
	if err := a.reserveAll(acc, st); err != nil {
		return nil, err
	}

	projection := "*"
	if len(acc.columns) > 0 {
		projection = strings.Join(acc.columns, ", ")
	}
	body, err := a.body(acc, st, projection)
	if err != nil {
		return nil, err
	}

	limit, offset := acc.limit, acc.offset
	if ctx == ContextFirst || ctx == ContextExists {
		limit = 1
	}

	var b strings.Builder
	b.WriteString(body)
	if len(acc.orderBy) > 0 {
		entries := make([]string, len(acc.orderBy))
		for i, o := range acc.orderBy {
			entries[i] = o.Column + " " + o.Direction
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(entries, ", "))
	}
	if suffix := a.dialect.CompileLimitOffset(limit, offset); suffix != "" {
		b.WriteByte(' ')
		b.WriteString(suffix)
	}

	return a.statement(acc, st, b.String(), ctx, limit, offset), nil
}

// Count compiles acc as a row count. A raw base starting with "SELECT *" has its
// projection rewritten; any other raw base, or a grouped one, is wrapped as a derived
// table. Ordering and pagination are dropped.
func (a *Assembler) Count(acc *Accumulator) (*CompiledStatement, error) {
	st := newCompileState(acc.HasJoins())
	if err := a.reserveAll(acc, st); err != nil {
		return nil, err
	}

	countExpr := "count(*) as " + a.dialect.QuoteIdentifier("count")

	var query string
	if acc.IsRaw() {
		body, err := a.body(acc, st, "")
		if err != nil {
			return nil, err
		}
		if rest, ok := cutSelectStar(body); ok && len(acc.groupBy) == 0 {
			query = "SELECT " + countExpr + rest
		} else {
			query = "SELECT " + countExpr + " FROM (" + body + ") querykit_count"
		}
	} else {
		projection := countExpr
		if len(acc.columns) > 0 {
			projection = strings.Join(acc.columns, ", ") + ", " + countExpr
		}
		body, err := a.body(acc, st, projection)
		if err != nil {
			return nil, err
		}
		query = body
	}

	return a.statement(acc, st, query, ContextCount, dialect.Unset, dialect.Unset), nil
}

// Insert compiles an INSERT of values into table. orIgnore applies the dialect's
// insert-or-ignore rewrite; a non-empty returning column appends the dialect's
// RETURNING clause when it has one.
func (a *Assembler) Insert(table string, values []ColumnValue, orIgnore bool, returning string) (*CompiledStatement, error) {
	if table == "" {
		return nil, types.ErrNoTable
	}
	if len(values) == 0 {
		return nil, types.ErrEmptyValues
	}

	st := newCompileState(false)
	columns := make([]string, len(values))
	placeholders := make([]string, len(values))
	for i, cv := range values {
		key := sanitizeKey(cv.Column)
		if err := st.keys.reserve(key); err != nil {
			return nil, err
		}
		if err := st.bindings.Add(key, cv.Value); err != nil {
			return nil, err
		}
		columns[i] = a.dialect.QuoteIdentifier(cv.Column)
		placeholders[i] = ":" + key
	}

	query := "INSERT INTO " + a.dialect.QuoteIdentifier(table) +
		" (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	if orIgnore {
		query = a.dialect.CompileInsertOrIgnore(query)
	}
	stmt := &CompiledStatement{
		Bindings: st.bindings.Entries(),
		Table:    table,
		Limit:    dialect.Unset,
		Offset:   dialect.Unset,
		Context:  ContextInsert,
	}
	if clause := a.dialect.ReturningClause(returning); clause != "" {
		query += clause
		stmt.Returning = returning
	}
	stmt.SQL = query

	return stmt, nil
}

// Update compiles an UPDATE of the target table restricted by acc's predicates.
// SET placeholders are prefixed with "set_" so they never meet where keys.
func (a *Assembler) Update(acc *Accumulator, values []ColumnValue, orIgnore bool) (*CompiledStatement, error) {
	if len(values) == 0 {
		return nil, types.ErrEmptyValues
	}
	return a.mutation(acc, ContextUpdate, func(st *compileState) (string, error) {
		sets, err := a.setList(values, st)
		if err != nil {
			return "", err
		}
		query := "UPDATE " + a.dialect.QuoteIdentifier(acc.table) + " SET " + sets
		if orIgnore {
			query = a.dialect.CompileUpdateOrIgnore(query)
		}
		return query, nil
	})
}

// Increment compiles "SET col = col + :amount" (or "-" when decrement is true) plus any
// extra assignments.
func (a *Assembler) Increment(acc *Accumulator, column string, amount any, decrement bool, extra []ColumnValue) (*CompiledStatement, error) {
	return a.mutation(acc, ContextUpdate, func(st *compileState) (string, error) {
		extraSets, err := a.setList(extra, st)
		if err != nil {
			return "", err
		}

		key := st.keys.generate("amount")
		if err := st.bindings.Add(key, amount); err != nil {
			return "", err
		}
		op := " + :"
		if decrement {
			op = " - :"
		}
		quoted := a.dialect.QuoteIdentifier(column)
		query := "UPDATE " + a.dialect.QuoteIdentifier(acc.table) + " SET " + quoted + " = " + quoted + op + key
		if extraSets != "" {
			query += ", " + extraSets
		}
		return query, nil
	})
}

// Delete compiles a DELETE from the target table restricted by acc's predicates.
func (a *Assembler) Delete(acc *Accumulator) (*CompiledStatement, error) {
	return a.mutation(acc, ContextDelete, func(*compileState) (string, error) {
		return "DELETE FROM " + a.dialect.QuoteIdentifier(acc.table), nil
	})
}

func (a *Assembler) mutation(acc *Accumulator, ctx ExecContext, head func(*compileState) (string, error)) (*CompiledStatement, error) {
	if acc.table == "" {
		return nil, types.ErrNoTable
	}
	if acc.HasJoins() {
		return nil, types.ErrJoinInMutation
	}

	st := newCompileState(false)
	if err := a.predicates.reserve(acc.clauses, st); err != nil {
		return nil, err
	}

	query, err := head(st)
	if err != nil {
		return nil, err
	}
	if len(acc.clauses) > 0 {
		where, err := a.predicates.compile(acc.clauses, st)
		if err != nil {
			return nil, err
		}
		query += " WHERE " + where
	}

	return a.statement(acc, st, query, ctx, dialect.Unset, dialect.Unset), nil
}

func (a *Assembler) setList(values []ColumnValue, st *compileState) (string, error) {
	sets := make([]string, 0, len(values))
	for _, cv := range values {
		key := "set_" + sanitizeKey(cv.Column)
		if err := st.keys.reserve(key); err != nil {
			return "", err
		}
		if err := st.bindings.Add(key, cv.Value); err != nil {
			return "", err
		}
		sets = append(sets, a.dialect.QuoteIdentifier(cv.Column)+"=:"+key)
	}
	return strings.Join(sets, ", "), nil
}

// reserveAll claims the raw base names, where keys and having names of acc.
func (a *Assembler) reserveAll(acc *Accumulator, st *compileState) error {
	if acc.IsRaw() {
		if err := a.predicates.reserve([]Clause{{Kind: ClauseRaw, Values: acc.rawArgs}}, st); err != nil {
			return err
		}
	}
	if err := a.predicates.reserve(acc.clauses, st); err != nil {
		return err
	}
	return a.predicates.reserve(acc.having, st)
}

// body renders everything up to and including HAVING. For a raw base projection is ignored.
func (a *Assembler) body(acc *Accumulator, st *compileState, projection string) (string, error) {
	var b strings.Builder

	if acc.IsRaw() {
		base, err := a.predicates.compileRaw(acc.raw, acc.rawArgs, st)
		if err != nil {
			return "", err
		}
		b.WriteString(strings.TrimRight(base, " ;\n\t"))
	} else {
		if acc.table == "" {
			return "", types.ErrNoTable
		}
		b.WriteString("SELECT ")
		b.WriteString(projection)
		b.WriteString(" FROM ")
		b.WriteString(a.dialect.QuoteIdentifier(acc.table))
	}

	for _, j := range acc.joins {
		b.WriteByte(' ')
		b.WriteString(j.Style.keyword())
		b.WriteByte(' ')
		b.WriteString(a.dialect.QuoteIdentifier(j.Table))
		b.WriteString(" ON ")
		b.WriteString(a.dialect.QuoteIdentifier(j.First))
		b.WriteString(" " + j.Operator + " ")
		b.WriteString(a.dialect.QuoteIdentifier(j.Second))
	}

	if len(acc.clauses) > 0 {
		where, err := a.predicates.compile(acc.clauses, st)
		if err != nil {
			return "", err
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	if len(acc.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(acc.groupBy, ", "))
	}

	if len(acc.having) > 0 {
		having, err := a.predicates.compile(acc.having, st)
		if err != nil {
			return "", err
		}
		b.WriteString(" HAVING ")
		b.WriteString(having)
	}

	return b.String(), nil
}

func (a *Assembler) statement(acc *Accumulator, st *compileState, query string, ctx ExecContext, limit, offset int) *CompiledStatement {
	return &CompiledStatement{
		SQL:      query,
		Bindings: st.bindings.Entries(),
		Table:    acc.table,
		Limit:    limit,
		Offset:   offset,
		GroupBy:  append([]string(nil), acc.groupBy...),
		OrderBy:  append([]OrderSpec(nil), acc.orderBy...),
		Context:  ctx,
	}
}

// cutSelectStar returns the text after a leading "SELECT *", ignoring case and spacing.
func cutSelectStar(query string) (string, bool) {
	trimmed := strings.TrimLeft(query, " \t\r\n")
	if len(trimmed) < 6 || !strings.EqualFold(trimmed[:6], "SELECT") {
		return "", false
	}
	rest := strings.TrimLeft(trimmed[6:], " \t\r\n")
	if !strings.HasPrefix(rest, "*") {
		return "", false
	}
	return rest[1:], true
}

// String renders the statement for logs and errors.
func (s *CompiledStatement) String() string {
	return fmt.Sprintf("%s %v", s.SQL, s.BindingMap())
}
