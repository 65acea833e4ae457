package database

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/gaborage/querykit/database/dialect"
	"github.com/gaborage/querykit/database/internal/columns"
	"github.com/gaborage/querykit/database/internal/executor"
	"github.com/gaborage/querykit/database/types"
)

// Result is the outcome of one executed statement.
type Result = executor.Result

// QueryError is the error carried by a failed Result.
type QueryError = executor.QueryError

// DefaultPerPage is the page size Paginate uses when perPage is not positive.
const DefaultPerPage = 15

// ToSQL compiles the accumulated query without executing it or resetting the builder.
func (b *Builder) ToSQL() (*CompiledStatement, error) {
	return b.CompileQuery(ContextPlain)
}

// CompileQuery compiles the accumulated query for execCtx without executing it.
func (b *Builder) CompileQuery(execCtx ExecContext) (*CompiledStatement, error) {
	var (
		stmt *CompiledStatement
		err  error
	)
	if execCtx == ContextCount {
		stmt, err = b.assembler.Count(b.acc)
	} else {
		stmt, err = b.assembler.Select(b.acc, execCtx)
	}
	if err != nil {
		return nil, err
	}
	b.state = StateCompiled
	return stmt, nil
}

// Execute runs an already compiled statement on the builder's connection.
func (b *Builder) Execute(ctx context.Context, stmt *CompiledStatement) *Result {
	b.state = StateExecuted
	return b.executor.Execute(ctx, b.conn, stmt)
}

// finish resets the accumulated clauses so the next statement starts clean.
func (b *Builder) finish(res *Result) *Result {
	b.acc.Reset()
	b.state = StateClosed
	return res
}

func (b *Builder) query(ctx context.Context, execCtx ExecContext) *Result {
	stmt, err := b.CompileQuery(execCtx)
	if err != nil {
		return b.finish(b.executor.FailQuery(b.acc.RawSQL(), err))
	}
	return b.finish(b.Execute(ctx, stmt))
}

// Get runs the accumulated query and returns every row.
func (b *Builder) Get(ctx context.Context) *Result {
	return b.query(ctx, ContextPlain)
}

// First runs the accumulated query capped at one row.
func (b *Builder) First(ctx context.Context) *Result {
	return b.query(ctx, ContextFirst)
}

// Run executes the statement as written, the way a Raw base like "UPDATE ..." needs:
// statements that yield rows are scanned, others report RowsAffected.
func (b *Builder) Run(ctx context.Context) *Result {
	return b.query(ctx, ContextRaw)
}

// Find fetches the row whose primary key equals id. The primary key comes from
// the target table's metadata.
func (b *Builder) Find(ctx context.Context, id any) *Result {
	meta, err := b.describe(ctx, b.acc.TableName())
	if err != nil {
		return b.finish(b.executor.Fail(err))
	}
	pk, _ := b.dialect.DescribeColumn(meta)
	if pk == "" {
		return b.finish(b.executor.Fail(fmt.Errorf("%w: %s", types.ErrNoPrimaryKey, meta.Name)))
	}
	b.acc.Where(pk, id)
	return b.query(ctx, ContextFirst)
}

// Pluck runs the query projecting only column. Result.Column(column) holds the values.
func (b *Builder) Pluck(ctx context.Context, column string) *Result {
	b.acc.Select(column)
	return b.query(ctx, ContextPluck)
}

// Exists reports whether the accumulated query matches any row.
func (b *Builder) Exists(ctx context.Context) (bool, *Result) {
	res := b.query(ctx, ContextExists)
	return !res.Failed() && len(res.Rows) > 0, res
}

// Count returns the number of matching rows, or the number of groups when the
// query is grouped.
func (b *Builder) Count(ctx context.Context) (int64, *Result) {
	grouped := b.acc.IsGrouped()
	res := b.query(ctx, ContextCount)
	if res.Failed() {
		return 0, res
	}
	if grouped {
		return int64(len(res.Rows)), res
	}
	return countOf(res), res
}

// countOf reads the total of an ungrouped count query. The alias is matched
// without regard to case since Oracle reports an unquoted alias as COUNT.
func countOf(res *Result) int64 {
	row, ok := res.FirstRow()
	if !ok || len(res.Columns) == 0 {
		return 0
	}
	name := res.Columns[len(res.Columns)-1]
	for _, c := range res.Columns {
		if strings.EqualFold(c, "count") {
			name = c
			break
		}
	}
	n, _ := executor.ToInt64(row[name])
	return n
}

// Paginate counts the matching rows and fetches page (1-based) of perPage rows.
func (b *Builder) Paginate(ctx context.Context, page, perPage int) *Paginator {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		page = 1
	}
	p := &Paginator{PerPage: perPage, CurrentPage: page}

	// an ungrouped total is counted without the projection
	grouped := b.acc.IsGrouped()
	projection := b.acc.Columns()
	if !grouped {
		b.acc.Select()
	}
	countStmt, err := b.assembler.Count(b.acc)
	b.acc.Select(projection...)
	if err != nil {
		p.Result = b.finish(b.executor.FailQuery(b.acc.RawSQL(), err))
		p.Err = p.Result.Err
		return p
	}
	countRes := b.executor.Execute(ctx, b.conn, countStmt)
	if countRes.Failed() {
		p.Result = b.finish(countRes)
		p.Err = countRes.Err
		return p
	}
	if grouped {
		p.Total = int64(len(countRes.Rows))
	} else {
		p.Total = countOf(countRes)
	}
	p.LastPage = lastPage(p.Total, perPage)

	b.acc.Limit(perPage).Offset((page - 1) * perPage)
	res := b.query(ctx, ContextPaginate)
	p.Result = res
	p.Err = res.Err
	if !res.Failed() {
		p.Data = res.Rows
	}
	return p
}

func lastPage(total int64, perPage int) int {
	if total <= 0 {
		return 1
	}
	pages := (total + int64(perPage) - 1) / int64(perPage)
	return int(pages)
}

// Insert inserts one row; values are written in column-name order.
func (b *Builder) Insert(ctx context.Context, values map[string]any) *Result {
	return b.insert(ctx, sortedValues(values), false)
}

// InsertValues inserts one row keeping the given column order.
func (b *Builder) InsertValues(ctx context.Context, values ...ColumnValue) *Result {
	return b.insert(ctx, values, false)
}

// InsertOrIgnore inserts one row, letting the dialect skip duplicates.
func (b *Builder) InsertOrIgnore(ctx context.Context, values map[string]any) *Result {
	return b.insert(ctx, sortedValues(values), true)
}

// InsertStruct inserts the db-tagged fields of v. It panics when v is not a
// struct or pointer to struct with at least one db tag.
func (b *Builder) InsertStruct(ctx context.Context, v any) *Result {
	names, vals := columns.ForStruct(v).Values(v)
	values := make([]ColumnValue, len(names))
	for i := range names {
		values[i] = ColumnValue{Column: names[i], Value: vals[i]}
	}
	return b.insert(ctx, values, false)
}

func (b *Builder) insert(ctx context.Context, values []ColumnValue, orIgnore bool) *Result {
	table := b.acc.TableName()
	if table == "" {
		return b.finish(b.executor.Fail(types.ErrNoTable))
	}
	if len(values) == 0 {
		return b.finish(b.executor.Fail(types.ErrEmptyValues))
	}

	var returning string
	wantsReturning := b.dialect.ReturningClause("id") != ""
	if b.cfg.Timestamps.Enabled || wantsReturning {
		if meta, ok := b.tableMeta(ctx, table); ok {
			values = b.withTimestamps(meta, values, true)
			if wantsReturning && primaryKeyCount(meta) == 1 {
				if pk, useLastInsertID := b.dialect.DescribeColumn(meta); !useLastInsertID {
					returning = pk
				}
			}
		}
	}

	stmt, err := b.assembler.Insert(table, values, orIgnore, returning)
	if err != nil {
		return b.finish(b.executor.Fail(err))
	}
	b.state = StateCompiled
	return b.finish(b.Execute(ctx, stmt))
}

// Update sets values on the matching rows. Without a WHERE clause it is refused
// in strict mode.
func (b *Builder) Update(ctx context.Context, values map[string]any) *Result {
	return b.update(ctx, sortedValues(values), false)
}

// UpdateOrIgnore is Update with the dialect's ignore rewrite.
func (b *Builder) UpdateOrIgnore(ctx context.Context, values map[string]any) *Result {
	return b.update(ctx, sortedValues(values), true)
}

func (b *Builder) update(ctx context.Context, values []ColumnValue, orIgnore bool) *Result {
	if err := b.guardMutation(); err != nil {
		return b.finish(b.executor.Fail(err))
	}
	if len(values) == 0 {
		return b.finish(b.executor.Fail(types.ErrEmptyValues))
	}
	if b.cfg.Timestamps.Enabled {
		if meta, ok := b.tableMeta(ctx, b.acc.TableName()); ok {
			values = b.withTimestamps(meta, values, false)
		}
	}

	stmt, err := b.assembler.Update(b.acc, values, orIgnore)
	if err != nil {
		return b.finish(b.executor.Fail(err))
	}
	b.state = StateCompiled
	return b.finish(b.Execute(ctx, stmt))
}

// Increment adds amount to column on the matching rows, applying extra assignments
// in the same statement. It panics when amount is not numeric.
func (b *Builder) Increment(ctx context.Context, column string, amount any, extra ...ColumnValue) *Result {
	return b.step(ctx, column, amount, false, extra)
}

// Decrement subtracts amount from column on the matching rows.
func (b *Builder) Decrement(ctx context.Context, column string, amount any, extra ...ColumnValue) *Result {
	return b.step(ctx, column, amount, true, extra)
}

func (b *Builder) step(ctx context.Context, column string, amount any, decrement bool, extra []ColumnValue) *Result {
	if !isNumeric(amount) {
		panic(fmt.Sprintf("querykit: increment amount must be numeric, got %T", amount))
	}
	if err := b.guardMutation(); err != nil {
		return b.finish(b.executor.Fail(err))
	}
	if b.cfg.Timestamps.Enabled {
		if meta, ok := b.tableMeta(ctx, b.acc.TableName()); ok {
			extra = b.withTimestamps(meta, extra, false)
		}
	}

	stmt, err := b.assembler.Increment(b.acc, column, amount, decrement, extra)
	if err != nil {
		return b.finish(b.executor.Fail(err))
	}
	b.state = StateCompiled
	return b.finish(b.Execute(ctx, stmt))
}

// Delete removes the matching rows. Without a WHERE clause it is refused in strict mode.
func (b *Builder) Delete(ctx context.Context) *Result {
	if err := b.guardMutation(); err != nil {
		return b.finish(b.executor.Fail(err))
	}
	stmt, err := b.assembler.Delete(b.acc)
	if err != nil {
		return b.finish(b.executor.Fail(err))
	}
	b.state = StateCompiled
	return b.finish(b.Execute(ctx, stmt))
}

func (b *Builder) guardMutation() error {
	if b.acc.TableName() == "" {
		return types.ErrNoTable
	}
	if b.cfg.Query.Strict && !b.acc.HasWhere() {
		return fmt.Errorf("%w: %s", types.ErrUnsafeMutation, b.acc.TableName())
	}
	return nil
}

func (b *Builder) describe(ctx context.Context, table string) (dialect.TableMeta, error) {
	if table == "" {
		return dialect.TableMeta{}, types.ErrNoTable
	}
	if b.conn == nil {
		return dialect.TableMeta{}, types.ErrNoConnection
	}
	var q columns.Querier = b.conn
	if b.describer != nil {
		q = b.describer
	}
	ctx = LabelStatement(ctx, StatementLabel{Context: "describe", Table: table})
	return b.tables.Describe(ctx, q, b.dialect, table)
}

// tableMeta is describe for optional features: a failure is logged and reported as not found.
func (b *Builder) tableMeta(ctx context.Context, table string) (dialect.TableMeta, bool) {
	meta, err := b.describe(ctx, table)
	if err != nil {
		b.logger.Warn().Err(err).Str("table", table).Msg("Table metadata unavailable, skipping column augmentation")
		return dialect.TableMeta{}, false
	}
	return meta, len(meta.Columns) > 0
}

// withTimestamps appends the configured created/updated columns the table has and
// values does not already assign.
func (b *Builder) withTimestamps(meta dialect.TableMeta, values []ColumnValue, created bool) []ColumnValue {
	ts := b.cfg.Timestamps
	if !ts.Enabled {
		return values
	}
	now := b.dialect.TimestampValue(b.now())
	names := []string{ts.Updated}
	if created {
		names = []string{ts.Created, ts.Updated}
	}
	out := values
	for _, name := range names {
		if name == "" || hasColumn(out, name) {
			continue
		}
		if _, ok := meta.Lookup(name); !ok {
			continue
		}
		if len(out) == len(values) {
			out = append([]ColumnValue(nil), values...)
		}
		out = append(out, ColumnValue{Column: name, Value: now})
	}
	return out
}

func hasColumn(values []ColumnValue, name string) bool {
	for _, v := range values {
		if v.Column == name {
			return true
		}
	}
	return false
}

func primaryKeyCount(meta dialect.TableMeta) int {
	n := 0
	for _, c := range meta.Columns {
		if c.PrimaryKey {
			n++
		}
	}
	return n
}

func sortedValues(values map[string]any) []ColumnValue {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ColumnValue, len(keys))
	for i, k := range keys {
		out[i] = ColumnValue{Column: k, Value: values[k]}
	}
	return out
}

func isNumeric(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
