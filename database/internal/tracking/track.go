package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/querykit/database/types"
	"github.com/gaborage/querykit/logger"
)

const (
	dbTracerName      = "querykit/database"
	maxDBQueryAttrLen = 2000

	attrStatementID = "querykit.statement.id"
	attrExecContext = "querykit.context"
)

// Kind is the driver call an Op reports.
type Kind string

const (
	KindQuery    Kind = "query"
	KindExec     Kind = "exec"
	KindPrepare  Kind = "prepare"
	KindBegin    Kind = "begin"
	KindCommit   Kind = "commit"
	KindRollback Kind = "rollback"
)

// Op is one finished driver call.
type Op struct {
	Kind  Kind
	Query string
	Args  []any
	Start time.Time
	Rows  int64
	Err   error
}

// statement reports whether the op ran SQL rather than managing a statement or transaction.
func (op Op) statement() bool {
	return op.Kind == KindQuery || op.Kind == KindExec
}

// failed ignores sql.ErrNoRows, which is an answer rather than a failure.
func (op Op) failed() bool {
	return op.Err != nil && !errors.Is(op.Err, sql.ErrNoRows)
}

// name is the operation reported on spans and metrics: the terminal that compiled the
// statement when ctx carries a label, the SQL verb otherwise.
func (op Op) name(l Label) string {
	if !op.statement() {
		return string(op.Kind)
	}
	if l.Context != "" {
		return l.Context
	}
	return sqlVerb(op.Query, string(op.Kind))
}

// Track reports op as statement stats, a span, metrics and one log event. Slow
// statements are logged as warnings, throttled by the configured rate.
func Track(ctx context.Context, tc *Context, op Op) {
	if tc == nil || tc.Logger == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	elapsed := time.Since(op.Start)
	if op.statement() {
		logger.RecordStatement(ctx, elapsed)
	}

	label, _ := LabelFrom(ctx)
	name := op.name(label)
	table := label.Table
	if table == "" {
		table = extractTableName(op.Query)
	}

	traceOp(ctx, tc, op, label, name, table)
	recordOpMetrics(ctx, tc, op, name, table, elapsed)
	logOp(ctx, tc, op, label, elapsed)
}

func logOp(ctx context.Context, tc *Context, op Op, label Label, elapsed time.Duration) {
	fields := map[string]any{
		"vendor":      tc.Vendor,
		"op":          string(op.Kind),
		"duration_ms": elapsed.Milliseconds(),
	}
	if op.Query != "" {
		fields["query"] = TruncateString(op.Query, tc.Settings.MaxQueryLength())
	}
	if label.ID != "" {
		fields["statement_id"] = label.ID
	}
	if label.Context != "" {
		fields["context"] = label.Context
	}
	if op.Rows > 0 {
		fields["rows_affected"] = op.Rows
	}
	if tc.Settings.LogQueryParameters() && len(op.Args) > 0 {
		fields["args"] = SanitizeArgs(op.Args, tc.Settings.MaxQueryLength())
	}

	log := tc.Logger.WithContext(ctx).WithFields(fields)

	switch {
	case op.Err != nil && !op.failed():
		log.Debug().Msg("Database operation returned no rows")
	case op.Err != nil:
		log.Error().Err(op.Err).Msg("Database operation error")
	case op.statement() && tc.Settings.SlowQueryEnabled() && elapsed > tc.Settings.SlowQueryThreshold():
		if tc.Settings.allowSlowWarning() {
			log.Warn().Msgf("Slow database operation detected (%s)", elapsed)
		}
	default:
		log.Debug().Msg("Database operation executed")
	}
}

func traceOp(ctx context.Context, tc *Context, op Op, label Label, name, table string) {
	_, span := otel.Tracer(dbTracerName).Start(ctx, "db."+name,
		trace.WithTimestamp(op.Start),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("db.system", normalizeDBVendor(tc.Vendor)),
		semconv.DBOperationName(name),
	}
	if op.Query != "" {
		attrs = append(attrs, semconv.DBQueryText(TruncateString(op.Query, maxDBQueryAttrLen)))
	}
	if table != unknownTable {
		attrs = append(attrs, semconv.DBCollectionName(table))
	}
	if tc.Namespace != "" {
		attrs = append(attrs, semconv.DBNamespace(tc.Namespace))
	}
	if tc.ServerAddress != "" {
		attrs = append(attrs, semconv.ServerAddress(tc.ServerAddress))
	}
	if tc.ServerPort > 0 {
		attrs = append(attrs, semconv.ServerPort(tc.ServerPort))
	}
	if label.ID != "" {
		attrs = append(attrs, attribute.String(attrStatementID, label.ID))
	}
	if label.Context != "" {
		attrs = append(attrs, attribute.String(attrExecContext, label.Context))
	}
	span.SetAttributes(attrs...)

	if op.failed() {
		span.RecordError(op.Err)
		span.SetStatus(codes.Error, op.Err.Error())
	}
}

// sqlVerb returns the lowercase leading keyword of query, or fallback when it is not a
// recognised statement verb.
func sqlVerb(query, fallback string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return fallback
	}
	switch verb := strings.ToLower(fields[0]); verb {
	case "select", "insert", "update", "delete", "merge", "create", "drop", "alter", "truncate", "with":
		return verb
	default:
		return fallback
	}
}

// normalizeDBVendor maps vendor aliases onto OTel db.system values.
func normalizeDBVendor(vendor string) string {
	switch vendor = strings.ToLower(vendor); vendor {
	case "postgres", "pgx":
		return types.PostgreSQL
	case "sqlite3":
		return types.SQLite
	default:
		return vendor
	}
}

// TruncateString shortens value to maxLen runes, ending in "..." when there is room for it.
// maxLen <= 0 disables truncation.
func TruncateString(value string, maxLen int) string {
	if maxLen <= 0 {
		return value
	}
	r := []rune(value)
	if len(r) <= maxLen {
		return value
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// SanitizeArgs renders args for logging. Strings are truncated, byte slices are
// replaced by their length, and named arguments keep their name.
func SanitizeArgs(args []any, maxLen int) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, len(args))
	for i, arg := range args {
		out[i] = sanitizeArg(arg, maxLen)
	}
	return out
}

func sanitizeArg(arg any, maxLen int) any {
	switch v := arg.(type) {
	case nil:
		return nil
	case string:
		return TruncateString(v, maxLen)
	case []byte:
		return fmt.Sprintf("<bytes len=%d>", len(v))
	case sql.NamedArg:
		return fmt.Sprintf("%s=%v", v.Name, sanitizeArg(v.Value, maxLen))
	default:
		return TruncateString(fmt.Sprint(v), maxLen)
	}
}
