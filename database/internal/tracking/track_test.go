package tracking

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/internal/mocks"
	"github.com/gaborage/querykit/logger"
)

const (
	testSelectOrders = "SELECT * FROM `orders` WHERE status=?"
	testInsertOrders = "INSERT INTO `orders` (`status`) VALUES (?)"
)

func setupTestTracerProvider(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	original := otel.GetTracerProvider()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(original)
	})
	return exporter
}

func newTestContext(log logger.Logger, cfg *config.DatabaseConfig) *Context {
	return &Context{Logger: log, Vendor: "mysql", Settings: NewSettings(cfg)}
}

func spanAttr(span tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func queryOp(query string, err error) Op {
	return Op{Kind: KindQuery, Query: query, Start: time.Now(), Err: err}
}

func TestTrackLogsDebugOnSuccess(t *testing.T) {
	log := mocks.NewLogger()
	ctx := logger.WithStatementStats(context.Background())

	op := queryOp(testSelectOrders, nil)
	op.Args = []any{"paid"}
	Track(ctx, newTestContext(log, nil), op)

	entries := log.EntriesAt("debug")
	require.Len(t, entries, 1)
	assert.Equal(t, "Database operation executed", entries[0].Msg)
	assert.Equal(t, testSelectOrders, entries[0].Fields["query"])
	assert.Equal(t, "query", entries[0].Fields["op"])
	assert.NotContains(t, entries[0].Fields, "args")

	count, _ := logger.StatementStats(ctx)
	assert.Equal(t, int64(1), count)
}

func TestTrackCountsOnlyStatements(t *testing.T) {
	ctx := logger.WithStatementStats(context.Background())
	tc := newTestContext(mocks.NewLogger(), nil)

	Track(ctx, tc, Op{Kind: KindPrepare, Query: testSelectOrders, Start: time.Now()})
	Track(ctx, tc, queryOp(testSelectOrders, nil))
	Track(ctx, tc, Op{Kind: KindCommit, Start: time.Now()})

	count, _ := logger.StatementStats(ctx)
	assert.Equal(t, int64(1), count)
}

func TestTrackLogsErrors(t *testing.T) {
	log := mocks.NewLogger()
	failure := errors.New("connection reset")

	Track(context.Background(), newTestContext(log, nil), queryOp(testSelectOrders, failure))
	Track(context.Background(), newTestContext(log, nil), queryOp(testSelectOrders, sql.ErrNoRows))

	errs := log.EntriesAt("error")
	require.Len(t, errs, 1)
	assert.Equal(t, failure, errs[0].Err)

	debug := log.EntriesAt("debug")
	require.Len(t, debug, 1)
	assert.Equal(t, "Database operation returned no rows", debug[0].Msg)
}

func TestTrackSlowWarningIsThrottled(t *testing.T) {
	log := mocks.NewLogger()
	cfg := &config.DatabaseConfig{}
	cfg.Query.Slow.Enabled = true
	cfg.Query.Slow.Threshold = time.Millisecond
	cfg.Query.Slow.Rate = 1
	tc := newTestContext(log, cfg)

	op := queryOp(testSelectOrders, nil)
	op.Start = time.Now().Add(-time.Second)
	for range 5 {
		Track(context.Background(), tc, op)
	}

	warnings := log.EntriesAt("warn")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Msg, "Slow database operation detected")
}

func TestTrackSlowDisabled(t *testing.T) {
	log := mocks.NewLogger()
	cfg := &config.DatabaseConfig{}
	cfg.Query.Slow.Threshold = time.Millisecond

	op := queryOp(testSelectOrders, nil)
	op.Start = time.Now().Add(-time.Second)
	Track(context.Background(), newTestContext(log, cfg), op)

	assert.Empty(t, log.EntriesAt("warn"))
	assert.Len(t, log.EntriesAt("debug"), 1)
}

func TestTrackParametersAndLabel(t *testing.T) {
	log := mocks.NewLogger()
	cfg := &config.DatabaseConfig{}
	cfg.Query.Log.Parameters = true
	cfg.Query.Log.MaxLength = 10

	ctx := WithLabel(context.Background(), Label{ID: "stmt-1", Context: "insert", Table: "orders"})
	Track(ctx, newTestContext(log, cfg), Op{
		Kind:  KindExec,
		Query: testInsertOrders,
		Args:  []any{"a very long status", []byte("xyz")},
		Start: time.Now(),
		Rows:  1,
	})

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "stmt-1", entries[0].Fields["statement_id"])
	assert.Equal(t, "insert", entries[0].Fields["context"])
	assert.Equal(t, int64(1), entries[0].Fields["rows_affected"])
	assert.Equal(t, []any{"a very ...", "<bytes len=3>"}, entries[0].Fields["args"])
	assert.Equal(t, "INSERT ...", entries[0].Fields["query"])
}

func TestTrackNilContextIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		Track(context.Background(), nil, queryOp(testSelectOrders, nil))
		Track(context.Background(), &Context{}, queryOp(testSelectOrders, nil))
	})
}

func TestStatementID(t *testing.T) {
	_, ok := StatementID(context.Background())
	assert.False(t, ok)

	_, ok = StatementID(WithLabel(context.Background(), Label{Context: "describe"}))
	assert.False(t, ok)

	id, ok := StatementID(WithLabel(context.Background(), Label{ID: "abc"}))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestTrackSpanUsesLabel(t *testing.T) {
	exporter := setupTestTracerProvider(t)

	tc := newTestContext(mocks.NewLogger(), nil)
	tc.ServerAddress = "db.internal"
	tc.ServerPort = 3306
	tc.Namespace = "shop"
	ctx := WithLabel(context.Background(), Label{ID: "stmt-42", Context: "paginate", Table: "orders"})

	op := queryOp(testSelectOrders, nil)
	op.Start = time.Now().Add(-10 * time.Millisecond)
	Track(ctx, tc, op)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "db.paginate", span.Name)
	assert.Equal(t, codes.Unset, span.Status.Code)

	for key, want := range map[string]string{
		"db.collection.name": "orders",
		"db.operation.name":  "paginate",
		attrStatementID:      "stmt-42",
		attrExecContext:      "paginate",
		"server.address":     "db.internal",
	} {
		v, ok := spanAttr(span, key)
		require.True(t, ok, key)
		assert.Equal(t, want, v.AsString(), key)
	}

	v, ok := spanAttr(span, "server.port")
	require.True(t, ok)
	assert.Equal(t, int64(3306), v.AsInt64())
}

func TestTrackSpanWithoutLabel(t *testing.T) {
	exporter := setupTestTracerProvider(t)
	tc := newTestContext(mocks.NewLogger(), nil)

	Track(context.Background(), tc, Op{Kind: KindExec, Query: testInsertOrders, Start: time.Now(), Err: errors.New("duplicate key")})
	Track(context.Background(), tc, queryOp(testSelectOrders, sql.ErrNoRows))
	Track(context.Background(), tc, Op{Kind: KindBegin, Start: time.Now()})

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	assert.Equal(t, "db.insert", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "duplicate key", spans[0].Status.Description)
	v, ok := spanAttr(spans[0], "db.collection.name")
	require.True(t, ok)
	assert.Equal(t, "orders", v.AsString())

	assert.Equal(t, "db.select", spans[1].Name)
	assert.Equal(t, codes.Unset, spans[1].Status.Code)

	assert.Equal(t, "db.begin", spans[2].Name)
	_, ok = spanAttr(spans[2], "db.query.text")
	assert.False(t, ok)
}

func TestOpName(t *testing.T) {
	tests := []struct {
		op    Op
		label Label
		want  string
	}{
		{Op{Kind: KindQuery, Query: "SELECT 1"}, Label{}, "select"},
		{Op{Kind: KindExec, Query: "  insert into t values (1)"}, Label{}, "insert"},
		{Op{Kind: KindExec, Query: "PRAGMA foreign_keys = ON"}, Label{}, "exec"},
		{Op{Kind: KindQuery, Query: ""}, Label{}, "query"},
		{Op{Kind: KindQuery, Query: "SELECT 1"}, Label{Context: "count"}, "count"},
		{Op{Kind: KindPrepare, Query: "SELECT 1"}, Label{Context: "count"}, "prepare"},
		{Op{Kind: KindRollback}, Label{}, "rollback"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.name(tt.label), "%+v", tt.op)
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 0))
	assert.Equal(t, "hello", TruncateString("hello", 5))
	assert.Equal(t, "he", TruncateString("hello", 2))
	assert.Equal(t, "h...", TruncateString("hello", 4))
	assert.Equal(t, "héé...", TruncateString("hééééééé", 6))
}

func TestSanitizeArgs(t *testing.T) {
	assert.Nil(t, SanitizeArgs(nil, 10))
	got := SanitizeArgs([]any{nil, 42, sql.Named("status", "paid")}, 10)
	assert.Equal(t, []any{nil, "42", "status=paid"}, got)
}

func TestNewSettingsDefaults(t *testing.T) {
	s := NewSettings(nil)
	assert.True(t, s.SlowQueryEnabled())
	assert.Equal(t, DefaultSlowQueryThreshold, s.SlowQueryThreshold())
	assert.Equal(t, DefaultMaxQueryLength, s.MaxQueryLength())
	assert.False(t, s.LogQueryParameters())
	assert.True(t, s.allowSlowWarning())
}

func TestNewSettingsFromConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{}
	cfg.Query.Slow.Enabled = true
	cfg.Query.Slow.Threshold = 50 * time.Millisecond
	cfg.Query.Log.MaxLength = 200
	cfg.Query.Log.Parameters = true
	cfg.Query.Slow.Rate = 0.5

	s := NewSettings(cfg)
	assert.Equal(t, 50*time.Millisecond, s.SlowQueryThreshold())
	assert.Equal(t, 200, s.MaxQueryLength())
	assert.True(t, s.LogQueryParameters())
	assert.True(t, s.allowSlowWarning())
	assert.False(t, s.allowSlowWarning())
}
