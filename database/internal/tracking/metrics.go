package tracking

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	dbMeterName = "querykit/database"

	metricOperations   = "db.client.operations"
	metricDuration     = "db.client.operation.duration"
	metricRowsAffected = "db.client.rows_affected"

	metricPoolInUse   = "db.client.connection.in_use"
	metricPoolIdle    = "db.client.connection.idle"
	metricPoolOpen    = "db.client.connection.open"
	metricPoolMaxOpen = "db.client.connection.max"

	unknownTable = "unknown"
)

type instruments struct {
	meter      metric.Meter
	operations metric.Int64Counter
	duration   metric.Float64Histogram
	rows       metric.Int64Counter
}

// metricError reports instrument failures on stderr; metrics never fail a statement.
func metricError(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: querykit metric %s: %v\n", name, err)
	}
}

var meterInstruments = sync.OnceValue(func() *instruments {
	m := otel.Meter(dbMeterName)
	in := &instruments{meter: m}

	var err error
	in.operations, err = m.Int64Counter(metricOperations,
		metric.WithDescription("Database driver calls made by querykit"))
	metricError(metricOperations, err)

	in.duration, err = m.Float64Histogram(metricDuration,
		metric.WithDescription("Duration of database driver calls"),
		metric.WithUnit("ms"))
	metricError(metricDuration, err)

	in.rows, err = m.Int64Counter(metricRowsAffected,
		metric.WithDescription("Rows affected by successful writes"))
	metricError(metricRowsAffected, err)

	return in
})

func recordOpMetrics(ctx context.Context, tc *Context, op Op, name, table string, elapsed time.Duration) {
	in := meterInstruments()
	attrs := metric.WithAttributes(
		attribute.String("db.system", normalizeDBVendor(tc.Vendor)),
		attribute.String("db.operation.name", name),
		attribute.String("db.collection.name", table),
	)

	if in.operations != nil {
		in.operations.Add(ctx, 1, attrs, metric.WithAttributes(attribute.Bool("error", op.failed())))
	}
	if in.duration != nil {
		in.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	}
	if in.rows != nil && op.Rows > 0 && !op.failed() {
		in.rows.Add(ctx, op.Rows, attrs)
	}
}

var (
	tableIdent    = "(?:[`\"]?\\w+[`\"]?\\.)?[`\"]?(\\w+)[`\"]?"
	tablePatterns = map[string]*regexp.Regexp{
		"SELECT": regexp.MustCompile("(?i)\\bFROM\\s+" + tableIdent),
		"INSERT": regexp.MustCompile("(?i)^INSERT\\s+(?:OR\\s+IGNORE\\s+|IGNORE\\s+)?INTO\\s+" + tableIdent),
		"UPDATE": regexp.MustCompile("(?i)^UPDATE\\s+(?:IGNORE\\s+)?" + tableIdent),
		"DELETE": regexp.MustCompile("(?i)^DELETE\\s+FROM\\s+" + tableIdent),
	}
)

// extractTableName returns the first table a DML statement touches, or "unknown".
// Derived tables report their inner table. Used for SQL that runs without a label.
func extractTableName(query string) string {
	query = strings.TrimSpace(query)
	verb := strings.ToUpper(sqlVerb(query, ""))
	if verb == "WITH" {
		verb = "SELECT"
	}
	pattern, ok := tablePatterns[verb]
	if !ok {
		return unknownTable
	}
	if m := pattern.FindStringSubmatch(query); len(m) > 1 {
		return strings.ToLower(m[1])
	}
	return unknownTable
}

// StatsProvider is anything that reports database/sql pool statistics.
type StatsProvider interface {
	Stats() (map[string]any, error)
}

// poolStat reads an integer pool statistic; sqlconn reports int and int64 values.
func poolStat(stats map[string]any, key string) int64 {
	switch v := stats[key].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

// RegisterConnectionPoolMetrics registers observable gauges reporting the pool state of
// conn. The returned function unregisters them and is safe to call when registration failed.
func RegisterConnectionPoolMetrics(conn StatsProvider, vendor string) func() {
	m := meterInstruments().meter
	gauges := map[string]metric.Int64ObservableGauge{}
	for key, name := range map[string]string{
		"in_use":               metricPoolInUse,
		"idle":                 metricPoolIdle,
		"open_connections":     metricPoolOpen,
		"max_open_connections": metricPoolMaxOpen,
	} {
		g, err := m.Int64ObservableGauge(name, metric.WithDescription("database/sql pool "+key))
		metricError(name, err)
		if err == nil {
			gauges[key] = g
		}
	}
	if len(gauges) == 0 {
		return func() {}
	}

	observables := make([]metric.Observable, 0, len(gauges))
	for _, g := range gauges {
		observables = append(observables, g)
	}
	attrs := metric.WithAttributes(attribute.String("db.system", normalizeDBVendor(vendor)))

	reg, err := m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats, err := conn.Stats()
		if err != nil {
			return nil
		}
		for key, g := range gauges {
			o.ObserveInt64(g, poolStat(stats, key), attrs)
		}
		return nil
	}, observables...)
	if err != nil {
		metricError("pool callback", err)
		return func() {}
	}

	return func() {
		if err := reg.Unregister(); err != nil {
			metricError("pool callback", err)
		}
	}
}
