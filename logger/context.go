package logger

import (
	"context"
	"sync/atomic"
	"time"
)

type statsKey struct{}

type statementStats struct {
	count   atomic.Int64
	elapsed atomic.Int64
}

// WithStatementStats returns a context that accumulates the number of executed
// statements and their total runtime. Nested calls reuse the outer accumulator.
func WithStatementStats(ctx context.Context) context.Context {
	if _, ok := ctx.Value(statsKey{}).(*statementStats); ok {
		return ctx
	}
	return context.WithValue(ctx, statsKey{}, &statementStats{})
}

// RecordStatement adds one statement of the given runtime to the accumulator in ctx.
// It does nothing when ctx carries none.
func RecordStatement(ctx context.Context, elapsed time.Duration) {
	if s, ok := ctx.Value(statsKey{}).(*statementStats); ok {
		s.count.Add(1)
		s.elapsed.Add(int64(elapsed))
	}
}

// StatementStats reports the statements recorded in ctx so far.
func StatementStats(ctx context.Context) (count int64, elapsed time.Duration) {
	if s, ok := ctx.Value(statsKey{}).(*statementStats); ok {
		return s.count.Load(), time.Duration(s.elapsed.Load())
	}
	return 0, 0
}
