package database

import (
	"github.com/gaborage/querykit/database/internal/tracking"
)

// Re-export the tracking wrappers for callers that bring their own connection.
type (
	TrackedConnection = tracking.Connection
	TrackingContext   = tracking.Context
	TrackingSettings  = tracking.Settings
	// StatementLabel identifies the statement behind driver calls in logs, spans and metrics.
	StatementLabel = tracking.Label
)

var (
	NewTrackedConnection = tracking.NewConnection
	NewTrackingSettings  = tracking.NewSettings
	// StatementID returns the correlation ID of the statement running under ctx.
	StatementID = tracking.StatementID
	// LabelStatement tags ctx so driver calls made under it report the given label.
	LabelStatement = tracking.WithLabel
)

const (
	DefaultSlowQueryThreshold = tracking.DefaultSlowQueryThreshold
	DefaultMaxQueryLength     = tracking.DefaultMaxQueryLength
)
