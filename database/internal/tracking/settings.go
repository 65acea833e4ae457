// Package tracking instruments database operations with structured logs, slow statement
// warnings, OpenTelemetry spans and metrics. Every supported backend is wrapped the same way.
package tracking

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/logger"
)

const (
	// DefaultSlowQueryThreshold is used when the configuration leaves the threshold unset.
	DefaultSlowQueryThreshold = 200 * time.Millisecond
	// DefaultMaxQueryLength caps how much SQL text ends up in a log line.
	DefaultMaxQueryLength = 1000
)

// Settings holds the tracking knobs derived from config.DatabaseConfig.
type Settings struct {
	slowQueryEnabled   bool
	slowQueryThreshold time.Duration
	maxQueryLength     int
	logQueryParameters bool
	slowLimiter        *rate.Limiter
}

// Context is what Track needs to know about the connection an Op ran on.
type Context struct {
	Logger   logger.Logger
	Vendor   string
	Settings Settings

	ServerAddress string
	ServerPort    int
	Namespace     string
}

// NewSettings derives Settings from cfg. A nil cfg yields the defaults with slow
// statement detection enabled and no warning throttle.
func NewSettings(cfg *config.DatabaseConfig) Settings {
	settings := Settings{
		slowQueryEnabled:   true,
		slowQueryThreshold: DefaultSlowQueryThreshold,
		maxQueryLength:     DefaultMaxQueryLength,
	}

	if cfg == nil {
		return settings
	}

	settings.slowQueryEnabled = cfg.Query.Slow.Enabled
	if cfg.Query.Slow.Threshold > 0 {
		settings.slowQueryThreshold = cfg.Query.Slow.Threshold
	}
	if cfg.Query.Log.MaxLength > 0 {
		settings.maxQueryLength = cfg.Query.Log.MaxLength
	}
	settings.logQueryParameters = cfg.Query.Log.Parameters

	if r := cfg.Query.Slow.Rate; r > 0 {
		burst := int(r)
		if burst < 1 {
			burst = 1
		}
		settings.slowLimiter = rate.NewLimiter(rate.Limit(r), burst)
	}

	return settings
}

// SlowQueryEnabled reports whether slow statements are logged as warnings.
func (s Settings) SlowQueryEnabled() bool {
	return s.slowQueryEnabled
}

// SlowQueryThreshold returns the duration above which a statement counts as slow.
func (s Settings) SlowQueryThreshold() time.Duration {
	return s.slowQueryThreshold
}

// MaxQueryLength returns the maximum logged query length.
func (s Settings) MaxQueryLength() int {
	return s.maxQueryLength
}

// LogQueryParameters reports whether bound arguments are logged.
func (s Settings) LogQueryParameters() bool {
	return s.logQueryParameters
}

// allowSlowWarning consumes a token from the slow warning limiter, if one is configured.
func (s Settings) allowSlowWarning() bool {
	return s.slowLimiter == nil || s.slowLimiter.Allow()
}
