package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// event is the zerolog-backed LogEvent. A nil zerolog event (level disabled) is
// valid; zerolog turns every call on it into a no-op.
type event struct {
	zev    *zerolog.Event
	redact *SensitiveDataFilter
}

func (l *ZeroLogger) event(zev *zerolog.Event) LogEvent {
	return &event{zev: zev, redact: l.filter}
}

func (e *event) with(zev *zerolog.Event) LogEvent {
	return &event{zev: zev, redact: e.redact}
}

func (e *event) Msg(msg string) { e.zev.Msg(msg) }

func (e *event) Msgf(format string, args ...any) { e.zev.Msgf(format, args...) }

func (e *event) Err(err error) LogEvent { return e.with(e.zev.Err(err)) }

// Str masks value when key names a sensitive field.
func (e *event) Str(key, value string) LogEvent {
	if e.redact != nil {
		value = e.redact.FilterString(key, value)
	}
	return e.with(e.zev.Str(key, value))
}

func (e *event) Int(key string, value int) LogEvent { return e.with(e.zev.Int(key, value)) }

func (e *event) Int64(key string, value int64) LogEvent { return e.with(e.zev.Int64(key, value)) }

func (e *event) Bool(key string, value bool) LogEvent { return e.with(e.zev.Bool(key, value)) }

func (e *event) Dur(key string, d time.Duration) LogEvent { return e.with(e.zev.Dur(key, d)) }

// Interface masks sensitive keys inside maps and structs before encoding.
func (e *event) Interface(key string, value any) LogEvent {
	if e.redact != nil {
		value = e.redact.FilterValue(key, value)
	}
	return e.with(e.zev.Interface(key, value))
}
