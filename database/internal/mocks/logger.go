// Package mocks provides test doubles shared by the database package tests.
package mocks

import (
	"fmt"
	"sync"
	"time"

	"github.com/gaborage/querykit/logger"
)

// Entry is one message captured by Logger.
type Entry struct {
	Level  string
	Msg    string
	Err    error
	Fields map[string]any
}

// Logger records every emitted message so tests can assert on log output.
// Child loggers created by WithFields share the parent's entry list.
type Logger struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  map[string]any
}

var (
	_ logger.Logger   = (*Logger)(nil)
	_ logger.LogEvent = (*LogEvent)(nil)
)

// NewLogger returns an empty recording logger.
func NewLogger() *Logger {
	return &Logger{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (l *Logger) Info() logger.LogEvent  { return l.event("info") }
func (l *Logger) Error() logger.LogEvent { return l.event("error") }
func (l *Logger) Debug() logger.LogEvent { return l.event("debug") }
func (l *Logger) Warn() logger.LogEvent  { return l.event("warn") }

func (l *Logger) WithContext(_ any) logger.Logger { return l }

func (l *Logger) WithFields(fields map[string]any) logger.Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{mu: l.mu, entries: l.entries, fields: merged}
}

// Entries returns a copy of the captured entries.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), *l.entries...)
}

// EntriesAt returns the captured entries of one level.
func (l *Logger) EntriesAt(level string) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func (l *Logger) event(level string) *LogEvent {
	fields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &LogEvent{parent: l, entry: Entry{Level: level, Fields: fields}}
}

// LogEvent accumulates fields until Msg or Msgf records it.
type LogEvent struct {
	parent *Logger
	entry  Entry
}

func (e *LogEvent) Str(key, value string) logger.LogEvent           { return e.set(key, value) }
func (e *LogEvent) Int(key string, value int) logger.LogEvent       { return e.set(key, value) }
func (e *LogEvent) Int64(key string, value int64) logger.LogEvent   { return e.set(key, value) }
func (e *LogEvent) Bool(key string, value bool) logger.LogEvent     { return e.set(key, value) }
func (e *LogEvent) Dur(key string, d time.Duration) logger.LogEvent { return e.set(key, d) }
func (e *LogEvent) Interface(key string, i any) logger.LogEvent     { return e.set(key, i) }

func (e *LogEvent) Err(err error) logger.LogEvent {
	e.entry.Err = err
	return e
}

func (e *LogEvent) Msg(msg string) {
	e.entry.Msg = msg
	e.parent.mu.Lock()
	defer e.parent.mu.Unlock()
	*e.parent.entries = append(*e.parent.entries, e.entry)
}

func (e *LogEvent) Msgf(format string, args ...any) {
	e.Msg(fmt.Sprintf(format, args...))
}

func (e *LogEvent) set(key string, value any) logger.LogEvent {
	e.entry.Fields[key] = value
	return e
}
