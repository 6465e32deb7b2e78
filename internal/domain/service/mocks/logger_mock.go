package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/logger"
)

// LogEntry is one line captured by RecordingLogger.
type LogEntry struct {
	Level   constants.LogLevel
	Message string
	Fields  map[string]interface{}
}

// String renders the entry with its fields sorted by key.
func (e LogEntry) String() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", strings.ToUpper(string(e.Level)), e.Message)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

type logSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// RecordingLogger is a logger.Logger that keeps every entry in memory.
// Loggers derived with WithFields or WithComponent share its entries.
type RecordingLogger struct {
	sink   *logSink
	fields []logger.Field
}

// NewRecordingLogger returns an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{sink: &logSink{}}
}

// Entries returns the captured entries at level, or all entries when level is "".
func (l *RecordingLogger) Entries(level constants.LogLevel) []LogEntry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	var out []LogEntry
	for _, e := range l.sink.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Lines renders Entries(level) as strings.
func (l *RecordingLogger) Lines(level constants.LogLevel) []string {
	entries := l.Entries(level)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.String())
	}
	return out
}

// Reset drops every captured entry.
func (l *RecordingLogger) Reset() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = nil
}

func (l *RecordingLogger) record(level constants.LogLevel, msg string, err error, fields []logger.Field) {
	m := make(map[string]interface{}, len(l.fields)+len(fields)+1)
	for _, f := range l.fields {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	if err != nil {
		m["error"] = err.Error()
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, LogEntry{Level: level, Message: msg, Fields: m})
}

func (l *RecordingLogger) Debug(_ context.Context, msg string, fields ...logger.Field) {
	l.record(constants.LogLevelDebug, msg, nil, fields)
}

func (l *RecordingLogger) Info(_ context.Context, msg string, fields ...logger.Field) {
	l.record(constants.LogLevelInfo, msg, nil, fields)
}

func (l *RecordingLogger) Warn(_ context.Context, msg string, fields ...logger.Field) {
	l.record(constants.LogLevelWarn, msg, nil, fields)
}

func (l *RecordingLogger) Error(_ context.Context, msg string, err error, fields ...logger.Field) {
	l.record(constants.LogLevelError, msg, err, fields)
}

// Fatal records at error level and does not exit.
func (l *RecordingLogger) Fatal(_ context.Context, msg string, err error, fields ...logger.Field) {
	l.record(constants.LogLevelError, msg, err, fields)
}

func (l *RecordingLogger) WithFields(fields ...logger.Field) logger.Logger {
	next := make([]logger.Field, 0, len(l.fields)+len(fields))
	next = append(next, l.fields...)
	next = append(next, fields...)
	return &RecordingLogger{sink: l.sink, fields: next}
}

func (l *RecordingLogger) WithComponent(component string) logger.Logger {
	return l.WithFields(logger.String("component", component))
}

func (l *RecordingLogger) SetLevel(constants.LogLevel) {}
