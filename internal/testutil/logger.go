// Package testutil provides common test utilities for fishlwr.
package testutil

import (
	"sync"

	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
)

// LogEntry is one captured log call.  Fields include those bound by With.
type LogEntry struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// Field returns the value of key and whether it was present.
func (e LogEntry) Field(key string) (interface{}, bool) {
	for i := len(e.Fields) - 1; i >= 0; i-- {
		if e.Fields[i].Key == key {
			return e.Fields[i].Value, true
		}
	}
	return nil, false
}

type logStore struct {
	mu      sync.Mutex
	entries []LogEntry
}

// RecordingLogger implements logging.Logger and keeps every entry in memory.
// Children from With and Named record into the same store.
type RecordingLogger struct {
	store  *logStore
	name   string
	fields []logging.Field
}

// NewRecordingLogger returns an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{store: &logStore{}}
}

func (l *RecordingLogger) log(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(l.fields)+len(fields))
	all = append(append(all, l.fields...), fields...)

	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.entries = append(l.store.entries, LogEntry{Level: level, Logger: l.name, Message: msg, Fields: all})
}

func (l *RecordingLogger) Debug(msg string, fields ...logging.Field) {
	l.log(logging.LevelDebug, msg, fields)
}

func (l *RecordingLogger) Info(msg string, fields ...logging.Field) {
	l.log(logging.LevelInfo, msg, fields)
}

func (l *RecordingLogger) Warn(msg string, fields ...logging.Field) {
	l.log(logging.LevelWarn, msg, fields)
}

func (l *RecordingLogger) Error(msg string, fields ...logging.Field) {
	l.log(logging.LevelError, msg, fields)
}

// Fatal is recorded at level "fatal"; it does not exit.
func (l *RecordingLogger) Fatal(msg string, fields ...logging.Field) {
	l.log("fatal", msg, fields)
}

func (l *RecordingLogger) With(fields ...logging.Field) logging.Logger {
	child := *l
	child.fields = append(append([]logging.Field(nil), l.fields...), fields...)
	return &child
}

func (l *RecordingLogger) Named(name string) logging.Logger {
	child := *l
	if l.name == "" {
		child.name = name
	} else {
		child.name = l.name + "." + name
	}
	return &child
}

func (l *RecordingLogger) Sync() error { return nil }

// Entries returns a copy of everything logged so far.
func (l *RecordingLogger) Entries() []LogEntry {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	out := make([]LogEntry, len(l.store.entries))
	copy(out, l.store.entries)
	return out
}

// Find returns the entries logged at level with message msg.
func (l *RecordingLogger) Find(level, msg string) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries() {
		if e.Level == level && e.Message == msg {
			out = append(out, e)
		}
	}
	return out
}

// HasMessage reports whether msg was logged at level.
func (l *RecordingLogger) HasMessage(level, msg string) bool {
	return len(l.Find(level, msg)) > 0
}

// Clear drops the recorded entries.
func (l *RecordingLogger) Clear() {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.entries = l.store.entries[:0]
}

var _ logging.Logger = (*RecordingLogger)(nil)

//Personal.AI order the ending
