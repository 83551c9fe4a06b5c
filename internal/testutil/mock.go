// Package testutil provides testing utilities for anchor.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/agentstation/anchor"
)

// Recorder records the order in which nodes are invoked.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// Record appends name to the call log.
func (r *Recorder) Record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

// Calls returns a copy of the call log.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	calls := make([]string, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// Count returns how often name was recorded.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Transform returns a named node applying fn and recording every call.
func Transform[In, Out any](r *Recorder, name string, fn func(In) Out) anchor.Node[In, Out] {
	return anchor.Func(name, func(ctx context.Context, input In) (Out, error) {
		r.Record(name)
		return fn(input), nil
	})
}

// Fail returns a named node that records the call and fails with err.
func Fail[In, Out any](r *Recorder, name string, err error) anchor.Node[In, Out] {
	return anchor.Func(name, func(ctx context.Context, input In) (Out, error) {
		r.Record(name)
		var zero Out
		return zero, err
	})
}

// Delay returns a named node that waits for d, honoring cancellation,
// before applying fn. The call is recorded when the node completes.
func Delay[In, Out any](r *Recorder, name string, d time.Duration, fn func(In) Out) anchor.Node[In, Out] {
	return anchor.Func(name, func(ctx context.Context, input In) (Out, error) {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			var zero Out
			return zero, ctx.Err()
		}
		r.Record(name)
		return fn(input), nil
	})
}

// MockLogger provides a mock logger for testing.
type MockLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

// LogEntry represents a log entry.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// NewMockLogger creates a new mock logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// Debug logs a debug message.
func (l *MockLogger) Debug(ctx context.Context, msg string, keysAndValues ...any) {
	l.log("debug", msg, keysAndValues...)
}

// Info logs an info message.
func (l *MockLogger) Info(ctx context.Context, msg string, keysAndValues ...any) {
	l.log("info", msg, keysAndValues...)
}

// Error logs an error message.
func (l *MockLogger) Error(ctx context.Context, msg string, keysAndValues ...any) {
	l.log("error", msg, keysAndValues...)
}

func (l *MockLogger) log(level, msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := make(map[string]any)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}

	l.entries = append(l.entries, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  fields,
	})
}

// Entries returns all log entries.
func (l *MockLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]LogEntry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// HasEntry checks if a log entry exists.
func (l *MockLogger) HasEntry(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, entry := range l.entries {
		if entry.Level == level && entry.Message == msg {
			return true
		}
	}
	return false
}
