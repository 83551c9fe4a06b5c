// Package log provides a zap-backed logger for chains.
package log

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agentstation/anchor/internal/runid"
)

// Log level constants
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalColorLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// Default writes console output to stderr at the level set by SetLevel.
var Default = NewWithCore(zapcore.NewCore(
	zapcore.NewConsoleEncoder(encoderConfig),
	zapcore.AddSync(os.Stderr),
	zapLevel,
))

// SetLevel sets the level of Default.
// Valid levels are: "debug", "info", "warn", "error"
func SetLevel(level string) {
	zapLevel.SetLevel(parseLevel(level))
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger logs through a zap SugaredLogger. The run id of a traced chain,
// when present in the context, is attached to every entry.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New creates a console logger writing to stderr at level, independent of
// the level of Default.
func New(level string) *Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter creates a console logger writing to w at level.
func NewWithWriter(w io.Writer, level string) *Logger {
	return NewWithCore(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(parseLevel(level)),
	))
}

// NewWithCore creates a logger on top of core.
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{sugar: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar()}
}

// Named returns a logger with name appended to its name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{sugar: l.sugar.Named(name)}
}

// Debug logs at debug level.
func (l *Logger) Debug(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, zapcore.DebugLevel, msg, keysAndValues)
}

// Info logs at info level.
func (l *Logger) Info(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, zapcore.InfoLevel, msg, keysAndValues)
}

// Error logs at error level.
func (l *Logger) Error(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, zapcore.ErrorLevel, msg, keysAndValues)
}

func (l *Logger) log(ctx context.Context, lvl zapcore.Level, msg string, kv []any) {
	if id := runid.From(ctx); id != "" && !hasKey(kv, "run_id") {
		kv = append([]any{"run_id", id}, kv...)
	}
	l.sugar.Logw(lvl, msg, kv...)
}

func hasKey(kv []any, key string) bool {
	for i := 0; i < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			return true
		}
	}
	return false
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
