package multisum

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with multisum-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogBuild logs a zeroboard build.
func (l *Logger) LogBuild(ctx context.Context, k, entries int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "zeroboard build failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "zeroboard built",
			"k", k,
			"entries", entries,
			"duration", duration,
		)
	}
}

// LogQuery logs a query run.
func (l *Logger) LogQuery(ctx context.Context, query float64, total uint64, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"query", query,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"query", query,
			"total", total,
			"duration", duration,
		)
	}
}

// LogBatch logs a batch run.
func (l *Logger) LogBatch(ctx context.Context, queries int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch failed",
			"queries", queries,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "batch completed",
			"queries", queries,
			"duration", duration,
		)
	}
}

// LogSnapshotSave logs a board snapshot write.
func (l *Logger) LogSnapshotSave(ctx context.Context, k int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot save failed",
			"k", k,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"k", k,
		)
	}
}

// LogSnapshotLoad logs a board snapshot read.
func (l *Logger) LogSnapshotLoad(ctx context.Context, k, entries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot load failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot loaded",
			"k", k,
			"entries", entries,
		)
	}
}

// LogConfigWarning logs a configuration surface that is accepted but
// ignored.
func (l *Logger) LogConfigWarning(ctx context.Context, msg string, args ...any) {
	l.WarnContext(ctx, msg, args...)
}
