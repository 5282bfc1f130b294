package blobarena

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with blobarena-specific context.
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
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithName adds a dataset name field to the logger.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("name", name),
	}
}

// LogGrow logs an arena reallocation.
func (l *Logger) LogGrow(ctx context.Context, oldCapacity, newCapacity, used int) {
	l.DebugContext(ctx, "arena grown",
		"old_capacity", oldCapacity,
		"new_capacity", newCapacity,
		"used", used,
	)
}

// LogDispose logs the release of an arena.
func (l *Logger) LogDispose(ctx context.Context, capacity, used int) {
	l.DebugContext(ctx, "arena disposed",
		"capacity", capacity,
		"used", used,
	)
}

// LogAllocFailed logs a failed container allocation.
func (l *Logger) LogAllocFailed(ctx context.Context, kind string, capacity int, err error) {
	l.WarnContext(ctx, "allocation failed",
		"kind", kind,
		"capacity", capacity,
		"error", err,
	)
}

// LogSnapshot logs a snapshot write or read.
func (l *Logger) LogSnapshot(ctx context.Context, op string, size int64, codec string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"op", op,
			"codec", codec,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot completed",
			"op", op,
			"size", size,
			"codec", codec,
		)
	}
}

// LogLoad logs a catalog load.
func (l *Logger) LogLoad(ctx context.Context, name, blob string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"name", name,
			"blob", blob,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "load completed",
			"name", name,
			"blob", blob,
			"size", size,
		)
	}
}

// LogPublish logs a catalog publish.
func (l *Logger) LogPublish(ctx context.Context, name, blob string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "publish failed",
			"name", name,
			"blob", blob,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "publish completed",
			"name", name,
			"blob", blob,
		)
	}
}
