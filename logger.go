package lazyarr

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with lazyarr-specific context.
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

// WithDataset adds a dataset path field to the logger.
func (l *Logger) WithDataset(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dataset", path),
	}
}

// WithVariable adds a variable name field to the logger.
func (l *Logger) WithVariable(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("variable", name),
	}
}

// LogOpen logs a dataset open.
func (l *Logger) LogOpen(ctx context.Context, path string, variables int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"dataset", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "open completed",
			"dataset", path,
			"variables", variables,
		)
	}
}

// LogMaterialize logs a materialization.
func (l *Logger) LogMaterialize(ctx context.Context, chunks int, mode Mode, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "materialize failed",
			"chunks", chunks,
			"mode", mode,
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "materialize completed",
			"chunks", chunks,
			"mode", mode,
			"elapsed", elapsed,
		)
	}
}
