// Package logging provides structured logging for the pipeline
package logging

import (
	"log/slog"
	"os"
)

// New creates a new structured logger
func New(level string, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// ForWorker returns a logger tagged with the worker's name. All long-lived
// loops log through one of these so log lines are attributable.
func ForWorker(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		return slog.Default().With("worker", name)
	}
	return logger.With("worker", name)
}
