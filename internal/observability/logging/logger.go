// Package logging builds the process loggers on log/slog and carries them
// through contexts so the scrape pipeline can tag every line with its run.
package logging

import (
	"context"
	"log/slog"
	"os"
)

type contextKey struct{}

var loggerKey contextKey

// levelFromEnv maps LOG_LEVEL to a slog level. Anything unrecognized,
// including an unset variable, means info.
func levelFromEnv() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions() *slog.HandlerOptions {
	level := levelFromEnv()
	return &slog.HandlerOptions{
		Level: level,
		// ソース位置は冗長なので debug 運用時のみ
		AddSource: level <= slog.LevelDebug,
	}
}

// NewLogger returns a JSON logger for the long-running worker, where the
// output feeds a log collector.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, handlerOptions()))
}

// NewTextLogger returns a text logger for manual CLI runs.
func NewTextLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, handlerOptions()))
}

// WithFields attaches a set of fields to a logger in one call.
func WithFields(logger *slog.Logger, fields map[string]interface{}) *slog.Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return logger.With(args...)
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the context's logger, falling back to the process
// default so call sites never need a nil check.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
