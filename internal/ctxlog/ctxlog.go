// Package ctxlog carries a slog.Logger through context.Context so that every
// layer of a run (planner, executor workers, runner handlers) logs through the
// same configured instance.
package ctxlog

import (
	"context"
	"log/slog"
)

// key is an unexported type so context keys from other packages cannot collide.
type key struct{}

var loggerKey = key{}

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. If no logger was
// embedded it falls back to the process default logger, so library code and
// tests can always log safely.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
