package logger

import (
	"context"
	"log/slog"
)

// contextKey is unexported so no other package can collide with it.
type contextKey struct{}

// WithContext returns a copy of ctx carrying the request-scoped logger.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx.
// It never returns nil: without an injected logger it falls back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}
