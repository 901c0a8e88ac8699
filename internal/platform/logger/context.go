package logger

import (
	"context"
	"log/slog"
)

// loggerKey is the private context key under which a request-scoped
// logger is stored.
type loggerKey struct{}

// WithLogger returns a new context carrying the given logger.
// Handlers and middleware use this to propagate a logger enriched
// with request attributes (trace ID, user ID) down the call stack.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext retrieves the logger stored in the context.
// If the context carries no logger, the process-wide default is returned,
// so callers can always log without nil checks.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// FromContextOrDefault retrieves the logger stored in the context, falling
// back to the provided default rather than the global one. Components that
// hold their own component-tagged logger use this so per-request loggers
// win when present.
func FromContextOrDefault(ctx context.Context, def *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	if def != nil {
		return def
	}
	return slog.Default()
}
