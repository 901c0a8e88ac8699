package middleware

import (
	"log/slog"
	"net/http"

	"github.com/taskify/taskify-api/internal/api/shared"
)

// TraceMiddleware stamps every request with a trace ID and logs the request
// start. It runs early in the chain so downstream handlers and the response
// envelope can echo the same ID.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())
		traceID := shared.GetTraceID(ctx)

		log := slog.With(slog.String("trace_id", traceID))
		log.Debug("request started",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
