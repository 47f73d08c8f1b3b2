// Package middleware provides HTTP middleware for the curation API.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/fokal/curator/internal/api/shared"
)

// NewTraceMiddleware returns middleware that stamps every request with a
// trace ID. Apply it early in the chain so all handlers and error responses
// can correlate with the server logs.
func NewTraceMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())

			logger.Debug("request started",
				"trace_id", shared.GetTraceID(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
