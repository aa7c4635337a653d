package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"kestrel-hq/kestrel/pkg/api/types"
)

// RecoveryMiddleware turns a handler panic into a 500 response in the
// OpenAI error format. The panic value and stack are logged, never sent to
// the client.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				writeError(w, types.NewServerError(
					"An internal error occurred. Please try again later.",
				))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
