package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"kestrel-hq/kestrel/pkg/telemetry/logging"
)

// RequestIDHeader is the HTTP header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware assigns every request an ID, taken from the
// X-Request-ID header when the client sends one. The ID is echoed in the
// response header and stored in the request context, where the process
// logger picks it up for every record logged with that context.
//
// Example usage:
//
//	handler = RequestIDMiddleware(handler)
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := logging.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	return logging.RequestID(ctx)
}
