package logging

import "context"

type contextKey string

// RequestIDKey is the context key and log attribute name for request IDs.
const RequestIDKey contextKey = "request_id"

// TraceIDKey is the log attribute carrying the active span's trace ID.
const TraceIDKey = "trace_id"

// WithRequestID adds a request ID to the context. Loggers built by New
// attach it to every record logged with that context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
