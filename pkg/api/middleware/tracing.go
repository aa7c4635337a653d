package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kestrel-hq/kestrel/pkg/telemetry/tracing"
)

// TraceIDHeader carries the trace ID of a sampled request back to the client.
const TraceIDHeader = "X-Trace-ID"

// TracingMiddleware starts a server span per request, continuing any trace
// context found in the request headers. The span is renamed to the matched
// route pattern once routing is done.
func TracingMiddleware(tracer *tracing.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tracer == nil || !tracer.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := tracing.Extract(r.Context(), r.Header)
			ctx, span := tracer.Start(ctx, r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
					attribute.String("request.id", GetRequestID(r.Context())),
				),
			)
			defer span.End()

			if id := tracing.TraceID(ctx); id != "" {
				w.Header().Set(TraceIDHeader, id)
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				span.SetName(r.Method + " " + rctx.RoutePattern())
				span.SetAttributes(attribute.String("http.route", rctx.RoutePattern()))
			}
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}
