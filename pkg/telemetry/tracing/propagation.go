package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

// Propagator is the W3C trace context and baggage propagator.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// Extract returns ctx carrying the remote span context found in headers.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes the span context of ctx into headers.
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
