// Package tracing sets up OpenTelemetry tracing for the server.
//
// New installs a global tracer provider that exports spans to an OTLP gRPC
// collector and a W3C trace context propagator. Packages that do not hold
// a *Tracer start spans through the package-level Start, which reads the
// global provider, so they stay silent until tracing is enabled.
//
// Configuration:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: "otel-collector:4317"
//	    insecure: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//
// Incoming traceparent headers are honored: a request that arrives inside
// a sampled trace is always sampled.
package tracing
