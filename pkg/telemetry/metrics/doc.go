// Package metrics exports Prometheus metrics for the Kestrel server.
//
// # Metrics
//
//   - kestrel_http_requests_total, kestrel_http_request_duration_seconds:
//     served requests by route pattern, method and status
//   - kestrel_completion_requests_total, kestrel_completion_duration_seconds:
//     completions by model and outcome
//   - kestrel_events_recorded_total, kestrel_events_dropped_total: the event
//     recorder's write results by event type
//   - kestrel_binding_healthy: model binding health gauge
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	router.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// The Collector satisfies the observer interfaces of the request middleware,
// the completion service and the event recorder, so those packages stay free
// of Prometheus imports. Route and model labels pass through a cardinality
// limiter; label sets past the limit are folded into "other".
package metrics
