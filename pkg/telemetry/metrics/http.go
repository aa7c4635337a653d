package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kestrel-hq/kestrel/pkg/config"
)

// HTTPMetrics tracks served HTTP requests.
//
// Metrics:
//   - kestrel_http_requests_total: requests by route, method and status
//   - kestrel_http_request_duration_seconds: latency by route and method
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"route", "method", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"route", "method"},
		),
	}

	registry.MustRegister(hm.requestsTotal, hm.requestDuration)
	return hm
}

// Record records one request.
func (hm *HTTPMetrics) Record(route, method, status string, duration time.Duration) {
	hm.requestsTotal.WithLabelValues(route, method, status).Inc()
	hm.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}
