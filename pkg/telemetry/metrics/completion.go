package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kestrel-hq/kestrel/pkg/config"
)

// CompletionMetrics tracks completions served by the model binding.
//
// Metrics:
//   - kestrel_completion_requests_total: completions by model and status
//   - kestrel_completion_duration_seconds: end-to-end completion latency
type CompletionMetrics struct {
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewCompletionMetrics creates and registers completion metrics.
func NewCompletionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CompletionMetrics {
	cm := &CompletionMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "completion",
				Name:      "requests_total",
				Help:      "Total number of code completions",
			},
			[]string{"model", "status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "completion",
				Name:      "duration_seconds",
				Help:      "Duration of code completions in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"model"},
		),
	}

	registry.MustRegister(cm.requestsTotal, cm.duration)
	return cm
}

// Record records one completion.
func (cm *CompletionMetrics) Record(model, status string, duration time.Duration) {
	cm.requestsTotal.WithLabelValues(model, status).Inc()
	cm.duration.WithLabelValues(model).Observe(duration.Seconds())
}

// BindingMetrics exposes model binding health.
type BindingMetrics struct {
	health *prometheus.GaugeVec
}

// NewBindingMetrics creates and registers binding metrics.
func NewBindingMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BindingMetrics {
	bm := &BindingMetrics{
		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "binding",
				Name:      "healthy",
				Help:      "Model binding health (1 = healthy, 0 = unhealthy)",
			},
			[]string{"binding"},
		),
	}

	registry.MustRegister(bm.health)
	return bm
}

// UpdateHealth sets the gauge for binding.
func (bm *BindingMetrics) UpdateHealth(binding string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	bm.health.WithLabelValues(binding).Set(v)
}
