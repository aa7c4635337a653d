package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"kestrel-hq/kestrel/pkg/config"
)

// EventMetrics counts events handled by the event recorder.
type EventMetrics struct {
	recorded *prometheus.CounterVec
	dropped  *prometheus.CounterVec
}

// NewEventMetrics creates event metrics registered with registry.
func NewEventMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EventMetrics {
	factory := promauto.With(registry)

	return &EventMetrics{
		recorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "events",
				Name:      "recorded_total",
				Help:      "Total number of events written to storage",
			},
			[]string{"type"},
		),
		dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "events",
				Name:      "dropped_total",
				Help:      "Total number of events dropped before reaching storage",
			},
			[]string{"type"},
		),
	}
}
