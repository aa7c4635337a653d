package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kestrel-hq/kestrel/pkg/config"
)

// Collector owns every Prometheus metric the server exports. It implements
// the observer interfaces of the HTTP middleware, the completion service and
// the event recorder so each can report without importing Prometheus.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	httpMetrics       *HTTPMetrics
	completionMetrics *CompletionMetrics
	eventMetrics      *EventMetrics
	bindingMetrics    *BindingMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry gets a fresh one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = config.DefaultRequestDurationBuckets
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		httpMetrics:        NewHTTPMetrics(cfg, registry),
		completionMetrics:  NewCompletionMetrics(cfg, registry),
		eventMetrics:       NewEventMetrics(cfg, registry),
		bindingMetrics:     NewBindingMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}
}

// ObserveRequest records a served HTTP request. route is the matched route
// pattern, not the raw path.
func (c *Collector) ObserveRequest(route, method string, status int, duration time.Duration) {
	if !c.config.IsEnabled() {
		return
	}
	if route == "" || !c.cardinalityLimiter.Allow("http:"+route+":"+method) {
		route = "other"
	}
	c.httpMetrics.Record(route, method, strconv.Itoa(status), duration)
}

// CompletionServed records one completion.
func (c *Collector) CompletionServed(model string, duration time.Duration, err error) {
	if !c.config.IsEnabled() {
		return
	}
	if !c.cardinalityLimiter.Allow("completion:" + model) {
		model = "other"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.completionMetrics.Record(model, status, duration)
}

// EventRecorded counts a persisted event.
func (c *Collector) EventRecorded(eventType string) {
	if !c.config.IsEnabled() {
		return
	}
	c.eventMetrics.recorded.WithLabelValues(eventType).Inc()
}

// EventDropped counts an event that could not be persisted.
func (c *Collector) EventDropped(eventType string) {
	if !c.config.IsEnabled() {
		return
	}
	c.eventMetrics.dropped.WithLabelValues(eventType).Inc()
}

// UpdateBindingHealth sets the health gauge of a model binding.
func (c *Collector) UpdateBindingHealth(binding string, healthy bool) {
	if !c.config.IsEnabled() {
		return
	}
	c.bindingMetrics.UpdateHealth(binding, healthy)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of distinct label sets so that
// client-controlled values cannot grow the registry without bound.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality label sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or there is room for it.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
