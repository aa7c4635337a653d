package providerfactory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"kestrel-hq/kestrel/pkg/providers"
)

// Manager tracks the bindings resolved at startup.
// It owns their lifecycle: health monitoring while serving and Close on shutdown.
//
// Manager is thread-safe and can be used concurrently.
type Manager struct {
	providers map[string]providers.Provider
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewManager creates a new binding manager.
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		providers: make(map[string]providers.Provider),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Track adds a binding and starts its health checker.
// A binding with the same name is replaced and the old one is closed.
func (m *Manager) Track(p providers.Provider) {
	if p == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name := p.GetName()
	if existing, ok := m.providers[name]; ok && existing != p {
		slog.Warn("replacing existing binding", "name", name)
		_ = existing.Close()
	}

	StartHealthCheck(m.ctx, p)
	m.providers[name] = p

	slog.Info("binding added to manager",
		"name", name,
		"kind", p.GetType(),
		"total_bindings", len(m.providers),
	)
}

// Remove closes and forgets the named binding.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.providers[name]
	if !ok {
		return fmt.Errorf("binding %q not found", name)
	}

	if err := p.Close(); err != nil {
		slog.Error("error closing binding", "name", name, "error", err)
	}
	delete(m.providers, name)

	return nil
}

// Get returns a binding by name.
func (m *Manager) Get(name string) (providers.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("binding %q not found", name)
	}
	return p, nil
}

// Names returns the tracked binding names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of bindings.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.providers)
}

// HealthyCount returns the number of healthy bindings.
func (m *Manager) HealthyCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, p := range m.providers {
		if p.IsHealthy() {
			count++
		}
	}
	return count
}

// CheckHealth reports an error naming every unhealthy binding. It is
// suitable as a readiness check.
func (m *Manager) CheckHealth(ctx context.Context) error {
	summary := m.GetHealthSummary()
	if summary.Unhealthy == 0 {
		return nil
	}

	var unhealthy []string
	for name, h := range summary.Details {
		if !h.IsHealthy {
			unhealthy = append(unhealthy, name)
		}
	}
	sort.Strings(unhealthy)
	return fmt.Errorf("unhealthy bindings: %v", unhealthy)
}

// Close stops every health checker and closes all bindings.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancel()

	var errs []error
	for name, p := range m.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close binding %q: %w", name, err))
		}
	}
	m.providers = make(map[string]providers.Provider)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("binding manager closed")
	return nil
}

// GetHealthSummary returns a summary of binding health status.
func (m *Manager) GetHealthSummary() HealthSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := HealthSummary{
		Total:   len(m.providers),
		Details: make(map[string]providers.ProviderHealth),
	}

	for name, p := range m.providers {
		health := p.GetHealth()
		summary.Details[name] = health
		if health.IsHealthy {
			summary.Healthy++
		}
	}
	summary.Unhealthy = summary.Total - summary.Healthy

	return summary
}

// HealthSummary provides an overview of binding health across the manager.
type HealthSummary struct {
	// Total is the total number of bindings
	Total int

	// Healthy is the number of healthy bindings
	Healthy int

	// Unhealthy is the number of unhealthy bindings
	Unhealthy int

	// Details contains per-binding health information
	Details map[string]providers.ProviderHealth
}
