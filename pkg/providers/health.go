package providers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// StartHealthChecker starts a background goroutine that periodically checks
// the binding's health. It updates the binding's health status atomically.
//
// The health checker runs until the binding is closed or the context is cancelled.
// It implements exponential backoff when the binding is unhealthy to reduce load.
func (p *HTTPProvider) StartHealthChecker(ctx context.Context) {
	if !p.checkerStarted.CompareAndSwap(false, true) {
		return
	}
	go p.runHealthChecker(ctx)
}

// runHealthChecker is the main health checking loop.
func (p *HTTPProvider) runHealthChecker(ctx context.Context) {
	defer close(p.healthCheckStopped)

	interval := p.config.HealthCheckInterval
	if interval == 0 {
		interval = 30 * time.Second // Default to 30 seconds
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("health checker started",
		"binding", p.config.Name,
		"interval", interval,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("health checker stopped (context cancelled)", "binding", p.config.Name)
			return

		case <-p.stopHealthCheck:
			slog.Debug("health checker stopped (binding closed)", "binding", p.config.Name)
			return

		case <-ticker.C:
			p.performHealthCheck(ctx)

			// If the binding is unhealthy, use exponential backoff
			if !p.IsHealthy() {
				health := p.GetHealth()
				backoffInterval := calculateBackoff(health.ConsecutiveFailures, interval)
				ticker.Reset(backoffInterval)

				slog.Debug("health check backoff",
					"binding", p.config.Name,
					"consecutive_failures", health.ConsecutiveFailures,
					"next_check_in", backoffInterval,
				)
			} else {
				// Reset to normal interval when healthy
				ticker.Reset(interval)
			}
		}
	}
}

// performHealthCheck executes a single health check.
func (p *HTTPProvider) performHealthCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	previous := p.GetHealth()

	start := time.Now()
	err := p.healthCheckImpl(checkCtx)
	latency := time.Since(start)

	if err != nil {
		p.updateHealth(false, err)
		slog.Error("health check failed",
			"binding", p.config.Name,
			"error", err,
			"latency", latency,
		)
		return
	}

	p.updateHealth(true, nil)
	slog.Debug("health check passed",
		"binding", p.config.Name,
		"latency", latency,
	)
	if !previous.IsHealthy {
		slog.Info("binding marked healthy",
			"binding", p.config.Name,
			"previous_failures", previous.ConsecutiveFailures,
		)
	}
}

// healthCheckImpl performs the actual health check: a GET against the
// binding's health path.
func (p *HTTPProvider) healthCheckImpl(ctx context.Context) error {
	resp, err := p.DoRequest(ctx, http.MethodGet, p.Endpoint(p.config.HealthCheckPath), nil, p.AuthHeaders())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}

// calculateBackoff calculates the backoff interval based on consecutive failures.
// It uses exponential backoff with a maximum interval of 5 minutes.
func calculateBackoff(consecutiveFailures int, baseInterval time.Duration) time.Duration {
	if consecutiveFailures <= 0 {
		return baseInterval
	}

	// Exponential backoff: base * 2^failures
	multiplier := 1 << uint(consecutiveFailures) // 2^failures
	if multiplier > 10 {
		multiplier = 10 // Cap at 10x the base interval
	}

	backoff := baseInterval * time.Duration(multiplier)

	// Cap at 5 minutes
	maxBackoff := 5 * time.Minute
	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	return backoff
}

// HealthCheck performs a synchronous health check (part of the Provider interface).
// This is called on-demand, while StartHealthChecker runs periodic checks.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	return p.healthCheckImpl(ctx)
}
