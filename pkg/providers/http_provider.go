package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"kestrel-hq/kestrel/pkg/telemetry/tracing"
)

// HTTPProvider is the base implementation for HTTP model bindings.
// It provides connection pooling, retry logic, timeout handling, and health monitoring.
//
// Concrete bindings (openai, llamacpp, ollama) embed this struct and add
// their role methods on top.
type HTTPProvider struct {
	// config contains the binding configuration
	config ProviderConfig

	// client is the HTTP client with connection pooling
	client *http.Client

	// health tracks the binding's health status
	health ProviderHealth

	// healthMu protects concurrent access to health status
	healthMu sync.RWMutex

	// checkerStarted is set once StartHealthChecker has launched the loop
	checkerStarted atomic.Bool

	// closeOnce guards stopHealthCheck
	closeOnce sync.Once

	// stopHealthCheck is closed to signal the health checker to stop
	stopHealthCheck chan struct{}

	// healthCheckStopped is closed when the health checker has stopped
	healthCheckStopped chan struct{}
}

// NewHTTPProvider creates a new base HTTP binding with connection pooling.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}

	now := time.Now()
	return &HTTPProvider{
		config: config,
		client: client,
		health: ProviderHealth{
			IsHealthy:             true, // Start optimistic
			LastCheck:             now,
			LastSuccessfulRequest: now,
		},
		stopHealthCheck:    make(chan struct{}),
		healthCheckStopped: make(chan struct{}),
	}
}

// GetName returns the binding's configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetType returns the binding kind.
func (p *HTTPProvider) GetType() string {
	return p.config.Type
}

// GetConfig returns the binding's configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// Endpoint joins path onto the configured base URL.
func (p *HTTPProvider) Endpoint(path string) string {
	if path == "" {
		return p.config.BaseURL
	}
	return p.config.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// AuthHeaders returns the bearer authorization header when an API key is set.
func (p *HTTPProvider) AuthHeaders() map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	if p.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.config.APIKey
	}
	return headers
}

// IsHealthy returns the current health status.
func (p *HTTPProvider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health.IsHealthy
}

// GetHealth returns detailed health information.
func (p *HTTPProvider) GetHealth() ProviderHealth {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

// updateHealth updates the binding's health status.
// This is called after each health check or request.
func (p *HTTPProvider) updateHealth(success bool, err error) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.LastCheck = time.Now()

	if success {
		p.health.IsHealthy = true
		p.health.ConsecutiveFailures = 0
		p.health.LastError = nil
		p.health.LastSuccessfulRequest = time.Now()
		return
	}

	p.health.ConsecutiveFailures++
	p.health.LastError = err

	// Mark unhealthy after 3 consecutive failures (circuit breaker)
	if p.health.ConsecutiveFailures >= 3 && p.health.IsHealthy {
		p.health.IsHealthy = false
		slog.Warn("binding marked unhealthy",
			"binding", p.config.Name,
			"consecutive_failures", p.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// recordRequest records request counters.
func (p *HTTPProvider) recordRequest(success bool) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.TotalRequests++
	if !success {
		p.health.FailedRequests++
	}
}

// DoRequest performs an HTTP request with retry logic and timeout handling.
// It retries transient errors (5xx, network failures) with exponential backoff.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			slog.Debug("retrying request",
				"binding", p.config.Name,
				"attempt", attempt,
				"max_retries", p.config.MaxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		tracing.Inject(ctx, req.Header)

		slog.Debug("sending request to backend",
			"binding", p.config.Name,
			"method", method,
			"url", url,
		)

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			p.recordRequest(false)

			if ctx.Err() != nil {
				return nil, &TimeoutError{
					Provider: p.config.Name,
					Timeout:  p.config.Timeout,
				}
			}

			slog.Warn("request failed, will retry",
				"binding", p.config.Name,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			p.recordRequest(true)
			p.updateHealth(true, nil)
			return resp, nil
		}

		errorBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		p.recordRequest(false)

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			p.updateHealth(false, fmt.Errorf("authentication failed"))
			return nil, &AuthError{
				Provider: p.config.Name,
				Message:  string(errorBody),
			}

		case http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Provider:   p.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}

		case http.StatusNotFound:
			return nil, &ModelNotFoundError{
				Provider: p.config.Name,
				Model:    p.config.Model,
			}

		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return nil, &ProviderError{
				Provider:   p.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}

		default:
			lastErr = &ProviderError{
				Provider:   p.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}
			slog.Warn("request returned error status, will retry",
				"binding", p.config.Name,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	p.updateHealth(false, lastErr)
	return nil, lastErr
}

// DoJSONRequest performs a JSON request and decodes the response into respBody.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, reqBody interface{}, respBody interface{}, headers map[string]string) error {
	var bodyBytes []byte
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := p.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{
			Provider: p.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Provider:    p.config.Name,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// Close stops the health checker, if running, and releases idle connections.
// It is safe to call more than once.
func (p *HTTPProvider) Close() error {
	p.closeOnce.Do(func() {
		close(p.stopHealthCheck)

		if p.checkerStarted.Load() {
			select {
			case <-p.healthCheckStopped:
				slog.Debug("health checker stopped", "binding", p.config.Name)
			case <-time.After(5 * time.Second):
				slog.Warn("health checker did not stop in time", "binding", p.config.Name)
			}
		}

		p.client.CloseIdleConnections()
		slog.Info("binding closed", "binding", p.config.Name)
	})
	return nil
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
