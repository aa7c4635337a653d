package health

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Check statuses.
const (
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// DefaultCheckTimeout bounds a single check when the Checker is built with 0.
const DefaultCheckTimeout = 5 * time.Second

// CheckFunc reports nil when its component is healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Report aggregates every registered check. Status is "ok" when all checks
// pass and "degraded" otherwise; a degraded server still serves what it has.
type Report struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
}

// Checker runs named component checks concurrently.
type Checker struct {
	mu           sync.RWMutex
	checks       map[string]CheckFunc
	checkTimeout time.Duration
	logger       *slog.Logger
}

// New creates a health checker. A zero timeout uses DefaultCheckTimeout.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout <= 0 {
		checkTimeout = DefaultCheckTimeout
	}

	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
		logger:       slog.Default().With("component", "health"),
	}
}

// Register adds or replaces the check for name. A nil check is ignored.
func (c *Checker) Register(name string, check CheckFunc) {
	if check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = check
}

// Names returns the registered check names in sorted order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes every check and aggregates the results. It is nil-safe: a
// nil Checker reports ok with no checks.
func (c *Checker) Run(ctx context.Context) Report {
	report := Report{
		Status:    StatusOK,
		Checks:    make(map[string]CheckResult),
		Timestamp: time.Now(),
	}
	if c == nil {
		return report
	}

	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()

			result := c.runCheck(ctx, check)

			mu.Lock()
			report.Checks[name] = result
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	for name, result := range report.Checks {
		if result.Status != StatusOK {
			report.Status = StatusDegraded
			c.logger.WarnContext(ctx, "health check failed",
				"check", name,
				"message", result.Message,
			)
		}
	}

	return report
}

func (c *Checker) runCheck(ctx context.Context, check CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()

	errChan := make(chan error, 1)
	go func() {
		errChan <- check(checkCtx)
	}()

	select {
	case err := <-errChan:
		result := CheckResult{Status: StatusOK, DurationMS: time.Since(start).Milliseconds()}
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = err.Error()
		}
		return result
	case <-checkCtx.Done():
		return CheckResult{
			Status:     StatusUnhealthy,
			Message:    "health check timeout",
			DurationMS: time.Since(start).Milliseconds(),
		}
	}
}
