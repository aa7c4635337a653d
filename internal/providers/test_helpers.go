package providers

import (
	"errors"
	"testing"
	"time"

	"kestrel-hq/kestrel/pkg/providers"
)

// TestConfig returns a binding configuration pointing at baseURL.
func TestConfig(kind string, role providers.ModelRole, baseURL string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                string(role) + ":" + kind,
		Type:                kind,
		Role:                role,
		BaseURL:             baseURL,
		APIKey:              "test-key",
		Model:               "mock-model",
		Timeout:             5 * time.Second,
		MaxRetries:          0,
		HealthCheckInterval: time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestChatRequest creates a single-turn chat request.
func TestChatRequest(content string) *providers.ChatRequest {
	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: content},
		},
		MaxTokens: 100,
	}
}

// AssertErrorAs fails the test unless err matches target via errors.As.
func AssertErrorAs(t *testing.T, err error, target interface{}) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.As(err, target) {
		t.Fatalf("expected %T, got %T: %v", target, err, err)
	}
}

// WaitForCondition waits for a condition to become true within a timeout.
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s: %s", timeout, message)
		}
		<-ticker.C
	}
}
