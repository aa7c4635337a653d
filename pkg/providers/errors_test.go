package providers

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"provider with status", &ProviderError{Provider: "chat:openai", StatusCode: 500, Message: "boom"}, `provider "chat:openai" error (status 500): boom`},
		{"provider without status", &ProviderError{Provider: "chat:openai", Message: "boom"}, `provider "chat:openai" error: boom`},
		{"auth", &AuthError{Provider: "p", Message: "bad key"}, `provider "p" authentication failed: bad key`},
		{"rate limit", &RateLimitError{Provider: "p", RetryAfter: 3 * time.Second, Message: "slow"}, "retry after 3s"},
		{"timeout", &TimeoutError{Provider: "p", Timeout: time.Second}, "request timeout after 1s"},
		{"parse", &ParseError{Provider: "p", Cause: cause}, "connection reset"},
		{"model", &ModelNotFoundError{Provider: "p", Model: "m"}, `does not support model "m"`},
		{"config", &ConfigError{Provider: "openai", Field: "kind", Message: "unsupported"}, `configuration error for field "kind"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")

	if !errors.Is(&ProviderError{Cause: cause}, cause) {
		t.Error("ProviderError does not unwrap its cause")
	}
	if !errors.Is(&ParseError{Cause: cause}, cause) {
		t.Error("ParseError does not unwrap its cause")
	}
}
