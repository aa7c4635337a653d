package providers

import "time"

// ModelRole names the capability a binding serves.
type ModelRole string

// Model roles.
const (
	ModelRoleCompletion ModelRole = "completion"
	ModelRoleChat       ModelRole = "chat"
	ModelRoleEmbedding  ModelRole = "embedding"
)

// Message represents a single message in a conversation.
// It is backend-agnostic and is transformed to backend-specific formats.
type Message struct {
	// Role identifies the message sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens used (prompt + completion)
	TotalTokens int `json:"total_tokens"`
}

// CompletionOptions controls decoding for a completion request.
type CompletionOptions struct {
	// MaxDecodingTokens is the maximum number of tokens to generate
	MaxDecodingTokens int

	// Temperature controls randomness; zero lets the backend decide
	Temperature float32

	// Seed makes sampling reproducible when the backend supports it
	Seed uint64

	// Stop sequences that will halt generation
	Stop []string
}

// ChatRequest represents a backend-agnostic chat completion request.
type ChatRequest struct {
	// Model is an optional model override; bindings fall back to their configured model
	Model string `json:"model,omitempty"`

	// Messages is the conversation history
	Messages []Message `json:"messages"`

	// Temperature controls randomness (0.0 to 2.0)
	Temperature *float32 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int `json:"max_tokens,omitempty"`

	// TopP controls nucleus sampling (0.0 to 1.0)
	TopP *float32 `json:"top_p,omitempty"`

	// Seed makes sampling reproducible when the backend supports it
	Seed *uint64 `json:"seed,omitempty"`

	// Stop sequences that will halt generation
	Stop []string `json:"stop,omitempty"`

	// User is an optional user identifier
	User string `json:"user,omitempty"`
}

// ChatResponse represents a backend-agnostic chat completion response.
type ChatResponse struct {
	// ID is the backend's response identifier, if any
	ID string `json:"id"`

	// Model is the model that generated the response
	Model string `json:"model"`

	// Content is the assistant reply
	Content string `json:"content"`

	// FinishReason indicates why generation stopped (stop, length)
	FinishReason string `json:"finish_reason"`

	// Usage contains token consumption information
	Usage TokenUsage `json:"usage"`

	// Created is the Unix timestamp when the response was created
	Created int64 `json:"created"`
}

// ProviderHealth tracks the health status of a binding.
type ProviderHealth struct {
	// IsHealthy indicates whether the binding is currently healthy
	IsHealthy bool

	// LastCheck is the timestamp of the last health check
	LastCheck time.Time

	// LastError is the most recent error encountered (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential failures
	ConsecutiveFailures int

	// LastSuccessfulRequest is the timestamp of the last successful request
	LastSuccessfulRequest time.Time

	// TotalRequests is the total number of requests sent to this binding
	TotalRequests int64

	// FailedRequests is the number of failed requests
	FailedRequests int64
}

// ProviderConfig contains configuration for a single binding instance.
// It is derived from config.HTTPModelConfig by the binding factory.
type ProviderConfig struct {
	// Name is the binding identifier (e.g., "completion:openai")
	Name string

	// Type is the binding kind (openai, llama.cpp, ollama)
	Type string

	// Role is the capability the binding serves
	Role ModelRole

	// BaseURL is the API endpoint base URL
	BaseURL string

	// APIKey is the authentication key
	APIKey string

	// Model is the model name sent to the backend
	Model string

	// Timeout is the request timeout duration
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts
	MaxRetries int

	// HealthCheckPath is appended to BaseURL for health probes
	HealthCheckPath string

	// HealthCheckInterval is how often to run health checks
	HealthCheckInterval time.Duration

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reason constants
const (
	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
)
