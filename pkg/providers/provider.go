package providers

import "context"

// Provider is the lifecycle interface shared by every model binding.
// Role interfaces (Completion, Chat, Embedding) embed it so the binding
// manager can track health and close bindings without knowing their role.
//
// All methods accept a context.Context for cancellation and timeout control.
// Implementations must respect context cancellation and return immediately when
// the context is cancelled.
type Provider interface {
	// HealthCheck performs a health check against the backend.
	// It sends a lightweight request to verify the backend is reachable and responding.
	HealthCheck(ctx context.Context) error

	// GetName returns the binding's name (e.g., "completion:openai").
	GetName() string

	// GetType returns the binding kind (e.g., "openai", "llama.cpp", "ollama").
	GetType() string

	// GetConfig returns the binding's configuration.
	GetConfig() ProviderConfig

	// IsHealthy returns the current health status of the binding.
	IsHealthy() bool

	// GetHealth returns detailed health information including last check time,
	// consecutive failures, and error details.
	GetHealth() ProviderHealth

	// Close closes the binding and releases any resources (HTTP connections, etc.).
	// After calling Close, the binding should not be used.
	Close() error
}

// Completion generates code continuations from a rendered prompt.
//
// Example usage:
//
//	text, err := completion.Generate(ctx, "def fib(n):", providers.CompletionOptions{
//	    MaxDecodingTokens: 64,
//	    Temperature:       0.1,
//	})
type Completion interface {
	Provider

	// Generate returns the raw generated text for prompt.
	Generate(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// Chat answers a conversation with a single assistant message.
type Chat interface {
	Provider

	// ChatCompletion sends the conversation and returns the assistant reply.
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Embedding turns text into a dense vector.
type Embedding interface {
	Provider

	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
