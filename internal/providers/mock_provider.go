package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"kestrel-hq/kestrel/pkg/providers"
)

// MockProvider implements the lifecycle half of providers.Provider. The role
// mocks below embed it.
type MockProvider struct {
	mu      sync.Mutex
	name    string
	kind    string
	healthy bool
	closed  bool
}

func newMockProvider(role providers.ModelRole) MockProvider {
	return MockProvider{
		name:    string(role) + ":mock",
		kind:    "mock",
		healthy: true,
	}
}

// SetHealthy sets the health status of the mock binding.
func (m *MockProvider) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
}

// HealthCheck fails when the mock is marked unhealthy.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	if !m.IsHealthy() {
		return fmt.Errorf("binding %s is unhealthy", m.name)
	}
	return nil
}

func (m *MockProvider) GetName() string { return m.name }

func (m *MockProvider) GetType() string { return m.kind }

func (m *MockProvider) GetConfig() providers.ProviderConfig {
	return providers.ProviderConfig{Name: m.name, Type: m.kind, Model: "mock-model"}
}

func (m *MockProvider) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

func (m *MockProvider) GetHealth() providers.ProviderHealth {
	return providers.ProviderHealth{IsHealthy: m.IsHealthy()}
}

// Close marks the mock closed.
func (m *MockProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockProvider) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockCompletion returns a fixed continuation and records prompts.
type MockCompletion struct {
	MockProvider
	Output string
	Err    error

	mu      sync.Mutex
	prompts []string
	options []providers.CompletionOptions
}

// NewMockCompletion creates a completion mock that returns output.
func NewMockCompletion(output string) *MockCompletion {
	return &MockCompletion{MockProvider: newMockProvider(providers.ModelRoleCompletion), Output: output}
}

func (m *MockCompletion) Generate(ctx context.Context, prompt string, opts providers.CompletionOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, opts)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Output, nil
}

// Prompts returns every prompt passed to Generate.
func (m *MockCompletion) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Options returns the decoding options of every Generate call.
func (m *MockCompletion) Options() []providers.CompletionOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]providers.CompletionOptions(nil), m.options...)
}

// MockChat echoes the last user message.
type MockChat struct {
	MockProvider
	Err error
}

// NewMockChat creates a chat mock.
func NewMockChat() *MockChat {
	return &MockChat{MockProvider: newMockProvider(providers.ModelRoleChat)}
}

func (m *MockChat) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var last string
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}
	return &providers.ChatResponse{
		ID:           "chat-mock",
		Model:        "mock-model",
		Content:      "echo: " + last,
		FinishReason: providers.FinishReasonStop,
	}, nil
}

// MockEmbedding produces deterministic vectors from FNV hashes of the words
// in the input, so texts sharing words are similar.
type MockEmbedding struct {
	MockProvider
	Dims int
	Err  error
}

// NewMockEmbedding creates an embedding mock with 64 dimensions.
func NewMockEmbedding() *MockEmbedding {
	return &MockEmbedding{MockProvider: newMockProvider(providers.ModelRoleEmbedding), Dims: 64}
}

func (m *MockEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	vec := make([]float32, m.Dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%uint32(m.Dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

var (
	_ providers.Completion = (*MockCompletion)(nil)
	_ providers.Chat       = (*MockChat)(nil)
	_ providers.Embedding  = (*MockEmbedding)(nil)
)
