package openai

import (
	"context"
	"testing"

	mock "kestrel-hq/kestrel/internal/providers"
	"kestrel-hq/kestrel/pkg/providers"
)

func newTestProvider(t *testing.T, server *mock.MockServer, role providers.ModelRole) *Provider {
	t.Helper()
	p, err := NewProvider(mock.TestConfig(Kind, role, server.URL()+"/v1"))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestProvider_Generate(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/v1/completions", mock.MockOpenAICompletion("    return a + b"))

	p := newTestProvider(t, server, providers.ModelRoleCompletion)

	text, err := p.Generate(context.Background(), "def add(a, b):\n", providers.CompletionOptions{
		MaxDecodingTokens: 64,
		Temperature:       0.2,
		Seed:              42,
		Stop:              []string{"\n\n"},
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if text != "    return a + b" {
		t.Errorf("unexpected text %q", text)
	}

	last, err := server.LastRequest("/v1/completions")
	if err != nil {
		t.Fatal(err)
	}
	var body CompletionRequest
	if err := last.Decode(&body); err != nil {
		t.Fatalf("failed to decode request: %v", err)
	}
	if body.MaxTokens != 64 || body.Seed == nil || *body.Seed != 42 || body.Stream {
		t.Errorf("unexpected request body %+v", body)
	}
	if got := last.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("unexpected authorization header %q", got)
	}
}

func TestProvider_ChatCompletion(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/v1/chat/completions", mock.MockOpenAIChat("Hello!", "gpt-4o-mini"))

	p := newTestProvider(t, server, providers.ModelRoleChat)

	resp, err := p.ChatCompletion(context.Background(), mock.TestChatRequest("Hi"))
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if resp.Content != "Hello!" || resp.Model != "gpt-4o-mini" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("expected 30 total tokens, got %d", resp.Usage.TotalTokens)
	}
	if resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("unexpected finish reason %q", resp.FinishReason)
	}
}

func TestProvider_ChatValidation(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	p := newTestProvider(t, server, providers.ModelRoleChat)

	_, err := p.ChatCompletion(context.Background(), &providers.ChatRequest{})
	var validationErr *providers.ValidationError
	mock.AssertErrorAs(t, err, &validationErr)

	if server.GetRequestCount() != 0 {
		t.Error("expected no request for invalid chat")
	}
}

func TestProvider_Embed(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/v1/embeddings", mock.MockOpenAIEmbedding([]float32{0.1, 0.2, 0.3}))

	p := newTestProvider(t, server, providers.ModelRoleEmbedding)

	vec, err := p.Embed(context.Background(), "func main()")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 3 || vec[1] != 0.2 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestProvider_EmptyEmbedding(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/v1/embeddings", mock.MockResponse{Body: `{"data": []}`})

	p := newTestProvider(t, server, providers.ModelRoleEmbedding)

	_, err := p.Embed(context.Background(), "x")
	var parseErr *providers.ParseError
	mock.AssertErrorAs(t, err, &parseErr)
}

func TestProvider_AuthError(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/v1/chat/completions", mock.MockAuthError())

	p := newTestProvider(t, server, providers.ModelRoleChat)

	_, err := p.ChatCompletion(context.Background(), mock.TestChatRequest("Hi"))
	var authErr *providers.AuthError
	mock.AssertErrorAs(t, err, &authErr)
}

func TestNewProvider_ConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		cfg   providers.ProviderConfig
		field string
	}{
		{"missing endpoint", providers.ProviderConfig{Role: providers.ModelRoleCompletion}, "api_endpoint"},
		{"chat without model", providers.ProviderConfig{Role: providers.ModelRoleChat, BaseURL: "http://x"}, "model_name"},
		{"embedding without model", providers.ProviderConfig{Role: providers.ModelRoleEmbedding, BaseURL: "http://x"}, "model_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.cfg)
			var cfgErr *providers.ConfigError
			mock.AssertErrorAs(t, err, &cfgErr)
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestProvider_HealthCheckUsesModels(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/v1/models", mock.MockResponse{Body: `{"data": []}`})

	p := newTestProvider(t, server, providers.ModelRoleChat)

	if err := p.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
}
