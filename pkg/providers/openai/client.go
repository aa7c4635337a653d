package openai

import (
	"context"
	"log/slog"
	"net/http"

	"kestrel-hq/kestrel/pkg/providers"
)

// Kind is the binding kind served by this package.
const Kind = "openai"

// Provider is the OpenAI-compatible binding. It implements
// providers.Completion, providers.Chat and providers.Embedding.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates a new OpenAI-compatible binding.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		config.Name = string(config.Role) + ":" + Kind
	}
	if config.BaseURL == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_endpoint",
			Message:  "API endpoint is required",
		}
	}
	if config.Model == "" && config.Role != providers.ModelRoleCompletion {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "model_name",
			Message:  "model name is required for openai " + string(config.Role),
		}
	}

	if config.Type == "" {
		config.Type = Kind
	}
	if config.HealthCheckPath == "" {
		config.HealthCheckPath = "/models"
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config)}

	slog.Info("openai binding initialized",
		"binding", config.Name,
		"base_url", config.BaseURL,
		"model", config.Model,
	)

	return p, nil
}

// Generate sends a legacy completion request and returns the first choice text.
func (p *Provider) Generate(ctx context.Context, prompt string, opts providers.CompletionOptions) (string, error) {
	req := transformCompletion(p.GetConfig().Model, prompt, opts)

	var resp CompletionResponse
	if err := p.DoJSONRequest(ctx, http.MethodPost, p.Endpoint("/completions"), req, &resp, p.AuthHeaders()); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &providers.ParseError{
			Provider: p.GetName(),
			Cause:    errNoChoices,
		}
	}

	return resp.Choices[0].Text, nil
}

// ChatCompletion sends a chat completion request.
func (p *Provider) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, &providers.ValidationError{
			Field:   "messages",
			Message: "at least one message is required",
		}
	}

	var raw ChatResponse
	if err := p.DoJSONRequest(ctx, http.MethodPost, p.Endpoint("/chat/completions"), transformChatRequest(p.GetConfig().Model, req), &raw, p.AuthHeaders()); err != nil {
		return nil, err
	}

	resp, err := transformChatResponse(&raw)
	if err != nil {
		return nil, &providers.ParseError{
			Provider: p.GetName(),
			Cause:    err,
		}
	}

	slog.Debug("chat request succeeded",
		"binding", p.GetName(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)

	return resp, nil
}

// Embed returns the embedding for text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := &EmbeddingRequest{Model: p.GetConfig().Model, Input: text}

	var resp EmbeddingResponse
	if err := p.DoJSONRequest(ctx, http.MethodPost, p.Endpoint("/embeddings"), req, &resp, p.AuthHeaders()); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &providers.ParseError{
			Provider: p.GetName(),
			Cause:    errNoEmbedding,
		}
	}

	return resp.Data[0].Embedding, nil
}
