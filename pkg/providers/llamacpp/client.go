package llamacpp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"kestrel-hq/kestrel/pkg/providers"
)

// Kind is the binding kind served by this package.
const Kind = "llama.cpp"

var errNoEmbedding = errors.New("response contains no embedding")

// Provider is the llama.cpp binding. It implements providers.Completion and
// providers.Embedding.
type Provider struct {
	*providers.HTTPProvider
}

type completionRequest struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	Seed        *uint64  `json:"seed,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Stream      bool     `json:"stream"`
}

type completionResponse struct {
	Content string `json:"content"`
}

type embeddingRequest struct {
	Content string `json:"content"`
}

// NewProvider creates a new llama.cpp binding.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		config.Name = string(config.Role) + ":" + Kind
	}
	if config.Role == providers.ModelRoleChat {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "kind",
			Message:  "llama.cpp does not provide a chat binding",
		}
	}
	if config.BaseURL == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_endpoint",
			Message:  "API endpoint is required",
		}
	}

	if config.Type == "" {
		config.Type = Kind
	}
	if config.HealthCheckPath == "" {
		config.HealthCheckPath = "/health"
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 5
	}

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config)}

	slog.Info("llama.cpp binding initialized",
		"binding", config.Name,
		"base_url", config.BaseURL,
	)

	return p, nil
}

// Generate sends a completion request and returns the generated content.
func (p *Provider) Generate(ctx context.Context, prompt string, opts providers.CompletionOptions) (string, error) {
	req := completionRequest{
		Prompt:   prompt,
		NPredict: opts.MaxDecodingTokens,
		Stop:     opts.Stop,
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		req.Temperature = &t
	}
	if opts.Seed != 0 {
		s := opts.Seed
		req.Seed = &s
	}

	var resp completionResponse
	if err := p.DoJSONRequest(ctx, http.MethodPost, p.Endpoint("/completion"), req, &resp, p.AuthHeaders()); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Embed returns the embedding for text. Both the legacy object response and
// the newer per-input array response are accepted.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	var raw json.RawMessage
	if err := p.DoJSONRequest(ctx, http.MethodPost, p.Endpoint("/embedding"), embeddingRequest{Content: text}, &raw, p.AuthHeaders()); err != nil {
		return nil, err
	}

	vec, err := decodeEmbedding(raw)
	if err != nil {
		return nil, &providers.ParseError{
			Provider:    p.GetName(),
			RawResponse: string(raw),
			Cause:       err,
		}
	}
	return vec, nil
}

func decodeEmbedding(raw json.RawMessage) ([]float32, error) {
	var single struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && len(single.Embedding) > 0 {
		return single.Embedding, nil
	}

	var batch []struct {
		Embedding [][]float32 `json:"embedding"`
	}
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, err
	}
	if len(batch) == 0 || len(batch[0].Embedding) == 0 || len(batch[0].Embedding[0]) == 0 {
		return nil, errNoEmbedding
	}
	return batch[0].Embedding[0], nil
}
