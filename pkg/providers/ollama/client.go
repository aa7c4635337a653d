package ollama

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"kestrel-hq/kestrel/pkg/providers"
)

// Kind is the binding kind served by this package.
const Kind = "ollama"

var errNoEmbedding = errors.New("response contains no embedding")

// Provider is the Ollama binding. It implements providers.Completion,
// providers.Chat and providers.Embedding.
type Provider struct {
	*providers.HTTPProvider
}

// Options are Ollama sampling options.
type Options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	Seed        *uint64  `json:"seed,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// GenerateRequest is the /api/generate request body.
type GenerateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Raw     bool    `json:"raw"`
	Stream  bool    `json:"stream"`
	Options Options `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// ChatRequest is the /api/chat request body.
type ChatRequest struct {
	Model    string              `json:"model"`
	Messages []providers.Message `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  Options             `json:"options"`
}

type chatResponse struct {
	Model           string            `json:"model"`
	CreatedAt       time.Time         `json:"created_at"`
	Message         providers.Message `json:"message"`
	DoneReason      string            `json:"done_reason"`
	PromptEvalCount int               `json:"prompt_eval_count"`
	EvalCount       int               `json:"eval_count"`
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewProvider creates a new Ollama binding.
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
	if config.Model == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "model_name",
			Message:  "model name is required for ollama",
		}
	}

	if config.Type == "" {
		config.Type = Kind
	}
	if config.HealthCheckPath == "" {
		config.HealthCheckPath = "/api/tags"
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 1 // Local backends rarely need more
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 5
	}

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config)}

	slog.Info("ollama binding initialized",
		"binding", config.Name,
		"base_url", config.BaseURL,
		"model", config.Model,
	)

	return p, nil
}

// Generate sends a raw prompt to /api/generate. The prompt is already
// rendered, so Ollama's own template is bypassed.
func (p *Provider) Generate(ctx context.Context, prompt string, opts providers.CompletionOptions) (string, error) {
	req := GenerateRequest{
		Model:  p.GetConfig().Model,
		Prompt: prompt,
		Raw:    true,
		Options: Options{
			NumPredict: opts.MaxDecodingTokens,
			Stop:       opts.Stop,
		},
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		req.Options.Temperature = &t
	}
	if opts.Seed != 0 {
		s := opts.Seed
		req.Options.Seed = &s
	}

	var resp generateResponse
	if err := p.DoJSONRequest(ctx, http.MethodPost, p.Endpoint("/api/generate"), req, &resp, p.AuthHeaders()); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// ChatCompletion sends the conversation to /api/chat.
func (p *Provider) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, &providers.ValidationError{
			Field:   "messages",
			Message: "at least one message is required",
		}
	}

	model := p.GetConfig().Model
	if req.Model != "" {
		model = req.Model
	}
	body := ChatRequest{
		Model:    model,
		Messages: req.Messages,
		Options: Options{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
			TopP:        req.TopP,
			Seed:        req.Seed,
			Stop:        req.Stop,
		},
	}

	var raw chatResponse
	if err := p.DoJSONRequest(ctx, http.MethodPost, p.Endpoint("/api/chat"), body, &raw, p.AuthHeaders()); err != nil {
		return nil, err
	}

	finish := providers.FinishReasonStop
	if raw.DoneReason == "length" {
		finish = providers.FinishReasonLength
	}

	return &providers.ChatResponse{
		Model:        raw.Model,
		Content:      raw.Message.Content,
		FinishReason: finish,
		Usage: providers.TokenUsage{
			PromptTokens:     raw.PromptEvalCount,
			CompletionTokens: raw.EvalCount,
			TotalTokens:      raw.PromptEvalCount + raw.EvalCount,
		},
		Created: raw.CreatedAt.Unix(),
	}, nil
}

// Embed returns the embedding for text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := embeddingRequest{Model: p.GetConfig().Model, Prompt: text}

	var resp embeddingResponse
	if err := p.DoJSONRequest(ctx, http.MethodPost, p.Endpoint("/api/embeddings"), req, &resp, p.AuthHeaders()); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, &providers.ParseError{
			Provider: p.GetName(),
			Cause:    errNoEmbedding,
		}
	}
	return resp.Embedding, nil
}
