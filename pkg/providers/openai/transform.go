package openai

import "kestrel-hq/kestrel/pkg/providers"

// CompletionRequest is the legacy /completions request body.
type CompletionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	Seed        *uint64  `json:"seed,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Stream      bool     `json:"stream"`
}

// CompletionResponse is the legacy /completions response body.
type CompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int    `json:"index"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ChatRequest is the /chat/completions request body.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float32      `json:"temperature,omitempty"`
	TopP        *float32      `json:"top_p,omitempty"`
	Seed        *uint64       `json:"seed,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	User        string        `json:"user,omitempty"`
	Stream      bool          `json:"stream"`
}

// ChatMessage is a single chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the /chat/completions response body.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Usage is the token accounting block.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// EmbeddingRequest is the /embeddings request body.
type EmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// EmbeddingResponse is the /embeddings response body.
type EmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func transformCompletion(model, prompt string, opts providers.CompletionOptions) *CompletionRequest {
	req := &CompletionRequest{
		Model:     model,
		Prompt:    prompt,
		MaxTokens: opts.MaxDecodingTokens,
		Stop:      opts.Stop,
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		req.Temperature = &t
	}
	if opts.Seed != 0 {
		s := opts.Seed
		req.Seed = &s
	}
	return req
}

func transformChatRequest(model string, req *providers.ChatRequest) *ChatRequest {
	if req.Model != "" {
		model = req.Model
	}
	out := &ChatRequest{
		Model:       model,
		Messages:    make([]ChatMessage, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Seed:        req.Seed,
		Stop:        req.Stop,
		User:        req.User,
	}
	for i, m := range req.Messages {
		out.Messages[i] = ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func transformChatResponse(resp *ChatResponse) (*providers.ChatResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, errNoChoices
	}
	choice := resp.Choices[0]
	return &providers.ChatResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: normalizeFinishReason(choice.FinishReason),
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Created: resp.Created,
	}, nil
}

func normalizeFinishReason(reason string) string {
	switch reason {
	case "length", "max_tokens":
		return providers.FinishReasonLength
	default:
		return providers.FinishReasonStop
	}
}
