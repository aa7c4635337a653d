package types

import "kestrel-hq/kestrel/pkg/events"

// ChatCompletionRequest is the OpenAI chat completion request body. Only
// non-streaming requests are served.
type ChatCompletionRequest struct {
	// Model is informational; the configured chat binding always serves.
	Model string `json:"model,omitempty"`

	// Messages is the conversation history.
	Messages []Message `json:"messages"`

	// Temperature controls randomness in the response (0.0 to 2.0).
	Temperature *float32 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// TopP controls nucleus sampling (0.0 to 1.0).
	TopP *float32 `json:"top_p,omitempty"`

	// Seed makes sampling reproducible when the backend supports it.
	Seed *uint64 `json:"seed,omitempty"`

	// Stream is rejected when true.
	Stream bool `json:"stream,omitempty"`

	// Stop is a list of sequences where generation stops.
	Stop []string `json:"stop,omitempty"`

	// User identifies the end user.
	User string `json:"user,omitempty"`
}

// Message is one turn of a chat conversation.
type Message struct {
	// Role is one of "system", "user", "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// Validate checks required fields and value ranges.
func (r *ChatCompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return &ValidationError{
			Field:   "messages",
			Message: "messages must contain at least one message",
		}
	}
	for _, m := range r.Messages {
		switch m.Role {
		case "system", "user", "assistant":
		default:
			return &ValidationError{
				Field:   "messages.role",
				Message: "role must be one of system, user, assistant; got " + quote(m.Role),
			}
		}
	}
	if r.Stream {
		return &ValidationError{
			Field:   "stream",
			Message: "streaming is not supported",
		}
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return &ValidationError{
			Field:   "temperature",
			Message: "temperature must be between 0 and 2",
		}
	}
	if r.TopP != nil && (*r.TopP < 0 || *r.TopP > 1) {
		return &ValidationError{
			Field:   "top_p",
			Message: "top_p must be between 0 and 1",
		}
	}
	if r.MaxTokens != nil && *r.MaxTokens < 1 {
		return &ValidationError{
			Field:   "max_tokens",
			Message: "max_tokens must be positive",
		}
	}
	return nil
}

// LogEventRequest is a client interaction event posted to /v1/events.
type LogEventRequest struct {
	// Type is one of "view", "select", "dismiss".
	Type string `json:"type"`

	// CompletionID is the id of the completion the event refers to.
	CompletionID string `json:"completion_id"`

	// ChoiceIndex is the index of the choice the event refers to.
	ChoiceIndex int `json:"choice_index"`

	// ViewID correlates view and select events of the same display.
	ViewID string `json:"view_id,omitempty"`

	// Elapsed is the time in milliseconds between view and select.
	Elapsed *uint32 `json:"elapsed,omitempty"`
}

// Validate checks the event type and completion id.
func (r *LogEventRequest) Validate() error {
	if !events.EventType(r.Type).IsClientEvent() {
		return &ValidationError{
			Field:   "type",
			Message: "type must be one of view, select, dismiss; got " + quote(r.Type),
		}
	}
	if r.CompletionID == "" {
		return &ValidationError{
			Field:   "completion_id",
			Message: "completion_id is required",
		}
	}
	if r.ChoiceIndex < 0 {
		return &ValidationError{
			Field:   "choice_index",
			Message: "choice_index must be non-negative",
		}
	}
	return nil
}

// ToEvent converts the request into an event log record.
func (r *LogEventRequest) ToEvent() *events.Event {
	return &events.Event{
		Type:         events.EventType(r.Type),
		CompletionID: r.CompletionID,
		ChoiceIndex:  r.ChoiceIndex,
		ViewID:       r.ViewID,
		Elapsed:      r.Elapsed,
	}
}

// ValidationError reports an invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func quote(s string) string {
	return "\"" + s + "\""
}
