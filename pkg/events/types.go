package events

import (
	"context"
	"time"
)

// EventType identifies what an event records.
type EventType string

const (
	// Client-reported interaction events.
	EventView    EventType = "view"
	EventSelect  EventType = "select"
	EventDismiss EventType = "dismiss"

	// Server-side events.
	EventCompletion     EventType = "completion"
	EventChatCompletion EventType = "chat_completion"
)

// IsClientEvent reports whether t may be submitted through the events
// endpoint.
func (t EventType) IsClientEvent() bool {
	switch t {
	case EventView, EventSelect, EventDismiss:
		return true
	}
	return false
}

// Event is a single record in the event log. Client events carry the
// completion they refer to; server events carry the request that produced
// them.
type Event struct {
	// Identity
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id,omitempty"`

	// Timestamps
	Timestamp    time.Time `json:"timestamp"`
	RecordedTime time.Time `json:"recorded_time"`

	// Client interaction
	CompletionID string  `json:"completion_id,omitempty"`
	ChoiceIndex  int     `json:"choice_index"`
	ViewID       string  `json:"view_id,omitempty"`
	Elapsed      *uint32 `json:"elapsed,omitempty"` // milliseconds, select events only

	// Request context
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
	GitURL   string `json:"git_url,omitempty"`
	Filepath string `json:"filepath,omitempty"`
	User     string `json:"user,omitempty"`

	// Content (truncated by the recorder)
	Prompt     string `json:"prompt,omitempty"`
	PromptHash string `json:"prompt_hash,omitempty"`
	Output     string `json:"output,omitempty"`
	Snippets   int    `json:"snippets"`

	// Outcome
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// Query defines filter parameters for querying events.
type Query struct {
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive

	Type         EventType `json:"type,omitempty"`
	CompletionID string    `json:"completion_id,omitempty"`
	Model        string    `json:"model,omitempty"`
	Status       string    `json:"status,omitempty"` // "success" or "error"

	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
	SortOrder string `json:"sort_order,omitempty"` // "asc" or "desc" by timestamp
}

// Storage defines the interface for event storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists an event.
	Store(ctx context.Context, event *Event) error

	// Query retrieves events matching the filters, newest first unless
	// SortOrder is "asc".
	Query(ctx context.Context, query *Query) ([]*Event, error)

	// Count returns the number of events matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes events matching the filters and returns how many were
	// removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Logger is the event sink shared by the events endpoint and the
// completion service. Log must not block on storage.
type Logger interface {
	Log(ctx context.Context, event *Event) error
	Close() error
}

// NoopLogger discards every event.
type NoopLogger struct{}

func (NoopLogger) Log(context.Context, *Event) error { return nil }
func (NoopLogger) Close() error { return nil }
