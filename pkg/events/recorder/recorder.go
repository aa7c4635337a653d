package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"kestrel-hq/kestrel/pkg/events"
)

// Config contains configuration for the event recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both enqueueing and writing a single event.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// HashPrompt stores a SHA-256 of the full prompt alongside the
	// truncated text.
	// Default: true
	HashPrompt bool

	// MaxFieldLength is the maximum length of prompt and output text.
	// Default: 500
	MaxFieldLength int
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:    1000,
		WriteTimeout:   5 * time.Second,
		HashPrompt:     true,
		MaxFieldLength: 500,
	}
}

// Observer is notified of every event the recorder persists or drops.
type Observer interface {
	EventRecorded(eventType string)
	EventDropped(eventType string)
}

// Recorder is an events.Logger that writes events to storage from a
// background worker.
type Recorder struct {
	storage    events.Storage
	config     *Config
	observer   Observer
	recordChan chan *events.Event
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithObserver reports recorded and dropped events to o.
func WithObserver(o Observer) Option {
	return func(r *Recorder) {
		r.observer = o
	}
}

var _ events.Logger = (*Recorder)(nil)

// NewRecorder creates a new event recorder with the provided storage backend
// and configuration, and starts its worker.
func NewRecorder(storage events.Storage, config *Config, opts ...Option) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *events.Event, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "events.recorder"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("event recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Log stamps the event and enqueues it for writing. It returns once the
// event is queued, not when it is stored.
func (r *Recorder) Log(ctx context.Context, event *events.Event) error {
	if event == nil {
		return nil
	}

	select {
	case <-r.done:
		return events.NewRecorderError(event.ID, events.ErrRecorderClosed)
	default:
	}

	r.prepare(event)

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- event:
		r.logger.Debug("event enqueued for writing",
			"event_id", event.ID,
			"type", event.Type,
		)
		return nil
	case <-timer.C:
		r.logger.Error("event channel full, dropping event",
			"event_id", event.ID,
			"type", event.Type,
			"channel_capacity", r.config.AsyncBuffer,
		)
		r.dropped(event)
		return events.NewRecorderError(event.ID, context.DeadlineExceeded)
	case <-ctx.Done():
		r.dropped(event)
		return events.NewRecorderError(event.ID, ctx.Err())
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping event",
			"event_id", event.ID,
			"type", event.Type,
		)
		r.dropped(event)
		return events.NewRecorderError(event.ID, events.ErrRecorderClosed)
	}
}

// Close stops accepting events, drains the queue and waits for pending
// writes. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down event recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("event recorder shut down complete")
	})
	return nil
}

func (r *Recorder) prepare(event *events.Event) {
	now := time.Now()
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	event.RecordedTime = now

	if r.config.HashPrompt && event.PromptHash == "" {
		event.PromptHash = HashContent(event.Prompt)
	}
	event.Prompt = TruncateString(event.Prompt, r.config.MaxFieldLength)
	event.Output = TruncateString(event.Output, r.config.MaxFieldLength)
}

// worker drains the channel and writes events to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.recordChan:
			r.writeEvent(event)

		case <-r.done:
			r.logger.Info("draining event channel before shutdown",
				"pending_count", len(r.recordChan),
			)

			for {
				select {
				case event := <-r.recordChan:
					r.writeEvent(event)
				default:
					r.logger.Info("event channel drained")
					return
				}
			}
		}
	}
}

func (r *Recorder) writeEvent(event *events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	if err := r.storage.Store(ctx, event); err != nil {
		r.logger.Error("failed to store event",
			"event_id", event.ID,
			"type", event.Type,
			"error", err,
		)
		r.dropped(event)
		return
	}

	duration := time.Since(start)
	if r.observer != nil {
		r.observer.EventRecorded(string(event.Type))
	}

	r.logger.Debug("event recorded",
		"event_id", event.ID,
		"type", event.Type,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow event write",
			"event_id", event.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

func (r *Recorder) dropped(event *events.Event) {
	if r.observer != nil {
		r.observer.EventDropped(string(event.Type))
	}
}
