package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"kestrel-hq/kestrel/pkg/events"
)

// MemoryStorage implements events.Storage with an in-memory map. Events do
// not survive a restart.
type MemoryStorage struct {
	records map[string]*events.Event
	mu      sync.RWMutex
}

var _ events.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*events.Event),
	}
}

// Store saves a copy of the event.
func (s *MemoryStorage) Store(ctx context.Context, event *events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *event
	s.records[event.ID] = &eventCopy
	return nil
}

// Query retrieves copies of the events matching the filters.
func (s *MemoryStorage) Query(ctx context.Context, query *events.Query) ([]*events.Event, error) {
	if query == nil {
		query = &events.Query{}
	}

	s.mu.RLock()
	results := []*events.Event{}
	for _, event := range s.records {
		if matchesQuery(event, query) {
			eventCopy := *event
			results = append(results, &eventCopy)
		}
	}
	s.mu.RUnlock()

	asc := strings.EqualFold(query.SortOrder, "asc")
	sort.Slice(results, func(i, j int) bool {
		if asc {
			return results[i].Timestamp.Before(results[j].Timestamp)
		}
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	start := query.Offset
	if start > len(results) {
		return []*events.Event{}, nil
	}
	limit := defaultQueryLimit
	if query.Limit > 0 {
		limit = query.Limit
	}
	end := start + limit
	if end > len(results) {
		end = len(results)
	}

	return results[start:end], nil
}

// Count returns the number of events matching the filters.
func (s *MemoryStorage) Count(ctx context.Context, query *events.Query) (int64, error) {
	if query == nil {
		query = &events.Query{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, event := range s.records {
		if matchesQuery(event, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes events matching the filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *events.Query) (int64, error) {
	if query == nil {
		query = &events.Query{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, event := range s.records {
		if matchesQuery(event, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close drops every stored event.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*events.Event)
	return nil
}

// Size returns the number of stored events.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// GetByID returns a copy of one event, or nil.
func (s *MemoryStorage) GetByID(id string) *events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.records[id]
	if !ok {
		return nil
	}
	eventCopy := *event
	return &eventCopy
}

func matchesQuery(event *events.Event, query *events.Query) bool {
	if query.StartTime != nil && event.Timestamp.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && event.Timestamp.After(*query.EndTime) {
		return false
	}
	if query.Type != "" && event.Type != query.Type {
		return false
	}
	if query.CompletionID != "" && event.CompletionID != query.CompletionID {
		return false
	}
	if query.Model != "" && event.Model != query.Model {
		return false
	}

	switch query.Status {
	case "success":
		if event.Error != "" {
			return false
		}
	case "error":
		if event.Error == "" {
			return false
		}
	}

	return true
}
