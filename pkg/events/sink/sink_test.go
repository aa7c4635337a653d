package sink

import (
	"context"
	"path/filepath"
	"testing"

	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/events"
)

func TestOpen_Disabled(t *testing.T) {
	disabled := false
	s, err := Open(context.Background(), config.EventsConfig{Enabled: &disabled}, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, ok := s.Logger.(events.NoopLogger); !ok {
		t.Errorf("expected NoopLogger, got %T", s.Logger)
	}
	if s.Storage() != nil {
		t.Error("expected no storage")
	}
	if err := s.Check(context.Background()); err != nil {
		t.Errorf("disabled sink should be healthy: %v", err)
	}
}

func TestOpen_SQLite(t *testing.T) {
	cfg := config.Default().Events
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "events.db")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := Open(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Logger.Log(ctx, &events.Event{Type: events.EventView, CompletionID: "cmpl-1"}); err != nil {
		t.Fatalf("Log() failed: %v", err)
	}
	if err := s.Check(ctx); err != nil {
		t.Errorf("Check() failed: %v", err)
	}

	store := s.Storage()
	if err := s.Logger.Close(); err != nil {
		t.Fatal(err)
	}

	count, err := store.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 event, got %d", count)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
}

func TestOpen_Memory(t *testing.T) {
	cfg := config.Default().Events
	cfg.Backend = "memory"

	s, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if s.Storage() == nil {
		t.Error("expected memory storage")
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := config.Default().Events
	cfg.Backend = "postgres"

	if _, err := Open(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
