// Package sink opens the configured event log: storage backend, recorder and
// retention scheduler.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/events"
	"kestrel-hq/kestrel/pkg/events/recorder"
	"kestrel-hq/kestrel/pkg/events/retention"
	"kestrel-hq/kestrel/pkg/events/storage"
)

// Sink owns the event log components. Logger is always usable; it is a
// events.NoopLogger when events are disabled.
type Sink struct {
	Logger events.Logger

	storage events.Storage
	pruner  *retention.Pruner
}

// Open builds the event log described by cfg and starts its retention
// scheduler. Cancelling ctx stops the scheduler; Close releases everything.
func Open(ctx context.Context, cfg config.EventsConfig, observer recorder.Observer) (*Sink, error) {
	logger := slog.Default().With("component", "events")

	if !cfg.IsEnabled() {
		logger.Info("event logging disabled")
		return &Sink{Logger: events.NoopLogger{}}, nil
	}

	var store events.Storage
	switch cfg.Backend {
	case "sqlite", "":
		s, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALEnabled(),
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open event storage: %w", err)
		}
		store = s
	case "memory":
		store = storage.NewMemoryStorage()
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}

	var opts []recorder.Option
	if observer != nil {
		opts = append(opts, recorder.WithObserver(observer))
	}
	recCfg := recorder.DefaultConfig()
	if cfg.Recorder.AsyncBuffer > 0 {
		recCfg.AsyncBuffer = cfg.Recorder.AsyncBuffer
	}
	if cfg.Recorder.WriteTimeout > 0 {
		recCfg.WriteTimeout = cfg.Recorder.WriteTimeout
	}
	rec := recorder.NewRecorder(store, recCfg, opts...)

	pruner := retention.NewPruner(store, &retention.Config{
		RetentionDays: cfg.Retention.Days,
		PruneSchedule: cfg.Retention.PruneSchedule,
		MaxRecords:    cfg.Retention.MaxRecords,
	})
	if err := pruner.Start(ctx); err != nil {
		rec.Close()
		store.Close()
		return nil, fmt.Errorf("failed to start event retention: %w", err)
	}

	logger.Info("event logging enabled", "backend", cfg.Backend)

	return &Sink{
		Logger:  rec,
		storage: store,
		pruner:  pruner,
	}, nil
}

// Storage returns the backing store, or nil when events are disabled.
func (s *Sink) Storage() events.Storage {
	return s.storage
}

// Check reports whether the backing store is reachable.
func (s *Sink) Check(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	if p, ok := s.storage.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	_, err := s.storage.Count(ctx, &events.Query{Limit: 1})
	return err
}

// Close stops retention, drains the recorder and closes storage.
func (s *Sink) Close() error {
	if s.pruner != nil {
		s.pruner.Stop()
	}
	err := s.Logger.Close()
	if s.storage != nil {
		err = errors.Join(err, s.storage.Close())
	}
	return err
}
