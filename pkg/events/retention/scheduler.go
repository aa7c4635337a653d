package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Pruner on its cron schedule. Overlapping runs are
// skipped.
type Scheduler struct {
	pruner  *Pruner
	cron    *cron.Cron
	entry   cron.EntryID
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a new retention scheduler.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: slog.Default().With("component", "events.scheduler"),
	}
}

// Start schedules pruning from the pruner's PruneSchedule. An empty schedule
// disables the scheduler. Cancelling ctx stops it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := s.pruner.config.PruneSchedule
	if schedule == "" {
		s.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	entry, err := s.cron.AddFunc(schedule, func() {
		s.runPruning(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	s.entry = entry
	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", schedule,
		"retention_days", s.pruner.config.RetentionDays,
		"max_records", s.pruner.config.MaxRecords,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) runPruning(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	deleted, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
		return
	}
	s.logger.Debug("scheduled pruning completed", "deleted_count", deleted)
}

// Stop stops the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entry)
	s.running = false
	s.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled pruning time, or nil when not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}
