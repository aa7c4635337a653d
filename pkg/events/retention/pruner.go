package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kestrel-hq/kestrel/pkg/events"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain events.
	// 0 means keep events forever.
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// MaxRecords is the maximum number of events to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces retention limits on stored events.
type Pruner struct {
	storage   events.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage events.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "events.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)

	return p
}

// Prune deletes events older than the retention period, then the oldest
// events beyond MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
	}

	if totalDeleted == 0 {
		p.logger.Debug("no events pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("event pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)

	p.logger.Debug("pruning by age",
		"cutoff_time", cutoff,
		"retention_days", p.config.RetentionDays,
	)

	deleted, err := p.storage.Delete(ctx, &events.Query{EndTime: &cutoff})
	if err != nil {
		return 0, events.NewRetentionError(p.config.RetentionDays, err)
	}
	return deleted, nil
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &events.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords

	p.logger.Info("event count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", toDelete,
	)

	oldest, err := p.storage.Query(ctx, &events.Query{
		SortOrder: "asc",
		Limit:     int(toDelete),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query events: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	// Events sharing the cutoff timestamp are removed together.
	cutoff := oldest[len(oldest)-1].Timestamp
	deleted, err := p.storage.Delete(ctx, &events.Query{EndTime: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return deleted, nil
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
