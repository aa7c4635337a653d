// Package retention prunes the event log.
//
// Pruning runs in two phases: events older than RetentionDays are deleted,
// then, if MaxRecords is set, the oldest events beyond that count. The
// Scheduler runs Prune on a standard five-field cron expression using
// github.com/robfig/cron/v3 and stops when its context is cancelled.
package retention
