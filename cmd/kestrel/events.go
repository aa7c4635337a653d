package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kestrel-hq/kestrel/pkg/cli"
	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/events"
	"kestrel-hq/kestrel/pkg/events/storage"
)

var eventsFlags struct {
	timeRange    string
	since        time.Duration
	eventType    string
	completionID string
	model        string
	status       string
	limit        int
	offset       int
	output       string
	file         string
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Query the event log",
	Long: `Query completion and editor interaction events recorded by the server.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-10-01T00:00:00Z/2026-10-02T00:00:00Z"

Examples:
  # Events from the last day
  kestrel events --since 24h

  # Accepted completions
  kestrel events --type select

  # Failed completions as JSON
  kestrel events --type completion --status error --output json

  # Acceptance summary
  kestrel events report --since 168h`,
	RunE: queryEvents,
}

var eventsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the event log",
	RunE:  reportEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsReportCmd)

	pf := eventsCmd.PersistentFlags()
	pf.StringVar(&eventsFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	pf.DurationVar(&eventsFlags.since, "since", 0, "only events newer than this duration")
	pf.StringVarP(&eventsFlags.output, "output", "o", "text", "output format: text, json")
	pf.StringVar(&eventsFlags.file, "file", "", "write to file instead of stdout")

	f := eventsCmd.Flags()
	f.StringVar(&eventsFlags.eventType, "type", "", "filter by type: view, select, dismiss, completion, chat_completion")
	f.StringVar(&eventsFlags.completionID, "completion-id", "", "filter by completion id")
	f.StringVar(&eventsFlags.model, "model", "", "filter by model")
	f.StringVar(&eventsFlags.status, "status", "", "filter by status: success, error")
	f.IntVar(&eventsFlags.limit, "limit", 100, "max results")
	f.IntVar(&eventsFlags.offset, "offset", 0, "pagination offset")
}

// openEventStore opens the configured event database read-side.
func openEventStore(cfg *config.Config) (events.Storage, error) {
	if cfg.Events.Backend != "sqlite" {
		return nil, cli.NewConfigError("events.backend",
			fmt.Errorf("backend %q keeps no events between runs", cfg.Events.Backend))
	}
	if _, err := os.Stat(cfg.Events.SQLite.Path); err != nil {
		return nil, cli.NewConfigError("events.sqlite.path", err)
	}

	return storage.NewSQLiteStorage(&storage.SQLiteConfig{
		Path:         cfg.Events.SQLite.Path,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		WALMode:      cfg.Events.SQLite.WALEnabled(),
		BusyTimeout:  cfg.Events.SQLite.BusyTimeout,
	})
}

// parseTimeRange applies --time-range and --since to q.
func parseTimeRange(q *events.Query, timeRange string, since time.Duration, now time.Time) error {
	if timeRange != "" && since > 0 {
		return cli.NewConfigError("--since", errors.New("cannot be combined with --time-range"))
	}

	if since > 0 {
		start := now.Add(-since)
		q.StartTime = &start
		return nil
	}
	if timeRange == "" {
		return nil
	}

	parts := strings.Split(timeRange, "/")
	if len(parts) != 2 {
		return cli.NewConfigError("--time-range", errors.New("expected start/end"))
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return cli.NewConfigError("--time-range", fmt.Errorf("invalid start time: %w", err))
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return cli.NewConfigError("--time-range", fmt.Errorf("invalid end time: %w", err))
	}
	if end.Before(start) {
		return cli.NewConfigError("--time-range", errors.New("end is before start"))
	}
	q.StartTime, q.EndTime = &start, &end
	return nil
}

func outputWriter() (io.Writer, func() error, error) {
	if eventsFlags.file == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(eventsFlags.file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

type eventRows []*events.Event

func (r eventRows) Headers() []string {
	return []string{"Time", "Type", "Completion", "Model", "Latency", "Error"}
}

func (r eventRows) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, e := range r {
		latency := ""
		if e.Latency > 0 {
			latency = e.Latency.Round(time.Millisecond).String()
		}
		if e.Elapsed != nil {
			latency = strconv.FormatUint(uint64(*e.Elapsed), 10) + "ms"
		}
		rows = append(rows, []string{
			e.Timestamp.Local().Format(time.DateTime),
			string(e.Type),
			e.CompletionID,
			e.Model,
			latency,
			e.Error,
		})
	}
	return rows
}

func queryEvents(cmd *cobra.Command, _ []string) error {
	format, err := cli.ParseOutputFormat(eventsFlags.output)
	if err != nil {
		return err
	}

	query := &events.Query{
		Type:         events.EventType(eventsFlags.eventType),
		CompletionID: eventsFlags.completionID,
		Model:        eventsFlags.model,
		Status:       eventsFlags.status,
		Limit:        eventsFlags.limit,
		Offset:       eventsFlags.offset,
	}
	if err := parseTimeRange(query, eventsFlags.timeRange, eventsFlags.since, time.Now()); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openEventStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Query(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("events", fmt.Errorf("query failed: %w", err))
	}

	w, closeFn, err := outputWriter()
	if err != nil {
		return err
	}
	defer closeFn()

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(w, map[string]any{
			"total_records": len(records),
			"records":       records,
		})
	}
	return cli.NewFormatter(format).FormatTo(w, eventRows(records))
}

// EventReport summarizes the event log over a time range.
type EventReport struct {
	Counts         map[events.EventType]int64 `json:"counts"`
	FailedRequests int64                      `json:"failed_requests"`

	// AcceptanceRate is selects per view, 0 without views.
	AcceptanceRate float64 `json:"acceptance_rate"`
}

func (r EventReport) String() string {
	var sb strings.Builder
	for _, t := range reportTypes {
		fmt.Fprintf(&sb, "%-16s %d\n", t, r.Counts[t])
	}
	fmt.Fprintf(&sb, "%-16s %d\n", "failed", r.FailedRequests)
	fmt.Fprintf(&sb, "%-16s %.1f%%", "acceptance", r.AcceptanceRate*100)
	return sb.String()
}

var reportTypes = []events.EventType{
	events.EventCompletion,
	events.EventChatCompletion,
	events.EventView,
	events.EventSelect,
	events.EventDismiss,
}

func buildReport(ctx context.Context, store events.Storage, base events.Query) (EventReport, error) {
	report := EventReport{Counts: make(map[events.EventType]int64, len(reportTypes))}

	for _, t := range reportTypes {
		q := base
		q.Type = t
		n, err := store.Count(ctx, &q)
		if err != nil {
			return report, err
		}
		report.Counts[t] = n
	}

	q := base
	q.Status = "error"
	failed, err := store.Count(ctx, &q)
	if err != nil {
		return report, err
	}
	report.FailedRequests = failed

	if views := report.Counts[events.EventView]; views > 0 {
		report.AcceptanceRate = float64(report.Counts[events.EventSelect]) / float64(views)
	}
	return report, nil
}

func reportEvents(cmd *cobra.Command, _ []string) error {
	format, err := cli.ParseOutputFormat(eventsFlags.output)
	if err != nil {
		return err
	}

	var base events.Query
	if err := parseTimeRange(&base, eventsFlags.timeRange, eventsFlags.since, time.Now()); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openEventStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := buildReport(cmd.Context(), store, base)
	if err != nil {
		return cli.NewCommandError("events report", err)
	}

	w, closeFn, err := outputWriter()
	if err != nil {
		return err
	}
	defer closeFn()

	return cli.NewFormatter(format).FormatTo(w, report)
}
