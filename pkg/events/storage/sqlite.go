package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"kestrel-hq/kestrel/pkg/events"
)

const defaultQueryLimit = 100

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path. Parent directories are created.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/events.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements events.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

var _ events.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens the database, enables WAL mode if configured and
// creates the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "events.storage.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." && config.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, events.NewStorageError("sqlite", "mkdir", err)
		}
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, events.NewStorageError("sqlite", "open", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return events.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return events.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return events.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return events.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return events.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return events.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists an event.
func (s *SQLiteStorage) Store(ctx context.Context, event *events.Event) error {
	var elapsed sql.NullInt64
	if event.Elapsed != nil {
		elapsed = sql.NullInt64{Int64: int64(*event.Elapsed), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, insertEvent,
		event.ID, string(event.Type), nullString(event.RequestID),
		event.Timestamp.UTC(), event.RecordedTime.UTC(),
		nullString(event.CompletionID), event.ChoiceIndex, nullString(event.ViewID), elapsed,
		nullString(event.Model), nullString(event.Language), nullString(event.GitURL), nullString(event.Filepath), nullString(event.User),
		nullString(event.Prompt), nullString(event.PromptHash), nullString(event.Output), event.Snippets,
		event.Latency.Milliseconds(), nullString(event.Error),
	)
	if err != nil {
		return events.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query retrieves events matching the filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *events.Query) ([]*events.Event, error) {
	if query == nil {
		query = &events.Query{}
	}

	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT " + selectColumns + " FROM events"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	sortOrder := "DESC"
	if strings.EqualFold(query.SortOrder, "asc") {
		sortOrder = "ASC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY timestamp %s", sortOrder)

	limit := defaultQueryLimit
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, events.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	result := []*events.Event{}
	for rows.Next() {
		event, err := scanRow(rows)
		if err != nil {
			return nil, events.NewStorageError("sqlite", "scan", err)
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, events.NewStorageError("sqlite", "query", err)
	}

	return result, nil
}

// Count returns the number of events matching the filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *events.Query) (int64, error) {
	if query == nil {
		query = &events.Query{}
	}

	whereClause, args := buildWhereClause(query)
	sqlQuery := "SELECT COUNT(*) FROM events"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, events.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes events matching the filters.
func (s *SQLiteStorage) Delete(ctx context.Context, query *events.Query) (int64, error) {
	if query == nil {
		query = &events.Query{}
	}

	whereClause, args := buildWhereClause(query)
	sqlQuery := "DELETE FROM events"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, events.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, events.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Ping verifies the database is reachable. It backs the events health check.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return events.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return events.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// buildWhereClause returns the WHERE clause (without the keyword) and its
// arguments.
func buildWhereClause(query *events.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.StartTime.UTC())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, query.EndTime.UTC())
	}
	if query.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(query.Type))
	}
	if query.CompletionID != "" {
		conditions = append(conditions, "completion_id = ?")
		args = append(args, query.CompletionID)
	}
	if query.Model != "" {
		conditions = append(conditions, "model = ?")
		args = append(args, query.Model)
	}

	switch query.Status {
	case "success":
		conditions = append(conditions, "error IS NULL")
	case "error":
		conditions = append(conditions, "error IS NOT NULL")
	}

	return strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*events.Event, error) {
	var event events.Event
	var eventType string
	var requestID, completionID, viewID, model, language, gitURL, path, user sql.NullString
	var prompt, promptHash, output, errVal sql.NullString
	var elapsed, latencyMs sql.NullInt64

	err := rows.Scan(
		&event.ID, &eventType, &requestID,
		&event.Timestamp, &event.RecordedTime,
		&completionID, &event.ChoiceIndex, &viewID, &elapsed,
		&model, &language, &gitURL, &path, &user,
		&prompt, &promptHash, &output, &event.Snippets,
		&latencyMs, &errVal,
	)
	if err != nil {
		return nil, err
	}

	event.Type = events.EventType(eventType)
	event.RequestID = requestID.String
	event.CompletionID = completionID.String
	event.ViewID = viewID.String
	event.Model = model.String
	event.Language = language.String
	event.GitURL = gitURL.String
	event.Filepath = path.String
	event.User = user.String
	event.Prompt = prompt.String
	event.PromptHash = promptHash.String
	event.Output = output.String
	event.Error = errVal.String
	event.Latency = time.Duration(latencyMs.Int64) * time.Millisecond
	if elapsed.Valid {
		v := uint32(elapsed.Int64)
		event.Elapsed = &v
	}

	return &event, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
