// Package events records client interaction and completion events.
//
// # Architecture
//
// The event log has three layers:
//
//  1. Recorder - accepts events from the HTTP layer and the completion
//     service and writes them asynchronously
//  2. Storage - persists events (SQLite or in-memory)
//  3. Retention - prunes old events on a cron schedule
//
// # Event Types
//
// Clients post view, select and dismiss events to /v1/events, referencing
// the completion id they were shown. The completion service logs a
// completion event for every generated choice and the chat handler logs a
// chat_completion event.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:    "data/events.db",
//	    WALMode: true,
//	})
//	if err != nil {
//	    return err
//	}
//
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig())
//	defer rec.Close()
//
//	err = rec.Log(ctx, &events.Event{
//	    Type:         events.EventSelect,
//	    CompletionID: "cmpl-123",
//	})
//
// When events are disabled the server uses NoopLogger, which satisfies the
// same Logger interface.
package events
