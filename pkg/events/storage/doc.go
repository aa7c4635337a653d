// Package storage provides the event storage backends.
//
// SQLiteStorage is the default. It uses github.com/mattn/go-sqlite3 with
// WAL journaling and a busy timeout so the recorder worker and retention
// pruner can share the file. MemoryStorage keeps events in a map and is used
// for the "memory" backend and in tests.
//
// Both backends sort query results by event timestamp, newest first unless
// the query asks for ascending order, and cap unbounded queries at 100 rows.
package storage
