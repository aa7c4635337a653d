package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the events database schema.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    request_id TEXT,

    -- Timestamps
    timestamp TIMESTAMP NOT NULL,
    recorded_time TIMESTAMP NOT NULL,

    -- Client interaction
    completion_id TEXT,
    choice_index INTEGER NOT NULL DEFAULT 0,
    view_id TEXT,
    elapsed INTEGER,

    -- Request context
    model TEXT,
    language TEXT,
    git_url TEXT,
    filepath TEXT,
    user TEXT,

    -- Content
    prompt TEXT,
    prompt_hash TEXT,
    output TEXT,
    snippets INTEGER NOT NULL DEFAULT 0,

    -- Outcome
    latency INTEGER,
    error TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
CREATE INDEX IF NOT EXISTS idx_events_completion_id ON events(completion_id);
CREATE INDEX IF NOT EXISTS idx_events_model ON events(model);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertEvent = `
INSERT INTO events (
    id, type, request_id,
    timestamp, recorded_time,
    completion_id, choice_index, view_id, elapsed,
    model, language, git_url, filepath, user,
    prompt, prompt_hash, output, snippets,
    latency, error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectColumns = `
    id, type, request_id,
    timestamp, recorded_time,
    completion_id, choice_index, view_id, elapsed,
    model, language, git_url, filepath, user,
    prompt, prompt_hash, output, snippets,
    latency, error
`
