package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SourceKind distinguishes code repositories from documentation trees.
type SourceKind string

const (
	SourceCode SourceKind = "code"
	SourceDocs SourceKind = "docs"
)

// Source is one indexed repository or documentation directory.
type Source struct {
	Kind      SourceKind
	Location  string // directory that was indexed
	GitURL    string // normalized, code sources only
	Revision  string // HEAD commit, code sources only
	Documents int
	IndexedAt time.Time
}

const catalogSchema = `
CREATE TABLE IF NOT EXISTS sources (
    kind TEXT NOT NULL,
    location TEXT NOT NULL,
    git_url TEXT NOT NULL DEFAULT '',
    revision TEXT NOT NULL DEFAULT '',
    documents INTEGER NOT NULL,
    indexed_at TEXT NOT NULL,
    PRIMARY KEY (kind, location)
);
`

// Catalog records which sources make up the index.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens or creates the catalog database at path.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &IndexError{Op: "open catalog", Path: path, Err: err}
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, &IndexError{Op: "open catalog", Path: path, Err: err}
	}
	if _, err := db.Exec(catalogSchema); err != nil {
		db.Close()
		return nil, &IndexError{Op: "create catalog", Path: path, Err: err}
	}

	return &Catalog{db: db}, nil
}

// Upsert records src, replacing any earlier entry for the same location.
func (c *Catalog) Upsert(ctx context.Context, src *Source) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO sources (kind, location, git_url, revision, documents, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, location) DO UPDATE SET
			git_url = excluded.git_url,
			revision = excluded.revision,
			documents = excluded.documents,
			indexed_at = excluded.indexed_at`,
		string(src.Kind), src.Location, src.GitURL, src.Revision, src.Documents, src.IndexedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &IndexError{Op: "upsert source", Path: src.Location, Err: err}
	}
	return nil
}

// Sources lists the catalog, optionally filtered by kind.
func (c *Catalog) Sources(ctx context.Context, kind SourceKind) ([]Source, error) {
	query := "SELECT kind, location, git_url, revision, documents, indexed_at FROM sources"
	var args []interface{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY kind, location"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &IndexError{Op: "list sources", Err: err}
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		var kindVal, indexedAt string
		if err := rows.Scan(&kindVal, &src.Location, &src.GitURL, &src.Revision, &src.Documents, &indexedAt); err != nil {
			return nil, &IndexError{Op: "list sources", Err: err}
		}
		src.Kind = SourceKind(kindVal)
		if src.IndexedAt, err = time.Parse(time.RFC3339Nano, indexedAt); err != nil {
			return nil, &IndexError{Op: "list sources", Err: fmt.Errorf("bad indexed_at %q: %w", indexedAt, err)}
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, &IndexError{Op: "list sources", Err: err}
	}
	return sources, nil
}

// Close closes the catalog database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
