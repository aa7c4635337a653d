// Package index stores code and documentation chunks in an embedded vector
// store and serves the searches that enrich completion prompts.
//
// An index directory holds three things: the chromem-go vector collections,
// a SQLite catalog of indexed sources, and a generation marker. A Builder
// writes chunks and then publishes a new generation with Commit. A
// ReaderProvider opens the published generation lazily and, when watching,
// reopens it whenever the marker changes, so a running server picks up a
// rebuilt index without restarting.
//
// CodeSearch and DocSearch share one ReaderProvider. Results are ranked by a
// blend of vector similarity and keyword overlap with the query.
//
// AllowedRepositories maps the git URL a client reports to one of the
// configured repositories, and WithRepository carries the match through the
// request context to the completion service.
package index
