// Package middleware provides the HTTP middleware of the Kestrel API.
//
// Every middleware has the signature func(http.Handler) http.Handler, or is
// a constructor returning one, so it composes with chi's Use and With.
//
// Global, in order:
//   - RequestIDMiddleware: X-Request-ID propagation into the log context
//   - LoggingMiddleware: one log record per request, level by status class
//   - RecoveryMiddleware: panics become a 500 in the OpenAI error format
//   - MetricsMiddleware: request count and latency by route pattern
//
// Completion and chat routes only:
//   - TimeoutMiddleware: server.completion_timeout, 504 on expiry
//   - AllowedRepositoryMiddleware: the repository allow list for code search
package middleware
