// Package providers defines the model binding abstraction used by Kestrel.
//
// # Overview
//
// A binding connects one model role (completion, chat, or embedding) to a
// backend reached over HTTP. Every binding implements Provider for lifecycle
// and health, plus exactly one role interface:
//
//   - Completion: Generate(ctx, prompt, opts) returns generated text
//   - Chat: ChatCompletion(ctx, req) returns the assistant reply
//   - Embedding: Embed(ctx, text) returns a vector
//
// # Architecture
//
//  1. Role interfaces - the contract consumed by the completion service, the
//     chat route, and the index searchers
//  2. HTTPProvider - shared HTTP client logic (connection pooling, retries,
//     timeouts, health tracking)
//  3. Binding packages - openai, llamacpp, ollama
//  4. providerfactory - builds bindings from configuration by (kind, role)
//
// # Error Handling
//
// DoRequest maps backend responses onto typed errors:
//
//   - 401/403: *AuthError (not retried, counts against health)
//   - 404: *ModelNotFoundError
//   - 429: *RateLimitError with the parsed Retry-After
//   - 400/422: *ProviderError (not retried)
//   - 5xx and network failures: retried with exponential backoff
//   - context deadline: *TimeoutError
//
// Undecodable bodies surface as *ParseError. Factory failures surface as
// *ConfigError and are fatal at startup.
//
// # Health Monitoring
//
// Three consecutive failures mark a binding unhealthy. StartHealthChecker
// probes HealthCheckPath periodically and backs off while the binding is
// unhealthy. Close stops the checker and releases pooled connections.
package providers
