// Package ollama implements model bindings for the Ollama HTTP API.
//
// Supported roles:
//
//   - completion: POST {api_endpoint}/api/generate with raw prompts
//   - chat: POST {api_endpoint}/api/chat
//   - embedding: POST {api_endpoint}/api/embeddings
//
// Every request disables streaming. Health probes use GET /api/tags.
package ollama
