// Package llamacpp implements model bindings for the llama.cpp HTTP server.
//
// Supported roles:
//
//   - completion: POST {api_endpoint}/completion
//   - embedding: POST {api_endpoint}/embedding
//
// llama.cpp has no chat binding here; chat requests are routed to an
// OpenAI-compatible endpoint instead. Health probes use GET /health.
package llamacpp
