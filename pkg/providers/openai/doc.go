// Package openai implements model bindings for OpenAI-compatible HTTP APIs.
//
// A single Provider serves all three roles:
//
//   - completion: POST {api_endpoint}/completions
//   - chat: POST {api_endpoint}/chat/completions
//   - embedding: POST {api_endpoint}/embeddings
//
// The api_endpoint usually ends in /v1. Health probes use GET /models.
// Streaming is not used; every request sets stream to false.
package openai
