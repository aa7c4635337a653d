// Package types defines the JSON bodies of the Kestrel HTTP API.
//
// Chat completion and error bodies follow the OpenAI wire format so that
// OpenAI SDKs can talk to the server unchanged. The remaining types are
// Kestrel's own: event logging, the model listing, server settings and the
// health report. Completion requests and responses are defined by the
// completion package and served as-is.
package types
