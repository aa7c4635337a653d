// Package api builds the HTTP surface of the Kestrel server.
//
// Build turns the resolved services into a RouteTable. The table is
// assembled from a fixed list of fragments, each guarded by the
// capabilities it needs, so a server started without a completion or chat
// model still serves a consistent API:
//
//	POST /v1/events               always
//	GET  /v1/models               always
//	POST /v1/completions          completion model, or 501 without one
//	POST /v1/chat/completions     completion and chat models
//	GET  /v1beta/server_setting   always
//	GET  /v1/health               always
//	GET  /metrics                 when metrics are enabled
//
// Errors use the OpenAI error envelope from package types.
package api
