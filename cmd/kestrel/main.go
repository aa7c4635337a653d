// Kestrel is a self-hosted code completion server.
//
// It serves OpenAI-style completion and chat endpoints backed by remote model
// servers (OpenAI-compatible, llama.cpp, Ollama), retrieves snippets from an
// embedded code index, and records client interaction events.
//
// Usage:
//
//	# Start the server with the models from config.yaml
//	kestrel serve
//
//	# Build the code index for a repository
//	kestrel index --repo ~/src/widgets
//
//	# Query the index
//	kestrel search "parse config file"
//
//	# Inspect recorded events
//	kestrel events --type select --since 24h
package main

// Production is set to "true" by release builds:
//
//	go build -ldflags "-X main.Production=true" ./cmd/kestrel
var Production = "false"

func isProduction() bool {
	return Production == "true"
}

func main() {
	Execute()
}
