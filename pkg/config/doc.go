// Package config provides configuration management for Kestrel.
//
// This package handles loading, validating, and merging configuration from
// YAML files, environment variables, and serve command flags.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with .env and environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention KESTREL_SECTION_FIELD.
// For example:
//
//   - KESTREL_SERVER_COMPLETION_TIMEOUT overrides server.completion_timeout
//   - KESTREL_MODEL_COMPLETION_API_KEY overrides model.completion.http.api_key
//   - KESTREL_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// A .env file in the working directory is loaded before overrides are applied.
//
// # Model Roles
//
// Each model role (completion, chat, embedding) is configured with exactly one
// backend variant:
//
//	model:
//	  completion:
//	    http:
//	      kind: llama.cpp/completion
//	      api_endpoint: http://localhost:8081
//	      prompt_template: "<PRE> {prefix} <SUF>{suffix} <MID>"
//	  embedding:
//	    http:
//	      kind: openai/embedding
//	      api_endpoint: https://api.openai.com/v1
//	      model_name: text-embedding-3-small
//
// Local variants are accepted by the parser so that operators get a clear
// startup failure instead of a silent parse error.
//
// # Serve Overrides
//
// MergeArgs applies serve command flags on top of a loaded configuration. It
// never mutates its input; the result is a deep copy produced by Config.Clone.
package config
