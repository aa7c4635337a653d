package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.port").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
//
// Local model variants pass validation; they are rejected at model
// resolution so the failure names the role that could not load.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateModel("model.completion", cfg.Model.Completion)...)
	errs = append(errs, validateModel("model.chat", cfg.Model.Chat)...)
	errs = append(errs, validateModel("model.embedding", cfg.Model.Embedding)...)
	errs = append(errs, validateCompletion(&cfg.Completion)...)
	errs = append(errs, validateRepositories(cfg.Repositories)...)
	errs = append(errs, validateIndex(&cfg.Index)...)
	errs = append(errs, validateEvents(&cfg.Events)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.Host == "" {
		errs = append(errs, FieldError{
			Field:   "server.host",
			Message: "host is required",
		})
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, FieldError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		})
	}

	if cfg.CompletionTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.completion_timeout",
			Message: "completion timeout must be positive",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "server.cors.max_age",
			Message: "max age must be non-negative",
		})
	}

	return errs
}

// validateModel validates a single model role. A nil role is valid and
// means the role is not configured.
func validateModel(prefix string, m *ModelConfig) []FieldError {
	if m == nil {
		return nil
	}

	var errs []FieldError

	if m.Local == nil && m.HTTP == nil {
		return append(errs, FieldError{
			Field:   prefix,
			Message: "exactly one of local or http must be set",
		})
	}
	if m.Local != nil && m.HTTP != nil {
		return append(errs, FieldError{
			Field:   prefix,
			Message: "local and http are mutually exclusive",
		})
	}

	if m.Local != nil {
		if m.Local.ModelID == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".local.model_id",
				Message: "model id is required",
			})
		}
		if m.Local.Device != "" {
			if _, err := ParseDevice(string(m.Local.Device)); err != nil {
				errs = append(errs, FieldError{
					Field:   prefix + ".local.device",
					Message: err.Error(),
				})
			}
		}
		return errs
	}

	h := m.HTTP
	if h.Kind == "" {
		errs = append(errs, FieldError{
			Field:   prefix + ".http.kind",
			Message: "kind is required",
		})
	}
	if h.APIEndpoint == "" {
		errs = append(errs, FieldError{
			Field:   prefix + ".http.api_endpoint",
			Message: "API endpoint is required",
		})
	} else if u, err := url.Parse(h.APIEndpoint); err != nil {
		errs = append(errs, FieldError{
			Field:   prefix + ".http.api_endpoint",
			Message: fmt.Sprintf("invalid URL format: %v", err),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, FieldError{
			Field:   prefix + ".http.api_endpoint",
			Message: "URL scheme must be http or https",
		})
	}

	if h.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".http.timeout",
			Message: "timeout must be positive",
		})
	}
	if h.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".http.max_retries",
			Message: "max retries must be non-negative",
		})
	}
	if h.MaxRetries > 10 {
		errs = append(errs, FieldError{
			Field:   prefix + ".http.max_retries",
			Message: "max retries exceeds reasonable limit (10)",
		})
	}

	return errs
}

func validateCompletion(cfg *CompletionConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxInputLength < 0 {
		errs = append(errs, FieldError{
			Field:   "completion.max_input_length",
			Message: "max input length must be non-negative",
		})
	}
	if cfg.MaxDecodingTokens < 0 {
		errs = append(errs, FieldError{
			Field:   "completion.max_decoding_tokens",
			Message: "max decoding tokens must be non-negative",
		})
	}
	if cfg.CodeSearch.MaxSnippets < 0 {
		errs = append(errs, FieldError{
			Field:   "completion.code_search.max_snippets",
			Message: "max snippets must be non-negative",
		})
	}
	if cfg.CodeSearch.MinScore < 0 || cfg.CodeSearch.MinScore > 1 {
		errs = append(errs, FieldError{
			Field:   "completion.code_search.min_score",
			Message: "min score must be between 0 and 1",
		})
	}

	return errs
}

func validateRepositories(repos []RepositoryConfig) []FieldError {
	var errs []FieldError

	for i, repo := range repos {
		if repo.GitURL == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("repositories[%d].git_url", i),
				Message: "git URL is required",
			})
		}

		field := fmt.Sprintf("repositories[%d].auth", i)
		switch repo.Auth.Type {
		case "", "none":
		case "token":
			if repo.Auth.Token == "" && repo.Auth.TokenEnv == "" {
				errs = append(errs, FieldError{
					Field:   field + ".token",
					Message: "token or token_env is required for token auth",
				})
			}
		case "ssh":
			if repo.Auth.SSHKeyPath == "" {
				errs = append(errs, FieldError{
					Field:   field + ".ssh_key_path",
					Message: "SSH key path is required for ssh auth",
				})
			}
		default:
			errs = append(errs, FieldError{
				Field:   field + ".type",
				Message: fmt.Sprintf("invalid auth type %q (must be 'none', 'token' or 'ssh')", repo.Auth.Type),
			})
		}
	}

	return errs
}

func validateIndex(cfg *IndexConfig) []FieldError {
	var errs []FieldError

	if cfg.Dir == "" {
		errs = append(errs, FieldError{
			Field:   "index.dir",
			Message: "index directory is required",
		})
	}
	if cfg.ChunkLines < 0 {
		errs = append(errs, FieldError{
			Field:   "index.chunk_lines",
			Message: "chunk lines must be non-negative",
		})
	}

	return errs
}

// validateEvents validates event sink configuration.
func validateEvents(cfg *EventsConfig) []FieldError {
	var errs []FieldError

	if !cfg.IsEnabled() {
		return errs
	}

	switch cfg.Backend {
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "events.sqlite.path",
				Message: "SQLite path is required when backend is sqlite",
			})
		}
		if cfg.SQLite.MaxOpenConns < 0 {
			errs = append(errs, FieldError{
				Field:   "events.sqlite.max_open_conns",
				Message: "max open connections must be non-negative",
			})
		}
		if cfg.SQLite.MaxIdleConns < 0 {
			errs = append(errs, FieldError{
				Field:   "events.sqlite.max_idle_conns",
				Message: "max idle connections must be non-negative",
			})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "events.backend",
			Message: fmt.Sprintf("invalid backend %q (must be 'sqlite' or 'memory')", cfg.Backend),
		})
	}

	if cfg.Recorder.AsyncBuffer < 0 {
		errs = append(errs, FieldError{
			Field:   "events.recorder.async_buffer",
			Message: "async buffer must be non-negative",
		})
	}
	if cfg.Recorder.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "events.recorder.write_timeout",
			Message: "write timeout must be positive",
		})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "events.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "events.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "events.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be one of: debug, info, warn, error)", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be one of: json, text, console)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.IsEnabled() && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (must be one of: always, never, ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: fmt.Sprintf("sample ratio must be between 0.0 and 1.0, got %f", cfg.Tracing.SampleRatio),
		})
	}

	return errs
}
