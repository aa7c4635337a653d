package config

import "time"

// Config is the root configuration structure for Kestrel.
// It contains the model role assignments, HTTP server settings, completion
// tuning, the allowed repository list, and the supporting subsystems.
type Config struct {
	// Model assigns a backend to each model role.
	Model ModelsConfig `yaml:"model"`

	// Server contains HTTP server configuration including bind address,
	// timeouts, and CORS.
	Server ServerConfig `yaml:"server"`

	// Completion contains tuning for the code completion service.
	Completion CompletionConfig `yaml:"completion"`

	// Repositories lists the code repositories whose snippets may be used
	// to enrich completion prompts.
	Repositories []RepositoryConfig `yaml:"repositories"`

	// Index contains configuration for the code and documentation index.
	Index IndexConfig `yaml:"index"`

	// Events contains configuration for the event log sink.
	Events EventsConfig `yaml:"events"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ModelsConfig holds zero or one backend per model role.
type ModelsConfig struct {
	// Completion backs the /v1/completions endpoint.
	Completion *ModelConfig `yaml:"completion,omitempty"`

	// Chat backs the /v1/chat/completions endpoint.
	Chat *ModelConfig `yaml:"chat,omitempty"`

	// Embedding backs code and documentation search.
	Embedding *ModelConfig `yaml:"embedding,omitempty"`
}

// ModelVariant identifies which backend variant a ModelConfig holds.
type ModelVariant string

const (
	// VariantNone means neither variant is set.
	VariantNone ModelVariant = ""
	// VariantLocal is a model file loaded in-process.
	VariantLocal ModelVariant = "local"
	// VariantHTTP is a model served by a remote HTTP endpoint.
	VariantHTTP ModelVariant = "http"
)

// ModelConfig is a tagged variant: exactly one of Local or HTTP is set.
type ModelConfig struct {
	// Local describes a model loaded from a local path.
	Local *LocalModelConfig `yaml:"local,omitempty"`

	// HTTP describes a model reached over an HTTP API.
	HTTP *HTTPModelConfig `yaml:"http,omitempty"`
}

// Variant reports which variant is set. When both are set it reports
// VariantNone; Validate rejects that case.
func (m *ModelConfig) Variant() ModelVariant {
	if m == nil {
		return VariantNone
	}
	switch {
	case m.Local != nil && m.HTTP == nil:
		return VariantLocal
	case m.HTTP != nil && m.Local == nil:
		return VariantHTTP
	default:
		return VariantNone
	}
}

// Identifier returns a human-readable model identifier for listings.
// For local models this is the model id or path; for HTTP models it is the
// model name, falling back to the endpoint.
func (m *ModelConfig) Identifier() string {
	switch m.Variant() {
	case VariantLocal:
		return m.Local.ModelID
	case VariantHTTP:
		if m.HTTP.ModelName != "" {
			return m.HTTP.ModelName
		}
		return m.HTTP.APIEndpoint
	default:
		return ""
	}
}

// LocalModelConfig describes a model file loaded in-process.
type LocalModelConfig struct {
	// ModelID is a model identifier or a path to model weights.
	ModelID string `yaml:"model_id"`

	// Parallelism is the number of concurrent inference slots.
	// Default: 1
	Parallelism uint8 `yaml:"parallelism"`

	// Device is the inference device.
	// Default: "cpu"
	Device Device `yaml:"device"`
}

// HTTPModelConfig describes a model served over HTTP.
type HTTPModelConfig struct {
	// Kind selects the binding, e.g. "openai", "llama.cpp", "ollama".
	// The long form "<kind>/<role>" (e.g. "openai/chat") is also accepted.
	Kind string `yaml:"kind"`

	// APIEndpoint is the base URL of the backend.
	APIEndpoint string `yaml:"api_endpoint"`

	// APIKey is sent as a bearer token when set.
	APIKey string `yaml:"api_key,omitempty"`

	// ModelName is the model identifier sent to the backend.
	ModelName string `yaml:"model_name,omitempty"`

	// PromptTemplate is the fill-in-the-middle template for completion,
	// using {prefix} and {suffix} placeholders.
	PromptTemplate string `yaml:"prompt_template,omitempty"`

	// ChatTemplate is an optional chat template reported to clients.
	ChatTemplate string `yaml:"chat_template,omitempty"`

	// Timeout is the per-request timeout for calls to the backend.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxRetries is the maximum number of retries for transient failures.
	// Default: 2
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// Host is the bind host.
	// Default: "0.0.0.0"
	Host string `yaml:"host"`

	// Port is the bind port.
	// Default: 8080
	Port int `yaml:"port"`

	// CompletionTimeout bounds each request on the completion and chat routes.
	// Default: 30s
	CompletionTimeout time.Duration `yaml:"completion_timeout"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the grace period for in-flight requests on shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// DisableClientSideTelemetry is reported to clients by /v1beta/server_setting.
	DisableClientSideTelemetry bool `yaml:"disable_client_side_telemetry"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// CompletionConfig tunes prompt construction and decoding.
type CompletionConfig struct {
	// MaxInputLength bounds the prompt length in characters.
	// Default: 10240
	MaxInputLength int `yaml:"max_input_length"`

	// MaxDecodingTokens bounds the number of generated tokens.
	// Default: 64
	MaxDecodingTokens int `yaml:"max_decoding_tokens"`

	// CodeSearch tunes snippet retrieval.
	CodeSearch CodeSearchConfig `yaml:"code_search"`
}

// CodeSearchConfig tunes snippet retrieval for completion prompts.
type CodeSearchConfig struct {
	// MaxSnippets is the number of snippets retrieved per request.
	// Default: 3
	MaxSnippets int `yaml:"max_snippets"`

	// MinScore drops snippets scoring below this value.
	// Default: 0.5
	MinScore float32 `yaml:"min_score"`

	// MaxSnippetChars bounds the total snippet characters in a prompt.
	// Default: 768
	MaxSnippetChars int `yaml:"max_snippet_chars"`
}

// RepositoryConfig is a repository whose snippets may be retrieved.
type RepositoryConfig struct {
	// Name is a display name.
	Name string `yaml:"name"`

	// GitURL is the repository's git remote URL.
	GitURL string `yaml:"git_url"`

	// Branch is checked out when the index command clones the repository.
	// Empty means the remote's default branch.
	Branch string `yaml:"branch"`

	// Auth holds credentials for cloning a private repository.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig selects how the index command authenticates to a git
// remote.
type GitAuthConfig struct {
	// Type is "none", "token" or "ssh".
	// Default: "none"
	Type string `yaml:"type"`

	// Token is a personal access token used as the HTTPS password.
	Token string `yaml:"token"`

	// TokenEnv names an environment variable holding the token. It is read
	// when Token is empty.
	TokenEnv string `yaml:"token_env"`

	// SSHKeyPath is a private key file with 0600 or stricter permissions.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase decrypts SSHKeyPath.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// IndexConfig configures the code and documentation index.
type IndexConfig struct {
	// Dir is the directory that holds the vector store, catalog, and
	// generation marker.
	// Default: "data/index"
	Dir string `yaml:"dir"`

	// Watch reloads the index when the generation marker changes.
	// Default: true
	Watch *bool `yaml:"watch,omitempty"`

	// Compress enables gzip compression of persisted vectors.
	Compress bool `yaml:"compress"`

	// ChunkLines is the number of source lines per indexed chunk.
	// Default: 40
	ChunkLines int `yaml:"chunk_lines"`
}

// WatchEnabled reports whether index hot reload is enabled.
func (c IndexConfig) WatchEnabled() bool {
	return c.Watch == nil || *c.Watch
}

// EventsConfig configures the event log sink.
type EventsConfig struct {
	// Enabled enables event recording.
	// Default: true
	Enabled *bool `yaml:"enabled,omitempty"`

	// Backend is the storage backend: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains async recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// IsEnabled reports whether event recording is enabled.
func (c EventsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/events.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode *bool `yaml:"wal_mode,omitempty"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// WALEnabled reports whether WAL mode is enabled.
func (c SQLiteConfig) WALEnabled() bool {
	return c.WALMode == nil || *c.WALMode
}

// RecorderConfig contains async recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the write channel.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds how long Log waits for buffer space.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains event retention configuration.
type RetentionConfig struct {
	// Days is how many days of events are kept. 0 keeps events forever.
	// Default: 30
	Days int `yaml:"days"`

	// MaxRecords caps the number of stored events. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a standard cron expression.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging configures the process logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus collector.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig configures OpenTelemetry tracing. Spans are exported over
// OTLP gRPC; Jaeger and Zipkin are reached through an OpenTelemetry
// collector.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is one of "always", "never", "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of root traces sampled when Sampler is
	// "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as service.name.
	// Default: "kestrel"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is one of "json", "text", "console".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`

	// RedactPII masks API keys and tokens in log fields.
	// Default: true
	RedactPII *bool `yaml:"redact_pii,omitempty"`
}

// RedactEnabled reports whether log redaction is enabled.
func (c LoggingConfig) RedactEnabled() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	// Enabled exposes /metrics and records request metrics.
	// Default: true
	Enabled *bool `yaml:"enabled,omitempty"`

	// Path is the exposition path.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "kestrel"
	Namespace string `yaml:"namespace"`

	// RequestDurationBuckets are the latency histogram buckets in seconds.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// IsEnabled reports whether metrics are enabled.
func (c MetricsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Clone returns a deep copy of the configuration. Mutating the copy never
// affects the receiver.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c

	out.Model = ModelsConfig{
		Completion: c.Model.Completion.Clone(),
		Chat:       c.Model.Chat.Clone(),
		Embedding:  c.Model.Embedding.Clone(),
	}
	out.Repositories = cloneSlice(c.Repositories)
	out.Index.Watch = cloneBool(c.Index.Watch)
	out.Events.Enabled = cloneBool(c.Events.Enabled)
	out.Events.SQLite.WALMode = cloneBool(c.Events.SQLite.WALMode)
	out.Server.CORS.AllowedOrigins = cloneSlice(c.Server.CORS.AllowedOrigins)
	out.Server.CORS.AllowedMethods = cloneSlice(c.Server.CORS.AllowedMethods)
	out.Server.CORS.AllowedHeaders = cloneSlice(c.Server.CORS.AllowedHeaders)
	out.Telemetry.Logging.RedactPII = cloneBool(c.Telemetry.Logging.RedactPII)
	out.Telemetry.Metrics.Enabled = cloneBool(c.Telemetry.Metrics.Enabled)
	out.Telemetry.Metrics.RequestDurationBuckets = cloneSlice(c.Telemetry.Metrics.RequestDurationBuckets)

	return &out
}

// Clone returns a deep copy of the model configuration.
func (m *ModelConfig) Clone() *ModelConfig {
	if m == nil {
		return nil
	}
	out := &ModelConfig{}
	if m.Local != nil {
		local := *m.Local
		out.Local = &local
	}
	if m.HTTP != nil {
		remote := *m.HTTP
		out.HTTP = &remote
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
