package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 8080
	DefaultCompletionTimeout = 30 * time.Second
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 60 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMaxHeaderBytes    = 1048576 // 1MB
	DefaultCORSMaxAge        = 3600    // 1 hour

	// Model defaults
	DefaultDevice          = DeviceCPU
	DefaultParallelism     = uint8(1)
	DefaultHTTPTimeout     = 60 * time.Second
	DefaultHTTPMaxRetries  = 2
	DefaultMaxInputLength  = 10240
	DefaultMaxDecodeTokens = 64

	// Code search defaults
	DefaultMaxSnippets     = 3
	DefaultMinScore        = float32(0.5)
	DefaultMaxSnippetChars = 768

	// Index defaults
	DefaultIndexDir        = "data/index"
	DefaultIndexChunkLines = 40

	// Events defaults
	DefaultEventsBackend        = "sqlite"
	DefaultEventsSQLitePath     = "data/events.db"
	DefaultEventsMaxOpenConns   = 10
	DefaultEventsMaxIdleConns   = 5
	DefaultEventsBusyTimeout    = 5 * time.Second
	DefaultEventsAsyncBuffer    = 1000
	DefaultEventsWriteTimeout   = 5 * time.Second
	DefaultEventsRetentionDays  = 30
	DefaultEventsPruneSchedule  = "0 3 * * *"
	DefaultEventsMaxRecordLimit = int64(0)

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "kestrel"
	DefaultTracingSampler   = "ratio"
	DefaultTracingRatio     = 0.1
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingService   = "kestrel"
	DefaultTracingTimeout   = 10 * time.Second
)

// DefaultRequestDurationBuckets are the latency histogram buckets in seconds.
var DefaultRequestDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Default returns a configuration with every default applied and no model
// roles configured.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.CompletionTimeout == 0 {
		cfg.Server.CompletionTimeout = DefaultCompletionTimeout
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	applyCORSDefaults(&cfg.Server.CORS)

	// Model defaults - applied to each configured role
	applyModelDefaults(cfg.Model.Completion)
	applyModelDefaults(cfg.Model.Chat)
	applyModelDefaults(cfg.Model.Embedding)

	// Completion defaults
	if cfg.Completion.MaxInputLength == 0 {
		cfg.Completion.MaxInputLength = DefaultMaxInputLength
	}
	if cfg.Completion.MaxDecodingTokens == 0 {
		cfg.Completion.MaxDecodingTokens = DefaultMaxDecodeTokens
	}
	if cfg.Completion.CodeSearch.MaxSnippets == 0 {
		cfg.Completion.CodeSearch.MaxSnippets = DefaultMaxSnippets
	}
	if cfg.Completion.CodeSearch.MinScore == 0 {
		cfg.Completion.CodeSearch.MinScore = DefaultMinScore
	}
	if cfg.Completion.CodeSearch.MaxSnippetChars == 0 {
		cfg.Completion.CodeSearch.MaxSnippetChars = DefaultMaxSnippetChars
	}

	for i := range cfg.Repositories {
		if cfg.Repositories[i].Auth.Type == "" {
			cfg.Repositories[i].Auth.Type = "none"
		}
	}

	// Index defaults
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = DefaultIndexDir
	}
	if cfg.Index.ChunkLines == 0 {
		cfg.Index.ChunkLines = DefaultIndexChunkLines
	}

	// Events defaults
	if cfg.Events.Backend == "" {
		cfg.Events.Backend = DefaultEventsBackend
	}
	if cfg.Events.SQLite.Path == "" {
		cfg.Events.SQLite.Path = DefaultEventsSQLitePath
	}
	if cfg.Events.SQLite.MaxOpenConns == 0 {
		cfg.Events.SQLite.MaxOpenConns = DefaultEventsMaxOpenConns
	}
	if cfg.Events.SQLite.MaxIdleConns == 0 {
		cfg.Events.SQLite.MaxIdleConns = DefaultEventsMaxIdleConns
	}
	if cfg.Events.SQLite.BusyTimeout == 0 {
		cfg.Events.SQLite.BusyTimeout = DefaultEventsBusyTimeout
	}
	if cfg.Events.Recorder.AsyncBuffer == 0 {
		cfg.Events.Recorder.AsyncBuffer = DefaultEventsAsyncBuffer
	}
	if cfg.Events.Recorder.WriteTimeout == 0 {
		cfg.Events.Recorder.WriteTimeout = DefaultEventsWriteTimeout
	}
	if cfg.Events.Retention.Days == 0 {
		cfg.Events.Retention.Days = DefaultEventsRetentionDays
	}
	if cfg.Events.Retention.PruneSchedule == "" {
		cfg.Events.Retention.PruneSchedule = DefaultEventsPruneSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = cloneSlice(DefaultRequestDurationBuckets)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
}

// applyModelDefaults fills in defaults for whichever variant is set.
func applyModelDefaults(m *ModelConfig) {
	if m == nil {
		return
	}
	if m.Local != nil {
		if m.Local.Parallelism == 0 {
			m.Local.Parallelism = DefaultParallelism
		}
		if m.Local.Device == "" {
			m.Local.Device = DefaultDevice
		}
	}
	if m.HTTP != nil {
		if m.HTTP.Timeout == 0 {
			m.HTTP.Timeout = DefaultHTTPTimeout
		}
		if m.HTTP.MaxRetries == 0 {
			m.HTTP.MaxRetries = DefaultHTTPMaxRetries
		}
	}
}

func applyCORSDefaults(cfg *CORSConfig) {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultCORSMaxAge
	}
}
