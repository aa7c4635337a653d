package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "KESTREL"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention KESTREL_SECTION_FIELD (e.g., KESTREL_SERVER_PORT).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load .env from the working directory, if present
// 2. Load YAML from file; a missing file yields the defaults
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
	} else if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg, newEnvReader())

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// newEnvReader returns a viper instance that resolves dotted keys such as
// "server.port" against KESTREL_SERVER_PORT.
func newEnvReader() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config, v *viper.Viper) {
	// Server overrides
	if v.IsSet("server.host") {
		cfg.Server.Host = v.GetString("server.host")
	}
	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("server.completion_timeout") {
		cfg.Server.CompletionTimeout = v.GetDuration("server.completion_timeout")
	}
	if v.IsSet("server.read_timeout") {
		cfg.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	}
	if v.IsSet("server.write_timeout") {
		cfg.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	}
	if v.IsSet("server.shutdown_timeout") {
		cfg.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")
	}
	if v.IsSet("server.disable_client_side_telemetry") {
		cfg.Server.DisableClientSideTelemetry = v.GetBool("server.disable_client_side_telemetry")
	}

	// Model overrides only touch roles configured with the http variant
	applyModelEnvOverrides(v, "model.completion", cfg.Model.Completion)
	applyModelEnvOverrides(v, "model.chat", cfg.Model.Chat)
	applyModelEnvOverrides(v, "model.embedding", cfg.Model.Embedding)

	// Index overrides
	if v.IsSet("index.dir") {
		cfg.Index.Dir = v.GetString("index.dir")
	}
	if v.IsSet("index.watch") {
		watch := v.GetBool("index.watch")
		cfg.Index.Watch = &watch
	}

	// Events overrides
	if v.IsSet("events.enabled") {
		enabled := v.GetBool("events.enabled")
		cfg.Events.Enabled = &enabled
	}
	if v.IsSet("events.backend") {
		cfg.Events.Backend = v.GetString("events.backend")
	}
	if v.IsSet("events.sqlite.path") {
		cfg.Events.SQLite.Path = v.GetString("events.sqlite.path")
	}
	if v.IsSet("events.retention.days") {
		cfg.Events.Retention.Days = v.GetInt("events.retention.days")
	}

	// Telemetry overrides
	if v.IsSet("telemetry.logging.level") {
		cfg.Telemetry.Logging.Level = v.GetString("telemetry.logging.level")
	}
	if v.IsSet("telemetry.logging.format") {
		cfg.Telemetry.Logging.Format = v.GetString("telemetry.logging.format")
	}
	if v.IsSet("telemetry.metrics.enabled") {
		enabled := v.GetBool("telemetry.metrics.enabled")
		cfg.Telemetry.Metrics.Enabled = &enabled
	}
	if v.IsSet("telemetry.tracing.enabled") {
		cfg.Telemetry.Tracing.Enabled = v.GetBool("telemetry.tracing.enabled")
	}
	if v.IsSet("telemetry.tracing.endpoint") {
		cfg.Telemetry.Tracing.Endpoint = v.GetString("telemetry.tracing.endpoint")
	}
	if v.IsSet("telemetry.tracing.sample_ratio") {
		cfg.Telemetry.Tracing.SampleRatio = v.GetFloat64("telemetry.tracing.sample_ratio")
	}
}

// applyModelEnvOverrides applies KESTREL_MODEL_<ROLE>_<FIELD> overrides to
// an http model role.
func applyModelEnvOverrides(v *viper.Viper, prefix string, m *ModelConfig) {
	if m == nil || m.HTTP == nil {
		return
	}
	if v.IsSet(prefix + ".api_key") {
		m.HTTP.APIKey = v.GetString(prefix + ".api_key")
	}
	if v.IsSet(prefix + ".api_endpoint") {
		m.HTTP.APIEndpoint = v.GetString(prefix + ".api_endpoint")
	}
	if v.IsSet(prefix + ".model_name") {
		m.HTTP.ModelName = v.GetString(prefix + ".model_name")
	}
}
