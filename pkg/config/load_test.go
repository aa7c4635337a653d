package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
model:
  completion:
    http:
      kind: "llama.cpp/completion"
      api_endpoint: "http://localhost:8081"
      prompt_template: "<PRE> {prefix} <SUF>{suffix} <MID>"
  chat:
    http:
      kind: "openai/chat"
      api_endpoint: "https://api.openai.com/v1"
      api_key: "sk-test"
      model_name: "gpt-4o-mini"
      timeout: "15s"
  embedding:
    local:
      model_id: "Nomic-Embed-Text"
      device: "metal"

server:
  port: 9090
  completion_timeout: "10s"

repositories:
  - name: kestrel
    git_url: "https://github.com/kestrel-hq/kestrel.git"

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("expected default host %q, got %q", DefaultHost, cfg.Server.Host)
	}
	if cfg.Server.CompletionTimeout != 10*time.Second {
		t.Errorf("expected completion timeout 10s, got %v", cfg.Server.CompletionTimeout)
	}

	if cfg.Model.Completion.Variant() != VariantHTTP {
		t.Fatalf("expected http completion, got %q", cfg.Model.Completion.Variant())
	}
	if cfg.Model.Completion.HTTP.PromptTemplate != "<PRE> {prefix} <SUF>{suffix} <MID>" {
		t.Errorf("unexpected prompt template %q", cfg.Model.Completion.HTTP.PromptTemplate)
	}
	if cfg.Model.Chat.HTTP.Timeout != 15*time.Second {
		t.Errorf("expected chat timeout 15s, got %v", cfg.Model.Chat.HTTP.Timeout)
	}
	if cfg.Model.Completion.HTTP.Timeout != DefaultHTTPTimeout {
		t.Errorf("expected default http timeout, got %v", cfg.Model.Completion.HTTP.Timeout)
	}

	if cfg.Model.Embedding.Variant() != VariantLocal {
		t.Fatalf("expected local embedding, got %q", cfg.Model.Embedding.Variant())
	}
	if cfg.Model.Embedding.Local.Device != DeviceMetal {
		t.Errorf("expected metal device, got %q", cfg.Model.Embedding.Local.Device)
	}
	if cfg.Model.Embedding.Local.Parallelism != DefaultParallelism {
		t.Errorf("expected default parallelism, got %d", cfg.Model.Embedding.Local.Parallelism)
	}

	if len(cfg.Repositories) != 1 || cfg.Repositories[0].Name != "kestrel" {
		t.Errorf("unexpected repositories %+v", cfg.Repositories)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level debug, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfig_InvalidDevice(t *testing.T) {
	path := writeConfig(t, `
model:
  completion:
    local:
      model_id: "m"
      device: "tpu"
`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unknown device")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 70000
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Errors[0].Field != "server.port" {
		t.Errorf("expected server.port error, got %s", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
model:
  chat:
    http:
      kind: "openai/chat"
      api_endpoint: "https://api.openai.com/v1"
`)

	t.Setenv("KESTREL_SERVER_PORT", "7070")
	t.Setenv("KESTREL_SERVER_COMPLETION_TIMEOUT", "5s")
	t.Setenv("KESTREL_MODEL_CHAT_API_KEY", "sk-from-env")
	t.Setenv("KESTREL_EVENTS_BACKEND", "memory")
	t.Setenv("KESTREL_TELEMETRY_METRICS_ENABLED", "false")
	t.Setenv("KESTREL_TELEMETRY_TRACING_ENABLED", "true")
	t.Setenv("KESTREL_TELEMETRY_TRACING_ENDPOINT", "collector:4317")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("expected port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Server.CompletionTimeout != 5*time.Second {
		t.Errorf("expected completion timeout 5s, got %v", cfg.Server.CompletionTimeout)
	}
	if cfg.Model.Chat.HTTP.APIKey != "sk-from-env" {
		t.Errorf("expected API key from env, got %q", cfg.Model.Chat.HTTP.APIKey)
	}
	if cfg.Events.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.Events.Backend)
	}
	if cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("expected metrics disabled by env")
	}
	if !cfg.Telemetry.Tracing.Enabled || cfg.Telemetry.Tracing.Endpoint != "collector:4317" {
		t.Errorf("expected tracing to collector:4317, got %+v", cfg.Telemetry.Tracing)
	}
}

func TestLoadConfigWithEnvOverrides_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("KESTREL_SERVER_HOST", "127.0.0.1")

	cfg, err := LoadConfigWithEnvOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected defaults for missing file, got %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected host from env, got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
	if cfg.Model.Completion != nil {
		t.Error("expected no completion model")
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")
	t.Setenv("KESTREL_EVENTS_BACKEND", "postgres")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Fatal("expected validation error after env overrides")
	}
}
