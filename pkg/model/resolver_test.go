package model

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/providers"
)

func httpRole(kind string) *config.ModelConfig {
	return &config.ModelConfig{HTTP: &config.HTTPModelConfig{
		Kind:        kind,
		APIEndpoint: "http://localhost:11434",
		ModelName:   "codellama:7b",
	}}
}

func localRole(path string) *config.ModelConfig {
	return config.ToLocalConfig(path, 1, config.DeviceCPU)
}

func TestLoadEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("unconfigured is absent", func(t *testing.T) {
		e, err := LoadEmbedding(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e != nil {
			t.Error("expected nil handle")
		}
	})

	t.Run("http resolves", func(t *testing.T) {
		e, err := LoadEmbedding(ctx, httpRole("ollama/embedding"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer e.Close()
		if e.GetName() != "embedding:ollama" {
			t.Errorf("unexpected binding %q", e.GetName())
		}
	})

	t.Run("local is unsupported", func(t *testing.T) {
		_, err := LoadEmbedding(ctx, localRole("/models/nomic"))
		if !errors.Is(err, ErrUnsupportedModel) {
			t.Fatalf("expected ErrUnsupportedModel, got %v", err)
		}

		var resolveErr *ResolveError
		if !errors.As(err, &resolveErr) || resolveErr.Role != providers.ModelRoleEmbedding {
			t.Errorf("expected embedding ResolveError, got %v", err)
		}
	})

	t.Run("binding error propagates", func(t *testing.T) {
		_, err := LoadEmbedding(ctx, httpRole("mystery"))

		var cfgErr *providers.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigError, got %T: %v", err, err)
		}
		if errors.Is(err, ErrUnsupportedModel) {
			t.Error("binding error must not be reported as unsupported")
		}
	})
}

func TestLoadCompletionAndChat(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		completion     *config.ModelConfig
		chat           *config.ModelConfig
		wantCompletion bool
		wantChat       bool
		wantErr        error
	}{
		{
			name: "nothing configured",
		},
		{
			name:           "completion only",
			completion:     httpRole("ollama"),
			wantCompletion: true,
		},
		{
			name:     "chat only",
			chat:     httpRole("openai/chat"),
			wantChat: true,
		},
		{
			name:           "both",
			completion:     httpRole("llama.cpp"),
			chat:           httpRole("ollama/chat"),
			wantCompletion: true,
			wantChat:       true,
		},
		{
			name:       "local completion",
			completion: localRole("bigcode/starcoder-1b"),
			chat:       httpRole("openai/chat"),
			wantErr:    ErrUnsupportedModel,
		},
		{
			name:       "local chat",
			completion: httpRole("ollama"),
			chat:       localRole("Qwen/Qwen2-1.5B-Instruct"),
			wantErr:    ErrUnsupportedModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completion, prompt, chat, err := LoadCompletionAndChat(ctx, tt.completion, tt.chat)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if completion != nil || chat != nil || prompt != nil {
					t.Error("expected no handles on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if (completion != nil) != tt.wantCompletion {
				t.Errorf("completion present = %v, want %v", completion != nil, tt.wantCompletion)
			}
			if (prompt != nil) != tt.wantCompletion {
				t.Errorf("prompt info present = %v, want %v", prompt != nil, tt.wantCompletion)
			}
			if (chat != nil) != tt.wantChat {
				t.Errorf("chat present = %v, want %v", chat != nil, tt.wantChat)
			}

			if completion != nil {
				completion.Close()
			}
			if chat != nil {
				chat.Close()
			}
		})
	}
}

func TestLoadCompletion_PromptInfo(t *testing.T) {
	cfg := httpRole("ollama")
	cfg.HTTP.ChatTemplate = "{{messages}}"

	c, prompt, err := LoadCompletion(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if prompt.PromptTemplate == nil || !strings.Contains(*prompt.PromptTemplate, "{suffix}") {
		t.Errorf("expected codellama FIM template, got %v", prompt.PromptTemplate)
	}
	if !prompt.HasChatTemplate() {
		t.Error("expected chat template")
	}
}

func TestLoadCompletion_NoTemplates(t *testing.T) {
	cfg := httpRole("ollama")
	cfg.HTTP.ModelName = "mystery-7b"

	c, prompt, err := LoadCompletion(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if prompt != nil {
		t.Errorf("expected no prompt info without templates, got %+v", prompt)
	}
}

func TestLoad_InvalidVariant(t *testing.T) {
	ctx := context.Background()

	both := httpRole("ollama")
	both.Local = &config.LocalModelConfig{ModelID: "/models/starcoder"}

	tests := []struct {
		name string
		cfg  *config.ModelConfig
	}{
		{"empty", &config.ModelConfig{}},
		{"both variants", both},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loaders := map[providers.ModelRole]func() error{
				providers.ModelRoleEmbedding: func() error {
					_, err := LoadEmbedding(ctx, tt.cfg)
					return err
				},
				providers.ModelRoleCompletion: func() error {
					_, _, err := LoadCompletion(ctx, tt.cfg)
					return err
				},
				providers.ModelRoleChat: func() error {
					_, err := LoadChat(ctx, tt.cfg)
					return err
				},
			}

			for role, load := range loaders {
				err := load()

				var resolveErr *ResolveError
				if !errors.As(err, &resolveErr) || resolveErr.Role != role {
					t.Fatalf("%s: expected ResolveError, got %v", role, err)
				}
				var cfgErr *providers.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("%s: expected ConfigError, got %T", role, resolveErr.Err)
				}
			}
		})
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := LoadEmbedding(ctx, httpRole("ollama")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCheckLocalModel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.gguf")
	if err := os.WriteFile(modelPath, []byte("gguf"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !CheckLocalModel(modelPath, logger) {
		t.Error("expected existing path")
	}
	if !strings.Contains(buf.String(), "loading model from local path") {
		t.Errorf("expected info log, got %q", buf.String())
	}

	buf.Reset()
	if CheckLocalModel(filepath.Join(dir, "missing"), logger) {
		t.Error("expected missing path")
	}
	if !strings.Contains(buf.String(), "model not found at local path") {
		t.Errorf("expected warn log, got %q", buf.String())
	}
}

func TestCheckLocalModels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := config.Default()
	cfg.Model.Completion = localRole("/nonexistent/completion")
	cfg.Model.Chat = localRole("/nonexistent/chat")
	cfg.Model.Embedding = httpRole("ollama")

	CheckLocalModels(cfg, logger)

	out := buf.String()
	if !strings.Contains(out, "/nonexistent/completion") {
		t.Error("expected completion path to be checked")
	}
	if strings.Contains(out, "/nonexistent/chat") {
		t.Error("chat path should not be checked")
	}
}
