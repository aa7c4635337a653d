package model

import (
	"context"
	"log/slog"
	"os"

	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/providerfactory"
	"kestrel-hq/kestrel/pkg/providers"
)

// PromptInfo holds the templates associated with a resolved completion
// binding. Either field may be nil.
type PromptInfo struct {
	PromptTemplate *string
	ChatTemplate   *string
}

// HasChatTemplate reports whether a chat template is known.
func (p *PromptInfo) HasChatTemplate() bool {
	return p != nil && p.ChatTemplate != nil
}

// LoadEmbedding resolves the embedding role. A nil config yields a nil
// handle and no error; a config with neither or both variants set fails.
func LoadEmbedding(ctx context.Context, cfg *config.ModelConfig) (providers.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Variant() {
	case config.VariantHTTP:
		e, err := providerfactory.NewEmbedding(cfg.HTTP)
		if err != nil {
			return nil, &ResolveError{Role: providers.ModelRoleEmbedding, Err: err}
		}
		return e, nil
	case config.VariantLocal:
		return nil, unsupportedLocal(providers.ModelRoleEmbedding, cfg.Local.ModelID)
	default:
		if cfg == nil {
			return nil, nil
		}
		return nil, invalidVariant(providers.ModelRoleEmbedding, cfg)
	}
}

// LoadCompletionAndChat resolves the completion and chat roles. Chat is
// resolved independently of completion; either may be nil when its role is
// not configured. PromptInfo is non-nil only when completion resolved with
// at least one template.
func LoadCompletionAndChat(ctx context.Context, completionCfg, chatCfg *config.ModelConfig) (providers.Completion, *PromptInfo, providers.Chat, error) {
	completion, prompt, err := LoadCompletion(ctx, completionCfg)
	if err != nil {
		return nil, nil, nil, err
	}

	chat, err := LoadChat(ctx, chatCfg)
	if err != nil {
		if completion != nil {
			completion.Close()
		}
		return nil, nil, nil, err
	}

	return completion, prompt, chat, nil
}

// LoadCompletion resolves the completion role and its prompt templates.
func LoadCompletion(ctx context.Context, cfg *config.ModelConfig) (providers.Completion, *PromptInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	switch cfg.Variant() {
	case config.VariantHTTP:
		c, err := providerfactory.NewCompletion(cfg.HTTP)
		if err != nil {
			return nil, nil, &ResolveError{Role: providers.ModelRoleCompletion, Err: err}
		}
		promptTemplate, chatTemplate := providerfactory.BuildCompletionPrompt(cfg.HTTP)
		if promptTemplate == nil && chatTemplate == nil {
			return c, nil, nil
		}
		return c, &PromptInfo{PromptTemplate: promptTemplate, ChatTemplate: chatTemplate}, nil
	case config.VariantLocal:
		return nil, nil, unsupportedLocal(providers.ModelRoleCompletion, cfg.Local.ModelID)
	default:
		if cfg == nil {
			return nil, nil, nil
		}
		return nil, nil, invalidVariant(providers.ModelRoleCompletion, cfg)
	}
}

// LoadChat resolves the chat role.
func LoadChat(ctx context.Context, cfg *config.ModelConfig) (providers.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Variant() {
	case config.VariantHTTP:
		c, err := providerfactory.NewChat(cfg.HTTP)
		if err != nil {
			return nil, &ResolveError{Role: providers.ModelRoleChat, Err: err}
		}
		return c, nil
	case config.VariantLocal:
		return nil, unsupportedLocal(providers.ModelRoleChat, cfg.Local.ModelID)
	default:
		if cfg == nil {
			return nil, nil
		}
		return nil, invalidVariant(providers.ModelRoleChat, cfg)
	}
}

// CheckLocalModel logs whether a local model path exists. It never fails.
func CheckLocalModel(path string, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(path); err == nil {
		logger.Info("loading model from local path", "path", path)
		return true
	}
	logger.Warn("model not found at local path", "path", path)
	return false
}

// CheckLocalModels runs CheckLocalModel for every local completion and
// embedding entry.
func CheckLocalModels(cfg *config.Config, logger *slog.Logger) {
	if cfg == nil {
		return
	}
	for _, m := range []*config.ModelConfig{cfg.Model.Completion, cfg.Model.Embedding} {
		if m.Variant() == config.VariantLocal {
			CheckLocalModel(m.Local.ModelID, logger)
		}
	}
}
