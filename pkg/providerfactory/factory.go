package providerfactory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/providers"
	"kestrel-hq/kestrel/pkg/providers/llamacpp"
	"kestrel-hq/kestrel/pkg/providers/ollama"
	"kestrel-hq/kestrel/pkg/providers/openai"
)

type bindingKey struct {
	kind string
	role providers.ModelRole
}

type constructor func(providers.ProviderConfig) (providers.Provider, error)

// registry lists every supported (kind, role) pair.
var registry = map[bindingKey]constructor{
	{openai.Kind, providers.ModelRoleCompletion}:   newOpenAI,
	{openai.Kind, providers.ModelRoleChat}:         newOpenAI,
	{openai.Kind, providers.ModelRoleEmbedding}:    newOpenAI,
	{llamacpp.Kind, providers.ModelRoleCompletion}: newLlamaCpp,
	{llamacpp.Kind, providers.ModelRoleEmbedding}:  newLlamaCpp,
	{ollama.Kind, providers.ModelRoleCompletion}:   newOllama,
	{ollama.Kind, providers.ModelRoleChat}:         newOllama,
	{ollama.Kind, providers.ModelRoleEmbedding}:    newOllama,
}

// kindAliases maps accepted spellings onto canonical kinds.
var kindAliases = map[string]string{
	"llamacpp":  llamacpp.Kind,
	"llama-cpp": llamacpp.Kind,
	"vllm":      openai.Kind,
	"lmstudio":  openai.Kind,
}

func newOpenAI(cfg providers.ProviderConfig) (providers.Provider, error)   { return openai.NewProvider(cfg) }
func newLlamaCpp(cfg providers.ProviderConfig) (providers.Provider, error) { return llamacpp.NewProvider(cfg) }
func newOllama(cfg providers.ProviderConfig) (providers.Provider, error)   { return ollama.NewProvider(cfg) }

// ParseKind normalizes a configured kind for role. The long form
// "<kind>/<role>" is accepted when its suffix names role.
func ParseKind(kind string, role providers.ModelRole) (string, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))

	if base, suffix, ok := strings.Cut(kind, "/"); ok {
		if providers.ModelRole(suffix) != role {
			return "", &providers.ConfigError{
				Provider: kind,
				Field:    "kind",
				Message:  fmt.Sprintf("kind %q cannot serve the %s role", kind, role),
			}
		}
		kind = base
	}

	if canonical, ok := kindAliases[kind]; ok {
		kind = canonical
	}
	return kind, nil
}

// SupportedKinds returns the kinds that can serve role, sorted.
func SupportedKinds(role providers.ModelRole) []string {
	var kinds []string
	for key := range registry {
		if key.role == role {
			kinds = append(kinds, key.kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}

// ProviderConfigFor converts an http model role into a binding configuration.
func ProviderConfigFor(kind string, role providers.ModelRole, cfg *config.HTTPModelConfig) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:       string(role) + ":" + kind,
		Type:       kind,
		Role:       role,
		BaseURL:    cfg.APIEndpoint,
		APIKey:     cfg.APIKey,
		Model:      cfg.ModelName,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}
}

// NewProvider creates the binding for an http model role.
// An unknown (kind, role) pair yields *providers.ConfigError.
//
// Example:
//
//	p, err := NewProvider(providers.ModelRoleChat, &config.HTTPModelConfig{
//	    Kind:        "openai/chat",
//	    APIEndpoint: "https://api.openai.com/v1",
//	    ModelName:   "gpt-4o-mini",
//	})
func NewProvider(role providers.ModelRole, cfg *config.HTTPModelConfig) (providers.Provider, error) {
	if cfg == nil {
		return nil, &providers.ConfigError{
			Provider: string(role),
			Field:    "http",
			Message:  "http model configuration is required",
		}
	}

	kind, err := ParseKind(cfg.Kind, role)
	if err != nil {
		return nil, err
	}

	build, ok := registry[bindingKey{kind, role}]
	if !ok {
		return nil, &providers.ConfigError{
			Provider: cfg.Kind,
			Field:    "kind",
			Message: fmt.Sprintf("unsupported %s kind %q (supported: %s)",
				role, cfg.Kind, strings.Join(SupportedKinds(role), ", ")),
		}
	}

	slog.Debug("creating binding",
		"role", role,
		"kind", kind,
		"base_url", cfg.APIEndpoint,
	)

	p, err := build(ProviderConfigFor(kind, role, cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s binding %q: %w", role, cfg.Kind, err)
	}

	slog.Info("binding created successfully",
		"name", p.GetName(),
		"kind", kind,
	)

	return p, nil
}

// NewCompletion creates a completion binding.
func NewCompletion(cfg *config.HTTPModelConfig) (providers.Completion, error) {
	p, err := NewProvider(providers.ModelRoleCompletion, cfg)
	if err != nil {
		return nil, err
	}
	c, ok := p.(providers.Completion)
	if !ok {
		_ = p.Close()
		return nil, roleMismatch(cfg.Kind, providers.ModelRoleCompletion)
	}
	return c, nil
}

// NewChat creates a chat binding.
func NewChat(cfg *config.HTTPModelConfig) (providers.Chat, error) {
	p, err := NewProvider(providers.ModelRoleChat, cfg)
	if err != nil {
		return nil, err
	}
	c, ok := p.(providers.Chat)
	if !ok {
		_ = p.Close()
		return nil, roleMismatch(cfg.Kind, providers.ModelRoleChat)
	}
	return c, nil
}

// NewEmbedding creates an embedding binding.
func NewEmbedding(cfg *config.HTTPModelConfig) (providers.Embedding, error) {
	p, err := NewProvider(providers.ModelRoleEmbedding, cfg)
	if err != nil {
		return nil, err
	}
	e, ok := p.(providers.Embedding)
	if !ok {
		_ = p.Close()
		return nil, roleMismatch(cfg.Kind, providers.ModelRoleEmbedding)
	}
	return e, nil
}

func roleMismatch(kind string, role providers.ModelRole) error {
	return &providers.ConfigError{
		Provider: kind,
		Field:    "kind",
		Message:  fmt.Sprintf("binding does not implement the %s role", role),
	}
}

// StartHealthCheck starts the binding's health checker when it has one.
func StartHealthCheck(ctx context.Context, p providers.Provider) {
	type healthCheckStarter interface {
		StartHealthChecker(context.Context)
	}

	if hcs, ok := p.(healthCheckStarter); ok {
		hcs.StartHealthChecker(ctx)
		slog.Debug("health checker started", "binding", p.GetName())
	} else {
		slog.Debug("binding does not support health checking", "binding", p.GetName())
	}
}
