package model

import (
	"errors"
	"fmt"

	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/providers"
)

// ErrUnsupportedModel is returned when a role is configured with a variant
// this server cannot run.
var ErrUnsupportedModel = errors.New("unsupported model configuration")

// ResolveError reports which role failed to resolve.
type ResolveError struct {
	Role providers.ModelRole
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to resolve %s model: %v", e.Role, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

func unsupportedLocal(role providers.ModelRole, modelID string) error {
	return &ResolveError{
		Role: role,
		Err:  fmt.Errorf("%w: local model %q is not supported for %s, configure an http endpoint", ErrUnsupportedModel, modelID, role),
	}
}

func invalidVariant(role providers.ModelRole, cfg *config.ModelConfig) error {
	msg := "neither local nor http is set"
	if cfg.Local != nil && cfg.HTTP != nil {
		msg = "local and http are mutually exclusive"
	}
	return &ResolveError{
		Role: role,
		Err: &providers.ConfigError{
			Provider: string(role),
			Field:    "model." + string(role),
			Message:  msg,
		},
	}
}
