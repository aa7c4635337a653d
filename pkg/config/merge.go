package config

import "log/slog"

// ServeArgs are the serve command overrides that take part in merging.
type ServeArgs struct {
	// Model is a local completion model id or path. Empty means no override.
	Model string

	// Device is the inference device for Model.
	Device Device

	// Parallelism is the number of inference slots for Model.
	Parallelism uint8
}

// ToLocalConfig builds a local model role from serve command arguments.
func ToLocalConfig(modelID string, parallelism uint8, device Device) *ModelConfig {
	if parallelism == 0 {
		parallelism = DefaultParallelism
	}
	if device == "" {
		device = DefaultDevice
	}
	return &ModelConfig{
		Local: &LocalModelConfig{
			ModelID:     modelID,
			Parallelism: parallelism,
			Device:      device,
		},
	}
}

// MergeArgs returns a copy of base with the serve arguments applied.
// A completion model given on the command line always wins over the file; when
// both are present a single warning is logged. base is never modified.
func MergeArgs(base *Config, args ServeArgs, logger *slog.Logger) *Config {
	if logger == nil {
		logger = slog.Default()
	}

	merged := base.Clone()
	if merged == nil {
		merged = Default()
	}

	if args.Model == "" {
		return merged
	}

	if merged.Model.Completion != nil {
		logger.Warn("overriding completion model from config file",
			"config_model", merged.Model.Completion.Identifier(),
			"cli_model", args.Model,
		)
	}
	merged.Model.Completion = ToLocalConfig(args.Model, args.Parallelism, args.Device)

	return merged
}
