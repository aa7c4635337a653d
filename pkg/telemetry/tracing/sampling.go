package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	// SamplerAlways samples every trace.
	SamplerAlways = "always"

	// SamplerNever samples no trace.
	SamplerNever = "never"

	// SamplerRatio samples a fraction of traces by trace ID.
	SamplerRatio = "ratio"
)

// createSampler wraps the strategy in ParentBased so a sampled caller keeps
// its whole trace, and an unsampled one drops it.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	var base sdktrace.Sampler

	switch strategy {
	case SamplerAlways:
		base = sdktrace.AlwaysSample()
	case SamplerNever:
		base = sdktrace.NeverSample()
	case SamplerRatio:
		if ratio < 0.0 || ratio > 1.0 {
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
		base = sdktrace.TraceIDRatioBased(ratio)
	default:
		return nil, fmt.Errorf("unsupported sampler: %s (must be always, never, or ratio)", strategy)
	}

	return sdktrace.ParentBased(base), nil
}
