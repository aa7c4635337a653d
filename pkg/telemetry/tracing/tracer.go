package tracing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"kestrel-hq/kestrel/pkg/config"
)

// InstrumentationName names the tracer used by every Kestrel package.
const InstrumentationName = "kestrel-hq/kestrel"

// Tracer owns the process tracer provider.
type Tracer struct {
	config   *config.TracingConfig
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	enabled  bool
}

// New installs a global tracer provider exporting over OTLP gRPC, plus the
// W3C trace context propagator. When tracing is disabled the returned tracer
// is a no-op and the globals are left alone.
//
// Shutdown must be called before exit to flush pending spans.
func New(cfg *config.TracingConfig, version string) (*Tracer, error) {
	if cfg == nil {
		return nil, errors.New("tracing config is nil")
	}

	t := &Tracer{config: cfg, enabled: cfg.Enabled}
	if !cfg.Enabled {
		t.tracer = noop.NewTracerProvider().Tracer(InstrumentationName)
		return t, nil
	}

	sampler, err := createSampler(cfg.Sampler, cfg.SampleRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	exporter, err := createExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(t.provider)
	otel.SetTextMapPropagator(Propagator())
	t.tracer = t.provider.Tracer(InstrumentationName)

	slog.Default().With("component", "tracing").Info("tracing enabled",
		"endpoint", cfg.Endpoint,
		"sampler", cfg.Sampler,
		"sample_ratio", cfg.SampleRatio,
	)
	return t, nil
}

// FromProvider wraps an existing provider without installing it globally.
func FromProvider(provider *sdktrace.TracerProvider) *Tracer {
	return &Tracer{
		config:   &config.TracingConfig{Enabled: true},
		tracer:   provider.Tracer(InstrumentationName),
		provider: provider,
		enabled:  true,
	}
}

// Start creates a span that is a child of any span in ctx.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes pending spans. It is a no-op when tracing is disabled.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.enabled || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Enabled reports whether spans are exported.
func (t *Tracer) Enabled() bool {
	return t.enabled
}

func createExporter(cfg *config.TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}

	// The gRPC connection is established lazily; New does not block on an
	// unreachable collector.
	exporter, err := otlptracegrpc.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}

// Start creates a span from the global tracer provider. Packages that are
// not handed a *Tracer use it.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// TraceID returns the trace ID of the span in ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// End records err on span, sets its status and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
