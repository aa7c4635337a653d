package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"kestrel-hq/kestrel/pkg/config"
)

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{}, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer.Enabled() {
		t.Error("tracer should be disabled")
	}

	ctx, span := tracer.Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracer produced a recording span")
	}
	span.End()
	if TraceID(ctx) != "" {
		t.Error("TraceID() should be empty without a real span")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil, "test"); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestNew_InvalidSampler(t *testing.T) {
	_, err := New(&config.TracingConfig{Enabled: true, Sampler: "sometimes", Endpoint: "localhost:4317"}, "test")
	if err == nil {
		t.Error("expected error for unknown sampler")
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{SamplerAlways, 0, false},
		{SamplerNever, 0, false},
		{SamplerRatio, 0.25, false},
		{SamplerRatio, 1.5, true},
		{SamplerRatio, -0.1, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			sampler, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Fatalf("createSampler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && sampler == nil {
				t.Error("createSampler() returned nil sampler")
			}
		})
	}
}

func TestCreateSampler_ParentBased(t *testing.T) {
	sampler, err := createSampler(SamplerNever, 0)
	if err != nil {
		t.Fatal(err)
	}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	parent := trace.ContextWithRemoteSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))

	result := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: parent,
		TraceID:       traceID,
		Name:          "child",
	})
	if result.Decision != sdktrace.RecordAndSample {
		t.Errorf("sampled parent should force sampling, got %v", result.Decision)
	}
}

func TestPropagation(t *testing.T) {
	headers := http.Header{}
	headers.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	ctx := Extract(context.Background(), headers)
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !sc.IsRemote() {
		t.Fatalf("span context not extracted: %+v", sc)
	}
	if TraceID(ctx) != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("TraceID() = %q", TraceID(ctx))
	}

	out := http.Header{}
	Inject(ctx, out)
	if out.Get("traceparent") != headers.Get("traceparent") {
		t.Errorf("injected traceparent = %q", out.Get("traceparent"))
	}
}

func TestEnd(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, ok := tracer.Start(context.Background(), "ok")
	End(ok, nil)
	_, failed := tracer.Start(context.Background(), "failed")
	End(failed, errors.New("backend unavailable"))

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("ok span status = %v", spans[0].Status())
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != "backend unavailable" {
		t.Errorf("failed span status = %v", spans[1].Status())
	}
	if len(spans[1].Events()) != 1 {
		t.Errorf("failed span should record the error event")
	}
}
