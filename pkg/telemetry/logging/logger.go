package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"kestrel-hq/kestrel/pkg/config"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in logfmt-style text.
	FormatText LogFormat = "text"
	// FormatConsole outputs text without timestamps, for interactive terminals.
	FormatConsole LogFormat = "console"
)

// Config contains configuration for the logger.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string

	// Format is the output format ("json", "text", "console").
	Format string

	// AddSource includes file and line number in logs.
	AddSource bool

	// Redact masks API keys, bearer tokens and credential fields.
	Redact bool

	// Writer is the output writer (defaults to os.Stderr).
	Writer io.Writer
}

// FromConfig maps the telemetry logging section onto a logger Config.
// verbose forces debug level.
func FromConfig(cfg config.LoggingConfig, verbose bool) Config {
	level := cfg.Level
	if verbose {
		level = "debug"
	}
	return Config{
		Level:     level,
		Format:    cfg.Format,
		AddSource: cfg.AddSource,
		Redact:    cfg.RedactEnabled(),
	}
}

// New builds a slog.Logger from cfg. Records carry the request ID stored in
// their context, and attribute values are redacted when cfg.Redact is set.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	case FormatConsole:
		opts.ReplaceAttr = dropTime
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	if cfg.Redact {
		handler = &redactHandler{next: handler, redactor: NewRedactor()}
	}
	handler = &contextHandler{next: handler}

	return slog.New(handler), nil
}

// Setup builds a logger from cfg and installs it as the slog default.
func Setup(cfg Config) (*slog.Logger, error) {
	logger, err := New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

// ParseLevel parses a log level name. The empty string means info.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// ParseFormat parses a log format name. The empty string means json.
func ParseFormat(formatStr string) (LogFormat, error) {
	switch strings.ToLower(formatStr) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	case "console":
		return FormatConsole, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}

// contextHandler adds the request ID found in the record's context.
type contextHandler struct {
	next slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestID(ctx); id != "" {
		r.AddAttrs(slog.String(string(RequestIDKey), id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(slog.String(TraceIDKey, sc.TraceID().String()))
	}
	return h.next.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name)}
}

// redactHandler rewrites attribute values through a Redactor.
type redactHandler struct {
	next     slog.Handler
	redactor *Redactor
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, h.redactor.RedactString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redactor.RedactAttr(a))
		return true
	})
	return h.next.Handle(ctx, clean)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactor.RedactAttr(a)
	}
	return &redactHandler{next: h.next.WithAttrs(redacted), redactor: h.redactor}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{next: h.next.WithGroup(name), redactor: h.redactor}
}
