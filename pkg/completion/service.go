package completion

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/events"
	"kestrel-hq/kestrel/pkg/index"
	"kestrel-hq/kestrel/pkg/providers"
	"kestrel-hq/kestrel/pkg/telemetry/tracing"
)

// CodeSearcher retrieves code snippets for prompt enrichment.
type CodeSearcher interface {
	Search(ctx context.Context, query string, params index.SearchParams) ([]index.CodeHit, error)
}

// Observer is notified after every completion.
type Observer interface {
	CompletionServed(model string, duration time.Duration, err error)
}

// Service turns completion requests into prompts, calls the model binding and
// records the result.
type Service struct {
	model    providers.Completion
	template string
	search   CodeSearcher
	events   events.Logger
	observer Observer
	cfg      config.CompletionConfig
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCodeSearch enables snippet retrieval.
func WithCodeSearch(s CodeSearcher) Option {
	return func(svc *Service) {
		svc.search = s
	}
}

// WithPromptTemplate sets the fill-in-the-middle template.
func WithPromptTemplate(template string) Option {
	return func(svc *Service) {
		svc.template = template
	}
}

// WithObserver reports every completion to o.
func WithObserver(o Observer) Option {
	return func(svc *Service) {
		svc.observer = o
	}
}

// NewService creates a completion service. A nil sink discards events.
func NewService(model providers.Completion, sink events.Logger, cfg config.CompletionConfig, opts ...Option) *Service {
	if sink == nil {
		sink = events.NoopLogger{}
	}
	s := &Service{
		model:  model,
		events: sink,
		cfg:    cfg,
		logger: slog.Default().With("component", "completion"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the name of the model behind the service.
func (s *Service) Model() string {
	if m := s.model.GetConfig().Model; m != "" {
		return m
	}
	return s.model.GetName()
}

// Generate completes req. Snippets are retrieved only when the request
// context carries an allowed repository.
func (s *Service) Generate(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || (req.Segments == nil && req.Prompt == "") {
		return nil, ErrEmptyRequest
	}

	start := time.Now()
	id := "cmpl-" + uuid.NewString()
	lang := LookupLanguage(req.Language)

	ctx, span := tracing.Start(ctx, "completion.generate",
		attribute.String("completion.id", id),
		attribute.String("completion.language", req.Language),
		attribute.String("model", s.Model()),
	)
	var err error
	defer func() { tracing.End(span, err) }()

	prompt, snippets := req.Prompt, 0
	if prompt == "" {
		prompt, snippets = s.buildPrompt(ctx, req, lang)
	}
	span.SetAttributes(
		attribute.Int("completion.prompt_chars", len(prompt)),
		attribute.Int("completion.snippets", snippets),
	)

	opts := providers.CompletionOptions{
		MaxDecodingTokens: s.cfg.MaxDecodingTokens,
		Stop:              lang.StopWords,
	}
	if req.Temperature != nil {
		opts.Temperature = *req.Temperature
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}

	raw, err := s.model.Generate(ctx, prompt, opts)
	text := trimOutput(raw, lang.StopWords)
	latency := time.Since(start)

	s.record(ctx, id, req, prompt, text, snippets, latency, err)
	if s.observer != nil {
		s.observer.CompletionServed(s.Model(), latency, err)
	}

	if err != nil {
		s.logger.Error("completion failed",
			"completion_id", id,
			"language", req.Language,
			"error", err,
		)
		return nil, &GenerateError{CompletionID: id, Err: err}
	}

	s.logger.Debug("completion generated",
		"completion_id", id,
		"language", req.Language,
		"snippets", snippets,
		"duration_ms", latency.Milliseconds(),
	)

	return &Response{
		ID:      id,
		Choices: []Choice{{Index: 0, Text: text}},
	}, nil
}

func (s *Service) buildPrompt(ctx context.Context, req *Request, lang Language) (string, int) {
	seg := req.Segments
	budget := s.cfg.MaxInputLength

	block, used := s.snippets(ctx, req, lang)
	if budget > 0 && len(block) > budget/2 {
		block, used = "", 0
	}
	if block != "" {
		budget -= len(block)
	}

	prefix, suffix := fitSegments(seg.Prefix, seg.Suffix, budget)
	return renderTemplate(s.template, block+prefix, suffix), used
}

func (s *Service) snippets(ctx context.Context, req *Request, lang Language) (string, int) {
	if s.search == nil || s.cfg.CodeSearch.MaxSnippets <= 0 {
		return "", 0
	}
	repo, ok := index.RepositoryFromContext(ctx)
	if !ok {
		return "", 0
	}

	query := snippetQuery(req.Segments.Prefix)
	if strings.TrimSpace(query) == "" {
		return "", 0
	}

	hits, err := s.search.Search(ctx, query, index.SearchParams{
		GitURLs:  []string{repo},
		Language: req.Language,
		Limit:    s.cfg.CodeSearch.MaxSnippets,
		MinScore: s.cfg.CodeSearch.MinScore,
	})
	if err != nil {
		s.logger.Warn("snippet retrieval failed", "git_url", repo, "error", err)
		return "", 0
	}

	// Skip chunks from the file being edited; the prefix already covers them.
	filtered := make([]index.CodeHit, 0, len(hits))
	for _, h := range hits {
		if h.Filepath != req.Segments.Filepath {
			filtered = append(filtered, h)
		}
	}
	return snippetBlock(filtered, lang, s.cfg.CodeSearch.MaxSnippetChars)
}

func (s *Service) record(ctx context.Context, id string, req *Request, prompt, output string, snippets int, latency time.Duration, genErr error) {
	event := &events.Event{
		Type:         events.EventCompletion,
		CompletionID: id,
		Model:        s.Model(),
		Language:     req.Language,
		User:         req.User,
		Prompt:       prompt,
		Output:       output,
		Snippets:     snippets,
		Latency:      latency,
	}
	if req.Segments != nil {
		event.GitURL = req.Segments.GitURL
		event.Filepath = req.Segments.Filepath
	}
	if genErr != nil {
		event.Error = genErr.Error()
	}

	if err := s.events.Log(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to record completion event", "completion_id", id, "error", err)
	}
}
