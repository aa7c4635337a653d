package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	mocks "kestrel-hq/kestrel/internal/providers"
	"kestrel-hq/kestrel/pkg/api/types"
	"kestrel-hq/kestrel/pkg/completion"
	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/events"
	"kestrel-hq/kestrel/pkg/model"
	"kestrel-hq/kestrel/pkg/providers"
	"kestrel-hq/kestrel/pkg/services"
	"kestrel-hq/kestrel/pkg/telemetry/health"
	"kestrel-hq/kestrel/pkg/telemetry/metrics"
	"kestrel-hq/kestrel/pkg/telemetry/tracing"
)

type captureLogger struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (c *captureLogger) Log(_ context.Context, e *events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return c.err
}

func (c *captureLogger) Close() error { return nil }

func (c *captureLogger) snapshot() []*events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*events.Event(nil), c.events...)
}

func httpModel(kind, name string) *config.ModelConfig {
	return &config.ModelConfig{HTTP: &config.HTTPModelConfig{
		Kind:        kind,
		APIEndpoint: "http://localhost:8081",
		ModelName:   name,
	}}
}

type fixture struct {
	cfg        *config.Config
	rs         *services.ResolvedServices
	sink       *captureLogger
	completion *mocks.MockCompletion
	chat       *mocks.MockChat
}

func newFixture(withCompletion, withChat, withEmbedding bool) *fixture {
	f := &fixture{cfg: config.Default(), sink: &captureLogger{}}
	f.rs = &services.ResolvedServices{Events: f.sink}

	if withCompletion {
		f.cfg.Model.Completion = httpModel("openai/completion", "starcoder-1b")
		f.completion = mocks.NewMockCompletion("return a + b")
		f.rs.Completion = completion.NewService(f.completion, f.sink, f.cfg.Completion)
		tmpl := "<PRE> {prefix} <SUF>{suffix} <MID>"
		f.rs.PromptInfo = &model.PromptInfo{PromptTemplate: &tmpl}
	}
	if withChat {
		f.cfg.Model.Chat = httpModel("openai/chat", "qwen-chat")
		f.chat = mocks.NewMockChat()
		f.rs.Chat = f.chat
	}
	if withEmbedding {
		f.cfg.Model.Embedding = httpModel("openai/embedding", "nomic-embed")
		f.rs.Embedding = mocks.NewMockEmbedding()
	}
	return f
}

func countPattern(t RouteTable, pattern string) int {
	n := 0
	for _, r := range t.Routes() {
		if r.Pattern == pattern {
			n++
		}
	}
	return n
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBuild_ChatRouteAtMostOnce(t *testing.T) {
	tests := []struct {
		name       string
		completion bool
		chat       bool
		want       int
	}{
		{"nothing", false, false, 0},
		{"completion only", true, false, 0},
		{"chat without completion", false, true, 0},
		{"completion and chat", true, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.completion, tt.chat, false)
			table := Build(f.rs, f.cfg)
			assert.Equal(t, tt.want, countPattern(table, "/v1/chat/completions"))
		})
	}
}

func TestBuild_CompletionsAlwaysRouted(t *testing.T) {
	for _, present := range []bool{false, true} {
		f := newFixture(present, false, false)
		table := Build(f.rs, f.cfg)

		require.Equal(t, 1, countPattern(table, "/v1/completions"))
		route, ok := table.Lookup(http.MethodPost, "/v1/completions")
		require.True(t, ok)
		assert.Equal(t, !present, route.Degraded)
	}
}

func TestBuild_CompletionAbsentReturns501(t *testing.T) {
	f := newFixture(false, false, false)
	h := Build(f.rs, f.cfg).Handler()

	rec := serve(t, h, http.MethodPost, "/v1/completions", `{"language":"go","segments":{"prefix":"x"}}`)

	require.Equal(t, http.StatusNotImplemented, rec.Code)
	var errResp types.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, types.ErrorTypeNotImplemented, errResp.Error.Type)
	assert.Equal(t, types.CodeCapabilityUnavailable, errResp.Error.Code)
	assert.Contains(t, errResp.Error.Message, "completion")
}

func TestBuild_ChatAbsentIsNotRouted(t *testing.T) {
	f := newFixture(true, false, false)
	h := Build(f.rs, f.cfg).Handler()

	rec := serve(t, h, http.MethodPost, "/v1/chat/completions", `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuild_Idempotent(t *testing.T) {
	f := newFixture(true, true, true)

	first := Build(f.rs, f.cfg)
	second := Build(f.rs, f.cfg)

	assert.Equal(t, first.Paths(), second.Paths())
	a, b := first.Routes(), second.Routes()
	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Name, b[i].Name)
		assert.Equal(t, a[i].Degraded, b[i].Degraded)
	}
}

func TestBuild_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		fixture   *fixture
		wantPaths []string
	}{
		{
			name:    "no models",
			fixture: newFixture(false, false, false),
			wantPaths: []string{
				"POST /v1/events",
				"GET /v1/models",
				"POST /v1/completions",
				"GET /v1beta/server_setting",
				"GET /v1/health",
			},
		},
		{
			name:    "completion and embedding",
			fixture: newFixture(true, false, true),
			wantPaths: []string{
				"POST /v1/events",
				"GET /v1/models",
				"POST /v1/completions",
				"GET /v1beta/server_setting",
				"GET /v1/health",
			},
		},
		{
			name:    "all roles",
			fixture: newFixture(true, true, true),
			wantPaths: []string{
				"POST /v1/events",
				"GET /v1/models",
				"POST /v1/completions",
				"POST /v1/chat/completions",
				"GET /v1beta/server_setting",
				"GET /v1/health",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Build(tt.fixture.rs, tt.fixture.cfg)
			assert.Equal(t, tt.wantPaths, table.Paths())
		})
	}
}

func TestModelsHandler(t *testing.T) {
	f := newFixture(true, false, true)
	h := Build(f.rs, f.cfg).Handler()

	rec := serve(t, h, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.ModelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{f.cfg.Model.Completion.Identifier()}, resp.Completion)
	assert.Equal(t, []string{f.cfg.Model.Embedding.Identifier()}, resp.Embedding)
	assert.NotNil(t, resp.Chat)
	assert.Empty(t, resp.Chat)
}

func TestModelsHandler_ListsConfiguredChatWithoutRoute(t *testing.T) {
	f := newFixture(false, true, false)
	table := Build(f.rs, f.cfg)
	h := table.Handler()

	assert.Equal(t, 0, countPattern(table, "/v1/chat/completions"))

	rec := serve(t, h, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.ModelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"qwen-chat"}, resp.Chat)
	assert.Empty(t, resp.Completion)
}

func TestEventsHandler(t *testing.T) {
	f := newFixture(false, false, false)
	h := Build(f.rs, f.cfg).Handler()

	t.Run("accepts client event", func(t *testing.T) {
		rec := serve(t, h, http.MethodPost, "/v1/events",
			`{"type":"select","completion_id":"cmpl-1","choice_index":0,"view_id":"v1","elapsed":420}`)
		require.Equal(t, http.StatusOK, rec.Code)

		logged := f.sink.snapshot()
		require.Len(t, logged, 1)
		e := logged[0]
		assert.Equal(t, events.EventSelect, e.Type)
		assert.Equal(t, "cmpl-1", e.CompletionID)
		assert.Equal(t, "v1", e.ViewID)
		require.NotNil(t, e.Elapsed)
		assert.Equal(t, uint32(420), *e.Elapsed)
		assert.NotEmpty(t, e.RequestID)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		rec := serve(t, h, http.MethodPost, "/v1/events", `{"type":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		rec := serve(t, h, http.MethodPost, "/v1/events", `{"type":"completion","completion_id":"cmpl-1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("sink failure still accepted", func(t *testing.T) {
		f.sink.err = errors.New("disk full")
		defer func() { f.sink.err = nil }()

		rec := serve(t, h, http.MethodPost, "/v1/events", `{"type":"view","completion_id":"cmpl-2"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCompletionsHandler(t *testing.T) {
	f := newFixture(true, false, false)
	h := Build(f.rs, f.cfg).Handler()

	rec := serve(t, h, http.MethodPost, "/v1/completions",
		`{"language":"python","segments":{"prefix":"def add(a, b):\n    ","suffix":"\n"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp completion.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.ID, "cmpl-"))
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "return a + b", resp.Choices[0].Text)
	assert.Len(t, f.completion.Prompts(), 1)
}

func TestCompletionsHandler_EmptyRequest(t *testing.T) {
	f := newFixture(true, false, false)
	h := Build(f.rs, f.cfg).Handler()

	rec := serve(t, h, http.MethodPost, "/v1/completions", `{"language":"go"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompletionsHandler_BackendError(t *testing.T) {
	f := newFixture(true, false, false)
	f.completion.Err = &providers.ProviderError{Provider: "mock", StatusCode: 500, Message: "boom"}
	h := Build(f.rs, f.cfg).Handler()

	rec := serve(t, h, http.MethodPost, "/v1/completions", `{"segments":{"prefix":"x = "}}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChatHandler(t *testing.T) {
	f := newFixture(true, true, false)
	h := Build(f.rs, f.cfg).Handler()

	rec := serve(t, h, http.MethodPost, "/v1/chat/completions",
		`{"model":"qwen-chat","messages":[{"role":"system","content":"be brief"},{"role":"user","content":"hello"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp types.ChatCompletionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "chatcmpl-chat-mock", resp.ID)
	assert.Equal(t, "chat.completion", resp.Object)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "echo: hello", resp.Choices[0].Message.Content)
	assert.Equal(t, "assistant", resp.Choices[0].Message.Role)

	var chatEvents int
	for _, e := range f.sink.snapshot() {
		if e.Type == events.EventChatCompletion {
			chatEvents++
			assert.Equal(t, "hello", e.Prompt)
		}
	}
	assert.Equal(t, 1, chatEvents)
}

func TestChatHandler_RejectsStreaming(t *testing.T) {
	f := newFixture(true, true, false)
	h := Build(f.rs, f.cfg).Handler()

	rec := serve(t, h, http.MethodPost, "/v1/chat/completions",
		`{"stream":true,"messages":[{"role":"user","content":"hello"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServerSettingHandler(t *testing.T) {
	f := newFixture(false, false, false)
	f.cfg.Server.DisableClientSideTelemetry = true
	h := Build(f.rs, f.cfg).Handler()

	rec := serve(t, h, http.MethodGet, "/v1beta/server_setting", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var setting types.ServerSetting
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &setting))
	assert.True(t, setting.DisableClientSideTelemetry)
}

func TestHealthHandler(t *testing.T) {
	f := newFixture(true, true, false)
	chatTemplate := "{% for m in messages %}{{ m.content }}{% endfor %}"
	f.rs.PromptInfo.ChatTemplate = &chatTemplate

	checker := health.New(0)
	checker.Register("events", func(context.Context) error { return nil })

	h := Build(f.rs, f.cfg,
		WithHealth(checker),
		WithDevice("cuda"),
		WithVersion(types.Version{BuildDate: "2026-10-01", GitDescribe: "v0.4.0"}),
	).Handler()

	rec := serve(t, h, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusOK, resp.Status)
	require.NotNil(t, resp.Model)
	assert.Equal(t, f.cfg.Model.Completion.Identifier(), *resp.Model)
	require.NotNil(t, resp.ChatModel)
	assert.Equal(t, f.cfg.Model.Chat.Identifier(), *resp.ChatModel)
	require.NotNil(t, resp.ChatTemplate)
	assert.Equal(t, chatTemplate, *resp.ChatTemplate)
	assert.Equal(t, "cuda", resp.Device)
	assert.Equal(t, "v0.4.0", resp.Version.GitDescribe)
	assert.Contains(t, resp.Checks, "events")
	assert.NotEmpty(t, resp.Arch)
}

func TestHealthHandler_NoModels(t *testing.T) {
	f := newFixture(false, false, false)
	h := Build(f.rs, f.cfg).Handler()

	rec := serve(t, h, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Model)
	assert.Nil(t, resp.ChatModel)
	assert.Nil(t, resp.ChatTemplate)
	assert.Equal(t, string(config.DefaultDevice), resp.Device)
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(false, false, false)
	collector := metrics.NewCollector(&f.cfg.Telemetry.Metrics, prometheus.NewRegistry())

	table := Build(f.rs, f.cfg, WithMetrics(collector))
	require.Equal(t, 1, countPattern(table, f.cfg.Telemetry.Metrics.Path))
	h := table.Handler()

	serve(t, h, http.MethodGet, "/v1/models", "")
	rec := serve(t, h, http.MethodGet, f.cfg.Telemetry.Metrics.Path, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kestrel_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/v1/models"`)
}

func TestMetricsRoute_Disabled(t *testing.T) {
	f := newFixture(false, false, false)
	disabled := false
	f.cfg.Telemetry.Metrics.Enabled = &disabled
	collector := metrics.NewCollector(&f.cfg.Telemetry.Metrics, prometheus.NewRegistry())

	table := Build(f.rs, f.cfg, WithMetrics(collector))
	assert.Equal(t, 0, countPattern(table, f.cfg.Telemetry.Metrics.Path))
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	f := newFixture(false, false, false)
	h := Build(f.rs, f.cfg).Handler()

	rec := serve(t, h, http.MethodGet, "/v1/events", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var errResp types.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, types.CodeMethodNotAllowed, errResp.Error.Code)
}

func TestHandler_CORS(t *testing.T) {
	f := newFixture(false, false, false)
	f.cfg.Server.CORS.Enabled = true
	f.cfg.Server.CORS.AllowedOrigins = []string{"https://editor.example.com"}
	h := Build(f.rs, f.cfg).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("Origin", "https://editor.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://editor.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_RequestIDHeader(t *testing.T) {
	f := newFixture(false, false, false)
	h := Build(f.rs, f.cfg).Handler()

	rec := serve(t, h, http.MethodGet, "/v1/models", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHandler_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	f := newFixture(false, false, false)
	h := Build(f.rs, f.cfg, WithTracer(tracing.FromProvider(provider))).Handler()

	rec := serve(t, h, http.MethodPost, "/v1/completions", `{"segments":{"prefix":"x"}}`)
	require.Equal(t, http.StatusNotImplemented, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /v1/completions", spans[0].Name())
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), rec.Header().Get("X-Trace-ID"))
}
