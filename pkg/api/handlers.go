package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"kestrel-hq/kestrel/pkg/api/middleware"
	"kestrel-hq/kestrel/pkg/api/types"
	"kestrel-hq/kestrel/pkg/completion"
	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/events"
	"kestrel-hq/kestrel/pkg/index"
	"kestrel-hq/kestrel/pkg/model"
	"kestrel-hq/kestrel/pkg/providers"
	"kestrel-hq/kestrel/pkg/telemetry/health"
	"kestrel-hq/kestrel/pkg/telemetry/tracing"
)

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if err := WriteErrorResponse(w, HandleError(err)); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, data any) {
	if err := WriteJSONResponse(w, http.StatusOK, data); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// eventsHandler accepts client interaction events.
type eventsHandler struct {
	sink events.Logger
}

func (h *eventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.LogEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	event := req.ToEvent()
	event.RequestID = middleware.GetRequestID(ctx)

	// The client has no use for a storage failure; it is logged and counted
	// by the recorder.
	if err := h.sink.Log(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to log event",
			"type", req.Type,
			"completion_id", req.CompletionID,
			"error", err,
		)
	}

	writeJSON(ctx, w, types.EventAccepted{Status: "ok"})
}

// newModelsSnapshot lists the configured model identifier of each role.
// It reports configuration, not routability: a chat model without a
// completion model is listed even though its route is not mounted.
func newModelsSnapshot(cfg *config.Config) types.ModelsResponse {
	list := func(m *config.ModelConfig) []string {
		if m == nil {
			return []string{}
		}
		return []string{m.Identifier()}
	}
	return types.ModelsResponse{
		Completion: list(cfg.Model.Completion),
		Chat:       list(cfg.Model.Chat),
		Embedding:  list(cfg.Model.Embedding),
	}
}

func staticJSON(data any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, data)
	}
}

// completionsHandler serves /v1/completions when the completion role resolved.
type completionsHandler struct {
	service *completion.Service
}

func (h *completionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req completion.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if req.Segments != nil && req.Segments.GitURL != "" {
		allowed := middleware.AllowedRepositoriesFromContext(ctx)
		if repo, ok := allowed.ClosestMatch(req.Segments.GitURL); ok {
			ctx = index.WithRepository(ctx, repo)
		}
	}

	resp, err := h.service.Generate(ctx, &req)
	if err != nil {
		slog.ErrorContext(ctx, "completion request failed",
			"language", req.Language,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, resp)
}

// notImplemented answers for a capability that did not load.
func notImplemented(capability string) http.HandlerFunc {
	errResp := types.NewNotImplementedError(
		"The " + capability + " model is not configured on this server",
	)
	return func(w http.ResponseWriter, r *http.Request) {
		if err := WriteErrorResponse(w, errResp); err != nil {
			slog.ErrorContext(r.Context(), "failed to write error response", "error", err)
		}
	}
}

// chatHandler serves /v1/chat/completions.
type chatHandler struct {
	chat providers.Chat
	sink events.Logger
}

func (h *chatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req types.ChatCompletionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	chatReq := toChatRequest(&req)
	spanCtx, span := tracing.Start(ctx, "chat.completion",
		attribute.String("binding", h.chat.GetName()),
		attribute.Int("chat.messages", len(req.Messages)),
	)
	resp, err := h.chat.ChatCompletion(spanCtx, chatReq)
	tracing.End(span, err)
	latency := time.Since(startTime)

	event := &events.Event{
		Type:      events.EventChatCompletion,
		RequestID: middleware.GetRequestID(ctx),
		Model:     h.chat.GetConfig().Model,
		User:      req.User,
		Prompt:    lastUserMessage(req.Messages),
		Latency:   latency,
	}
	if err != nil {
		event.Error = err.Error()
	} else {
		event.CompletionID = resp.ID
		event.Output = resp.Content
	}
	if logErr := h.sink.Log(context.WithoutCancel(ctx), event); logErr != nil {
		slog.WarnContext(ctx, "failed to log chat event", "error", logErr)
	}

	if err != nil {
		slog.ErrorContext(ctx, "chat completion failed",
			"binding", h.chat.GetName(),
			"messages", len(req.Messages),
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	slog.InfoContext(ctx, "chat completion successful",
		"binding", h.chat.GetName(),
		"finish_reason", resp.FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
		"latency_ms", latency.Milliseconds(),
	)

	writeJSON(ctx, w, toChatResponse(resp, req.Model))
}

func toChatRequest(req *types.ChatCompletionRequest) *providers.ChatRequest {
	out := &providers.ChatRequest{
		Messages:    make([]providers.Message, 0, len(req.Messages)),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Seed:        req.Seed,
		Stop:        req.Stop,
		User:        req.User,
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, providers.Message{Role: m.Role, Content: m.Content})
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	return out
}

func toChatResponse(resp *providers.ChatResponse, requestedModel string) *types.ChatCompletionResponse {
	id := resp.ID
	if id == "" {
		id = uuid.NewString()
	}
	modelName := resp.Model
	if modelName == "" {
		modelName = requestedModel
	}
	created := resp.Created
	if created == 0 {
		created = time.Now().Unix()
	}
	finish := resp.FinishReason
	if finish == "" {
		finish = "stop"
	}

	return &types.ChatCompletionResponse{
		ID:      "chatcmpl-" + id,
		Object:  "chat.completion",
		Created: created,
		Model:   modelName,
		Choices: []types.ChatChoice{{
			Index:        0,
			Message:      types.Message{Role: "assistant", Content: resp.Content},
			FinishReason: finish,
		}},
		Usage: types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

func lastUserMessage(msgs []types.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

// healthHandler reports the models, host and component checks.
type healthHandler struct {
	base    types.HealthResponse
	checker *health.Checker
}

func newHealthHandler(cfg *config.Config, info *model.PromptInfo, checker *health.Checker, device string, version types.Version) *healthHandler {
	sys := health.System()
	base := types.HealthResponse{
		Device:      device,
		Arch:        sys.Arch,
		CPUInfo:     sys.CPUInfo,
		CPUCount:    sys.CPUCount,
		CUDADevices: sys.Accelerators,
		Version:     version,
	}
	if cfg.Model.Completion != nil {
		id := cfg.Model.Completion.Identifier()
		base.Model = &id
	}
	if cfg.Model.Chat != nil {
		id := cfg.Model.Chat.Identifier()
		base.ChatModel = &id
	}
	if info.HasChatTemplate() {
		base.ChatTemplate = info.ChatTemplate
	}
	return &healthHandler{base: base, checker: checker}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Run(r.Context())

	resp := h.base
	resp.Status = report.Status
	resp.Checks = report.Checks

	writeJSON(r.Context(), w, resp)
}
