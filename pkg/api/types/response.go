package types

import "kestrel-hq/kestrel/pkg/telemetry/health"

// ChatCompletionResponse is the OpenAI chat completion response body.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

// ChatChoice is one generated reply.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelsResponse lists the configured model identifier of each role. A role
// that is not configured has an empty list.
type ModelsResponse struct {
	Completion []string `json:"completion"`
	Chat       []string `json:"chat"`
	Embedding  []string `json:"embedding"`
}

// ServerSetting is served by /v1beta/server_setting.
type ServerSetting struct {
	DisableClientSideTelemetry bool `json:"disable_client_side_telemetry"`
}

// EventAccepted acknowledges a logged event.
type EventAccepted struct {
	Status string `json:"status"`
}

// HealthResponse describes the running server.
type HealthResponse struct {
	Status       string                        `json:"status"`
	Model        *string                       `json:"model"`
	ChatModel    *string                       `json:"chat_model"`
	ChatTemplate *string                       `json:"chat_template,omitempty"`
	Device       string                        `json:"device"`
	Arch         string                        `json:"arch"`
	CPUInfo      string                        `json:"cpu_info"`
	CPUCount     int                           `json:"cpu_count"`
	CUDADevices  []string                      `json:"cuda_devices"`
	Version      Version                       `json:"version"`
	Checks       map[string]health.CheckResult `json:"checks"`
}

// Version is the build identification reported by /v1/health.
type Version struct {
	BuildDate   string `json:"build_date"`
	GitDescribe string `json:"git_describe"`
}
