// Package providers contains test doubles for model bindings: an HTTP mock
// backend plus canned bodies for the openai, llama.cpp and ollama APIs.
package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is a mock HTTP backend for testing model bindings.
// Responses are keyed by URL path; every request body is recorded.
type MockServer struct {
	server       *httptest.Server
	responses    map[string]MockResponse
	requests     map[string][]RecordedRequest
	requestCount int
	mu           sync.Mutex
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       interface{}
	Delay      time.Duration
	Headers    map[string]string
}

// RecordedRequest is a request seen by the mock server.
type RecordedRequest struct {
	Method string
	Header http.Header
	Body   []byte
}

// Decode unmarshals the recorded JSON body into v.
func (r RecordedRequest) Decode(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string]MockResponse),
		requests:  make(map[string][]RecordedRequest),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets a mock response for a specific path.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.responses[path] = response
}

// GetRequestCount returns the number of requests received.
func (ms *MockServer) GetRequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.requestCount
}

// Requests returns the requests recorded for path.
func (ms *MockServer) Requests(path string) []RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]RecordedRequest, len(ms.requests[path]))
	copy(out, ms.requests[path])
	return out
}

// LastRequest returns the most recent request for path.
func (ms *MockServer) LastRequest(path string) (RecordedRequest, error) {
	reqs := ms.Requests(path)
	if len(reqs) == 0 {
		return RecordedRequest{}, fmt.Errorf("no requests recorded for %s", path)
	}
	return reqs[len(reqs)-1], nil
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requestCount++
	ms.requests[r.URL.Path] = append(ms.requests[r.URL.Path], RecordedRequest{
		Method: r.Method,
		Header: r.Header.Clone(),
		Body:   body,
	})
	response, ok := ms.responses[r.URL.Path]
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	if response.StatusCode == 0 {
		response.StatusCode = http.StatusOK
	}
	w.WriteHeader(response.StatusCode)

	if response.Body != nil {
		switch v := response.Body.(type) {
		case string:
			_, _ = w.Write([]byte(v))
		case []byte:
			_, _ = w.Write(v)
		default:
			_ = json.NewEncoder(w).Encode(response.Body)
		}
	}
}

// MockOpenAICompletion creates a mock /completions response.
func MockOpenAICompletion(text string) MockResponse {
	return MockResponse{Body: map[string]interface{}{
		"id":     "cmpl-mock",
		"object": "text_completion",
		"model":  "mock-model",
		"choices": []map[string]interface{}{
			{"index": 0, "text": text, "finish_reason": "stop"},
		},
	}}
}

// MockOpenAIChat creates a mock /chat/completions response.
func MockOpenAIChat(content string, model string) MockResponse {
	return MockResponse{Body: map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{
			{
				"index": 0,
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}}
}

// MockOpenAIEmbedding creates a mock /embeddings response.
func MockOpenAIEmbedding(vector []float32) MockResponse {
	return MockResponse{Body: map[string]interface{}{
		"object": "list",
		"data": []map[string]interface{}{
			{"object": "embedding", "index": 0, "embedding": vector},
		},
	}}
}

// MockLlamaCppCompletion creates a mock llama.cpp /completion response.
func MockLlamaCppCompletion(content string) MockResponse {
	return MockResponse{Body: map[string]interface{}{
		"content": content,
		"stop":    true,
	}}
}

// MockLlamaCppEmbedding creates a mock llama.cpp /embedding response.
func MockLlamaCppEmbedding(vector []float32) MockResponse {
	return MockResponse{Body: map[string]interface{}{
		"embedding": vector,
	}}
}

// MockOllamaGenerate creates a mock ollama /api/generate response.
func MockOllamaGenerate(text string) MockResponse {
	return MockResponse{Body: map[string]interface{}{
		"model":    "mock-model",
		"response": text,
		"done":     true,
	}}
}

// MockOllamaChat creates a mock ollama /api/chat response.
func MockOllamaChat(content string) MockResponse {
	return MockResponse{Body: map[string]interface{}{
		"model":             "mock-model",
		"created_at":        time.Now().UTC().Format(time.RFC3339),
		"message":           map[string]interface{}{"role": "assistant", "content": content},
		"done":              true,
		"done_reason":       "stop",
		"prompt_eval_count": 12,
		"eval_count":        8,
	}}
}

// MockOllamaEmbedding creates a mock ollama /api/embeddings response.
func MockOllamaEmbedding(vector []float32) MockResponse {
	return MockResponse{Body: map[string]interface{}{
		"embedding": vector,
	}}
}

// MockErrorResponse creates an OpenAI-style error response.
func MockErrorResponse(statusCode int, message string) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body: map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
				"type":    "invalid_request_error",
				"code":    statusCode,
			},
		},
	}
}

// MockAuthError creates a 401 authentication error response.
func MockAuthError() MockResponse {
	return MockErrorResponse(http.StatusUnauthorized, "Invalid API key")
}

// MockRateLimitError creates a 429 rate limit error response.
func MockRateLimitError(retryAfter int) MockResponse {
	response := MockErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	response.Headers = map[string]string{
		"Retry-After": fmt.Sprintf("%d", retryAfter),
	}
	return response
}

// MockServerError creates a 500 internal server error response.
func MockServerError() MockResponse {
	return MockErrorResponse(http.StatusInternalServerError, "Internal server error")
}
