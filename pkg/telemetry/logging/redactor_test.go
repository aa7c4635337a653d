package logging

import (
	"log/slog"
	"testing"
)

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"openai key", "key sk-proj1234567890", "key sk-***"},
		{"hf token", "hf_abcdefghijkl", "hf-***"},
		{"bearer", "Authorization: Bearer abc.def", "Authorization: Bearer ***"},
		{"password", "password=hunter2&x=1", "password=***&x=1"},
		{"url userinfo", "http://bob:pw@host/v1", "http://***@host/v1"},
		{"plain", "completion served", "completion served"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor()

	if got := r.RedactAttr(slog.String("api_key", "abcdef123")); got.Value.String() != "abcd***" {
		t.Errorf("api_key = %q", got.Value.String())
	}
	if got := r.RedactAttr(slog.Int("token_count", 5)); got.Value.String() != "***" {
		t.Errorf("token_count = %q", got.Value.String())
	}
	if got := r.RedactAttr(slog.Int("port", 8080)); got.Value.Int64() != 8080 {
		t.Errorf("port = %v", got.Value)
	}

	group := r.RedactAttr(slog.Group("http", slog.String("authorization", "Bearer xyz")))
	attrs := group.Value.Group()
	if len(attrs) != 1 || attrs[0].Value.String() != "Bear***" {
		t.Errorf("group = %v", group)
	}
}

func TestRedactAPIKey(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"abc":          "***",
		"sk-123456789": "sk-1***",
	}
	for input, want := range tests {
		if got := RedactAPIKey(input); got != want {
			t.Errorf("RedactAPIKey(%q) = %q, want %q", input, got, want)
		}
	}
}
