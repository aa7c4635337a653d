package llamacpp

import (
	"context"
	"testing"

	mock "kestrel-hq/kestrel/internal/providers"
	"kestrel-hq/kestrel/pkg/providers"
)

func TestProvider_Generate(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/completion", mock.MockLlamaCppCompletion("fmt.Println(x)"))

	p, err := NewProvider(mock.TestConfig(Kind, providers.ModelRoleCompletion, server.URL()))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer p.Close()

	text, err := p.Generate(context.Background(), "<PRE> x <SUF> <MID>", providers.CompletionOptions{MaxDecodingTokens: 32})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if text != "fmt.Println(x)" {
		t.Errorf("unexpected text %q", text)
	}

	last, err := server.LastRequest("/completion")
	if err != nil {
		t.Fatal(err)
	}
	var body completionRequest
	if err := last.Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.NPredict != 32 || body.Temperature != nil {
		t.Errorf("unexpected request %+v", body)
	}
}

func TestDecodeEmbedding(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"object form", `{"embedding": [0.1, 0.2]}`, 2, false},
		{"array form", `[{"index": 0, "embedding": [[0.1, 0.2, 0.3]]}]`, 3, false},
		{"empty array", `[]`, 0, true},
		{"garbage", `"nope"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := decodeEmbedding([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if len(vec) != tt.want {
				t.Errorf("expected %d dims, got %d", tt.want, len(vec))
			}
		})
	}
}

func TestProvider_Embed(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/embedding", mock.MockLlamaCppEmbedding([]float32{1, 0, 0}))

	p, err := NewProvider(mock.TestConfig(Kind, providers.ModelRoleEmbedding, server.URL()))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	vec, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestNewProvider_RejectsChat(t *testing.T) {
	_, err := NewProvider(mock.TestConfig(Kind, providers.ModelRoleChat, "http://localhost"))

	var cfgErr *providers.ConfigError
	mock.AssertErrorAs(t, err, &cfgErr)
}
