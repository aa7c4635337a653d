package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type hits [][]string

func (h hits) Headers() []string { return []string{"score", "file"} }
func (h hits) Rows() [][]string  { return h }

func TestTextFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatTo(buf, "kestrel v0.4.0"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "kestrel v0.4.0\n" {
		t.Errorf("FormatTo() = %q", buf.String())
	}
}

func TestTextFormatter_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	data := hits{{"0.91", "pkg/api/router.go"}, {"0.77", "pkg/server/server.go"}}

	if err := (&TextFormatter{}).FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"score", "file", "0.91", "pkg/api/router.go", "pkg/server/server.go"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestTextFormatter_EmptyTable(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatTo(buf, hits{}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if !strings.Contains(buf.String(), "no results") {
		t.Errorf("FormatTo() = %q", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	data := map[string]int{"count": 3}

	if err := NewFormatter(FormatJSON).FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var got map[string]int
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["count"] != 3 {
		t.Errorf("count = %d, want 3", got["count"])
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON output should be indented")
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
