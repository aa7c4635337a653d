package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestStepProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(2)
	progress.Step("github.com/kestrel-hq/widgets")
	progress.Error("docs/", errors.New("no documents"))
	progress.Finish()

	output := buf.String()
	for _, want := range []string{
		"[1/2]", "github.com/kestrel-hq/widgets",
		"[2/2]", "docs/: no documents",
		"done: 2/2",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestStepProgress_Restart(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(1)
	progress.Step("first")
	progress.Start(1)
	progress.Step("second")

	if strings.Count(buf.String(), "[1/1]") != 2 {
		t.Errorf("counter not reset:\n%s", buf.String())
	}
}

func TestNewProgressReporter_NilWriter(t *testing.T) {
	if NewProgressReporter(nil) == nil {
		t.Fatal("NewProgressReporter(nil) returned nil")
	}
}
