package logging

import (
	"context"
	"testing"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	if got := RequestID(ctx); got != "" {
		t.Errorf("RequestID(empty) = %q", got)
	}

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithRequestID(ctx, "req-2")
	if got := RequestID(ctx); got != "req-2" {
		t.Errorf("RequestID() = %q, want req-2", got)
	}
}
