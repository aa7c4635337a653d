package health

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	if c := New(0); c.checkTimeout != DefaultCheckTimeout {
		t.Errorf("checkTimeout = %v, want %v", c.checkTimeout, DefaultCheckTimeout)
	}
	if c := New(time.Second); c.checkTimeout != time.Second {
		t.Errorf("checkTimeout = %v, want 1s", c.checkTimeout)
	}
}

func TestRegister(t *testing.T) {
	c := New(time.Second)
	c.Register("index", func(context.Context) error { return nil })
	c.Register("bindings", func(context.Context) error { return nil })
	c.Register("ignored", nil)
	c.Register("index", func(context.Context) error { return errors.New("replaced") })

	if got, want := c.Names(), []string{"bindings", "index"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	report := c.Run(context.Background())
	if report.Checks["index"].Message != "replaced" {
		t.Errorf("index check was not replaced: %+v", report.Checks["index"])
	}
}

func TestRun_NoChecks(t *testing.T) {
	report := New(time.Second).Run(context.Background())
	if report.Status != StatusOK {
		t.Errorf("Status = %q, want ok", report.Status)
	}
	if len(report.Checks) != 0 {
		t.Errorf("Checks = %v, want empty", report.Checks)
	}
}

func TestRun_NilChecker(t *testing.T) {
	var c *Checker
	if report := c.Run(context.Background()); report.Status != StatusOK {
		t.Errorf("Status = %q, want ok", report.Status)
	}
}

func TestRun_Degraded(t *testing.T) {
	c := New(time.Second)
	c.Register("events", func(context.Context) error { return nil })
	c.Register("bindings", func(context.Context) error { return errors.New("unhealthy bindings: [completion]") })

	report := c.Run(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("Status = %q, want degraded", report.Status)
	}
	if got := report.Checks["events"].Status; got != StatusOK {
		t.Errorf("events = %q, want ok", got)
	}
	got := report.Checks["bindings"]
	if got.Status != StatusUnhealthy || got.Message != "unhealthy bindings: [completion]" {
		t.Errorf("bindings = %+v", got)
	}
}

func TestRun_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	start := time.Now()
	report := c.Run(context.Background())
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Run took %v, check timeout not enforced", elapsed)
	}
	if report.Checks["slow"].Status != StatusUnhealthy {
		t.Errorf("slow = %+v, want unhealthy", report.Checks["slow"])
	}
}

func TestRun_Concurrent(t *testing.T) {
	c := New(time.Second)
	for _, name := range []string{"a", "b", "c", "d"} {
		c.Register(name, func(context.Context) error {
			time.Sleep(50 * time.Millisecond)
			return nil
		})
	}

	start := time.Now()
	report := c.Run(context.Background())
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("checks ran sequentially: %v", elapsed)
	}
	if len(report.Checks) != 4 {
		t.Errorf("len(Checks) = %d, want 4", len(report.Checks))
	}
}

func TestSystem(t *testing.T) {
	info := System()
	if info.Arch != runtime.GOARCH {
		t.Errorf("Arch = %q, want %q", info.Arch, runtime.GOARCH)
	}
	if info.CPUCount <= 0 {
		t.Errorf("CPUCount = %d, want > 0", info.CPUCount)
	}
	if info.CPUInfo == "" {
		t.Error("CPUInfo is empty")
	}
	if info.Accelerators == nil {
		t.Error("Accelerators should be non-nil")
	}
	if again := System(); !reflect.DeepEqual(info, again) {
		t.Error("System() should be stable")
	}
}
