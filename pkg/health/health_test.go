package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunNotReadyIsDown(t *testing.T) {
	c := NewChecker()
	report := c.Run(context.Background())
	if report.Status != StatusDown {
		t.Fatalf("status = %s, want down before SetReady", report.Status)
	}
	if _, ok := report.Components["index_build"]; !ok {
		t.Error("expected index_build component in report")
	}
}

func TestRunWorstStatusWins(t *testing.T) {
	c := NewChecker()
	c.SetReady(true)
	c.Register("index", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusUp}
	})
	c.Register("redis", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDegraded, Message: "not configured"}
	})

	report := c.Run(context.Background())
	if report.Status != StatusDegraded {
		t.Fatalf("status = %s, want degraded", report.Status)
	}
	if len(report.Components) != 2 {
		t.Errorf("components = %d, want 2", len(report.Components))
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503 before ready", rec.Code)
	}

	c.SetReady(true)
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200 after ready", rec.Code)
	}
}
