package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func staticCheck(s Status, msg string) Check {
	return func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: s, Message: msg}
	}
}

func TestRunAggregatesWorstStatus(t *testing.T) {
	c := NewChecker()
	c.Register("index", staticCheck(StatusUp, ""))
	c.Register("cache", staticCheck(StatusDegraded, "not configured"))

	report := c.Run(context.Background())
	if report.Status != StatusDegraded {
		t.Fatalf("status = %v, want degraded", report.Status)
	}
	if len(report.Components) != 2 {
		t.Fatalf("components = %d, want 2", len(report.Components))
	}

	c.Register("store", staticCheck(StatusDown, "connection refused"))
	if got := c.Run(context.Background()).Status; got != StatusDown {
		t.Fatalf("status = %v, want down", got)
	}
}

func TestReadyHandlerToleratesDegraded(t *testing.T) {
	c := NewChecker()
	c.Register("index", staticCheck(StatusUp, ""))
	c.Register("cache", staticCheck(StatusDegraded, "redis absent"))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for degraded", rec.Code)
	}

	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.Status != StatusDegraded {
		t.Fatalf("report status = %v, want degraded", report.Status)
	}
}

func TestReadyHandlerFailsWhenDown(t *testing.T) {
	c := NewChecker()
	c.Register("index", staticCheck(StatusDown, "no snapshot"))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
