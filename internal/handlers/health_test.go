package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestHealthChecker_BasicModeSkipsChecks(t *testing.T) {
	t.Parallel()

	called := false
	h := NewHealthChecker(zap.NewNop())
	h.Register("database", func(context.Context) error {
		called = true
		return errors.New("down")
	})

	rr := httptest.NewRecorder()
	h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if called {
		t.Error("Basic mode should not run dependency checks")
	}

	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" || resp.Checks != nil {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestHealthChecker_ExtendedMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		queueErr   error
		wantStatus int
		wantState  string
		wantQueue  string
	}{
		{
			name:       "all healthy",
			wantStatus: http.StatusOK,
			wantState:  "healthy",
			wantQueue:  "healthy",
		},
		{
			name:       "queue down",
			queueErr:   errors.New("connection closed"),
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
			wantQueue:  "unhealthy: connection closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(zap.NewNop())
			h.Register("database", func(context.Context) error { return nil })
			h.Register("redis", func(context.Context) error { return nil })
			h.Register("queue", func(context.Context) error { return tt.queueErr })
			h.Register("ignored", nil)

			rr := httptest.NewRecorder()
			h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}

			var resp HealthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("Expected status %q, got %q", tt.wantState, resp.Status)
			}
			if len(resp.Checks) != 3 {
				t.Errorf("Expected 3 checks, got %v", resp.Checks)
			}
			if resp.Checks["queue"] != tt.wantQueue {
				t.Errorf("Expected queue check %q, got %q", tt.wantQueue, resp.Checks["queue"])
			}
			if resp.Checks["database"] != "healthy" {
				t.Errorf("Expected database healthy, got %q", resp.Checks["database"])
			}
		})
	}
}
