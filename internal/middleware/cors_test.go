package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	h := CORS([]string{"https://app.example.com", "chrome-extension://abcdef"}, zap.NewNop())(okHandler())

	tests := []struct {
		name       string
		origin     string
		reqHeaders string
		wantOrigin string
	}{
		{name: "frontend origin", origin: "https://app.example.com", reqHeaders: "authorization,content-type", wantOrigin: "https://app.example.com"},
		{name: "extension origin", origin: "chrome-extension://abcdef", reqHeaders: "authorization,content-type", wantOrigin: "chrome-extension://abcdef"},
		{name: "unknown origin", origin: "https://evil.example.com", reqHeaders: "authorization,content-type", wantOrigin: ""},
		// browsers send lowercase, comma-separated header names; other forms fail the preflight
		{name: "non-canonical header list", origin: "chrome-extension://abcdef", reqHeaders: "Authorization, Content-Type", wantOrigin: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodOptions, "/api/v1/drafts/convert", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			req.Header.Set("Access-Control-Request-Headers", tt.reqHeaders)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Expected Allow-Origin %q, got %q", tt.wantOrigin, got)
			}
		})
	}
}
