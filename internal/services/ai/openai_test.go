package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/models"
)

func chatCompletionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestOpenAIProvider_Complete_SendsJSONModeRequest(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletionBody(validOutput))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(ProviderConfig{APIKey: "test-key", BaseURL: srv.URL + "/"}, nil, true)
	got, err := p.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != validOutput {
		t.Errorf("Expected content %q, got %q", validOutput, got)
	}

	if captured["model"] != DefaultModel {
		t.Errorf("Expected model %s, got %v", DefaultModel, captured["model"])
	}
	if captured["temperature"] != DefaultTemperature {
		t.Errorf("Expected temperature %v, got %v", DefaultTemperature, captured["temperature"])
	}
	rf, _ := captured["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("Expected json_object response format, got %v", captured["response_format"])
	}
}

func TestOpenAIProvider_ServiceUnavailableIsRetriedByConverter(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"The model is overloaded.","type":"unavailable","code":"503"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(chatCompletionBody(validOutput))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL + "/"}, nil, false)
	sleeper := &recordingSleeper{}
	conv := NewConverter(p, nil, WithSleep(sleeper.Sleep))

	got, err := conv.Generate(context.Background(), "hey", "unknown", models.DefaultToneProfile(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Body == "" {
		t.Error("Expected a body")
	}
	if hits.Load() != 3 {
		t.Errorf("Expected exactly 3 upstream calls (SDK retries disabled), got %d", hits.Load())
	}
	if len(sleeper.waits) != 2 {
		t.Errorf("Expected 2 backoff waits, got %v", sleeper.waits)
	}
}

func TestOpenAIProvider_BadRequestIsNotRetried(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL + "/"}, nil, false)
	conv := NewConverter(p, nil, WithSleep((&recordingSleeper{}).Sleep))

	_, err := conv.Generate(context.Background(), "hey", "unknown", models.DefaultToneProfile(), nil)
	if !apperr.Is(err, apperr.KindConversionMalformed) {
		t.Errorf("Expected malformed kind, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 upstream call, got %d", hits.Load())
	}
}
