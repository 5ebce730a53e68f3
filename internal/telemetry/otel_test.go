package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		endpoint    string
	}{
		{name: "host and port", serviceName: "draft-api", endpoint: "localhost:4318"},
		{name: "http url", serviceName: "draft-worker", endpoint: "http://localhost:4318"},
		{name: "https url", serviceName: "draft-api", endpoint: "https://collector.example.com:4318"},
		{name: "default service name", serviceName: "", endpoint: "localhost:4318"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, tt.serviceName, tt.endpoint)
			if err != nil {
				t.Fatalf("InitTracer() error = %v", err)
			}

			// Nothing was exported, so shutdown must not block on the collector
			if err := Shutdown(ctx, tp); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestExporterOptions(t *testing.T) {
	tests := map[string]int{
		"localhost:4318":         2,
		"http://localhost:4318":  2,
		"https://collector:4318": 1,
	}
	for endpoint, want := range tests {
		if got := len(exporterOptions(endpoint)); got != want {
			t.Errorf("exporterOptions(%q) returned %d options, want %d", endpoint, got, want)
		}
	}
}

func TestShutdown_NilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown() with nil provider should not error, got: %v", err)
	}
}
