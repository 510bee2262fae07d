package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "test-svc", nil)

	log.Info(context.Background(), "dropped")
	log.Warn(context.Background(), "kept", "k", 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["msg"] != "kept" {
		t.Errorf("msg = %v, want kept", rec["msg"])
	}
	if rec["service"] != "test-svc" {
		t.Errorf("service = %v, want test-svc", rec["service"])
	}
	if rec["k"] != float64(1) {
		t.Errorf("k = %v, want 1", rec["k"])
	}
}

func TestLogger_Redact(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "test-svc", nil)

	secret := map[string]int64{"desired_size": 5_000_000_000}
	log.Debug(context.Background(), "intent received", "intent", Redact(secret))

	out := buf.String()
	if strings.Contains(out, "5000000000") {
		t.Fatalf("sensitive value leaked: %s", out)
	}
	if !strings.Contains(out, redacted) {
		t.Fatalf("expected redaction marker in %s", out)
	}

	if got := fmt.Sprintf("%v %+v %#v", Redact(secret), Redact(secret), Redact(secret)); strings.Contains(got, "5000000000") {
		t.Fatalf("fmt leaked sensitive value: %s", got)
	}
}

func TestLogger_OnEvent(t *testing.T) {
	var events []string
	log := New(&bytes.Buffer{}, LevelDebug, "svc", func(_ context.Context, r slog.Record) {
		events = append(events, r.Message)
	})

	ctx := context.Background()
	log.Info(ctx, "info")
	log.Warn(ctx, "warn")
	log.Error(ctx, "error")

	if len(events) != 2 || events[0] != "warn" || events[1] != "error" {
		t.Fatalf("events = %v", events)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
