package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponentIsNotRepeated(t *testing.T) {
	var buf bytes.Buffer
	root := New(Config{Level: slog.LevelDebug, Component: ComponentApp, Output: &buf})
	root.With(FieldRequestID, "r1").WithComponent(ComponentHTTP).Info("hello")

	line := buf.String()
	if strings.Count(line, "component=") != 1 || !strings.Contains(line, "component=http") {
		t.Fatalf("unexpected line %q", line)
	}
	if strings.Contains(line, "request_id") {
		t.Fatalf("WithComponent must start from the root handler: %q", line)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	root := New(Config{Output: &buf})

	h := Middleware(root)(RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Fatalf("request id missing: %q", buf.String())
	}
}

func TestStructuredLoggerError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	sl.LogError(context.Background(), "Budget save failed", errors.New("boom"), "validation_error", OpCreate, NewFields().WithMonth("2024-05"))

	out := buf.String()
	for _, want := range []string{"error=boom", "error_type=validation_error", "operation=create", "month=2024-05"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}
