package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestJSONHandlerCarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(NewHandler(&buf, "debug", "json")))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := WithProcessKey(WithRequestID(context.Background(), "req-1"), "1234567")
	FromContext(ctx).Info("chunk processed")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decoding log line: %v", err)
	}
	if rec["request_id"] != "req-1" || rec["process_key"] != "1234567" {
		t.Errorf("missing context fields: %v", rec)
	}
}

func TestPrettyHandlerWrites(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, "info", "pretty"))
	l.Debug("hidden")
	l.Info("shown", "k", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line leaked: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("info line missing: %q", out)
	}
}
