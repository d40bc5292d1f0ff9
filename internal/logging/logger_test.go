package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"tonearm/internal/services"
)

func TestPrettyHandlerRendersComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	NewComponentLogger(logger, "orchestrator").Info("job started", String("job_id", "abc123"))

	out := buf.String()
	if !strings.Contains(out, "orchestrator: job started") {
		t.Errorf("missing component prefix: %q", out)
	}
	if !strings.Contains(out, "job_id=abc123") {
		t.Errorf("missing attribute: %q", out)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, new(slog.LevelVar), false))

	logger.Info("msg", String("title", "two words"))
	if !strings.Contains(buf.String(), `title="two words"`) {
		t.Errorf("value not quoted: %q", buf.String())
	}
}

func TestWithContextAddsJobFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, new(slog.LevelVar), false))

	ctx := services.WithPhase(services.WithJobID(context.Background(), "j1"), "downloading")
	WithContext(ctx, logger).Info("tick")

	out := buf.String()
	if !strings.Contains(out, "job_id=j1") || !strings.Contains(out, "phase=downloading") {
		t.Errorf("context fields missing: %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if parseLevel("nonsense") != slog.LevelInfo {
		t.Error("unknown levels should map to info")
	}
	if parseLevel("debug") != slog.LevelDebug {
		t.Error("debug should parse")
	}
}
