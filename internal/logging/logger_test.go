package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"pixelpress/internal/services"
)

func TestConsoleHandlerPrefixesComponent(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	NewComponentLogger(logger, "session").Info("converted image", String("format", "png"))

	out := buf.String()
	if !strings.Contains(out, "session: converted image") {
		t.Fatalf("expected component prefix, got %q", out)
	}
	if !strings.Contains(out, "format=png") {
		t.Fatalf("expected format attr, got %q", out)
	}
	if strings.Contains(out, "component=") {
		t.Fatalf("component should be folded into the prefix, got %q", out)
	}
}

func TestConsoleHandlerQuotesAwkwardValues(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("msg", String("reason", "encode failed badly"))

	if !strings.Contains(buf.String(), `reason="encode failed badly"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info record should be dropped, got %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn record should be kept, got %q", out)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	ctx := services.WithSessionID(context.Background(), "sess-9")
	ctx = services.WithJobID(ctx, "job-3")
	WithContext(ctx, logger).Info("working")

	out := buf.String()
	if !strings.Contains(out, "session_id=sess-9") || !strings.Contains(out, "job_id=job-3") {
		t.Fatalf("expected context fields, got %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestNoopLoggerIsSilent(t *testing.T) {
	logger := NewNop()
	logger.Error("nothing happens", Error(nil))
}
