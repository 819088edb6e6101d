package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestHandlerFormat tests the line layout and attribute rendering.
func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelDebug))

	log.Info("bundle signed", "inner", 3, "kind", "aggregate")

	line := buf.String()
	if !strings.Contains(line, "[INF] bundle signed inner=3 kind=aggregate") {
		t.Errorf("unexpected line: %q", line)
	}

	if !strings.HasSuffix(line, "\n") {
		t.Error("line should end with newline")
	}
}

// TestHandlerLevel tests that records below the minimum are dropped.
func TestHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelWarn))

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("records below warn were written: %q", buf.String())
	}

	if !strings.Contains(buf.String(), "[WRN] shown") {
		t.Errorf("warn record missing: %q", buf.String())
	}
}

// TestHandlerWithAttrsAndGroup tests inherited attributes and group prefixes.
func TestHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, nil)).With("component", "bundler").WithGroup("op")

	log.Error("failed", "index", 2)

	line := buf.String()
	if !strings.Contains(line, "component=bundler") || !strings.Contains(line, "op.index=2") {
		t.Errorf("unexpected line: %q", line)
	}
}

// TestParseLevel tests level name parsing.
func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	if err != nil || l != slog.LevelDebug {
		t.Errorf("debug: got %v, %v", l, err)
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
