package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"Error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithPhaseAddsAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := WithPhase(New(&buf, LevelDebug), "stroop")
	logger.Info("trial finished", "position", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if entry["phase"] != "stroop" || entry["msg"] != "trial finished" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stroopread.log")
	logger, closeFn, err := Open(path, LevelInfo)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	logger.Info("hello")
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("expected log line, got %q", data)
	}
}
