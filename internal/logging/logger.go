// Package logging sets up the JSON session log. The terminal belongs to the
// presenter while a session runs, so diagnostics go to a file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Log levels accepted in configuration.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// ParseLevel converts a level name to slog.Level, defaulting to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a JSON logger writing to w.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Open appends JSON logs to the file at path, creating parent directories.
// An empty path logs to stderr.
func Open(path, level string) (*slog.Logger, func() error, error) {
	if path == "" {
		return New(os.Stderr, level), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(file, level), file.Close, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithSession tags every record with the session seed and participant.
func WithSession(l *slog.Logger, seed int64, participant string) *slog.Logger {
	return l.With(slog.Int64("seed", seed), slog.String("participant", participant))
}

// WithPhase tags every record with a phase name.
func WithPhase(l *slog.Logger, phase string) *slog.Logger {
	return l.With(slog.String("phase", phase))
}
