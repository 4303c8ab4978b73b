package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected no error for missing config, got %v", err)
	}
	if cfg.Run.Seed != nil || cfg.Run.GateMode != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `[run]
stimuli-dir = "/data/stimuli"
gate-mode = "gated"
seed = 42
log-level = "debug"

[stats]
last = 5
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Run.StimuliDir == nil || *cfg.Run.StimuliDir != "/data/stimuli" {
		t.Fatalf("unexpected stimuli dir %v", cfg.Run.StimuliDir)
	}
	if cfg.Run.GateMode == nil || *cfg.Run.GateMode != "gated" {
		t.Fatalf("unexpected gate mode %v", cfg.Run.GateMode)
	}
	if cfg.Run.Seed == nil || *cfg.Run.Seed != 42 {
		t.Fatalf("unexpected seed %v", cfg.Run.Seed)
	}
	if cfg.Run.Experiment != nil {
		t.Fatalf("expected unset experiment, got %q", *cfg.Run.Experiment)
	}
	if cfg.Stats.Last == nil || *cfg.Stats.Last != 5 || cfg.Stats.CurveWindow != nil {
		t.Fatalf("unexpected stats config %+v", cfg.Stats)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[run\nseed = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "stroopread", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "stroopread", "stroopread.db") {
		t.Fatalf("unexpected db path %q", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/data", "stroopread", "stroopread.log") {
		t.Fatalf("unexpected log path %q", got)
	}
	if got := DefaultStimuliDir(); got != filepath.Join("/cfg", "stroopread", "stimuli") {
		t.Fatalf("unexpected stimuli dir %q", got)
	}
}
