// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Run   RunConfig   `toml:"run"`
	Stats StatsConfig `toml:"stats"`
}

// RunConfig maps session settings. Unset fields keep the flag defaults.
type RunConfig struct {
	StimuliDir *string `toml:"stimuli-dir"`
	Experiment *string `toml:"experiment"`
	GateMode   *string `toml:"gate-mode"`
	Seed       *int64  `toml:"seed"`
	LogLevel   *string `toml:"log-level"`
	LogFile    *string `toml:"log-file"`
	DB         *string `toml:"db"`
}

// StatsConfig maps reporting settings.
type StatsConfig struct {
	Last        *int `toml:"last"`
	CurveWindow *int `toml:"curve-window"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
