// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// AppName names the per-user config and data directories.
const AppName = "stroopread"

// DefaultStimuliDir returns the default directory for stimulus tables.
func DefaultStimuliDir() string {
	return filepath.Join(XDGConfigHome(), AppName, "stimuli")
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), AppName, AppName+".db")
}

// DefaultLogPath returns the default path for the session log.
func DefaultLogPath() string {
	return filepath.Join(XDGDataHome(), AppName, AppName+".log")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), AppName, "config.toml")
}
