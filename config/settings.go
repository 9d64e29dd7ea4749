package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultSettings returns the settings used when no file exists yet. The
// watchdog and idle-threshold values are load-bearing defaults; they can be
// tuned in the file but should rarely need to be.
func DefaultSettings() *Settings {
	return &Settings{
		DataDirectory: "~/.local/share/aide",
		API: APIConfig{
			BaseURL:   "https://api.anthropic.com",
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 4096,
		},
		Engine: EngineConf{
			WatchdogSeconds:    30,
			ToolTimeoutSeconds: 5,
		},
		Auto: AutoConf{
			Enabled:              true,
			IdleThresholdSeconds: 300,
		},
	}
}

// LoadSettings parses a settings file, filling unset fields with defaults.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	_, err := toml.DecodeFile(path, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	return settings, nil
}

// SaveSettings writes the settings file with secure permissions.
func SaveSettings(settings *Settings, path string) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600 - contains API endpoint and model settings
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(settings); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	return nil
}
