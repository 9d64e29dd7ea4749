package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Settings is the on-disk TOML shape of the configuration file.
type Settings struct {
	DataDirectory string      `toml:"data_directory"`
	API           APIConfig   `toml:"api"`
	Engine        EngineConf  `toml:"engine"`
	Auto          AutoConf    `toml:"auto"`
	SystemPrompt  string      `toml:"system_prompt,omitempty"`
}

type APIConfig struct {
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	MaxTokens int64  `toml:"max_tokens"`
}

type EngineConf struct {
	WatchdogSeconds    int `toml:"watchdog_seconds"`
	ToolTimeoutSeconds int `toml:"tool_timeout_seconds"`
}

type AutoConf struct {
	Enabled              bool `toml:"enabled"`
	IdleThresholdSeconds int  `toml:"idle_threshold_seconds"`
}

// Config is the resolved runtime configuration after defaults, the settings
// file, and environment overrides have been applied.
type Config struct {
	DataDirectory string
	BaseURL       string
	Model         string
	MaxTokens     int64
	SystemPrompt  string

	WatchdogSeconds    int
	ToolTimeoutSeconds int

	AutoMessagesEnabled  bool
	IdleThresholdSeconds int
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) Watchdog() time.Duration {
	return time.Duration(c.WatchdogSeconds) * time.Second
}

func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutSeconds) * time.Second
}

func (c *Config) IdleThreshold() time.Duration {
	return time.Duration(c.IdleThresholdSeconds) * time.Second
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("AIDE_API_BASE_URL"); url != "" {
		c.BaseURL = url
	}
	if model := os.Getenv("AIDE_MODEL"); model != "" {
		c.Model = model
	}
	if dataDir := os.Getenv("AIDE_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if secs := os.Getenv("AIDE_IDLE_THRESHOLD_SECONDS"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil && n > 0 {
			c.IdleThresholdSeconds = n
		}
	}
}

// CheckDebug reports whether debug logging is requested via environment.
func CheckDebug() bool {
	debug := os.Getenv("AIDE_DEBUG")
	return debug == "true" || debug == "1"
}

// Load resolves the configuration: defaults, then the settings file if it
// exists, then environment overrides. A missing settings file is created
// with the defaults.
func Load() (*Config, error) {
	settings := DefaultSettings()

	settingsPath := GetSettingsFilePath()
	if FileExists(settingsPath) {
		loaded, err := LoadSettings(settingsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		settings = loaded
	} else {
		if err := SaveSettings(settings, settingsPath); err != nil {
			return nil, fmt.Errorf("failed to create default settings: %w", err)
		}
	}

	cfg := &Config{
		DataDirectory:        settings.DataDirectory,
		BaseURL:              settings.API.BaseURL,
		Model:                settings.API.Model,
		MaxTokens:            settings.API.MaxTokens,
		SystemPrompt:         settings.SystemPrompt,
		WatchdogSeconds:      settings.Engine.WatchdogSeconds,
		ToolTimeoutSeconds:   settings.Engine.ToolTimeoutSeconds,
		AutoMessagesEnabled:  settings.Auto.Enabled,
		IdleThresholdSeconds: settings.Auto.IdleThresholdSeconds,
	}
	cfg.applyEnvOverrides()

	if err := EnsureDir(cfg.DataDir()); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}
