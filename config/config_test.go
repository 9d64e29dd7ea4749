package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSettingsRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")

	settings := DefaultSettings()
	settings.API.Model = "claude-custom"
	settings.Engine.WatchdogSeconds = 45
	settings.Auto.Enabled = false
	settings.SystemPrompt = "be brief"

	if err := SaveSettings(settings, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.API.Model != "claude-custom" {
		t.Errorf("model = %q", loaded.API.Model)
	}
	if loaded.Engine.WatchdogSeconds != 45 {
		t.Errorf("watchdog = %d", loaded.Engine.WatchdogSeconds)
	}
	if loaded.Auto.Enabled {
		t.Error("auto.enabled must round-trip as false")
	}
	if loaded.SystemPrompt != "be brief" {
		t.Errorf("system prompt = %q", loaded.SystemPrompt)
	}
	// Untouched fields keep their defaults.
	if loaded.API.MaxTokens != 4096 {
		t.Errorf("max tokens = %d", loaded.API.MaxTokens)
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.Engine.WatchdogSeconds != 30 {
		t.Errorf("default watchdog = %d, want 30", s.Engine.WatchdogSeconds)
	}
	if s.Engine.ToolTimeoutSeconds != 5 {
		t.Errorf("default tool timeout = %d, want 5", s.Engine.ToolTimeoutSeconds)
	}
	if s.Auto.IdleThresholdSeconds != 300 {
		t.Errorf("default idle threshold = %d, want 300", s.Auto.IdleThresholdSeconds)
	}
	if !s.Auto.Enabled {
		t.Error("automatic messages default to enabled")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AIDE_API_BASE_URL", "http://localhost:8080")
	t.Setenv("AIDE_MODEL", "claude-test")
	t.Setenv("AIDE_DATA_DIR", "/tmp/aide-test")
	t.Setenv("AIDE_IDLE_THRESHOLD_SECONDS", "60")

	cfg := &Config{
		BaseURL:              "https://api.anthropic.com",
		Model:                "claude-sonnet-4-5-20250929",
		DataDirectory:        "~/.local/share/aide",
		IdleThresholdSeconds: 300,
	}
	cfg.applyEnvOverrides()

	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.Model != "claude-test" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.DataDirectory != "/tmp/aide-test" {
		t.Errorf("data dir = %q", cfg.DataDirectory)
	}
	if cfg.IdleThresholdSeconds != 60 {
		t.Errorf("idle threshold = %d", cfg.IdleThresholdSeconds)
	}
}

func TestEnvOverridesIgnoreBadThreshold(t *testing.T) {
	t.Setenv("AIDE_IDLE_THRESHOLD_SECONDS", "not-a-number")

	cfg := &Config{IdleThresholdSeconds: 300}
	cfg.applyEnvOverrides()
	if cfg.IdleThresholdSeconds != 300 {
		t.Errorf("bad override must be ignored, got %d", cfg.IdleThresholdSeconds)
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := &Config{WatchdogSeconds: 30, ToolTimeoutSeconds: 5, IdleThresholdSeconds: 300}

	if cfg.Watchdog() != 30*time.Second {
		t.Errorf("watchdog = %v", cfg.Watchdog())
	}
	if cfg.ToolTimeout() != 5*time.Second {
		t.Errorf("tool timeout = %v", cfg.ToolTimeout())
	}
	if cfg.IdleThreshold() != 5*time.Minute {
		t.Errorf("idle threshold = %v", cfg.IdleThreshold())
	}
}
