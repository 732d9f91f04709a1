package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}

	if cfg.Session.FocusDuration != 25*time.Minute {
		t.Errorf("focus duration = %v, want 25m", cfg.Session.FocusDuration)
	}
	if cfg.Session.BreakDuration != 5*time.Minute {
		t.Errorf("break duration = %v, want 5m", cfg.Session.BreakDuration)
	}
	if cfg.Session.BaseRatePerSecond != 1.0 {
		t.Errorf("base rate = %v, want 1.0", cfg.Session.BaseRatePerSecond)
	}
	if cfg.Session.PenaltyPerDistracted != 0.25 {
		t.Errorf("penalty = %v, want 0.25", cfg.Session.PenaltyPerDistracted)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FOCUSHUB_HTTP_PORT", "9001")
	t.Setenv("FOCUSHUB_FOCUS_DURATION", "50m")
	t.Setenv("FOCUSHUB_PENALTY_PER_DISTRACTED", "0.5")
	t.Setenv("FOCUSHUB_METRICS_INTERVAL", "2s")

	cfg := LoadFromEnv()

	if cfg.HTTP.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.HTTP.Port)
	}
	if cfg.Session.FocusDuration != 50*time.Minute {
		t.Errorf("focus duration = %v, want 50m", cfg.Session.FocusDuration)
	}
	if cfg.Session.PenaltyPerDistracted != 0.5 {
		t.Errorf("penalty = %v, want 0.5", cfg.Session.PenaltyPerDistracted)
	}
	if cfg.Session.MetricsInterval != 2*time.Second {
		t.Errorf("metrics interval = %v, want 2s", cfg.Session.MetricsInterval)
	}
}

func TestLoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("FOCUSHUB_HTTP_PORT", "not-a-port")
	t.Setenv("FOCUSHUB_FOCUS_DURATION", "later")

	cfg := LoadFromEnv()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("unparsable port should keep default, got %d", cfg.HTTP.Port)
	}
	if cfg.Session.FocusDuration != 25*time.Minute {
		t.Errorf("unparsable duration should keep default, got %v", cfg.Session.FocusDuration)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing http", func(c *Config) { c.HTTP = nil }},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }},
		{"port too high", func(c *Config) { c.HTTP.Port = 70000 }},
		{"missing session", func(c *Config) { c.Session = nil }},
		{"zero focus duration", func(c *Config) { c.Session.FocusDuration = 0 }},
		{"zero base rate", func(c *Config) { c.Session.BaseRatePerSecond = 0 }},
		{"negative penalty", func(c *Config) { c.Session.PenaltyPerDistracted = -0.1 }},
		{"zero metrics interval", func(c *Config) { c.Session.MetricsInterval = 0 }},
		{"read timeout under ping", func(c *Config) { c.WebSocket.ReadTimeout = c.WebSocket.PingInterval }},
		{"zero frame limit", func(c *Config) { c.Session.FrameRateLimit = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"http": {"port": 9090},
		"session": {"focus_duration": "45m", "base_rate_per_second": 2.0}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Session.FocusDuration != 45*time.Minute {
		t.Errorf("focus duration = %v, want 45m", cfg.Session.FocusDuration)
	}
	if cfg.Session.BaseRatePerSecond != 2.0 {
		t.Errorf("base rate = %v, want 2.0", cfg.Session.BaseRatePerSecond)
	}
	// Untouched sections keep defaults.
	if cfg.Session.BreakDuration != 5*time.Minute {
		t.Errorf("break duration = %v, want default 5m", cfg.Session.BreakDuration)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.json"); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestLoadConfigWithPrecedence(t *testing.T) {
	t.Setenv("FOCUSHUB_HTTP_PORT", "9001")

	// No file: environment wins over defaults.
	cfg := LoadConfigWithPrecedence("")
	if cfg.HTTP.Port != 9001 {
		t.Errorf("port = %d, want env override 9001", cfg.HTTP.Port)
	}

	// File wins over environment.
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"http": {"port": 7070}}`), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	cfg = LoadConfigWithPrecedence(path)
	if cfg.HTTP.Port != 7070 {
		t.Errorf("port = %d, want file override 7070", cfg.HTTP.Port)
	}

	// Broken file falls back to environment.
	cfg = LoadConfigWithPrecedence("/nonexistent/config.json")
	if cfg.HTTP.Port != 9001 {
		t.Errorf("port = %d, want env fallback 9001", cfg.HTTP.Port)
	}
}
