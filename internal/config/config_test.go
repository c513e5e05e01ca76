package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
universe:
  symbols: [SIRI, GPRO]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Broker.Mode != "paper" {
		t.Errorf("expected default paper mode, got %q", cfg.Broker.Mode)
	}
	if cfg.Trading.Interval != 3 || cfg.Trading.MinMaxWindow != 10 || cfg.Trading.CoolOutTime != 20 {
		t.Errorf("trading defaults off: %+v", cfg.Trading)
	}
	if cfg.Trading.Proportion != 0.25 || cfg.Trading.LevelPick != "farthest" {
		t.Errorf("detector defaults off: %+v", cfg.Trading)
	}
	if cfg.Schedule.MarketOpen != "09:30" || cfg.Schedule.SessionMinutes != 390 {
		t.Errorf("schedule defaults off: %+v", cfg.Schedule)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
broker:
  mode: paper
universe:
  symbols: [SIRI]
trading:
  session_cash: 500
`)
	t.Setenv("BROKER_MODE", "bridge")
	t.Setenv("BRIDGE_BASE_URL", "http://localhost:8000")
	t.Setenv("SESSION_CASH", "1500")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Broker.Mode != "bridge" || cfg.Broker.BaseURL != "http://localhost:8000" {
		t.Errorf("broker env overrides off: %+v", cfg.Broker)
	}
	if cfg.Trading.SessionCash != 1500 {
		t.Errorf("expected session cash 1500 from env, got %.2f", cfg.Trading.SessionCash)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	base := func() *Config {
		path := writeConfig(t, `
universe:
  symbols: [SIRI]
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown broker mode", func(c *Config) { c.Broker.Mode = "zen" }},
		{"bridge without base url", func(c *Config) { c.Broker.Mode = "bridge" }},
		{"no symbols", func(c *Config) { c.Universe.Symbols = nil }},
		{"negative cash", func(c *Config) { c.Trading.SessionCash = -1 }},
		{"tiny window", func(c *Config) { c.Trading.MinMaxWindow = 2 }},
		{"interval of one", func(c *Config) { c.Trading.Interval = 1 }},
		{"proportion out of range", func(c *Config) { c.Trading.Proportion = 1.5 }},
		{"unknown level pick", func(c *Config) { c.Trading.LevelPick = "closest" }},
		{"flatten outside session", func(c *Config) { c.Schedule.FlattenBeforeClose = 400 }},
	}
	for _, tt := range tests {
		cfg := base()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}
