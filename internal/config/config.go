package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Broker struct {
		Mode    string `yaml:"mode"` // "paper" or "bridge"
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"broker"`
	Universe struct {
		Symbols       []string `yaml:"symbols"`
		Exclude       []string `yaml:"exclude"`
		Ranked        bool     `yaml:"ranked"`
		MaxCandidates int      `yaml:"max_candidates"`
		MinPrice      float64  `yaml:"min_price"`
		MaxPrice      float64  `yaml:"max_price"`
		ShortWindow   int      `yaml:"short_window"`
		LongWindow    int      `yaml:"long_window"`
	} `yaml:"universe"`
	Trading struct {
		SessionCash  float64 `yaml:"session_cash"`
		MaxPositions int     `yaml:"max_positions"`
		MinMaxWindow int     `yaml:"min_max_window"`
		CoolOutTime  int     `yaml:"cool_out_time"`
		Interval     int     `yaml:"interval_minutes"`
		Proportion   float64 `yaml:"confidence_proportion"`
		LevelPick    string  `yaml:"level_pick"` // "farthest" (legacy scan) or "nearest"
	} `yaml:"trading"`
	Schedule struct {
		MarketOpen         string `yaml:"market_open"`
		Timezone           string `yaml:"timezone"`
		SessionMinutes     int    `yaml:"session_minutes"`
		FlattenBeforeClose int    `yaml:"flatten_before_close"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("BROKER_MODE"); v != "" {
		cfg.Broker.Mode = v
	}
	if v := os.Getenv("BRIDGE_BASE_URL"); v != "" {
		cfg.Broker.BaseURL = v
	}
	if v := os.Getenv("BRIDGE_API_KEY"); v != "" {
		cfg.Broker.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SESSION_CASH"); v != "" {
		var cash float64
		if _, err := fmt.Sscanf(v, "%f", &cash); err == nil {
			cfg.Trading.SessionCash = cash
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.ListenAddr = v
	}

	// Defaults
	if cfg.Broker.Mode == "" {
		cfg.Broker.Mode = "paper"
	}
	if cfg.Universe.MaxCandidates == 0 {
		cfg.Universe.MaxCandidates = 15
	}
	if cfg.Universe.ShortWindow == 0 {
		cfg.Universe.ShortWindow = 3
	}
	if cfg.Universe.LongWindow == 0 {
		cfg.Universe.LongWindow = 45
	}
	if cfg.Trading.SessionCash == 0 {
		cfg.Trading.SessionCash = 2000
	}
	if cfg.Trading.MaxPositions == 0 {
		cfg.Trading.MaxPositions = 10
	}
	if cfg.Trading.MinMaxWindow == 0 {
		cfg.Trading.MinMaxWindow = 10
	}
	if cfg.Trading.CoolOutTime == 0 {
		cfg.Trading.CoolOutTime = 20
	}
	if cfg.Trading.Interval == 0 {
		cfg.Trading.Interval = 3
	}
	if cfg.Trading.Proportion == 0 {
		cfg.Trading.Proportion = 0.25
	}
	if cfg.Trading.LevelPick == "" {
		cfg.Trading.LevelPick = "farthest"
	}
	if cfg.Schedule.MarketOpen == "" {
		cfg.Schedule.MarketOpen = "09:30"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "America/New_York"
	}
	if cfg.Schedule.SessionMinutes == 0 {
		cfg.Schedule.SessionMinutes = 390
	}
	if cfg.Schedule.FlattenBeforeClose == 0 {
		cfg.Schedule.FlattenBeforeClose = 23
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stopline_trader.db"
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9090"
	}

	return cfg, nil
}

// Validate checks that all required fields are consistent.
func (c *Config) Validate() error {
	if c.Broker.Mode != "paper" && c.Broker.Mode != "bridge" {
		return fmt.Errorf("broker.mode must be \"paper\" or \"bridge\", got %q", c.Broker.Mode)
	}
	if c.Broker.Mode == "bridge" && c.Broker.BaseURL == "" {
		return fmt.Errorf("broker.base_url is required in bridge mode")
	}
	if len(c.Universe.Symbols) == 0 {
		return fmt.Errorf("universe.symbols is required")
	}
	if c.Trading.SessionCash <= 0 {
		return fmt.Errorf("trading.session_cash must be positive")
	}
	if c.Trading.MaxPositions <= 0 {
		return fmt.Errorf("trading.max_positions must be positive")
	}
	if c.Trading.MinMaxWindow < 3 {
		return fmt.Errorf("trading.min_max_window must be at least 3")
	}
	if c.Trading.Interval < 2 {
		return fmt.Errorf("trading.interval_minutes must be at least 2")
	}
	if c.Trading.Proportion <= 0 || c.Trading.Proportion >= 1 {
		return fmt.Errorf("trading.confidence_proportion must be in (0, 1)")
	}
	if c.Trading.LevelPick != "farthest" && c.Trading.LevelPick != "nearest" {
		return fmt.Errorf("trading.level_pick must be \"farthest\" or \"nearest\", got %q", c.Trading.LevelPick)
	}
	if c.Schedule.FlattenBeforeClose <= 0 || c.Schedule.FlattenBeforeClose >= c.Schedule.SessionMinutes {
		return fmt.Errorf("schedule.flatten_before_close must be within the session")
	}
	return nil
}
