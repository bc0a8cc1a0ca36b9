// Package config loads the engine's settings file plus the secrets
// kept out of it. Settings come from YAML (JSON accepted as a
// fallback); credentials come from the environment, optionally seeded
// from a .env file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Trading   TradingConfig   `json:"trading" yaml:"trading"`
	Risk      RiskConfig      `json:"risk" yaml:"risk"`
	Checklist ChecklistConfig `json:"checklist" yaml:"checklist"`
	News      NewsConfig      `json:"news" yaml:"news"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	System    SystemConfig    `json:"system" yaml:"system"`

	Secrets Secrets `json:"-" yaml:"-"`
}

// TradingConfig names what to trade.
type TradingConfig struct {
	Pairs       []string `json:"pairs" yaml:"pairs"`
	Timeframe   string   `json:"timeframe" yaml:"timeframe"`
	MagicNumber int      `json:"magic_number" yaml:"magic_number"`
}

// RiskConfig bounds how much to lose.
type RiskConfig struct {
	RiskPerTradePercent float64 `json:"risk_per_trade_percent" yaml:"risk_per_trade_percent"`
	MaxDailyLossPercent float64 `json:"max_daily_loss_percent" yaml:"max_daily_loss_percent"`
	MaxOpenTrades       int     `json:"max_open_trades" yaml:"max_open_trades"`
}

// ChecklistConfig tunes the entry gate thresholds.
type ChecklistConfig struct {
	MaxSpreadPoints float64 `json:"max_spread_points" yaml:"max_spread_points"`
	MinATR          float64 `json:"min_atr" yaml:"min_atr"`
}

// NewsConfig controls the economic calendar blackout.
type NewsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	FeedURL string `json:"feed_url,omitempty" yaml:"feed_url,omitempty"`
}

// JournalConfig selects the persistence backend.
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	DecisionsFile string `json:"decisions_file,omitempty" yaml:"decisions_file,omitempty"`
	TradesFile    string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
}

// SystemConfig holds runtime knobs.
type SystemConfig struct {
	LoopIntervalSeconds int    `json:"loop_interval_seconds" yaml:"loop_interval_seconds"`
	DryRun              bool   `json:"dry_run" yaml:"dry_run"`
	LogLevel            string `json:"log_level" yaml:"log_level"`
	MetricsAddr         string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

// Secrets are credentials that never live in the settings file. They
// are read from the environment; LoadSecrets seeds the environment
// from .env first when one exists.
type Secrets struct {
	TerminalLogin    string
	TerminalPassword string
	TerminalServer   string
	TelegramToken    string
	TelegramChatID   string
}

// LoadFromFile loads configuration from a file (YAML preferred, JSON
// accepted) and pulls in secrets from the environment.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.Secrets = LoadSecrets()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes the configuration to a file, YAML or JSON by
// extension. Secrets are never written.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LoadSecrets reads credentials from the environment after seeding it
// from a .env file if present. A missing .env is not an error.
func LoadSecrets() Secrets {
	_ = godotenv.Load()
	return Secrets{
		TerminalLogin:    os.Getenv("TERMINAL_LOGIN"),
		TerminalPassword: os.Getenv("TERMINAL_PASSWORD"),
		TerminalServer:   os.Getenv("TERMINAL_SERVER"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}
}

// Validate checks if the configuration is usable. Secrets are only
// required for live runs; dry-run works without any.
func (c *Config) Validate() error {
	if len(c.Trading.Pairs) == 0 {
		return fmt.Errorf("trading.pairs is required")
	}
	if c.Trading.Timeframe == "" {
		return fmt.Errorf("trading.timeframe is required")
	}
	if c.Trading.MagicNumber <= 0 {
		return fmt.Errorf("trading.magic_number must be positive")
	}
	if c.Risk.RiskPerTradePercent <= 0 || c.Risk.RiskPerTradePercent > 100 {
		return fmt.Errorf("risk.risk_per_trade_percent must be in (0, 100]")
	}
	if c.Risk.MaxDailyLossPercent <= 0 || c.Risk.MaxDailyLossPercent > 100 {
		return fmt.Errorf("risk.max_daily_loss_percent must be in (0, 100]")
	}
	if c.Risk.MaxOpenTrades <= 0 {
		return fmt.Errorf("risk.max_open_trades must be positive")
	}
	if c.Checklist.MaxSpreadPoints <= 0 {
		return fmt.Errorf("checklist.max_spread_points must be positive")
	}
	if c.Checklist.MinATR < 0 {
		return fmt.Errorf("checklist.min_atr must not be negative")
	}
	if c.System.LoopIntervalSeconds <= 0 {
		return fmt.Errorf("system.loop_interval_seconds must be positive")
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	case "csv":
		if c.Journal.DecisionsFile == "" || c.Journal.TradesFile == "" {
			return fmt.Errorf("journal decisions_file and trades_file required for csv journal")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	if !c.System.DryRun {
		if c.Secrets.TerminalLogin == "" || c.Secrets.TerminalPassword == "" || c.Secrets.TerminalServer == "" {
			return fmt.Errorf("live mode requires TERMINAL_LOGIN, TERMINAL_PASSWORD and TERMINAL_SERVER in the environment")
		}
	}

	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Trading: TradingConfig{
			Pairs:       []string{"EURUSD"},
			Timeframe:   "M1",
			MagicNumber: 123456,
		},
		Risk: RiskConfig{
			RiskPerTradePercent: 0.5,
			MaxDailyLossPercent: 4.0,
			MaxOpenTrades:       1,
		},
		Checklist: ChecklistConfig{
			MaxSpreadPoints: 2.0,
			MinATR:          0.0001,
		},
		News: NewsConfig{
			Enabled: true,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./scalper.db",
		},
		System: SystemConfig{
			LoopIntervalSeconds: 1,
			DryRun:              true,
			LogLevel:            "info",
			MetricsAddr:         ":9105",
		},
	}
}
