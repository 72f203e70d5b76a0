// Package config loads, validates and saves the mirror engine
// configuration from YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete mirror engine configuration.
type Config struct {
	Source  SourceConfig  `json:"source" yaml:"source"`
	Broker  BrokerConfig  `json:"broker" yaml:"broker"`
	Mirror  MirrorConfig  `json:"mirror" yaml:"mirror"`
	Risk    RiskConfig    `json:"risk" yaml:"risk"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// SourceConfig selects the source account feed.
type SourceConfig struct {
	// BridgeURL is the websocket endpoint publishing position snapshots.
	BridgeURL string `json:"bridge_url" yaml:"bridge_url"`
	// MagicFilter mirrors only positions carrying this strategy tag;
	// zero mirrors everything.
	MagicFilter int64 `json:"magic_filter,omitempty" yaml:"magic_filter,omitempty"`
	// StaleAfter bounds how old a cached snapshot may be before the
	// source reports it as unavailable, e.g. "10s".
	StaleAfter string `json:"stale_after,omitempty" yaml:"stale_after,omitempty"`
}

// BrokerConfig selects the destination adapter.
type BrokerConfig struct {
	Mode string `json:"mode" yaml:"mode"` // "paper" or "live"
	// PaperEquity seeds the paper adapter's account equity.
	PaperEquity float64 `json:"paper_equity,omitempty" yaml:"paper_equity,omitempty"`
}

// MirrorConfig tunes translation and the polling loop.
type MirrorConfig struct {
	Underlying           string  `json:"underlying" yaml:"underlying"`
	StrikeStep           float64 `json:"strike_step" yaml:"strike_step"`
	ExpirationOffsetDays int     `json:"expiration_offset_days,omitempty" yaml:"expiration_offset_days,omitempty"`
	OpenBidMarkup        float64 `json:"open_bid_markup" yaml:"open_bid_markup"`
	CloseAskDiscount     float64 `json:"close_ask_discount" yaml:"close_ask_discount"`
	PollInterval         string  `json:"poll_interval" yaml:"poll_interval"`
	ErrorPause           string  `json:"error_pause" yaml:"error_pause"`
}

// RiskConfig tunes the constraint gate.
type RiskConfig struct {
	Timezone        string  `json:"timezone" yaml:"timezone"`
	SessionOpen     string  `json:"session_open" yaml:"session_open"`   // "09:30"
	SessionClose    string  `json:"session_close" yaml:"session_close"` // "16:00"
	EquityThreshold float64 `json:"equity_threshold" yaml:"equity_threshold"`
	MaxDayTrades    int     `json:"max_day_trades" yaml:"max_day_trades"`
	WindowDays      int     `json:"window_days" yaml:"window_days"`
}

// StoreConfig locates the order lifecycle store.
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// JournalConfig selects the action journal backend.
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
}

// LogConfig tunes structured logging and rotation.
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format,omitempty" yaml:"format,omitempty"`
	Output     string `json:"output,omitempty" yaml:"output,omitempty"`
	MaxSize    int    `json:"max_size,omitempty" yaml:"max_size,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAge     int    `json:"max_age,omitempty" yaml:"max_age,omitempty"`
	Compress   bool   `json:"compress,omitempty" yaml:"compress,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
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

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Source.BridgeURL == "" {
		return fmt.Errorf("source.bridge_url is required")
	}
	if c.Source.StaleAfter != "" {
		if _, err := time.ParseDuration(c.Source.StaleAfter); err != nil {
			return fmt.Errorf("source.stale_after: %w", err)
		}
	}
	if c.Broker.Mode != "paper" && c.Broker.Mode != "live" {
		return fmt.Errorf("broker.mode must be 'paper' or 'live'")
	}
	if c.Broker.Mode == "paper" && c.Broker.PaperEquity <= 0 {
		return fmt.Errorf("broker.paper_equity must be positive")
	}
	if c.Mirror.Underlying == "" {
		return fmt.Errorf("mirror.underlying is required")
	}
	if c.Mirror.StrikeStep <= 0 {
		return fmt.Errorf("mirror.strike_step must be positive")
	}
	if c.Mirror.OpenBidMarkup < 0 || c.Mirror.CloseAskDiscount < 0 {
		return fmt.Errorf("mirror price adjustments must not be negative")
	}
	if _, err := time.ParseDuration(c.Mirror.PollInterval); err != nil {
		return fmt.Errorf("mirror.poll_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Mirror.ErrorPause); err != nil {
		return fmt.Errorf("mirror.error_pause: %w", err)
	}
	if c.Risk.Timezone == "" {
		return fmt.Errorf("risk.timezone is required")
	}
	if _, _, err := ParseClock(c.Risk.SessionOpen); err != nil {
		return fmt.Errorf("risk.session_open: %w", err)
	}
	if _, _, err := ParseClock(c.Risk.SessionClose); err != nil {
		return fmt.Errorf("risk.session_close: %w", err)
	}
	if c.Risk.EquityThreshold <= 0 {
		return fmt.Errorf("risk.equity_threshold must be positive")
	}
	if c.Risk.MaxDayTrades <= 0 {
		return fmt.Errorf("risk.max_day_trades must be positive")
	}
	if c.Risk.WindowDays <= 0 {
		return fmt.Errorf("risk.window_days must be positive")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite type")
		}
	case "csv":
		if c.Journal.File == "" {
			return fmt.Errorf("journal.file required for csv type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr required when metrics are enabled")
	}
	return nil
}

// ParseClock splits a "HH:MM" string into its hour and minute.
func ParseClock(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%q is not in HH:MM form", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%q has an invalid hour", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%q has an invalid minute", s)
	}
	return hour, minute, nil
}

// PollInterval returns the parsed polling interval.
func (c *Config) PollInterval() time.Duration {
	d, _ := time.ParseDuration(c.Mirror.PollInterval)
	return d
}

// ErrorPause returns the parsed pause after a failed tick.
func (c *Config) ErrorPause() time.Duration {
	d, _ := time.ParseDuration(c.Mirror.ErrorPause)
	return d
}

// StaleAfter returns the parsed snapshot staleness bound, zero if unset.
func (c *Config) StaleAfter() time.Duration {
	if c.Source.StaleAfter == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Source.StaleAfter)
	return d
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			BridgeURL:  "ws://127.0.0.1:8765/positions",
			StaleAfter: "10s",
		},
		Broker: BrokerConfig{
			Mode:        "paper",
			PaperEquity: 10000,
		},
		Mirror: MirrorConfig{
			Underlying:       "TSLA",
			StrikeStep:       1.0,
			OpenBidMarkup:    0.001,
			CloseAskDiscount: 0.005,
			PollInterval:     "2s",
			ErrorPause:       "10s",
		},
		Risk: RiskConfig{
			Timezone:        "America/New_York",
			SessionOpen:     "09:30",
			SessionClose:    "16:00",
			EquityThreshold: 25000,
			MaxDayTrades:    3,
			WindowDays:      7,
		},
		Store: StoreConfig{
			Path: "./mirror_records.json",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./journal.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
	}
}
