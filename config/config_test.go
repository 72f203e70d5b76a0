package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "paper", cfg.Broker.Mode)
	assert.Equal(t, "TSLA", cfg.Mirror.Underlying)
	assert.Equal(t, 25000.0, cfg.Risk.EquityThreshold)
	assert.Equal(t, 3, cfg.Risk.MaxDayTrades)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	mutate := func(fn func(*Config)) *Config {
		cfg := Default()
		fn(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  Default(),
			wantErr: false,
		},
		{
			name:    "csv journal",
			config:  mutate(func(c *Config) { c.Journal = JournalConfig{Type: "csv", File: "actions.csv"} }),
			wantErr: false,
		},
		{
			name:    "missing bridge url",
			config:  mutate(func(c *Config) { c.Source.BridgeURL = "" }),
			wantErr: true,
			errMsg:  "source.bridge_url is required",
		},
		{
			name:    "bad stale duration",
			config:  mutate(func(c *Config) { c.Source.StaleAfter = "soon" }),
			wantErr: true,
			errMsg:  "source.stale_after",
		},
		{
			name:    "unknown broker mode",
			config:  mutate(func(c *Config) { c.Broker.Mode = "robinhood" }),
			wantErr: true,
			errMsg:  "broker.mode must be 'paper' or 'live'",
		},
		{
			name:    "paper equity required",
			config:  mutate(func(c *Config) { c.Broker.PaperEquity = 0 }),
			wantErr: true,
			errMsg:  "broker.paper_equity must be positive",
		},
		{
			name:    "missing underlying",
			config:  mutate(func(c *Config) { c.Mirror.Underlying = "" }),
			wantErr: true,
			errMsg:  "mirror.underlying is required",
		},
		{
			name:    "zero strike step",
			config:  mutate(func(c *Config) { c.Mirror.StrikeStep = 0 }),
			wantErr: true,
			errMsg:  "mirror.strike_step must be positive",
		},
		{
			name:    "bad poll interval",
			config:  mutate(func(c *Config) { c.Mirror.PollInterval = "fast" }),
			wantErr: true,
			errMsg:  "mirror.poll_interval",
		},
		{
			name:    "bad session open",
			config:  mutate(func(c *Config) { c.Risk.SessionOpen = "9am" }),
			wantErr: true,
			errMsg:  "risk.session_open",
		},
		{
			name:    "missing store path",
			config:  mutate(func(c *Config) { c.Store.Path = "" }),
			wantErr: true,
			errMsg:  "store.path is required",
		},
		{
			name:    "sqlite journal without db path",
			config:  mutate(func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }),
			wantErr: true,
			errMsg:  "journal.db_path required",
		},
		{
			name:    "unknown journal type",
			config:  mutate(func(c *Config) { c.Journal.Type = "parquet" }),
			wantErr: true,
			errMsg:  "journal.type must be",
		},
		{
			name:    "metrics enabled without addr",
			config:  mutate(func(c *Config) { c.Metrics = MetricsConfig{Enabled: true} }),
			wantErr: true,
			errMsg:  "metrics.addr required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	hour, minute, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, hour)
	assert.Equal(t, 30, minute)

	for _, bad := range []string{"", "930", "25:00", "09:71", "nine:thirty"} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestSaveAndLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Source.MagicFilter = 15
	cfg.Metrics = MetricsConfig{Enabled: true, Addr: ":9090"}
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, 2*time.Second, loaded.PollInterval())
	assert.Equal(t, 10*time.Second, loaded.ErrorPause())
	assert.Equal(t, 10*time.Second, loaded.StaleAfter())
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	require.NoError(t, cfg.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"bridge_url"`)

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Risk.MaxDayTrades = 0
	require.NoError(t, cfg.SaveToFile(path))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk.max_day_trades")
}
