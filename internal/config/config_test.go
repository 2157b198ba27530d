package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
token:
  address: "0xabc123"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Alerting.VolatilityPct != 10.0 {
		t.Errorf("default volatility_pct = %v, want 10.0", cfg.Alerting.VolatilityPct)
	}
	if cfg.Alerting.RolloverHour != 0 {
		t.Errorf("default rollover_hour = %d, want 0", cfg.Alerting.RolloverHour)
	}
	if cfg.Token.GenesisSupply != "420000069" {
		t.Errorf("default genesis_supply = %q", cfg.Token.GenesisSupply)
	}
	if cfg.Scheduler.PoolScanOffset != 30*time.Minute {
		t.Errorf("default pool_scan_offset = %v, want 30m", cfg.Scheduler.PoolScanOffset)
	}
	if cfg.Holders.PageSize != 1000 {
		t.Errorf("default holders.page_size = %d, want 1000", cfg.Holders.PageSize)
	}
	if !cfg.Scheduler.RunAtStart {
		t.Error("run_at_start should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfigFile(t, `
token:
  address: "0xabc123"
  symbol: "XYZ"
scheduler:
  pool_scan_offset: 15m
alerting:
  volatility_pct: 5.5
  rollover_hour: 6
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Token.Symbol != "XYZ" {
		t.Errorf("symbol = %q, want XYZ", cfg.Token.Symbol)
	}
	if cfg.Scheduler.PoolScanOffset != 15*time.Minute {
		t.Errorf("pool_scan_offset = %v, want 15m", cfg.Scheduler.PoolScanOffset)
	}
	if cfg.Alerting.VolatilityPct != 5.5 {
		t.Errorf("volatility_pct = %v, want 5.5", cfg.Alerting.VolatilityPct)
	}
	if cfg.Alerting.RolloverHour != 6 {
		t.Errorf("rollover_hour = %d, want 6", cfg.Alerting.RolloverHour)
	}
}

func TestLoadRejectsMissingTokenAddress(t *testing.T) {
	path := writeConfigFile(t, `
token:
  symbol: "XYZ"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for missing token.address")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Token.Address = "0xabc"
		cfg.Token.GenesisSupply = "420000069"
		cfg.Holders.PageSize = 1000
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "negative volatility", mutate: func(c *Config) { c.Alerting.VolatilityPct = -1 }, wantErr: true},
		{name: "rollover hour too large", mutate: func(c *Config) { c.Alerting.RolloverHour = 24 }, wantErr: true},
		{name: "pool scan offset over an hour", mutate: func(c *Config) { c.Scheduler.PoolScanOffset = 2 * time.Hour }, wantErr: true},
		{name: "zero page size", mutate: func(c *Config) { c.Holders.PageSize = 0 }, wantErr: true},
		{name: "discord enabled without token", mutate: func(c *Config) { c.Alerting.Discord.Enabled = true }, wantErr: true},
		{name: "discord fully configured", mutate: func(c *Config) {
			c.Alerting.Discord.Enabled = true
			c.Alerting.Discord.BotToken = "token"
			c.Alerting.Discord.ChannelID = "123"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
