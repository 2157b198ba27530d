package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"poolwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Token     TokenConfig     `mapstructure:"token"`
	Markets   MarketsConfig   `mapstructure:"markets"`
	Birdeye   BirdeyeConfig   `mapstructure:"birdeye"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Holders   HoldersConfig   `mapstructure:"holders"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Ops       OpsConfig       `mapstructure:"ops"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs pass cadences.
type SchedulerConfig struct {
	HourlyOffset    time.Duration `mapstructure:"hourly_offset"`
	PoolScanOffset  time.Duration `mapstructure:"pool_scan_offset"`
	RunAtStart      bool          `mapstructure:"run_at_start"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// TokenConfig identifies the monitored asset.
type TokenConfig struct {
	Address       string `mapstructure:"address"`
	Symbol        string `mapstructure:"symbol"`
	Decimals      int32  `mapstructure:"decimals"`
	GenesisSupply string `mapstructure:"genesis_supply"`
	AvatarURL     string `mapstructure:"avatar_url"`
}

// MarketsConfig covers the DexScreener pool snapshot source.
type MarketsConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// BirdeyeConfig covers the spot price source.
type BirdeyeConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Chain          string        `mapstructure:"chain"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EthereumConfig covers on-chain supply access.
type EthereumConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// HoldersConfig covers the paginated token-account scan.
type HoldersConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	PageSize       int           `mapstructure:"page_size"`
	MaxPages       int           `mapstructure:"max_pages"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	VolatilityPct  float64       `mapstructure:"volatility_pct"`
	RolloverHour   int           `mapstructure:"rollover_hour"`
	Discord        DiscordConfig `mapstructure:"discord"`
}

// DiscordConfig describes the delivery channel.
type DiscordConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BotToken       string        `mapstructure:"bot_token"`
	ChannelID      string        `mapstructure:"channel_id"`
	APIBase        string        `mapstructure:"api_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// OpsConfig configures the operational HTTP endpoint.
type OpsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "poolwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.hourly_offset", "0s")
	v.SetDefault("scheduler.pool_scan_offset", "30m")
	v.SetDefault("scheduler.run_at_start", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x706F6F6C))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("token.symbol", "TOKE")
	v.SetDefault("token.decimals", 18)
	v.SetDefault("token.genesis_supply", "420000069")

	v.SetDefault("markets.base_url", "https://api.dexscreener.com")
	v.SetDefault("markets.request_timeout", "10s")
	v.SetDefault("markets.user_agent", "poolwatch/1.0")

	v.SetDefault("birdeye.base_url", "https://public-api.birdeye.so")
	v.SetDefault("birdeye.chain", "ethereum")
	v.SetDefault("birdeye.request_timeout", "10s")

	v.SetDefault("ethereum.request_timeout", "10s")

	v.SetDefault("holders.page_size", 1000)
	v.SetDefault("holders.max_pages", 10000)
	v.SetDefault("holders.request_timeout", "30s")

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.volatility_pct", 10.0)
	v.SetDefault("alerting.rollover_hour", 0)
	v.SetDefault("alerting.discord.enabled", false)
	v.SetDefault("alerting.discord.api_base", "https://discord.com/api/v10")
	v.SetDefault("alerting.discord.request_timeout", "10s")

	v.SetDefault("ops.enabled", false)
	v.SetDefault("ops.listen_addr", ":8080")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Token.Address == "" {
		return fmt.Errorf("token.address is required")
	}
	if c.Token.Decimals < 0 {
		return fmt.Errorf("token.decimals cannot be negative")
	}
	if c.Token.GenesisSupply == "" {
		return fmt.Errorf("token.genesis_supply is required")
	}
	if c.Alerting.VolatilityPct < 0 {
		return fmt.Errorf("alerting.volatility_pct cannot be negative")
	}
	if c.Alerting.RolloverHour < 0 || c.Alerting.RolloverHour > 23 {
		return fmt.Errorf("alerting.rollover_hour must be within 0..23")
	}
	if c.Holders.PageSize <= 0 {
		return fmt.Errorf("holders.page_size must be greater than zero")
	}
	if c.Scheduler.PoolScanOffset < 0 || c.Scheduler.PoolScanOffset >= time.Hour {
		return fmt.Errorf("scheduler.pool_scan_offset must be within one hour")
	}
	if c.Alerting.Discord.Enabled {
		if c.Alerting.Discord.BotToken == "" {
			return fmt.Errorf("alerting.discord.bot_token is required when discord is enabled")
		}
		if c.Alerting.Discord.ChannelID == "" {
			return fmt.Errorf("alerting.discord.channel_id is required when discord is enabled")
		}
	}
	return nil
}
