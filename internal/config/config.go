// Package config provides configuration management for the trading bot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading       TradingConfig      `mapstructure:"trading"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
	Credentials   Credentials        `mapstructure:"-"` // loaded separately
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode           string        `mapstructure:"mode"`            // "live", "paper"
	InstType       string        `mapstructure:"inst_type"`       // OKX instrument type, e.g. SWAP
	Currency       string        `mapstructure:"currency"`        // settlement currency, e.g. USDT
	BalanceHaircut float64       `mapstructure:"balance_haircut"` // usable fraction of balance
	CycleInterval  time.Duration `mapstructure:"cycle_interval"`
	ConfirmDelay   time.Duration `mapstructure:"confirm_delay"`
	CandleLimit    int           `mapstructure:"candle_limit"`
}

// NotificationConfig holds Telegram notification configuration.
type NotificationConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	BotToken string   `mapstructure:"bot_token"`
	ChatIDs  []string `mapstructure:"chat_ids"`
}

// DatabaseConfig holds ledger database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig holds Prometheus exposition configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Credentials holds OKX API credentials.
type Credentials struct {
	OKX OKXCredentials `mapstructure:"okx"`
}

// OKXCredentials holds the OKX v5 API key set.
type OKXCredentials struct {
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	Passphrase string `mapstructure:"passphrase"`
	Demo       bool   `mapstructure:"demo"` // demo-trading flag
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/okx-trader"
	}
	return filepath.Join(home, ".config", "okx-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.yaml: %w", err)
	}

	if err := loadConfigFile(configDir, "credentials", &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.yaml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	setDefaults(v, name, configDir)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults and env overrides apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper, name, configDir string) {
	if name != "config" {
		return
	}
	v.SetDefault("trading.mode", "paper")
	v.SetDefault("trading.inst_type", "SWAP")
	v.SetDefault("trading.currency", "USDT")
	v.SetDefault("trading.balance_haircut", 0.99)
	v.SetDefault("trading.cycle_interval", time.Minute)
	v.SetDefault("trading.confirm_delay", time.Second)
	v.SetDefault("trading.candle_limit", 300)
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("database.path", filepath.Join(configDir, "ledger.db"))
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9105")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OKX_API_KEY"); v != "" {
		cfg.Credentials.OKX.APIKey = v
	}
	if v := os.Getenv("OKX_API_SECRET"); v != "" {
		cfg.Credentials.OKX.APISecret = v
	}
	if v := os.Getenv("OKX_PASSPHRASE"); v != "" {
		cfg.Credentials.OKX.Passphrase = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.BotToken = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("trading.mode must be live or paper, got %q", c.Trading.Mode)
	}
	if c.Trading.BalanceHaircut <= 0 || c.Trading.BalanceHaircut > 1 {
		return fmt.Errorf("trading.balance_haircut must be in (0, 1], got %v", c.Trading.BalanceHaircut)
	}
	if c.Trading.CycleInterval <= 0 {
		return fmt.Errorf("trading.cycle_interval must be positive")
	}
	if c.Trading.Mode == "live" {
		creds := c.Credentials.OKX
		if creds.APIKey == "" || creds.APISecret == "" || creds.Passphrase == "" {
			return fmt.Errorf("live mode requires okx api_key, api_secret and passphrase")
		}
	}
	if c.Notifications.Enabled && (c.Notifications.BotToken == "" || len(c.Notifications.ChatIDs) == 0) {
		return fmt.Errorf("notifications enabled but bot_token or chat_ids missing")
	}
	return nil
}
