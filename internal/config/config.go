package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LoggingConfig  `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	RunState RunStateConfig `yaml:"run_state"`
	Strategy StrategyConfig `yaml:"strategy"`
	Fees     FeesConfig     `yaml:"fees"`
	Telegram TelegramConfig `yaml:"telegram"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RunStateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// StrategyConfig carries everything the decision and sizing engines
// need, passed explicitly at construction so parallel runs with
// different settings never share ambient state.
type StrategyConfig struct {
	Org              string             `yaml:"org"`
	BaseAsset        string             `yaml:"base_asset"`
	QuoteAsset       string             `yaml:"quote_asset"`
	MinQuoteNotional float64            `yaml:"min_quote_notional"`
	ROCWindowDays    int                `yaml:"roc_window_days"`
	Tiers            map[string]float64 `yaml:"tiers"`
}

type FeesConfig struct {
	Rate         float64 `yaml:"rate"`
	TradeFeeRate float64 `yaml:"trade_fee_rate"`
	Policy       string  `yaml:"policy"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func (m MetricsConfig) EnabledValue() bool {
	return m.Enabled == nil || *m.Enabled
}

var tierNames = []string{"B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8", "B9", "B10", "B11"}

// defaultTiers are the documented default sizing percentages per band
// tier: buy sizes grow toward the lower bands, sell sizes toward the
// upper ones. Any tier may be overridden individually in yaml.
var defaultTiers = map[string]float64{
	"B1": 0.10, "B2": 0.08, "B3": 0.06, "B4": 0.04, "B5": 0.02,
	"B6": 0.02, "B7": 0.04, "B8": 0.06, "B9": 0.08, "B10": 0.10, "B11": 0.15,
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Schema == "" {
		cfg.Database.Schema = "public"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 4
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.RunState.SQLitePath == "" {
		cfg.RunState.SQLitePath = "data/dca-engine.db"
	}
	if cfg.Strategy.BaseAsset == "" {
		cfg.Strategy.BaseAsset = "BTC"
	}
	if cfg.Strategy.QuoteAsset == "" {
		cfg.Strategy.QuoteAsset = "USDT"
	}
	if cfg.Strategy.ROCWindowDays == 0 {
		cfg.Strategy.ROCWindowDays = 5
	}
	if cfg.Strategy.Tiers == nil {
		cfg.Strategy.Tiers = make(map[string]float64, len(defaultTiers))
	}
	for _, name := range tierNames {
		if _, ok := cfg.Strategy.Tiers[name]; !ok {
			cfg.Strategy.Tiers[name] = defaultTiers[name]
		}
	}
	if cfg.Fees.Policy == "" {
		cfg.Fees.Policy = "usdt_or_sell_btc"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9187"
	}
}

func validate(cfg *Config) error {
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if cfg.Strategy.Org == "" {
		return errors.New("strategy.org is required")
	}
	// No safe default exists for the minimum order notional; running
	// without one would turn dust orders into live trades.
	if cfg.Strategy.MinQuoteNotional <= 0 {
		return errors.New("strategy.min_quote_notional is required and must be > 0")
	}
	if cfg.Strategy.ROCWindowDays < 1 {
		return errors.New("strategy.roc_window_days must be >= 1")
	}
	for name, pct := range cfg.Strategy.Tiers {
		if pct < 0 || pct > 1 {
			return fmt.Errorf("strategy.tiers.%s must be in [0, 1], got %v", name, pct)
		}
	}
	if cfg.Fees.Rate < 0 || cfg.Fees.Rate > 1 {
		return errors.New("fees.rate must be in [0, 1]")
	}
	if cfg.Fees.TradeFeeRate < 0 || cfg.Fees.TradeFeeRate >= 1 {
		return errors.New("fees.trade_fee_rate must be in [0, 1)")
	}
	switch cfg.Fees.Policy {
	case "invoice_only", "usdt", "usdt_or_sell_btc":
	default:
		return fmt.Errorf("fees.policy must be invoice_only, usdt or usdt_or_sell_btc, got %q", cfg.Fees.Policy)
	}
	return nil
}
