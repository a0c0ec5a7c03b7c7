// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string
	Env         string
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	ConsoleLog  bool   `yaml:"console_log"`
	DataDir     string `yaml:"data_dir"`
}

// Broker describes the venue connectivity parameters the bot expects.
type Broker struct {
	Name          string
	BaseURL       string             `yaml:"base_url"`
	LedgerURL     string             `yaml:"ledger_url"`
	Feed          string             `yaml:"feed"` // stub|binance
	Instruments   []string           `yaml:"instruments"`
	PayoutPollMs  int                `yaml:"payout_poll_ms"`
	StaticPayouts map[string]float64 `yaml:"static_payouts"`
}

// Paper configures the in-process dry-run ledger used when no ledger URL is
// set.
type Paper struct {
	StartingCash float64 `yaml:"starting_cash"`
}

// StrategyFilter restricts admission to matching strategies. When present it
// governs exclusively; the legacy OnlyRSI rule applies only when it is nil.
type StrategyFilter struct {
	Mode     string   `yaml:"mode"` // allowlist|denylist
	Patterns []string `yaml:"patterns"`
}

// Trading is the live trading configuration read by the admission gate on
// every signal. Runtime mutation goes through Store.Update only.
type Trading struct {
	Enabled              bool            `yaml:"enabled"`
	AutoAssetSwitch      bool            `yaml:"auto_asset_switch"`
	TradeAmount          float64         `yaml:"trade_amount"`
	MinPayoutPercent     float64         `yaml:"min_payout_percent"`
	MaxDrawdownPercent   float64         `yaml:"max_drawdown_percent"`
	MaxConsecutiveLosses int             `yaml:"max_consecutive_losses"`
	ExpirySeconds        int             `yaml:"expiry_seconds"`
	CooldownMs           int             `yaml:"cooldown_ms"`
	OnlyRSI              bool            `yaml:"only_rsi"`
	StrategyFilter       *StrategyFilter `yaml:"strategy_filter"`
}

// Detector groups tunable knobs for the imbalance-fade detector. Zero values
// fall back to the strategy package defaults.
type Detector struct {
	WindowSeconds       int     `yaml:"window_seconds"`
	MinTicks            int     `yaml:"min_ticks"`
	ImbalanceThreshold  float64 `yaml:"imbalance_threshold"`
	DeltaZThreshold     float64 `yaml:"delta_z_threshold"`
	StallLookbackTicks  int     `yaml:"stall_lookback_ticks"`
	StallRatioThreshold float64 `yaml:"stall_ratio_threshold"`
	BaseConfidence      float64 `yaml:"base_confidence"`
	MaxConfidence       float64 `yaml:"max_confidence"`
	MinCandlesForStd    int     `yaml:"min_candles_for_std"`
}

// Settlement tunes the deferred-resolution layer.
type Settlement struct {
	GraceMs int `yaml:"grace_ms"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Broker     Broker     `yaml:"broker"`
	Paper      Paper      `yaml:"paper"`
	Trading    Trading    `yaml:"trading"`
	Detector   Detector   `yaml:"detector"`
	Settlement Settlement `yaml:"settlement"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
