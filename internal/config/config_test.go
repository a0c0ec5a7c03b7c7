package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "fadebot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.MetricsAddr != ":9109" {
		t.Fatalf("unexpected App.MetricsAddr: %s", cfg.App.MetricsAddr)
	}
	if len(cfg.Broker.Instruments) != 1 || cfg.Broker.Instruments[0] != "EURUSD_OTC" {
		t.Fatalf("expected EURUSD_OTC instrument, got %+v", cfg.Broker.Instruments)
	}
	if cfg.Broker.PayoutPollMs != 750 {
		t.Fatalf("unexpected Broker.PayoutPollMs: %d", cfg.Broker.PayoutPollMs)
	}
	if cfg.Broker.StaticPayouts["EURUSD_OTC"] != 92 {
		t.Fatalf("unexpected static payout: %+v", cfg.Broker.StaticPayouts)
	}
	if cfg.Paper.StartingCash != 250 {
		t.Fatalf("unexpected starting cash: %.2f", cfg.Paper.StartingCash)
	}
	if !cfg.Trading.Enabled {
		t.Fatalf("expected trading enabled")
	}
	if cfg.Trading.TradeAmount != 10 {
		t.Fatalf("unexpected trade amount: %.2f", cfg.Trading.TradeAmount)
	}
	if cfg.Trading.MinPayoutPercent != 70 {
		t.Fatalf("unexpected min payout: %.2f", cfg.Trading.MinPayoutPercent)
	}
	if cfg.Trading.MaxConsecutiveLosses != 3 {
		t.Fatalf("unexpected max consecutive losses: %d", cfg.Trading.MaxConsecutiveLosses)
	}
	if cfg.Trading.CooldownMs != 3000 {
		t.Fatalf("unexpected cooldown: %d", cfg.Trading.CooldownMs)
	}
	if cfg.Trading.StrategyFilter == nil || cfg.Trading.StrategyFilter.Mode != "allowlist" {
		t.Fatalf("unexpected strategy filter: %+v", cfg.Trading.StrategyFilter)
	}
	if len(cfg.Trading.StrategyFilter.Patterns) != 1 || cfg.Trading.StrategyFilter.Patterns[0] != "TIF-60" {
		t.Fatalf("unexpected filter patterns: %+v", cfg.Trading.StrategyFilter.Patterns)
	}
	if cfg.Detector.MinTicks != 80 {
		t.Fatalf("unexpected detector min ticks: %d", cfg.Detector.MinTicks)
	}
	if cfg.Detector.ImbalanceThreshold != 0.65 {
		t.Fatalf("unexpected imbalance threshold: %.2f", cfg.Detector.ImbalanceThreshold)
	}
	if cfg.Settlement.GraceMs != 800 {
		t.Fatalf("unexpected settlement grace: %d", cfg.Settlement.GraceMs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := &Config{
		App:     App{Name: "fadebot", LogLevel: "info"},
		Trading: Trading{Enabled: true, TradeAmount: 25, ExpirySeconds: 60},
	}
	if err := Save(path, in); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if out.App.Name != "fadebot" || out.Trading.TradeAmount != 25 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}
