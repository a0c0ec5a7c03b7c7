// Binary bot runs the trading loop end to end: feed ticks into the detector,
// pass detections through admission and execution, and settle expiries.
package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fadebot-go/internal/broker"
	"fadebot-go/internal/config"
	"fadebot-go/internal/engine"
	"fadebot-go/internal/exchange"
	"fadebot-go/internal/execution"
	"fadebot-go/internal/ledger"
	"fadebot-go/internal/metrics"
	"fadebot-go/internal/quote"
	"fadebot-go/internal/risk"
	"fadebot-go/internal/settlement"
	sig "fadebot-go/internal/signal"
	"fadebot-go/internal/stats"
	"fadebot-go/internal/store"
	"fadebot-go/internal/strategy"
	"fadebot-go/internal/util"
)

func main() {
	_ = godotenv.Load() // best-effort

	cfgPath := getEnv("CONFIG_PATH", "internal/config/config.yaml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		util.NewLogger("info").Fatal().Err(err).Msg("load config")
	}

	log := util.NewLogger(cfg.App.LogLevel)
	if cfg.App.ConsoleLog {
		log = util.NewConsoleLogger(cfg.App.LogLevel)
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dataDir := cfg.App.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	kv, err := store.NewFileStore(dataDir, "settlement")
	if err != nil {
		log.Fatal().Err(err).Msg("open settlement store")
	}

	table := quote.NewTable()
	now := time.Now().UTC()
	for name, percent := range cfg.Broker.StaticPayouts {
		table.Set(quote.Payout{Instrument: name, Percent: percent, AsOf: now})
	}
	if cfg.Broker.BaseURL != "" {
		poller := quote.NewPoller(log, table, cfg.Broker.BaseURL, time.Duration(cfg.Broker.PayoutPollMs)*time.Millisecond)
		go func() { _ = poller.Run(ctx) }()
	}

	feed := exchange.NewFeed(cfg.Broker.Feed, cfg.Broker.Instruments, log)
	ticks := make(chan sig.Tick, 1024)
	go func() {
		if err := feed.Run(ctx, ticks); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	var recorder ledger.Recorder
	if cfg.Broker.LedgerURL != "" {
		recorder = ledger.NewClient(cfg.Broker.LedgerURL, 0)
		log.Info().Str("url", cfg.Broker.LedgerURL).Msg("reporting to remote ledger")
	} else {
		startingCash := cfg.Paper.StartingCash
		if startingCash <= 0 {
			startingCash = 100
		}
		paperLedger, err := ledger.NewPaper(log, startingCash, filepath.Join(dataDir, "trades.jsonl"))
		if err != nil {
			log.Fatal().Err(err).Msg("open paper ledger")
		}
		defer paperLedger.Close()
		recorder = paperLedger
	}

	book := stats.NewBook(log)
	resolver := settlement.NewResolver(log, feed, recorder, book)
	sched := settlement.NewScheduler(log, kv, resolver, cfg.Settlement.GraceMs)
	if err := sched.Recover(); err != nil {
		log.Error().Err(err).Msg("settlement recovery failed")
	}
	defer sched.Stop()

	cooldown := time.Duration(cfg.Trading.CooldownMs) * time.Millisecond
	coord := execution.NewCoordinator(log, broker.NewPaper(log), recorder, feed, table, sched, cooldown)
	gate := risk.NewGate(log, table)
	runner := strategy.NewRunner(detectorConfig(cfg.Detector, cfg.Trading.ExpirySeconds))

	eng := engine.New(log, config.NewStore(cfg.Trading), runner, gate, coord)
	eng.EnableAutoSwitch(table, feed, 30*time.Second)

	log.Info().
		Str("feed", cfg.Broker.Feed).
		Strs("instruments", cfg.Broker.Instruments).
		Int("pending", sched.PendingCount()).
		Msg("bot started")
	if err := eng.Run(ctx, ticks); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("engine stopped")
	}
	log.Info().Msg("shutting down")
}

func detectorConfig(d config.Detector, expirySeconds int) strategy.Config {
	return strategy.Config{
		WindowSeconds:       d.WindowSeconds,
		MinTicks:            d.MinTicks,
		ImbalanceThreshold:  d.ImbalanceThreshold,
		DeltaZThreshold:     d.DeltaZThreshold,
		StallLookbackTicks:  d.StallLookbackTicks,
		StallRatioThreshold: d.StallRatioThreshold,
		BaseConfidence:      d.BaseConfidence,
		MaxConfidence:       d.MaxConfidence,
		MinCandlesForStd:    d.MinCandlesForStd,
		ExpirySeconds:       expirySeconds,
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
