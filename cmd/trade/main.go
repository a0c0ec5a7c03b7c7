// Binary trade places a single manual trade through the full execution and
// settlement path, then waits for the outcome. Useful for smoke-testing the
// ledger wiring without running the detector.
package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"fadebot-go/internal/broker"
	"fadebot-go/internal/config"
	"fadebot-go/internal/exchange"
	"fadebot-go/internal/execution"
	"fadebot-go/internal/ledger"
	"fadebot-go/internal/quote"
	"fadebot-go/internal/settlement"
	sig "fadebot-go/internal/signal"
	"fadebot-go/internal/stats"
	"fadebot-go/internal/store"
	"fadebot-go/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(getEnv("CONFIG_PATH", "internal/config/config.yaml"))
	if err != nil {
		util.NewConsoleLogger("info").Fatal().Err(err).Msg("load config")
	}
	log := util.NewConsoleLogger(cfg.App.LogLevel)

	instrument := getEnv("TRADE_INSTRUMENT", firstInstrument(cfg.Broker.Instruments))
	if instrument == "" {
		log.Fatal().Msg("no instrument configured, set TRADE_INSTRUMENT")
	}
	direction := sig.Direction(strings.ToUpper(getEnv("TRADE_DIRECTION", string(sig.Put))))
	if direction != sig.Call && direction != sig.Put {
		log.Fatal().Str("direction", string(direction)).Msg("direction must be call or put")
	}
	amount := envFloat("TRADE_AMOUNT", cfg.Trading.TradeAmount)
	expiry := envInt("TRADE_EXPIRY_SECONDS", cfg.Trading.ExpirySeconds)
	if expiry <= 0 {
		expiry = 60
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	table := quote.NewTable()
	now := time.Now().UTC()
	for name, percent := range cfg.Broker.StaticPayouts {
		table.Set(quote.Payout{Instrument: name, Percent: percent, AsOf: now})
	}

	feed := exchange.NewFeed(cfg.Broker.Feed, []string{instrument}, log)
	ticks := make(chan sig.Tick, 64)
	go func() { _ = feed.Run(ctx, ticks) }()
	go func() {
		for range ticks {
		}
	}()
	if !waitForPrice(ctx, feed, instrument, 10*time.Second) {
		log.Fatal().Str("instrument", instrument).Msg("no price from feed")
	}

	var recorder ledger.Recorder
	var paperLedger *ledger.Paper
	if cfg.Broker.LedgerURL != "" {
		recorder = ledger.NewClient(cfg.Broker.LedgerURL, 0)
	} else {
		startingCash := cfg.Paper.StartingCash
		if startingCash <= 0 {
			startingCash = 100
		}
		paperLedger, err = ledger.NewPaper(log, startingCash, filepath.Join(dataDir(cfg), "trades.jsonl"))
		if err != nil {
			log.Fatal().Err(err).Msg("open paper ledger")
		}
		defer paperLedger.Close()
		recorder = paperLedger
	}

	book := stats.NewBook(log)
	resolver := settlement.NewResolver(log, feed, recorder, book)
	sched := settlement.NewScheduler(log, store.NewMemory(), resolver, cfg.Settlement.GraceMs)
	defer sched.Stop()
	coord := execution.NewCoordinator(log, broker.NewPaper(log), recorder, feed, table, sched, 0)

	manual := sig.Signal{
		ID:            uuid.NewString(),
		Ts:            time.Now().UTC(),
		Instrument:    instrument,
		Direction:     direction,
		StrategyID:    "manual",
		StrategyLabel: "MANUAL",
		Confidence:    1,
		ExpirySeconds: expiry,
		Status:        sig.StatusDetected,
	}
	trading := cfg.Trading
	trading.TradeAmount = amount

	log.Info().
		Str("instrument", instrument).
		Str("direction", string(direction)).
		Float64("amount", amount).
		Int("expiry_seconds", expiry).
		Msg("placing manual trade")

	execCtx, execCancel := context.WithTimeout(ctx, 15*time.Second)
	defer execCancel()
	if err := coord.Execute(execCtx, manual, trading); err != nil {
		log.Fatal().Err(err).Msg("trade rejected")
	}

	deadline := time.Duration(expiry)*time.Second + time.Duration(cfg.Settlement.GraceMs)*time.Millisecond + 15*time.Second
	if !waitForSettlement(ctx, sched, deadline) {
		log.Fatal().Msg("trade did not settle before deadline")
	}

	summary := book.Snapshot()
	ev := log.Info().
		Int("wins", summary.Wins).
		Int("losses", summary.Losses).
		Float64("win_rate", summary.WinRatePercent)
	if paperLedger != nil {
		snap := paperLedger.Snapshot()
		ev = ev.Str("balance", snap.Balance.StringFixed(2)).Str("realized_pnl", snap.RealizedPnL.StringFixed(2))
	}
	ev.Msg("trade settled")
}

func waitForPrice(ctx context.Context, prices quote.PriceSource, instrument string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if px, ok := prices.LastPrice(instrument); ok && px > 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
	return false
}

func waitForSettlement(ctx context.Context, sched *settlement.Scheduler, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if sched.PendingCount() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(200 * time.Millisecond):
		}
	}
	return false
}

func dataDir(cfg *config.Config) string {
	if cfg.App.DataDir != "" {
		return cfg.App.DataDir
	}
	return "data"
}

func firstInstrument(instruments []string) string {
	if len(instruments) == 0 {
		return ""
	}
	return instruments[0]
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
