// Package execution serializes broker calls: one trade in flight at a time
// with a cooldown window between attempts.
package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fadebot-go/internal/broker"
	"fadebot-go/internal/config"
	"fadebot-go/internal/ledger"
	"fadebot-go/internal/metrics"
	"fadebot-go/internal/quote"
	"fadebot-go/internal/settlement"
	"fadebot-go/internal/signal"
)

// DefaultCooldown separates consecutive trade attempts.
const DefaultCooldown = 3 * time.Second

var (
	// ErrBusy rejects a signal while another trade is in flight.
	ErrBusy = errors.New("trade already in flight")
	// ErrCooldown rejects a signal arriving too soon after the previous attempt.
	ErrCooldown = errors.New("cooldown active")
	// ErrNoEntryPrice rejects a broker fill whose entry price cannot be
	// established from either the price feed or the signal hint.
	ErrNoEntryPrice = errors.New("no entry price available")
)

// Scheduler receives accepted trades for deferred settlement.
type Scheduler interface {
	Schedule(t settlement.PendingTrade)
}

// Coordinator owns the single-flight slot and the cooldown timestamp. Both are
// tested and claimed under one lock hold so concurrent signals cannot slip
// through between the check and the claim.
type Coordinator struct {
	log       zerolog.Logger
	broker    broker.Broker
	recorder  ledger.Recorder
	prices    quote.PriceSource
	quotes    quote.Provider
	scheduler Scheduler
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	inFlight bool
	lastDone time.Time
}

// NewCoordinator wires the execution path; cooldown falls back to
// DefaultCooldown when non-positive.
func NewCoordinator(log zerolog.Logger, b broker.Broker, rec ledger.Recorder, prices quote.PriceSource, quotes quote.Provider, sched Scheduler, cooldown time.Duration) *Coordinator {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Coordinator{
		log:       log,
		broker:    b,
		recorder:  rec,
		prices:    prices,
		quotes:    quotes,
		scheduler: sched,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Execute places one admitted signal with the broker, records the execution,
// and hands the trade to settlement once the ledger assigns a trade id. The
// stake comes from the trading config active at admission time.
func (c *Coordinator) Execute(ctx context.Context, sig signal.Signal, cfg config.Trading) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.finish()

	start := c.now()
	if err := c.broker.ExecuteTrade(ctx, sig.Direction, cfg.TradeAmount); err != nil {
		metrics.TradesTotal.WithLabelValues(sig.Instrument, string(sig.Direction), "error").Inc()
		c.reportFailure(ctx, sig, cfg.TradeAmount, start, err)
		return fmt.Errorf("broker execute: %w", err)
	}
	metrics.TradesTotal.WithLabelValues(sig.Instrument, string(sig.Direction), "ok").Inc()

	entry := c.entryPrice(sig)
	if entry <= 0 {
		c.log.Error().Str("signal_id", sig.ID).Str("instrument", sig.Instrument).Msg("entry price unresolved, trade not tracked")
		return ErrNoEntryPrice
	}
	payout := 0.0
	if q, ok := c.quotes.CurrentPayout(sig.Instrument); ok {
		payout = q.Percent
	}

	ack, err := c.recorder.ReportExecution(ctx, ledger.ExecutionReport{
		SignalID:      sig.ID,
		Result:        true,
		TimestampMs:   start.UnixMilli(),
		Direction:     sig.Direction,
		Amount:        cfg.TradeAmount,
		InstrumentKey: sig.Instrument,
		EntryPrice:    entry,
	})
	if err != nil {
		return fmt.Errorf("report execution: %w", err)
	}
	if ack.TradeID <= 0 {
		c.log.Warn().Str("signal_id", sig.ID).Msg("execution recorded without trade id, settlement skipped")
		return nil
	}

	expiry := sig.ExpirySeconds
	if expiry <= 0 {
		expiry = 60
	}
	c.scheduler.Schedule(settlement.PendingTrade{
		TradeID:              ack.TradeID,
		SignalID:             sig.ID,
		Instrument:           sig.Instrument,
		Direction:            sig.Direction,
		EntryTimeMs:          start.UnixMilli(),
		EntryPrice:           entry,
		ExpirySeconds:        expiry,
		Amount:               cfg.TradeAmount,
		PayoutPercentAtEntry: payout,
	})
	c.log.Info().
		Int64("trade_id", ack.TradeID).
		Str("signal_id", sig.ID).
		Str("direction", string(sig.Direction)).
		Float64("entry", entry).
		Float64("payout", payout).
		Msg("trade handed to settlement")
	return nil
}

// Busy reports whether a trade is currently in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Coordinator) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		metrics.VetoesTotal.WithLabelValues("busy").Inc()
		return ErrBusy
	}
	if !c.lastDone.IsZero() && c.now().Sub(c.lastDone) < c.cooldown {
		metrics.VetoesTotal.WithLabelValues("cooldown").Inc()
		return ErrCooldown
	}
	c.inFlight = true
	return nil
}

func (c *Coordinator) finish() {
	c.mu.Lock()
	c.lastDone = c.now()
	c.inFlight = false
	c.mu.Unlock()
}

func (c *Coordinator) entryPrice(sig signal.Signal) float64 {
	if px, ok := c.prices.LastPrice(sig.Instrument); ok && px > 0 {
		return px
	}
	if sig.EntryPriceHint > 0 {
		return sig.EntryPriceHint
	}
	return 0
}

func (c *Coordinator) reportFailure(ctx context.Context, sig signal.Signal, amount float64, at time.Time, cause error) {
	_, err := c.recorder.ReportExecution(ctx, ledger.ExecutionReport{
		SignalID:      sig.ID,
		Result:        false,
		TimestampMs:   at.UnixMilli(),
		Direction:     sig.Direction,
		Amount:        amount,
		InstrumentKey: sig.Instrument,
		Error:         cause.Error(),
	})
	if err != nil {
		c.log.Warn().Err(err).Str("signal_id", sig.ID).Msg("failure report not delivered")
	}
}
