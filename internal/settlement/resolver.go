package settlement

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fadebot-go/internal/ledger"
	"fadebot-go/internal/metrics"
	"fadebot-go/internal/quote"
	"fadebot-go/internal/signal"
	"fadebot-go/internal/stats"
)

// Resolver turns an expired trade into a final outcome and reports it.
type Resolver struct {
	log      zerolog.Logger
	prices   quote.PriceSource
	recorder ledger.Recorder
	tracker  stats.Tracker
	timeout  time.Duration
}

// NewResolver wires the resolver; tracker may be nil when no strategy
// statistics are kept.
func NewResolver(log zerolog.Logger, prices quote.PriceSource, recorder ledger.Recorder, tracker stats.Tracker) *Resolver {
	return &Resolver{
		log:      log,
		prices:   prices,
		recorder: recorder,
		tracker:  tracker,
		timeout:  10 * time.Second,
	}
}

// Result is what a settled trade came to.
type Result struct {
	Trade     PendingTrade
	ExitPrice float64
	Outcome   signal.Outcome
	Profit    float64
}

// Settle fetches the exit price, classifies the outcome, and reports the
// finalized trade. Reporting is best-effort; a failed delivery is logged
// and never retried.
func (r *Resolver) Settle(t PendingTrade) Result {
	exit, ok := r.prices.LastPrice(t.Instrument)
	if !ok {
		exit = 0
	}
	outcome := classify(t.Direction, t.EntryPrice, exit)
	profit := profitFor(outcome, t.Amount, t.PayoutPercentAtEntry)

	metrics.SettlementsTotal.WithLabelValues(string(outcome)).Inc()
	r.log.Info().
		Int64("trade_id", t.TradeID).
		Str("instrument", t.Instrument).
		Str("outcome", string(outcome)).
		Float64("exit", exit).
		Float64("profit", profit).
		Msg("trade settled")

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	report := ledger.FinalizeReport{
		TradeID:   t.TradeID,
		SignalID:  t.SignalID,
		ExitPrice: exit,
		Result:    outcome,
		Profit:    profit,
	}
	if err := r.recorder.FinalizeTrade(ctx, report); err != nil {
		r.log.Warn().Err(err).Int64("trade_id", t.TradeID).Msg("finalize report not delivered")
	}

	if t.SignalID != "" && r.tracker != nil {
		if err := r.tracker.UpdateSignalResult(t.SignalID, outcome); err != nil {
			r.log.Warn().Err(err).Str("signal_id", t.SignalID).Msg("tracker update failed")
		}
	}
	return Result{Trade: t, ExitPrice: exit, Outcome: outcome, Profit: profit}
}

// classify compares exit to entry in the trade's direction. A missing exit
// price settles as a loss.
func classify(direction signal.Direction, entry, exit float64) signal.Outcome {
	if exit <= 0 {
		return signal.Loss
	}
	switch {
	case exit == entry:
		return signal.Tie
	case exit > entry:
		if direction == signal.Call {
			return signal.Win
		}
		return signal.Loss
	default:
		if direction == signal.Put {
			return signal.Win
		}
		return signal.Loss
	}
}

// profitFor prices the payout: a win pays amount times the payout percent,
// a loss burns the stake, a tie returns it.
func profitFor(outcome signal.Outcome, amount, payoutPercent float64) float64 {
	switch outcome {
	case signal.Win:
		return amount * payoutPercent / 100
	case signal.Loss:
		return -amount
	default:
		return 0
	}
}
