// Package engine glues the pipeline: ticks drive the strategy runner,
// detections pass the admission gate, and admitted signals reach the
// execution coordinator.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"fadebot-go/internal/config"
	"fadebot-go/internal/execution"
	"fadebot-go/internal/metrics"
	"fadebot-go/internal/quote"
	"fadebot-go/internal/risk"
	"fadebot-go/internal/signal"
	"fadebot-go/internal/strategy"
)

// Retargeter lets the engine point the tick feed at a different instrument
// when auto asset switch is on.
type Retargeter interface {
	SetInstruments(instruments []string)
}

// Engine consumes ticks and runs each detection through admission and
// execution. One trading-config snapshot per tick feeds both stages, so a
// concurrent config update cannot split a single signal's view.
type Engine struct {
	log    zerolog.Logger
	cfg    *config.Store
	runner *strategy.Runner
	gate   *risk.Gate
	coord  *execution.Coordinator

	quotes      *quote.Table
	feed        Retargeter
	switchEvery time.Duration
	lastTarget  string
}

// New wires the core pipeline.
func New(log zerolog.Logger, cfg *config.Store, runner *strategy.Runner, gate *risk.Gate, coord *execution.Coordinator) *Engine {
	return &Engine{log: log, cfg: cfg, runner: runner, gate: gate, coord: coord}
}

// EnableAutoSwitch attaches the payout table and feed used to chase the
// highest-paying instrument. The check runs every interval but only acts
// while trading.autoAssetSwitch is on.
func (e *Engine) EnableAutoSwitch(quotes *quote.Table, feed Retargeter, every time.Duration) {
	if every <= 0 {
		every = 30 * time.Second
	}
	e.quotes = quotes
	e.feed = feed
	e.switchEvery = every
}

// Run blocks consuming ticks until the context is canceled or the tick
// channel closes.
func (e *Engine) Run(ctx context.Context, ticks <-chan signal.Tick) error {
	var switchC <-chan time.Time
	if e.feed != nil {
		ticker := time.NewTicker(e.switchEvery)
		defer ticker.Stop()
		switchC = ticker.C
	}

	e.log.Info().Msg("engine started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tk, ok := <-ticks:
			if !ok {
				return nil
			}
			e.handleTick(ctx, tk)
		case <-switchC:
			e.maybeSwitchInstrument()
		}
	}
}

func (e *Engine) handleTick(ctx context.Context, tk signal.Tick) {
	eval := e.runner.OnTick(tk)
	if eval.Signal == nil {
		return
	}
	sig := *eval.Signal
	metrics.SignalsTotal.WithLabelValues(sig.Instrument, string(sig.Direction)).Inc()

	trading := e.cfg.Current()
	payout, veto := e.gate.Admit(sig, trading)
	if veto != risk.VetoNone {
		return
	}

	e.log.Info().
		Str("signal_id", sig.ID).
		Str("instrument", sig.Instrument).
		Str("direction", string(sig.Direction)).
		Float64("confidence", sig.Confidence).
		Float64("payout", payout.Percent).
		Msg("signal admitted")

	if err := e.coord.Execute(ctx, sig, trading); err != nil {
		switch {
		case errors.Is(err, execution.ErrBusy), errors.Is(err, execution.ErrCooldown):
			e.log.Debug().Err(err).Str("signal_id", sig.ID).Msg("signal dropped")
		default:
			e.log.Error().Err(err).Str("signal_id", sig.ID).Msg("execution failed")
		}
	}
}

// maybeSwitchInstrument retargets the feed at the best-paying instrument that
// still clears the configured minimum.
func (e *Engine) maybeSwitchInstrument() {
	trading := e.cfg.Current()
	if !trading.AutoAssetSwitch {
		return
	}
	best, ok := e.quotes.Best(trading.MinPayoutPercent)
	if !ok || best.Instrument == e.lastTarget {
		return
	}
	e.feed.SetInstruments([]string{best.Instrument})
	e.lastTarget = best.Instrument
	e.log.Info().Str("instrument", best.Instrument).Float64("payout", best.Percent).Msg("switched to best paying instrument")
}
