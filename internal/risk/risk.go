// Package risk holds the admission gate every signal must clear before execution.
package risk

import (
	"strings"

	"github.com/rs/zerolog"

	"fadebot-go/internal/config"
	"fadebot-go/internal/metrics"
	"fadebot-go/internal/quote"
	"fadebot-go/internal/signal"
)

// VetoReason names why the gate refused a signal. Empty means admitted.
type VetoReason string

const (
	VetoNone             VetoReason = ""
	VetoDisabled         VetoReason = "disabled"
	VetoNoQuote          VetoReason = "no_quote"
	VetoPayoutBelowMin   VetoReason = "payout_below_min"
	VetoStrategyFiltered VetoReason = "strategy_filtered"
)

// Gate evaluates signals against the live configuration. The transient-state
// checks (single-flight, cooldown) belong to the execution coordinator.
type Gate struct {
	log    zerolog.Logger
	quotes quote.Provider
}

// NewGate builds a gate over the payout provider.
func NewGate(log zerolog.Logger, quotes quote.Provider) *Gate {
	return &Gate{log: log, quotes: quotes}
}

// Admit runs the configuration checks in order. It returns the payout quote
// it looked up so the caller does not query twice; on veto the quote is zero.
// A missing quote vetoes conservatively.
func (g *Gate) Admit(sig signal.Signal, cfg config.Trading) (quote.Payout, VetoReason) {
	if !cfg.Enabled {
		return quote.Payout{}, g.veto(sig, VetoDisabled)
	}
	payout, ok := g.quotes.CurrentPayout(sig.Instrument)
	if !ok {
		return quote.Payout{}, g.veto(sig, VetoNoQuote)
	}
	if payout.Percent < cfg.MinPayoutPercent {
		return quote.Payout{}, g.veto(sig, VetoPayoutBelowMin)
	}
	if !strategyAllowed(sig, cfg) {
		return quote.Payout{}, g.veto(sig, VetoStrategyFiltered)
	}
	return payout, VetoNone
}

func (g *Gate) veto(sig signal.Signal, reason VetoReason) VetoReason {
	metrics.VetoesTotal.WithLabelValues(string(reason)).Inc()
	g.log.Debug().
		Str("signal_id", sig.ID).
		Str("instrument", sig.Instrument).
		Str("strategy", sig.StrategyLabel).
		Str("reason", string(reason)).
		Msg("signal vetoed")
	return reason
}

// strategyAllowed applies the filter when one is set; the filter governs
// exclusively. Without a filter the legacy OnlyRSI rule applies.
func strategyAllowed(sig signal.Signal, cfg config.Trading) bool {
	if f := cfg.StrategyFilter; f != nil {
		matched := matchesAny(sig, f.Patterns)
		if f.Mode == "denylist" {
			return !matched
		}
		return matched
	}
	if cfg.OnlyRSI {
		return matchesAny(sig, []string{"RSI"})
	}
	return true
}

func matchesAny(sig signal.Signal, patterns []string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(sig.StrategyID, p) || strings.Contains(sig.StrategyLabel, p) {
			return true
		}
	}
	return false
}
