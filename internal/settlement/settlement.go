// Package settlement resolves accepted trades exactly once after expiry,
// surviving process restarts through the durable store.
package settlement

import (
	"fadebot-go/internal/signal"
)

// PendingTrade is the handoff from execution: everything needed to settle the
// bet once its expiry passes.
type PendingTrade struct {
	TradeID              int64
	SignalID             string
	Instrument           string
	Direction            signal.Direction
	EntryTimeMs          int64
	EntryPrice           float64
	ExpirySeconds        int
	Amount               float64
	PayoutPercentAtEntry float64
}

// persistedTrade is the durable form: the timer handle is replaced by the
// absolute settlement deadline.
type persistedTrade struct {
	TradeID              int64            `json:"tradeId"`
	SignalID             string           `json:"signalId,omitempty"`
	Instrument           string           `json:"instrumentKey"`
	Direction            signal.Direction `json:"direction"`
	EntryTimeMs          int64            `json:"entryTimeMs"`
	EntryPrice           float64          `json:"entryPrice"`
	ExpirySeconds        int              `json:"expirySeconds"`
	Amount               float64          `json:"amount"`
	PayoutPercentAtEntry float64          `json:"payoutPercentAtEntry"`
	SettlementAtMs       int64            `json:"settlementAtMs"`
}

func (p persistedTrade) pending() PendingTrade {
	return PendingTrade{
		TradeID:              p.TradeID,
		SignalID:             p.SignalID,
		Instrument:           p.Instrument,
		Direction:            p.Direction,
		EntryTimeMs:          p.EntryTimeMs,
		EntryPrice:           p.EntryPrice,
		ExpirySeconds:        p.ExpirySeconds,
		Amount:               p.Amount,
		PayoutPercentAtEntry: p.PayoutPercentAtEntry,
	}
}

func persisted(t PendingTrade, settleAtMs int64) persistedTrade {
	return persistedTrade{
		TradeID:              t.TradeID,
		SignalID:             t.SignalID,
		Instrument:           t.Instrument,
		Direction:            t.Direction,
		EntryTimeMs:          t.EntryTimeMs,
		EntryPrice:           t.EntryPrice,
		ExpirySeconds:        t.ExpirySeconds,
		Amount:               t.Amount,
		PayoutPercentAtEntry: t.PayoutPercentAtEntry,
		SettlementAtMs:       settleAtMs,
	}
}
