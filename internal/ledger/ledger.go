// Package ledger is the settlement boundary: executions and final outcomes
// are reported here, and trade identifiers come back from here.
package ledger

import (
	"context"

	"fadebot-go/internal/signal"
)

// Envelope type tags used on the wire and in paper records.
const (
	TypeTradeExecuted = "TRADE_EXECUTED"
	TypeFinalizeTrade = "FINALIZE_TRADE"
)

// ExecutionReport describes one broker call, successful or not.
type ExecutionReport struct {
	SignalID      string           `json:"signalId"`
	Result        bool             `json:"result"`
	TimestampMs   int64            `json:"timestampMs"`
	Direction     signal.Direction `json:"direction"`
	Amount        float64          `json:"amount"`
	InstrumentKey string           `json:"instrumentKey"`
	EntryPrice    float64          `json:"entryPrice"`
	Error         string           `json:"error,omitempty"`
}

// ExecutionAck is the ledger's answer to an ExecutionReport. TradeID is only
// assigned for recorded successful executions; zero means none was issued.
type ExecutionAck struct {
	Success bool  `json:"success"`
	TradeID int64 `json:"tradeId,omitempty"`
}

// FinalizeReport carries a settled trade's outcome.
type FinalizeReport struct {
	TradeID   int64          `json:"tradeId"`
	SignalID  string         `json:"signalId,omitempty"`
	ExitPrice float64        `json:"exitPrice"`
	Result    signal.Outcome `json:"result"`
	Profit    float64        `json:"profit"`
}

// Recorder is the boundary contract. ReportExecution must answer; FinalizeTrade
// is best-effort and the caller swallows its error.
type Recorder interface {
	ReportExecution(ctx context.Context, report ExecutionReport) (ExecutionAck, error)
	FinalizeTrade(ctx context.Context, report FinalizeReport) error
}
