package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type paperExecutionRecord struct {
	executionEnvelope
	TradeID int64 `json:"tradeId,omitempty"`
}

// Paper is an in-process Recorder for dry runs: it assigns trade IDs, keeps a
// decimal bankroll, and appends every boundary event as a JSON line for later
// inspection.
type Paper struct {
	log zerolog.Logger

	mu       sync.Mutex
	nextID   int64
	balance  decimal.Decimal
	realized decimal.Decimal
	peak     decimal.Decimal
	maxDraw  float64
	settled  int
	file     *os.File
	enc      *json.Encoder
}

// PaperSnapshot is a read-only bankroll view. It is informational only and
// never gates admission.
type PaperSnapshot struct {
	Balance            decimal.Decimal
	RealizedPnL        decimal.Decimal
	MaxDrawdownPercent float64
	SettledTrades      int
}

// NewPaper seeds the bankroll and opens the optional JSONL record file; an
// empty path keeps everything in memory.
func NewPaper(log zerolog.Logger, startingCash float64, path string) (*Paper, error) {
	p := &Paper{
		log:     log,
		nextID:  1,
		balance: decimal.NewFromFloat(startingCash),
	}
	p.peak = p.balance
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		p.file = file
		p.enc = json.NewEncoder(file)
	}
	return p, nil
}

// ReportExecution records the execution and assigns the next trade ID when the
// broker call succeeded. Failed executions are recorded without an ID.
func (p *Paper) ReportExecution(ctx context.Context, report ExecutionReport) (ExecutionAck, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ack := ExecutionAck{Success: true}
	if report.Result {
		ack.TradeID = p.nextID
		p.nextID++
	}
	p.writeLocked(paperExecutionRecord{
		executionEnvelope: executionEnvelope{Type: TypeTradeExecuted, ExecutionReport: report},
		TradeID:           ack.TradeID,
	})
	return ack, nil
}

// FinalizeTrade applies the settled profit to the bankroll and records the
// outcome.
func (p *Paper) FinalizeTrade(ctx context.Context, report FinalizeReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	profit := decimal.NewFromFloat(report.Profit)
	p.balance = p.balance.Add(profit)
	p.realized = p.realized.Add(profit)
	if p.balance.GreaterThan(p.peak) {
		p.peak = p.balance
	} else if p.peak.IsPositive() {
		draw, _ := p.peak.Sub(p.balance).Div(p.peak).Mul(decimal.NewFromInt(100)).Float64()
		if draw > p.maxDraw {
			p.maxDraw = draw
		}
	}
	p.settled++
	p.writeLocked(finalizeEnvelope{Type: TypeFinalizeTrade, FinalizeReport: report})
	p.log.Info().
		Int64("trade_id", report.TradeID).
		Str("result", string(report.Result)).
		Float64("profit", report.Profit).
		Str("balance", p.balance.StringFixed(2)).
		Msg("trade finalized")
	return nil
}

// Snapshot returns the current bankroll view.
func (p *Paper) Snapshot() PaperSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PaperSnapshot{
		Balance:            p.balance,
		RealizedPnL:        p.realized,
		MaxDrawdownPercent: p.maxDraw,
		SettledTrades:      p.settled,
	}
}

// Close flushes and closes the record file handle.
func (p *Paper) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	p.enc = nil
	return err
}

func (p *Paper) writeLocked(record any) {
	if p.enc == nil {
		return
	}
	if err := p.enc.Encode(record); err != nil {
		p.log.Warn().Err(err).Msg("ledger record write failed")
	}
}
