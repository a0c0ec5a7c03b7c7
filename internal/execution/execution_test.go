package execution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fadebot-go/internal/config"
	"fadebot-go/internal/ledger"
	"fadebot-go/internal/quote"
	"fadebot-go/internal/settlement"
	"fadebot-go/internal/signal"
)

type priceMap map[string]float64

func (p priceMap) LastPrice(instrument string) (float64, bool) {
	v, ok := p[instrument]
	return v, ok
}

type stubBroker struct {
	err   error
	calls int
}

func (b *stubBroker) ExecuteTrade(ctx context.Context, direction signal.Direction, amount float64) error {
	b.calls++
	return b.err
}

type blockingBroker struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBroker) ExecuteTrade(ctx context.Context, direction signal.Direction, amount float64) error {
	close(b.entered)
	<-b.release
	return nil
}

type stubRecorder struct {
	mu      sync.Mutex
	ackID   int64
	fail    bool
	reports []ledger.ExecutionReport
}

func (s *stubRecorder) ReportExecution(ctx context.Context, report ledger.ExecutionReport) (ledger.ExecutionAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return ledger.ExecutionAck{}, errors.New("ledger unreachable")
	}
	s.reports = append(s.reports, report)
	return ledger.ExecutionAck{Success: true, TradeID: s.ackID}, nil
}

func (s *stubRecorder) FinalizeTrade(ctx context.Context, report ledger.FinalizeReport) error {
	return nil
}

func (s *stubRecorder) recorded() []ledger.ExecutionReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.ExecutionReport, len(s.reports))
	copy(out, s.reports)
	return out
}

type schedulerSpy struct {
	mu     sync.Mutex
	trades []settlement.PendingTrade
}

func (s *schedulerSpy) Schedule(t settlement.PendingTrade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
}

func (s *schedulerSpy) scheduled() []settlement.PendingTrade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]settlement.PendingTrade, len(s.trades))
	copy(out, s.trades)
	return out
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (m *manualClock) now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

func (m *manualClock) advance(d time.Duration) {
	m.mu.Lock()
	m.t = m.t.Add(d)
	m.mu.Unlock()
}

func testSignal() signal.Signal {
	return signal.Signal{
		ID:             "sig-1",
		Instrument:     "EURUSD_OTC",
		Direction:      signal.Put,
		StrategyID:     "tif",
		StrategyLabel:  "TIF-60",
		Confidence:     0.7,
		ExpirySeconds:  60,
		EntryPriceHint: 1.1230,
	}
}

func testTradingConfig() config.Trading {
	return config.Trading{Enabled: true, TradeAmount: 10, MinPayoutPercent: 80, ExpirySeconds: 60}
}

func quotedTable(percent float64) *quote.Table {
	table := quote.NewTable()
	table.Set(quote.Payout{Instrument: "EURUSD_OTC", Percent: percent, AsOf: time.Now()})
	return table
}

func TestExecuteSchedulesTradeOnAck(t *testing.T) {
	rec := &stubRecorder{ackID: 42}
	spy := &schedulerSpy{}
	c := NewCoordinator(zerolog.Nop(), &stubBroker{}, rec, priceMap{"EURUSD_OTC": 1.1234}, quotedTable(92), spy, 0)

	if err := c.Execute(context.Background(), testSignal(), testTradingConfig()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	reports := rec.recorded()
	if len(reports) != 1 || !reports[0].Result || reports[0].EntryPrice != 1.1234 {
		t.Fatalf("execution report = %+v", reports)
	}
	trades := spy.scheduled()
	if len(trades) != 1 {
		t.Fatalf("scheduled trades = %d, want 1", len(trades))
	}
	got := trades[0]
	if got.TradeID != 42 || got.SignalID != "sig-1" || got.Direction != signal.Put {
		t.Fatalf("pending trade = %+v", got)
	}
	if got.EntryPrice != 1.1234 || got.PayoutPercentAtEntry != 92 || got.Amount != 10 || got.ExpirySeconds != 60 {
		t.Fatalf("pending trade economics = %+v", got)
	}
	if c.Busy() {
		t.Fatalf("in-flight flag not cleared")
	}
}

func TestExecuteRejectsConcurrentSignal(t *testing.T) {
	b := &blockingBroker{entered: make(chan struct{}), release: make(chan struct{})}
	c := NewCoordinator(zerolog.Nop(), b, &stubRecorder{ackID: 1}, priceMap{"EURUSD_OTC": 1.1234}, quotedTable(92), &schedulerSpy{}, 0)

	done := make(chan error, 1)
	go func() { done <- c.Execute(context.Background(), testSignal(), testTradingConfig()) }()
	<-b.entered

	if err := c.Execute(context.Background(), testSignal(), testTradingConfig()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(b.release)
	if err := <-done; err != nil {
		t.Fatalf("first execute: %v", err)
	}
}

func TestExecuteCooldownWindow(t *testing.T) {
	clock := &manualClock{t: time.UnixMilli(1700000000000)}
	c := NewCoordinator(zerolog.Nop(), &stubBroker{}, &stubRecorder{ackID: 1}, priceMap{"EURUSD_OTC": 1.1234}, quotedTable(92), &schedulerSpy{}, 0)
	c.now = clock.now

	if err := c.Execute(context.Background(), testSignal(), testTradingConfig()); err != nil {
		t.Fatalf("first execute: %v", err)
	}

	clock.advance(time.Second)
	if err := c.Execute(context.Background(), testSignal(), testTradingConfig()); !errors.Is(err, ErrCooldown) {
		t.Fatalf("expected ErrCooldown inside window, got %v", err)
	}

	clock.advance(2 * time.Second)
	if err := c.Execute(context.Background(), testSignal(), testTradingConfig()); err != nil {
		t.Fatalf("execute after cooldown: %v", err)
	}
}

func TestExecuteBrokerFailureReportsAndStampsCooldown(t *testing.T) {
	clock := &manualClock{t: time.UnixMilli(1700000000000)}
	errBoom := errors.New("platform rejected order")
	rec := &stubRecorder{ackID: 1}
	spy := &schedulerSpy{}
	c := NewCoordinator(zerolog.Nop(), &stubBroker{err: errBoom}, rec, priceMap{"EURUSD_OTC": 1.1234}, quotedTable(92), spy, 0)
	c.now = clock.now

	err := c.Execute(context.Background(), testSignal(), testTradingConfig())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected broker error, got %v", err)
	}
	reports := rec.recorded()
	if len(reports) != 1 || reports[0].Result || reports[0].Error == "" {
		t.Fatalf("failure report = %+v", reports)
	}
	if len(spy.scheduled()) != 0 {
		t.Fatalf("failed trade must not reach settlement")
	}
	if c.Busy() {
		t.Fatalf("in-flight flag not cleared after failure")
	}

	if err := c.Execute(context.Background(), testSignal(), testTradingConfig()); !errors.Is(err, ErrCooldown) {
		t.Fatalf("failed attempt should still start the cooldown, got %v", err)
	}
}

func TestExecuteAbortsWithoutEntryPrice(t *testing.T) {
	rec := &stubRecorder{ackID: 1}
	spy := &schedulerSpy{}
	c := NewCoordinator(zerolog.Nop(), &stubBroker{}, rec, priceMap{}, quotedTable(92), spy, 0)

	sig := testSignal()
	sig.EntryPriceHint = 0
	if err := c.Execute(context.Background(), sig, testTradingConfig()); !errors.Is(err, ErrNoEntryPrice) {
		t.Fatalf("expected ErrNoEntryPrice, got %v", err)
	}
	if len(rec.recorded()) != 0 {
		t.Fatalf("aborted trade must not be reported")
	}
	if len(spy.scheduled()) != 0 {
		t.Fatalf("aborted trade must not be scheduled")
	}
}

func TestExecuteFallsBackToHintPrice(t *testing.T) {
	spy := &schedulerSpy{}
	c := NewCoordinator(zerolog.Nop(), &stubBroker{}, &stubRecorder{ackID: 7}, priceMap{}, quotedTable(92), spy, 0)

	if err := c.Execute(context.Background(), testSignal(), testTradingConfig()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	trades := spy.scheduled()
	if len(trades) != 1 || trades[0].EntryPrice != 1.1230 {
		t.Fatalf("hint price not used: %+v", trades)
	}
}

func TestExecuteSkipsSettlementWithoutTradeID(t *testing.T) {
	spy := &schedulerSpy{}
	c := NewCoordinator(zerolog.Nop(), &stubBroker{}, &stubRecorder{ackID: 0}, priceMap{"EURUSD_OTC": 1.1234}, quotedTable(92), spy, 0)

	if err := c.Execute(context.Background(), testSignal(), testTradingConfig()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(spy.scheduled()) != 0 {
		t.Fatalf("trade without id must not be scheduled")
	}
}

func TestExecutePayoutDefaultsToZero(t *testing.T) {
	spy := &schedulerSpy{}
	c := NewCoordinator(zerolog.Nop(), &stubBroker{}, &stubRecorder{ackID: 9}, priceMap{"EURUSD_OTC": 1.1234}, quote.NewTable(), spy, 0)

	if err := c.Execute(context.Background(), testSignal(), testTradingConfig()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	trades := spy.scheduled()
	if len(trades) != 1 || trades[0].PayoutPercentAtEntry != 0 {
		t.Fatalf("payout should default to zero: %+v", trades)
	}
}
