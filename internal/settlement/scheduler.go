package settlement

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fadebot-go/internal/metrics"
	"fadebot-go/internal/store"
)

// DefaultGrace pads the expiry so the venue's own settlement lands first.
const DefaultGrace = 800 * time.Millisecond

// pendingKey is the single well-known store key holding the durable list.
const pendingKey = "pending_trades"

// timerHandle is the cancelable deferred task behind a scheduled settlement.
type timerHandle interface {
	Stop() bool
}

type entry struct {
	trade      PendingTrade
	settleAtMs int64
	timer      timerHandle
}

// Scheduler arms one deferred resolution per accepted trade and keeps the
// durable store in sync so trades survive restarts. Resolve is idempotent;
// duplicate timer fires and concurrent deliveries collapse to one settlement.
type Scheduler struct {
	log      zerolog.Logger
	store    store.KV
	resolver *Resolver
	grace    time.Duration
	now      func() time.Time
	after    func(d time.Duration, fn func()) timerHandle

	mu      sync.Mutex
	pending map[int64]*entry
}

// NewScheduler builds a scheduler over the durable store; graceMs falls back
// to DefaultGrace when non-positive.
func NewScheduler(log zerolog.Logger, kv store.KV, resolver *Resolver, graceMs int) *Scheduler {
	grace := DefaultGrace
	if graceMs > 0 {
		grace = time.Duration(graceMs) * time.Millisecond
	}
	return &Scheduler{
		log:      log,
		store:    kv,
		resolver: resolver,
		grace:    grace,
		now:      time.Now,
		after: func(d time.Duration, fn func()) timerHandle {
			return time.AfterFunc(d, fn)
		},
		pending: make(map[int64]*entry),
	}
}

// Schedule accepts the trade, arms its settlement timer for
// expiry plus grace, and persists the pending list.
func (s *Scheduler) Schedule(t PendingTrade) {
	if t.TradeID <= 0 {
		s.log.Warn().Int64("trade_id", t.TradeID).Msg("trade without id not scheduled")
		return
	}
	delay := time.Duration(t.ExpirySeconds)*time.Second + s.grace
	settleAt := s.now().Add(delay).UnixMilli()

	s.mu.Lock()
	if _, exists := s.pending[t.TradeID]; exists {
		s.mu.Unlock()
		s.log.Warn().Int64("trade_id", t.TradeID).Msg("trade already scheduled")
		return
	}
	e := &entry{trade: t, settleAtMs: settleAt}
	id := t.TradeID
	e.timer = s.after(delay, func() { s.Resolve(id) })
	s.pending[id] = e
	metrics.PendingTrades.Set(float64(len(s.pending)))
	s.persistLocked()
	s.mu.Unlock()

	s.log.Info().
		Int64("trade_id", id).
		Str("instrument", t.Instrument).
		Dur("delay", delay).
		Msg("settlement scheduled")
}

// Resolve settles the trade if it is still pending. The entry is removed
// before any settlement work, so a second call for the same id is a no-op.
func (s *Scheduler) Resolve(tradeID int64) {
	s.mu.Lock()
	e, ok := s.pending[tradeID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, tradeID)
	metrics.PendingTrades.Set(float64(len(s.pending)))
	s.persistLocked()
	s.mu.Unlock()

	if e.timer != nil {
		e.timer.Stop()
	}
	s.resolver.Settle(e.trade)
}

// Recover replays the durable pending list once at startup. Trades whose
// deadline already passed settle immediately; the rest re-arm for the
// remaining delay.
func (s *Scheduler) Recover() error {
	raw, ok, err := s.store.Get(pendingKey)
	if err != nil {
		return fmt.Errorf("read pending list: %w", err)
	}
	if !ok {
		return nil
	}
	var list []persistedTrade
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("decode pending list: %w", err)
	}

	nowMs := s.now().UnixMilli()
	var due []int64
	s.mu.Lock()
	for _, p := range list {
		if _, exists := s.pending[p.TradeID]; exists {
			continue
		}
		e := &entry{trade: p.pending(), settleAtMs: p.SettlementAtMs}
		if remaining := time.Duration(p.SettlementAtMs-nowMs) * time.Millisecond; remaining > 0 {
			id := p.TradeID
			e.timer = s.after(remaining, func() { s.Resolve(id) })
		} else {
			due = append(due, p.TradeID)
		}
		s.pending[p.TradeID] = e
	}
	metrics.PendingTrades.Set(float64(len(s.pending)))
	s.mu.Unlock()

	for _, id := range due {
		s.log.Info().Int64("trade_id", id).Msg("late settlement after restart")
		s.Resolve(id)
	}
	return nil
}

// Stop cancels armed timers without resolving; the durable list keeps the
// trades for the next start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.pending {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}

// PendingCount reports how many trades await settlement.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) persistLocked() {
	if len(s.pending) == 0 {
		if err := s.store.Remove(pendingKey); err != nil {
			s.log.Warn().Err(err).Msg("pending list remove failed")
		}
		return
	}
	list := make([]persistedTrade, 0, len(s.pending))
	for _, e := range s.pending {
		list = append(list, persisted(e.trade, e.settleAtMs))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].TradeID < list[j].TradeID })
	raw, err := json.Marshal(list)
	if err != nil {
		s.log.Warn().Err(err).Msg("pending list encode failed")
		return
	}
	if err := s.store.Put(pendingKey, raw); err != nil {
		s.log.Warn().Err(err).Msg("pending list persist failed")
	}
}
