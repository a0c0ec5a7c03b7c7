// Package exchange hosts tick feed adapters and the last-price cache the
// settlement layer reads exit prices from.
package exchange

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fadebot-go/internal/metrics"
	"fadebot-go/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live trades from Binance public websockets.
	ProviderBinance = "binance"
)

const defaultTickInterval = 500 * time.Millisecond

// Feed represents a pluggable market data stream implementation. It caches the
// most recent price per instrument, so it doubles as the quote.PriceSource the
// execution and settlement layers resolve entry and exit prices from.
type Feed struct {
	provider     string
	log          zerolog.Logger
	tickInterval time.Duration

	mu          sync.RWMutex
	instruments []string
	lastPrices  map[string]float64
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithTickInterval overrides the synthetic tick cadence of the stub provider.
func WithTickInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.tickInterval = d
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, instruments []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		log:          log,
		tickInterval: defaultTickInterval,
		lastPrices:   make(map[string]float64),
	}
	f.setInstruments(instruments)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetInstruments replaces the tracked instrument list (deduplicated, sorted
// for determinism). The binance provider picks the change up on its next
// reconnect; the stub applies it on the next tick.
func (f *Feed) SetInstruments(instruments []string) {
	f.setInstruments(instruments)
}

func (f *Feed) setInstruments(instruments []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(instruments))
	for _, name := range instruments {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		unique[name] = struct{}{}
	}
	f.instruments = f.instruments[:0]
	for name := range unique {
		f.instruments = append(f.instruments, name)
	}
	sort.Strings(f.instruments)
}

func (f *Feed) snapshotInstruments() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.instruments))
	copy(out, f.instruments)
	return out
}

// LastPrice returns the most recent observed price for the instrument.
func (f *Feed) LastPrice(instrument string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	px, ok := f.lastPrices[instrument]
	return px, ok
}

// Run pushes ticks onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Tick) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

// emit caches the price and delivers the tick downstream.
func (f *Feed) emit(ctx context.Context, out chan<- signal.Tick, tick signal.Tick) error {
	f.mu.Lock()
	f.lastPrices[tick.Instrument] = tick.Price
	f.mu.Unlock()
	select {
	case out <- tick:
		metrics.TicksTotal.WithLabelValues(tick.Instrument).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runStub walks each instrument one pip at a time, mostly upward with a down
// move mixed in every few ticks so downstream consumers see both sides.
func (f *Feed) runStub(ctx context.Context, out chan<- signal.Tick) error {
	ticker := time.NewTicker(f.tickInterval)
	defer ticker.Stop()

	const pip = 0.0001
	px := 1.1000
	n := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			n++
			if n%15 == 0 {
				px -= pip
			} else {
				px += pip
			}
			for _, name := range f.snapshotInstruments() {
				if err := f.emit(ctx, out, signal.Tick{Instrument: name, Price: px, Ts: ts}); err != nil {
					return err
				}
			}
		}
	}
}
