// Package quote tracks broker payout percentages per instrument.
package quote

import (
	"sort"
	"sync"
	"time"
)

// Payout is a point-in-time payout quote for one instrument.
type Payout struct {
	Instrument string
	Percent    float64
	AsOf       time.Time
}

// Provider reports the current payout quote for an instrument. The second
// return is false when no usable quote exists.
type Provider interface {
	CurrentPayout(instrument string) (Payout, bool)
}

// PriceSource exposes the most recent traded price per instrument.
type PriceSource interface {
	LastPrice(instrument string) (float64, bool)
}

// Table is an in-memory Provider, fed by a Poller or set directly.
type Table struct {
	mu     sync.RWMutex
	quotes map[string]Payout
}

// NewTable returns an empty quote table.
func NewTable() *Table {
	return &Table{quotes: make(map[string]Payout)}
}

// Set stores or replaces the quote for its instrument. Quotes with a
// non-positive percent are dropped instead, so a broker reporting zero
// effectively withdraws the instrument.
func (t *Table) Set(p Payout) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p.Percent <= 0 {
		delete(t.quotes, p.Instrument)
		return
	}
	t.quotes[p.Instrument] = p
}

func (t *Table) CurrentPayout(instrument string) (Payout, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.quotes[instrument]
	return p, ok
}

// Best returns the quote with the highest payout at or above minPercent.
// Ties break toward the lexically smaller instrument so repeated calls are
// stable.
func (t *Table) Best(minPercent float64) (Payout, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var best Payout
	found := false
	for _, p := range t.quotes {
		if p.Percent < minPercent {
			continue
		}
		if !found || p.Percent > best.Percent ||
			(p.Percent == best.Percent && p.Instrument < best.Instrument) {
			best = p
			found = true
		}
	}
	return best, found
}

// Instruments lists all quoted instruments in sorted order.
func (t *Table) Instruments() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.quotes))
	for name := range t.quotes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
