// Package stats tallies settled signal outcomes for the strategy layer.
package stats

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"fadebot-go/internal/signal"
)

// Tracker receives per-signal outcomes after settlement. Callers treat the
// update as fire-and-forget.
type Tracker interface {
	UpdateSignalResult(signalID string, outcome signal.Outcome) error
}

// Summary is a read-only view of the tallies. WinRatePercent excludes ties
// from the denominator.
type Summary struct {
	Wins           int
	Losses         int
	Ties           int
	WinRatePercent float64
	LossStreak     int
	MaxLossStreak  int
}

// Book is the in-process Tracker. Ties neither extend nor break the
// consecutive-loss streak.
type Book struct {
	log zerolog.Logger

	mu            sync.Mutex
	wins          int
	losses        int
	ties          int
	lossStreak    int
	maxLossStreak int
}

// NewBook returns an empty tally book.
func NewBook(log zerolog.Logger) *Book {
	return &Book{log: log}
}

func (b *Book) UpdateSignalResult(signalID string, outcome signal.Outcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch signal.Outcome(strings.ToUpper(string(outcome))) {
	case signal.Win:
		b.wins++
		b.lossStreak = 0
	case signal.Loss:
		b.losses++
		b.lossStreak++
		if b.lossStreak > b.maxLossStreak {
			b.maxLossStreak = b.lossStreak
		}
	case signal.Tie:
		b.ties++
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}
	b.log.Debug().
		Str("signal_id", signalID).
		Str("outcome", string(outcome)).
		Int("wins", b.wins).
		Int("losses", b.losses).
		Int("loss_streak", b.lossStreak).
		Msg("signal result recorded")
	return nil
}

// ConsecutiveLosses reports the current run of losses.
func (b *Book) ConsecutiveLosses() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lossStreak
}

// Snapshot returns the current tallies.
func (b *Book) Snapshot() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()

	summary := Summary{
		Wins:          b.wins,
		Losses:        b.losses,
		Ties:          b.ties,
		LossStreak:    b.lossStreak,
		MaxLossStreak: b.maxLossStreak,
	}
	if decided := b.wins + b.losses; decided > 0 {
		summary.WinRatePercent = float64(b.wins) / float64(decided) * 100
	}
	return summary
}
