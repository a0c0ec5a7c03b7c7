// Package broker abstracts the venue-side order placement call.
package broker

import (
	"context"

	"github.com/rs/zerolog"

	"fadebot-go/internal/signal"
)

// Broker places one directional bet. Single call, no streaming; retries are
// the caller's business.
type Broker interface {
	ExecuteTrade(ctx context.Context, direction signal.Direction, amount float64) error
}

// Paper logs placements instead of submitting them, for dry runs.
type Paper struct{ log zerolog.Logger }

// NewPaper wraps a zerolog logger for paper-mode placements.
func NewPaper(log zerolog.Logger) *Paper { return &Paper{log: log} }

// ExecuteTrade logs the bet and reports success unless the context is done.
func (p *Paper) ExecuteTrade(ctx context.Context, direction signal.Direction, amount float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.log.Info().Str("direction", string(direction)).Float64("amount", amount).Msg("execute trade (paper)")
	return nil
}
