package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type payoutEntry struct {
	Asset   string  `json:"asset"`
	Percent float64 `json:"percent"`
}

// Poller refreshes a Table from the broker payout endpoint.
type Poller struct {
	log      zerolog.Logger
	table    *Table
	client   *http.Client
	baseURL  string
	interval time.Duration
}

// NewPoller builds a poller against baseURL; interval defaults to 5s when
// non-positive.
func NewPoller(log zerolog.Logger, table *Table, baseURL string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		log:      log,
		table:    table,
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		interval: interval,
	}
}

// Run polls until the context is cancelled. Poll failures are logged and the
// loop keeps going; stale quotes stay in the table until replaced.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.log.Warn().Err(err).Msg("initial payout poll failed")
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.log.Warn().Err(err).Msg("payout poll failed")
			}
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/payouts", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "fadebot-go/1.0")
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var entries []payoutEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	now := time.Now().UTC()
	for _, e := range entries {
		if e.Asset == "" {
			continue
		}
		p.table.Set(Payout{Instrument: e.Asset, Percent: e.Percent, AsOf: now})
	}
	return nil
}
