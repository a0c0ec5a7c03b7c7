package strategy

import (
	"sync"
	"time"

	"fadebot-go/internal/signal"
)

// Runner owns per-instrument tick windows and rolling candles and feeds the
// pure detector on every tick.
type Runner struct {
	cfg          Config
	window       time.Duration
	candlePeriod time.Duration
	maxCandles   int

	mu     sync.Mutex
	series map[string]*tickSeries
}

type tickSeries struct {
	ticks   []signal.Tick
	maxTs   time.Time
	builder candleBuilder
}

// NewRunner builds a runner with 60s candles sized to the config's
// standardization needs.
func NewRunner(cfg Config) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		cfg:          cfg,
		window:       time.Duration(cfg.WindowSeconds) * time.Second,
		candlePeriod: time.Minute,
		maxCandles:   3 * cfg.MinCandlesForStd,
		series:       make(map[string]*tickSeries),
	}
}

// OnTick folds the tick into its instrument's window and evaluates.
func (r *Runner) OnTick(t signal.Tick) Evaluation {
	if t.Instrument == "" || t.Price <= 0 {
		return Evaluation{Reason: "tick dropped", Diagnostics: map[string]float64{"tickCount": 0}}
	}

	r.mu.Lock()
	ts := r.series[t.Instrument]
	if ts == nil {
		ts = &tickSeries{builder: candleBuilder{period: r.candlePeriod, max: r.maxCandles}}
		r.series[t.Instrument] = ts
	}
	ts.append(t, r.window)
	ts.builder.add(t)
	window := append([]signal.Tick(nil), ts.ticks...)
	candles := ts.builder.completed()
	r.mu.Unlock()

	return Evaluate(window, candles, r.cfg)
}

func (s *tickSeries) append(t signal.Tick, window time.Duration) {
	s.ticks = append(s.ticks, t)
	if t.Ts.After(s.maxTs) {
		s.maxTs = t.Ts
	}
	cutoff := s.maxTs.Add(-window)
	idx := 0
	for i, tk := range s.ticks {
		if tk.Ts.After(cutoff) {
			idx = i
			break
		}
		idx = i + 1
	}
	if idx > 0 && idx <= len(s.ticks) {
		s.ticks = s.ticks[idx:]
	}
}

// candleBuilder aggregates ticks into fixed-period candles. Ticks for already
// sealed buckets are dropped.
type candleBuilder struct {
	period  time.Duration
	max     int
	current *signal.Candle
	done    []signal.Candle
}

func (b *candleBuilder) add(t signal.Tick) {
	bucket := t.Ts.Truncate(b.period)
	switch {
	case b.current == nil:
		b.current = newCandle(t, bucket)
		return
	case bucket.After(b.current.Ts):
		b.done = append(b.done, *b.current)
		if b.max > 0 && len(b.done) > b.max {
			b.done = b.done[len(b.done)-b.max:]
		}
		b.current = newCandle(t, bucket)
		return
	case bucket.Before(b.current.Ts):
		return
	}

	if t.Price > b.current.High {
		b.current.High = t.Price
	}
	if t.Price < b.current.Low {
		b.current.Low = t.Price
	}
	b.current.Close = t.Price
	b.current.Volume++
}

func (b *candleBuilder) completed() []signal.Candle {
	out := make([]signal.Candle, len(b.done))
	copy(out, b.done)
	return out
}

func newCandle(t signal.Tick, bucket time.Time) *signal.Candle {
	return &signal.Candle{
		Instrument: t.Instrument,
		Ts:         bucket,
		Open:       t.Price,
		High:       t.Price,
		Low:        t.Price,
		Close:      t.Price,
		Volume:     1,
	}
}
