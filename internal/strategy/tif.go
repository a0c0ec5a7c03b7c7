// Package strategy contains trading signal generation logic wired into ticks.
package strategy

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"fadebot-go/internal/signal"
)

// StrategyID identifies the imbalance-fade detector on emitted signals.
const StrategyID = "tif"

// Config carries the detector tunables. Non-positive values take the defaults.
type Config struct {
	WindowSeconds       int
	MinTicks            int
	ImbalanceThreshold  float64
	DeltaZThreshold     float64
	StallLookbackTicks  int
	StallRatioThreshold float64
	BaseConfidence      float64
	MaxConfidence       float64
	MinCandlesForStd    int
	ExpirySeconds       int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		WindowSeconds:       20,
		MinTicks:            80,
		ImbalanceThreshold:  0.65,
		DeltaZThreshold:     2.0,
		StallLookbackTicks:  10,
		StallRatioThreshold: 0.4,
		BaseConfidence:      0.60,
		MaxConfidence:       0.90,
		MinCandlesForStd:    10,
		ExpirySeconds:       60,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WindowSeconds <= 0 {
		c.WindowSeconds = def.WindowSeconds
	}
	if c.MinTicks <= 0 {
		c.MinTicks = def.MinTicks
	}
	if c.ImbalanceThreshold <= 0 {
		c.ImbalanceThreshold = def.ImbalanceThreshold
	}
	if c.DeltaZThreshold <= 0 {
		c.DeltaZThreshold = def.DeltaZThreshold
	}
	if c.StallLookbackTicks <= 0 {
		c.StallLookbackTicks = def.StallLookbackTicks
	}
	if c.StallRatioThreshold <= 0 {
		c.StallRatioThreshold = def.StallRatioThreshold
	}
	if c.BaseConfidence <= 0 {
		c.BaseConfidence = def.BaseConfidence
	}
	if c.MaxConfidence <= 0 {
		c.MaxConfidence = def.MaxConfidence
	}
	if c.MinCandlesForStd <= 0 {
		c.MinCandlesForStd = def.MinCandlesForStd
	}
	if c.ExpirySeconds <= 0 {
		c.ExpirySeconds = def.ExpirySeconds
	}
	return c
}

// Label renders the strategy label for the configured expiry, e.g. "TIF-60".
func (c Config) Label() string {
	return fmt.Sprintf("TIF-%d", c.withDefaults().ExpirySeconds)
}

// Evaluation is the detector verdict for one window. Signal is nil when no
// trade sets up and Reason says why; Diagnostics is populated either way.
type Evaluation struct {
	Signal      *signal.Signal
	Reason      string
	Diagnostics map[string]float64
}

// Evaluate runs the imbalance-fade detection over a tick window plus optional
// candles. It is pure: identical inputs and config produce the identical
// evaluation, including the signal ID.
func Evaluate(ticks []signal.Tick, candles []signal.Candle, cfg Config) Evaluation {
	cfg = cfg.withDefaults()
	diag := map[string]float64{"tickCount": 0}

	if len(ticks) == 0 {
		return Evaluation{Reason: "insufficient ticks: empty window", Diagnostics: diag}
	}

	now := ticks[0].Ts
	for _, t := range ticks[1:] {
		if t.Ts.After(now) {
			now = t.Ts
		}
	}
	cutoff := now.Add(-time.Duration(cfg.WindowSeconds) * time.Second)

	window := make([]signal.Tick, 0, len(ticks))
	for _, t := range ticks {
		if !t.Ts.Before(cutoff) && !t.Ts.After(now) {
			window = append(window, t)
		}
	}
	sort.SliceStable(window, func(i, j int) bool { return window[i].Ts.Before(window[j].Ts) })

	diag["tickCount"] = float64(len(window))
	if len(window) < cfg.MinTicks {
		return Evaluation{
			Reason:      fmt.Sprintf("insufficient ticks: %d < %d", len(window), cfg.MinTicks),
			Diagnostics: diag,
		}
	}

	var up, down int
	for i := 1; i < len(window); i++ {
		switch diff := window[i].Price - window[i-1].Price; {
		case diff > 0:
			up++
		case diff < 0:
			down++
		}
	}
	diag["up"] = float64(up)
	diag["down"] = float64(down)
	if up+down == 0 {
		return Evaluation{Reason: "no price movement", Diagnostics: diag}
	}

	imbalance := float64(up-down) / float64(up+down)
	diag["imbalance"] = imbalance
	if math.Abs(imbalance) < cfg.ImbalanceThreshold {
		return Evaluation{Reason: "imbalance below threshold", Diagnostics: diag}
	}

	delta := window[len(window)-1].Price - window[0].Price
	diag["delta"] = delta
	deltaZ := standardizeDelta(delta, window, candles, cfg.MinCandlesForStd)
	diag["deltaZ"] = deltaZ
	if deltaZ < cfg.DeltaZThreshold {
		return Evaluation{Reason: "move not significant", Diagnostics: diag}
	}

	stallRatio, stallMoves := stall(window, cfg.StallLookbackTicks, imbalance)
	diag["stallMoves"] = float64(stallMoves)
	diag["stallRatio"] = stallRatio
	if stallMoves < 3 {
		return Evaluation{Reason: "stall window too thin", Diagnostics: diag}
	}
	if stallRatio < cfg.StallRatioThreshold {
		return Evaluation{Reason: "no stall detected", Diagnostics: diag}
	}

	direction := signal.Call
	if imbalance > 0 {
		direction = signal.Put
	}

	confidence := cfg.BaseConfidence +
		math.Min((math.Abs(imbalance)-cfg.ImbalanceThreshold)*0.3, 0.15) +
		math.Min((deltaZ-cfg.DeltaZThreshold)*0.05, 0.10) +
		math.Min((stallRatio-cfg.StallRatioThreshold)*0.1, 0.05)
	confidence = math.Min(confidence, cfg.MaxConfidence)
	diag["confidence"] = confidence

	instrument := window[0].Instrument
	sig := &signal.Signal{
		ID:             signalID(instrument, now, direction),
		Ts:             now,
		Instrument:     instrument,
		Direction:      direction,
		StrategyID:     StrategyID,
		StrategyLabel:  cfg.Label(),
		Confidence:     confidence,
		ExpirySeconds:  cfg.ExpirySeconds,
		EntryPriceHint: window[len(window)-1].Price,
		Indicators:     diag,
		Status:         signal.StatusDetected,
	}
	return Evaluation{Signal: sig, Diagnostics: diag}
}

// standardizeDelta scales |delta| to a z-score. With enough candles the unit
// is the stddev of close-to-close moves; otherwise the stddev of tick-to-tick
// moves under diffusion scaling.
func standardizeDelta(delta float64, window []signal.Tick, candles []signal.Candle, minCandles int) float64 {
	if len(candles) >= minCandles {
		closes := make([]signal.Candle, len(candles))
		copy(closes, candles)
		sort.SliceStable(closes, func(i, j int) bool { return closes[i].Ts.Before(closes[j].Ts) })
		diffs := make([]float64, 0, len(closes)-1)
		for i := 1; i < len(closes); i++ {
			diffs = append(diffs, closes[i].Close-closes[i-1].Close)
		}
		if sd := stat.StdDev(diffs, nil); sd > 0 {
			return math.Abs(delta) / sd
		}
		return 0
	}

	diffs := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		diffs = append(diffs, window[i].Price-window[i-1].Price)
	}
	if sd := stat.StdDev(diffs, nil); sd > 0 {
		return math.Abs(delta) / (sd * math.Sqrt(float64(len(window))))
	}
	return 0
}

// stall measures how much the tail of the window pushes against the dominant
// direction. Returns the opposing-move fraction and the number of moves seen.
func stall(window []signal.Tick, lookback int, imbalance float64) (float64, int) {
	if lookback > len(window) {
		lookback = len(window)
	}
	tail := window[len(window)-lookback:]

	var with, against int
	for i := 1; i < len(tail); i++ {
		diff := tail[i].Price - tail[i-1].Price
		switch {
		case diff == 0:
			continue
		case (diff > 0) == (imbalance > 0):
			with++
		default:
			against++
		}
	}
	moves := with + against
	if moves == 0 {
		return 0, 0
	}
	return float64(against) / float64(moves), moves
}

func signalID(instrument string, ts time.Time, direction signal.Direction) string {
	seed := fmt.Sprintf("%s|%d|%s", instrument, ts.UnixMilli(), direction)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}
