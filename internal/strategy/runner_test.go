package strategy

import (
	"testing"
	"time"

	"fadebot-go/internal/signal"
)

func TestRunnerEmitsSignalAfterWindowFills(t *testing.T) {
	runner := NewRunner(Config{})
	now := time.Unix(1700000000, 0).UTC()

	var last Evaluation
	fired := 0
	for _, tk := range fadeTicks(now, 1) {
		last = runner.OnTick(tk)
		if last.Signal != nil {
			fired++
		}
	}
	if last.Signal == nil {
		t.Fatalf("expected signal on final tick, got reason=%q", last.Reason)
	}
	if last.Signal.Direction != signal.Put {
		t.Fatalf("expected PUT, got %s", last.Signal.Direction)
	}
	if fired == 0 {
		t.Fatalf("expected at least one firing evaluation")
	}
}

func TestRunnerKeepsInstrumentsSeparate(t *testing.T) {
	runner := NewRunner(Config{})
	now := time.Unix(1700000000, 0).UTC()

	for _, tk := range fadeTicks(now, 1)[:99] {
		runner.OnTick(tk)
	}
	other := signal.Tick{Instrument: "GBPUSD_OTC", Price: 1.25, Ts: now}
	eval := runner.OnTick(other)
	if eval.Diagnostics["tickCount"] != 1 {
		t.Fatalf("instruments must not share windows, tickCount=%v", eval.Diagnostics["tickCount"])
	}
}

func TestRunnerPrunesStaleTicks(t *testing.T) {
	runner := NewRunner(Config{})
	base := time.Unix(1700000000, 0).UTC()

	runner.OnTick(signal.Tick{Instrument: testInstrument, Price: 2.0, Ts: base.Add(-40 * time.Second)})

	var last Evaluation
	for _, tk := range fadeTicks(base, 1) {
		last = runner.OnTick(tk)
	}
	if last.Signal == nil {
		t.Fatalf("stale tick must not block the signal, reason=%q", last.Reason)
	}
	if last.Diagnostics["tickCount"] != 100 {
		t.Fatalf("expected 100 in-window ticks, got %v", last.Diagnostics["tickCount"])
	}
}

func TestRunnerDropsUnusableTicks(t *testing.T) {
	runner := NewRunner(Config{})

	eval := runner.OnTick(signal.Tick{Instrument: "", Price: 1.1, Ts: time.Now()})
	if eval.Reason != "tick dropped" {
		t.Fatalf("expected drop for empty instrument, got %q", eval.Reason)
	}
	eval = runner.OnTick(signal.Tick{Instrument: testInstrument, Price: 0, Ts: time.Now()})
	if eval.Reason != "tick dropped" {
		t.Fatalf("expected drop for non-positive price, got %q", eval.Reason)
	}
}

func TestCandleBuilderSealsAndCaps(t *testing.T) {
	b := candleBuilder{period: time.Minute, max: 3}
	base := time.Unix(1700000000, 0).UTC().Truncate(time.Minute)

	b.add(signal.Tick{Instrument: testInstrument, Price: 10, Ts: base.Add(time.Second)})
	b.add(signal.Tick{Instrument: testInstrument, Price: 12, Ts: base.Add(20 * time.Second)})
	b.add(signal.Tick{Instrument: testInstrument, Price: 9, Ts: base.Add(40 * time.Second)})
	b.add(signal.Tick{Instrument: testInstrument, Price: 10, Ts: base.Add(time.Minute)})

	done := b.completed()
	if len(done) != 1 {
		t.Fatalf("expected 1 sealed candle, got %d", len(done))
	}
	c := done[0]
	if c.Open != 10 || c.High != 12 || c.Low != 9 || c.Close != 9 || c.Volume != 3 {
		t.Fatalf("unexpected sealed candle: %+v", c)
	}
	if !c.Ts.Equal(base) {
		t.Fatalf("sealed candle bucket should be %v, got %v", base, c.Ts)
	}

	for minute := 2; minute <= 4; minute++ {
		b.add(signal.Tick{Instrument: testInstrument, Price: 10, Ts: base.Add(time.Duration(minute) * time.Minute)})
	}
	done = b.completed()
	if len(done) != 3 {
		t.Fatalf("cap of 3 should hold, got %d", len(done))
	}
	if !done[0].Ts.Equal(base.Add(time.Minute)) {
		t.Fatalf("oldest retained candle should be minute 1, got %v", done[0].Ts)
	}

	b.add(signal.Tick{Instrument: testInstrument, Price: 99, Ts: base.Add(30 * time.Second)})
	if got := b.completed(); len(got) != 3 {
		t.Fatalf("stale-bucket tick must be dropped, got %d candles", len(got))
	}
}
