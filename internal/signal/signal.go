// Package signal standardizes payloads shared between data ingestion, strategy, and settlement layers.
package signal

import "time"

// Direction is the side of a time-boxed directional bet.
type Direction string

const (
	// Call bets that the exit price settles above the entry price.
	Call Direction = "CALL"
	// Put bets that the exit price settles below the entry price.
	Put Direction = "PUT"
)

// Outcome classifies a settled trade.
type Outcome string

const (
	// Win pays the entry payout percentage on the staked amount.
	Win Outcome = "WIN"
	// Loss forfeits the staked amount.
	Loss Outcome = "LOSS"
	// Tie returns the stake untouched.
	Tie Outcome = "TIE"
)

// StatusDetected marks a freshly produced signal that has not been acted on.
const StatusDetected = "detected"

// Tick models a single observed price for an instrument. Producers may deliver
// ticks out of order; consumers order by Ts, never by arrival.
type Tick struct {
	Instrument string
	Price      float64
	Ts         time.Time
}

// Candle aggregates ticks over one fixed period (one minute by default).
type Candle struct {
	Instrument string
	Ts         time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
}

// Signal expresses a directional bet suggestion produced by a strategy
// implementation. A Signal is immutable once produced.
type Signal struct {
	ID             string
	Ts             time.Time
	Instrument     string
	Direction      Direction
	StrategyID     string
	StrategyLabel  string
	Confidence     float64
	ExpirySeconds  int
	EntryPriceHint float64
	Indicators     map[string]float64
	Status         string
}
