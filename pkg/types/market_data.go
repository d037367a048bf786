package types

import "time"

// Quote represents the current market quote for an instrument
type Quote struct {
	Symbol            string    `json:"symbol"`
	Bid               float64   `json:"bid"`
	Ask               float64   `json:"ask"`
	Last              float64   `json:"last"`
	Volume            float64   `json:"volume"`
	ImpliedVolatility float64   `json:"implied_volatility,omitempty"` // Options only, annualized
	Timestamp         time.Time `json:"timestamp"`
}

// Mid returns the bid/ask midpoint, falling back to the last trade
// when one side of the book is empty.
func (q Quote) Mid() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return q.Last
}

// PriceBar represents one day of historical price data
type PriceBar struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// MarketHours describes the current trading session state
type MarketHours struct {
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}

// Signal is a trade idea produced by an upstream screener.
// Confidence is on a 0-10 scale; the screener internals are opaque here.
type Signal struct {
	Symbol          string       `json:"symbol"`
	Strategy        StrategyKind `json:"strategy"`
	Confidence      float64      `json:"confidence"`
	TargetPrice     float64      `json:"target_price,omitempty"`
	StopPrice       float64      `json:"stop_price,omitempty"`
	ExpectedReturn  float64      `json:"expected_return,omitempty"`
	TimeHorizonDays int          `json:"time_horizon_days,omitempty"`
}

// StrategyKind identifies one of the known options strategies.
// The set is closed: sizing parameters live in a data table keyed by
// kind, so adding a strategy is a table edit, not a new type.
type StrategyKind string

const (
	StrategyLongCallLEAPS StrategyKind = "long_call_leaps"
	StrategyCoveredCall   StrategyKind = "covered_call"
	StrategyProtectivePut StrategyKind = "protective_put"
	StrategyIronCondor    StrategyKind = "iron_condor"
)

// KnownStrategies lists every strategy kind the engine sizes for.
func KnownStrategies() []StrategyKind {
	return []StrategyKind{
		StrategyLongCallLEAPS,
		StrategyCoveredCall,
		StrategyProtectivePut,
		StrategyIronCondor,
	}
}
