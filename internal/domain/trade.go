package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRequest is one historical long entry to evaluate.
// MarketCap and Sector are carried through to exports and breakdowns.
type TradeRequest struct {
	Row       int    // zero-based position in the input file
	Symbol    string // symbol as supplied, without exchange suffix normalization
	EntryDate string // entry date as supplied; parsed by the price resolver
	MarketCap string // market cap bucket (marketcapname column)
	Sector    string // sector name
}

// Thresholds holds the exit prices derived from an entry price.
type Thresholds struct {
	Target   decimal.Decimal // entry * (1 + target_pct/100)
	StopLoss decimal.Decimal // entry * (1 - sl_pct/100)
}

var hundred = decimal.NewFromInt(100)

// NewThresholds derives target and stop-loss prices for a long entry.
func NewThresholds(entry decimal.Decimal, targetPct, slPct float64) Thresholds {
	one := decimal.NewFromInt(1)
	return Thresholds{
		Target:   entry.Mul(one.Add(decimal.NewFromFloat(targetPct).Div(hundred))),
		StopLoss: entry.Mul(one.Sub(decimal.NewFromFloat(slPct).Div(hundred))),
	}
}

// TradeResult is the evaluated outcome of a single TradeRequest.
// Corresponds to trade_results table in PostgreSQL.
type TradeResult struct {
	RunID   string       // evaluation run identifier
	Request TradeRequest // original request

	// Entry
	EntryDate  time.Time       // parsed entry date; zero if unparseable
	ClosePrice decimal.Decimal // reference close; zero when not found

	// Thresholds (zero when no close price was found)
	TargetPrice   decimal.Decimal
	StopLossPrice decimal.Decimal

	// Parameters
	TargetPct float64
	SLPct     float64

	// Outcome
	Outcome  Outcome
	Detail   string    // error detail for OutcomeError and unparseable dates
	ExitDate time.Time // day a threshold was touched; zero when unresolved
	PnLPct   float64   // +TargetPct, -SLPct or 0
}
