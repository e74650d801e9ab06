package domain

import "time"

// PortfolioSummary aggregates a collection of TradeResult.
// Always recomputable from the results alone.
type PortfolioSummary struct {
	// Counts
	TotalTrades   int
	TargetHit     int
	StopLossHit   int
	NeitherHit    int
	NoData        int
	PriceNotFound int
	Errors        int
	NoResult      int // NeitherHit + NoData + PriceNotFound + Errors

	// P&L (percent points)
	TotalPnLPct float64
	AvgPnLPct   float64 // TotalPnLPct / TotalTrades
	WinRate     float64 // TargetHit / (TargetHit + StopLossHit), 0..1

	// Drawdown over results in entry-date order
	MaxDrawdownPct       float64
	MaxConsecutiveLosses int
}

// Count returns the number of results with outcome o.
func (s *PortfolioSummary) Count(o Outcome) int {
	switch o {
	case OutcomeTargetHit:
		return s.TargetHit
	case OutcomeStopLossHit:
		return s.StopLossHit
	case OutcomeNeitherHit:
		return s.NeitherHit
	case OutcomeNoData:
		return s.NoData
	case OutcomePriceNotFound:
		return s.PriceNotFound
	case OutcomeError:
		return s.Errors
	default:
		return 0
	}
}

// EvaluationParams are the inputs shared by every row of a run.
type EvaluationParams struct {
	TargetPct        float64
	SLPct            float64
	HorizonDays      int
	LookupWindowDays int // days searched on each side of the entry date
	ExchangeSuffix   string
}

// EvaluationRun records one batch evaluation.
// Corresponds to evaluation_runs table in PostgreSQL.
type EvaluationRun struct {
	RunID     string
	CreatedAt time.Time
	Source    string // price source name (yahoo, clickhouse, memory)
	Params    EvaluationParams
	Summary   PortfolioSummary
}
