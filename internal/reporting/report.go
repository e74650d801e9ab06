package reporting

import (
	"time"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/metrics"
)

// Report represents one evaluation run's summary report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	Source      string
	Params      domain.EvaluationParams

	// Headline numbers
	Summary domain.PortfolioSummary

	// Per-row results in input order, for exports
	Results []*domain.TradeResult

	// Outcome distribution in domain.AllOutcomes order
	Distribution []metrics.OutcomeShare

	// Breakdowns (sorted by group name, Unknown last)
	BySector    []metrics.Breakdown
	ByMarketCap []metrics.Breakdown
	ByMonth     []metrics.Breakdown

	// Data quality
	DataQuality DataQualitySection
}

// DataQualitySection lists rows that could not be evaluated and stored-data inconsistencies.
type DataQualitySection struct {
	UnparseableDates []RowIssue
	FetchErrors      []RowIssue
	IntegrityErrors  []string
}

// RowIssue points at one input row and why it failed.
type RowIssue struct {
	Row    int
	Symbol string
	Detail string
}
