package metrics

import (
	"context"
	"fmt"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/storage"
)

// Analysis is everything derived from one run's results.
type Analysis struct {
	Run          *domain.EvaluationRun
	Results      []*domain.TradeResult
	Summary      domain.PortfolioSummary
	Distribution []OutcomeShare
	BySector     []Breakdown
	ByMarketCap  []Breakdown
	ByMonth      []Breakdown
}

// Analyze computes the summary and breakdowns of results. It is pure.
func Analyze(results []*domain.TradeResult) *Analysis {
	return &Analysis{
		Results:      results,
		Summary:      ComputeSummary(results),
		Distribution: Distribution(results),
		BySector:     BySector(results),
		ByMarketCap:  ByMarketCap(results),
		ByMonth:      ByMonth(results),
	}
}

// Aggregator rebuilds analyses of persisted runs.
type Aggregator struct {
	runStore    storage.RunStore
	resultStore storage.TradeResultStore

	// SummaryDrift records runs whose stored summary disagrees with the summary
	// recomputed from their stored results (for data quality reporting).
	// Key: run_id, Value: description of the first differing field.
	SummaryDrift map[string]string
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(runStore storage.RunStore, resultStore storage.TradeResultStore) *Aggregator {
	return &Aggregator{
		runStore:     runStore,
		resultStore:  resultStore,
		SummaryDrift: make(map[string]string),
	}
}

// AnalyzeRun loads a run and its results and recomputes every metric from the results.
// Returns storage.ErrNotFound if the run does not exist.
func (a *Aggregator) AnalyzeRun(ctx context.Context, runID string) (*Analysis, error) {
	run, err := a.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	results, err := a.resultStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load results %s: %w", runID, err)
	}

	analysis := Analyze(results)
	analysis.Run = run

	if drift := summaryDrift(run.Summary, analysis.Summary); drift != "" {
		a.SummaryDrift[runID] = drift
	}

	return analysis, nil
}

// summaryDrift compares the count fields of two summaries and describes the first mismatch.
func summaryDrift(stored, computed domain.PortfolioSummary) string {
	if stored.TotalTrades != computed.TotalTrades {
		return fmt.Sprintf("total_trades stored=%d computed=%d", stored.TotalTrades, computed.TotalTrades)
	}
	for _, o := range domain.AllOutcomes {
		if s, c := stored.Count(o), computed.Count(o); s != c {
			return fmt.Sprintf("%s stored=%d computed=%d", o, s, c)
		}
	}
	return ""
}
