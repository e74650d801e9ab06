package reporting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/metrics"
)

// Generator produces reports from stored runs. It is safe for concurrent use.
type Generator struct {
	mu         sync.Mutex // guards aggregator.SummaryDrift
	aggregator *metrics.Aggregator
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(aggregator *metrics.Aggregator) *Generator {
	return &Generator{
		aggregator: aggregator,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report of a stored run. Metrics are recomputed from the
// stored results; a stored summary that disagrees is listed as an integrity error.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	analysis, err := g.aggregator.AnalyzeRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	r := Build(analysis, g.now())
	if drift, ok := g.aggregator.SummaryDrift[runID]; ok {
		r.DataQuality.IntegrityErrors = append(r.DataQuality.IntegrityErrors,
			fmt.Sprintf("stored summary differs from results: %s", drift))
	}
	return r, nil
}

// Build assembles a report from an analysis. Run metadata is filled in when
// analysis.Run is set.
func Build(analysis *metrics.Analysis, generatedAt time.Time) *Report {
	r := &Report{
		GeneratedAt:  generatedAt,
		Summary:      analysis.Summary,
		Results:      analysis.Results,
		Distribution: analysis.Distribution,
		BySector:     analysis.BySector,
		ByMarketCap:  analysis.ByMarketCap,
		ByMonth:      analysis.ByMonth,
	}
	if analysis.Run != nil {
		r.RunID = analysis.Run.RunID
		r.Source = analysis.Run.Source
		r.Params = analysis.Run.Params
	}

	for _, res := range analysis.Results {
		issue := RowIssue{Row: res.Request.Row, Symbol: res.Request.Symbol, Detail: res.Detail}
		switch {
		case res.Outcome == domain.OutcomePriceNotFound && res.EntryDate.IsZero():
			r.DataQuality.UnparseableDates = append(r.DataQuality.UnparseableDates, issue)
		case res.Outcome == domain.OutcomeError:
			r.DataQuality.FetchErrors = append(r.DataQuality.FetchErrors, issue)
		}
	}

	return r
}
