package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/storage"
	"trade-outcome-lab/internal/storage/memory"
)

func seedRun(t *testing.T, runs *memory.RunStore, results *memory.TradeResultStore, runID string, rows []*domain.TradeResult, summary domain.PortfolioSummary) {
	t.Helper()
	ctx := context.Background()

	run := &domain.EvaluationRun{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Source:    "memory",
		Params:    domain.EvaluationParams{TargetPct: 3, SLPct: 2, HorizonDays: 30, ExchangeSuffix: ".NS"},
		Summary:   summary,
	}
	if err := runs.Insert(ctx, run); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}
	for _, r := range rows {
		r.RunID = runID
	}
	if err := results.InsertBulk(ctx, rows); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
}

func TestAggregator_AnalyzeRun_Deterministic(t *testing.T) {
	ctx := context.Background()

	for run := 0; run < 5; run++ {
		runs := memory.NewRunStore()
		results := memory.NewTradeResultStore(runs)

		rows := []*domain.TradeResult{
			makeResult(0, jan(1), domain.OutcomeTargetHit),
			makeResult(1, jan(2), domain.OutcomeStopLossHit),
			makeResult(2, jan(3), domain.OutcomeTargetHit),
			makeResult(3, jan(4), domain.OutcomeNeitherHit),
		}
		seedRun(t, runs, results, "run-1", rows, ComputeSummary(rows))

		agg := NewAggregator(runs, results)
		analysis, err := agg.AnalyzeRun(ctx, "run-1")
		if err != nil {
			t.Fatalf("AnalyzeRun failed: %v", err)
		}

		if analysis.Run.RunID != "run-1" {
			t.Errorf("expected run-1, got %s", analysis.Run.RunID)
		}
		if analysis.Summary.TotalTrades != 4 {
			t.Errorf("expected 4 trades, got %d", analysis.Summary.TotalTrades)
		}
		if analysis.Summary.TotalPnLPct != 4 {
			t.Errorf("expected total pnl 4, got %f", analysis.Summary.TotalPnLPct)
		}
		if len(analysis.BySector) != 1 || analysis.BySector[0].Group != "IT" {
			t.Errorf("unexpected sector breakdown: %+v", analysis.BySector)
		}
		if len(agg.SummaryDrift) != 0 {
			t.Errorf("expected no drift, got %v", agg.SummaryDrift)
		}
	}
}

func TestAggregator_AnalyzeRun_NotFound(t *testing.T) {
	runs := memory.NewRunStore()
	agg := NewAggregator(runs, memory.NewTradeResultStore(runs))

	_, err := agg.AnalyzeRun(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAggregator_AnalyzeRun_RecordsDrift(t *testing.T) {
	runs := memory.NewRunStore()
	results := memory.NewTradeResultStore(runs)

	rows := []*domain.TradeResult{
		makeResult(0, jan(1), domain.OutcomeTargetHit),
		makeResult(1, jan(2), domain.OutcomeStopLossHit),
	}
	stored := ComputeSummary(rows)
	stored.TargetHit = 2
	seedRun(t, runs, results, "run-drift", rows, stored)

	agg := NewAggregator(runs, results)
	analysis, err := agg.AnalyzeRun(context.Background(), "run-drift")
	if err != nil {
		t.Fatalf("AnalyzeRun failed: %v", err)
	}

	if analysis.Summary.TargetHit != 1 {
		t.Errorf("expected recomputed TargetHit 1, got %d", analysis.Summary.TargetHit)
	}
	if agg.SummaryDrift["run-drift"] == "" {
		t.Error("expected drift to be recorded")
	}
}
