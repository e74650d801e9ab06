package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/storage"
)

func createTestRun(runID string, createdAt time.Time) *domain.EvaluationRun {
	return &domain.EvaluationRun{
		RunID:     runID,
		CreatedAt: createdAt,
		Source:    "yahoo",
		Params: domain.EvaluationParams{
			TargetPct:        3,
			SLPct:            2,
			HorizonDays:      30,
			LookupWindowDays: 7,
			ExchangeSuffix:   ".NS",
		},
		Summary: domain.PortfolioSummary{
			TotalTrades:          5,
			TargetHit:            2,
			StopLossHit:          1,
			NeitherHit:           1,
			PriceNotFound:        1,
			TotalPnLPct:          4,
			AvgPnLPct:            0.8,
			WinRate:              2.0 / 3.0,
			MaxDrawdownPct:       2,
			MaxConsecutiveLosses: 2,
		},
	}
}

func TestRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	run := createTestRun("run-001", created)

	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-001")
	require.NoError(t, err)

	assert.Equal(t, run.RunID, got.RunID)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, run.Source, got.Source)
	assert.Equal(t, run.Params, got.Params)
	assert.Equal(t, run.Summary.TotalTrades, got.Summary.TotalTrades)
	assert.Equal(t, run.Summary.TargetHit, got.Summary.TargetHit)
	assert.Equal(t, 2, got.Summary.NoResult)
	assert.InDelta(t, run.Summary.WinRate, got.Summary.WinRate, 0.0001)
	assert.InDelta(t, run.Summary.TotalPnLPct, got.Summary.TotalPnLPct, 0.0001)
}

func TestRunStore_DuplicateAndNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	run := createTestRun("run-dup", time.Now().UTC())
	require.NoError(t, store.Insert(ctx, run))
	assert.ErrorIs(t, store.Insert(ctx, run), storage.ErrDuplicateKey)

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, store.Insert(ctx, createTestRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].RunID)
	assert.Equal(t, "run-b", runs[1].RunID)
}

func TestRunStore_InsertWithResults(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)
	resultStore := NewTradeResultStore(pool)

	run := createTestRun("run-tx", time.Now().UTC())
	results := []*domain.TradeResult{
		createTestResult("run-tx", 0, domain.OutcomeTargetHit),
		createTestResult("run-tx", 1, domain.OutcomeStopLossHit),
	}
	require.NoError(t, store.InsertWithResults(ctx, run, results))

	got, err := store.GetByID(ctx, "run-tx")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Params.LookupWindowDays)

	stored, err := resultStore.GetByRunID(ctx, "run-tx")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRunStore_InsertWithResultsRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	// Duplicate row inside the batch fails after the run row was written.
	run := createTestRun("run-rb", time.Now().UTC())
	err := store.InsertWithResults(ctx, run, []*domain.TradeResult{
		createTestResult("run-rb", 0, domain.OutcomeTargetHit),
		createTestResult("run-rb", 0, domain.OutcomeTargetHit),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "run-rb")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.InsertWithResults(ctx, run, []*domain.TradeResult{createTestResult("other-run", 0, domain.OutcomeNoData)})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
