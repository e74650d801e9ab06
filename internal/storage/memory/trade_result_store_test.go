package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/storage"
)

func result(runID string, row int, outcome domain.Outcome) *domain.TradeResult {
	return &domain.TradeResult{
		RunID:   runID,
		Request: domain.TradeRequest{Row: row, Symbol: "SBIN", EntryDate: "02/01/2024"},
		Outcome: outcome,
	}
}

func newResultStore(t *testing.T, runIDs ...string) *TradeResultStore {
	t.Helper()
	runs := NewRunStore()
	for _, id := range runIDs {
		if err := runs.Insert(context.Background(), run(id, time.Now())); err != nil {
			t.Fatalf("Insert run %s failed: %v", id, err)
		}
	}
	return NewTradeResultStore(runs)
}

func TestTradeResultStore_InsertBulkAndGet(t *testing.T) {
	store := newResultStore(t, "run-1", "run-2")
	ctx := context.Background()

	results := []*domain.TradeResult{
		result("run-1", 2, domain.OutcomeNeitherHit),
		result("run-1", 0, domain.OutcomeTargetHit),
		result("run-1", 1, domain.OutcomeStopLossHit),
		result("run-2", 0, domain.OutcomeNoData),
	}

	if err := store.InsertBulk(ctx, results); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(got))
	}
	for i, r := range got {
		if r.Request.Row != i {
			t.Errorf("Expected row %d at position %d, got %d", i, i, r.Request.Row)
		}
	}
}

func TestTradeResultStore_DuplicateKey(t *testing.T) {
	store := newResultStore(t, "run-1")
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.TradeResult{result("run-1", 0, domain.OutcomeTargetHit)}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.TradeResult{
		result("run-1", 1, domain.OutcomeTargetHit),
		result("run-1", 0, domain.OutcomeTargetHit),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Batch must not be partially applied
	got, _ := store.GetByRunID(ctx, "run-1")
	if len(got) != 1 {
		t.Errorf("Expected 1 result after failed batch, got %d", len(got))
	}
}

func TestTradeResultStore_UnknownRun(t *testing.T) {
	store := newResultStore(t, "run-1")
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.TradeResult{
		result("run-1", 0, domain.OutcomeTargetHit),
		result("run-9", 0, domain.OutcomeTargetHit),
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	// Nothing from the rejected batch is stored
	got, _ := store.GetByRunID(ctx, "run-1")
	if len(got) != 0 {
		t.Errorf("Expected no results after rejected batch, got %d", len(got))
	}
}

func TestTradeResultStore_InvalidInput(t *testing.T) {
	store := newResultStore(t)

	err := store.InsertBulk(context.Background(), []*domain.TradeResult{{RunID: ""}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestRunStore_InsertGetList(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	runs := []*domain.EvaluationRun{
		{RunID: "a", CreatedAt: base},
		{RunID: "b", CreatedAt: base.Add(time.Hour)},
		{RunID: "c", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, r := range runs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.RunID, err)
		}
	}

	if err := store.Insert(ctx, runs[0]); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	got, err := store.GetByID(ctx, "b")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.CreatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("Unexpected CreatedAt %v", got.CreatedAt)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	list, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].RunID != "c" || list[1].RunID != "b" {
		t.Errorf("Unexpected list order: %+v", list)
	}
}
