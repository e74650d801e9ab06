package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/storage"
)

func run(id string, createdAt time.Time) *domain.EvaluationRun {
	return &domain.EvaluationRun{
		RunID:     id,
		CreatedAt: createdAt,
		Source:    "memory",
		Params:    domain.EvaluationParams{TargetPct: 3, SLPct: 2, HorizonDays: 30, ExchangeSuffix: ".NS"},
	}
}

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	created := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	if err := store.Insert(ctx, run("run-1", created)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("Expected created_at %v, got %v", created, got.CreatedAt)
	}
	if got.Params.TargetPct != 3 || got.Params.SLPct != 2 {
		t.Errorf("Unexpected params: %+v", got.Params)
	}

	// Returned value is a copy.
	got.Source = "mutated"
	again, _ := store.GetByID(ctx, "run-1")
	if again.Source != "memory" {
		t.Errorf("Store was mutated through returned pointer: %q", again.Source)
	}
}

func TestRunStore_Errors(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil run, got %v", err)
	}
	if err := store.Insert(ctx, run("", now)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty id, got %v", err)
	}

	if err := store.Insert(ctx, run("run-1", now)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, run("run-1", now)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, r := range []*domain.EvaluationRun{
		run("b", base.Add(time.Hour)),
		run("c", base),
		run("a", base.Add(time.Hour)),
		run("d", base.Add(2*time.Hour)),
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.RunID, err)
		}
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"d", "a", "b", "c"}
	if len(all) != len(want) {
		t.Fatalf("Expected %d runs, got %d", len(want), len(all))
	}
	for i, id := range want {
		if all[i].RunID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, all[i].RunID)
		}
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 2 || limited[0].RunID != "d" || limited[1].RunID != "a" {
		t.Errorf("Unexpected limited list: %v", limited)
	}
}
