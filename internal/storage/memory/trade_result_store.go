package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/storage"
)

type resultKey struct {
	runID string
	row   int
}

// TradeResultStore is an in-memory implementation of storage.TradeResultStore.
// Like the trade_results foreign key, results are only accepted for runs
// already present in the run store.
type TradeResultStore struct {
	mu   sync.RWMutex
	data map[resultKey]*domain.TradeResult
	runs storage.RunStore
}

// NewTradeResultStore creates a new in-memory trade result store whose
// results reference runs in runs.
func NewTradeResultStore(runs storage.RunStore) *TradeResultStore {
	return &TradeResultStore{
		data: make(map[resultKey]*domain.TradeResult),
		runs: runs,
	}
}

// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
// Returns ErrNotFound if a referenced run does not exist.
func (s *TradeResultStore) InsertBulk(ctx context.Context, results []*domain.TradeResult) error {
	if len(results) == 0 {
		return nil
	}

	runIDs := make(map[string]struct{})
	for _, r := range results {
		if r == nil || r.RunID == "" {
			return storage.ErrInvalidInput
		}
		runIDs[r.RunID] = struct{}{}
	}
	for runID := range runIDs {
		if _, err := s.runs.GetByID(ctx, runID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
			}
			return fmt.Errorf("check run %s: %w", runID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[resultKey]struct{}, len(results))

	// First pass: check for duplicates (existing + intra-batch)
	for _, r := range results {
		key := resultKey{r.RunID, r.Request.Row}

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range results {
		stored := *r
		s.data[resultKey{r.RunID, r.Request.Row}] = &stored
	}

	return nil
}

// GetByRunID retrieves all results of a run, ordered by row ASC.
func (s *TradeResultStore) GetByRunID(_ context.Context, runID string) ([]*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeResult
	for k, r := range s.data {
		if k.runID == runID {
			cp := *r
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Request.Row < result[j].Request.Row
	})

	return result, nil
}

var _ storage.TradeResultStore = (*TradeResultStore)(nil)
