package pricesource

import (
	"context"
	"fmt"
	"time"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/observability"
	"trade-outcome-lab/internal/storage"
)

// StoreSource serves bars from a DailyBarStore, e.g. bars ingested into ClickHouse.
type StoreSource struct {
	store storage.DailyBarStore
	name  string
}

// NewStoreSource creates a Source backed by store. name labels fetch metrics.
func NewStoreSource(store storage.DailyBarStore, name string) *StoreSource {
	if name == "" {
		name = "store"
	}
	return &StoreSource{store: store, name: name}
}

// Compile-time interface check.
var _ Source = (*StoreSource)(nil)

// FetchDaily returns stored bars within [start, end]. A store failure wraps ErrUnavailable.
func (s *StoreSource) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]*domain.DailyBar, error) {
	begin := time.Now()
	bars, err := s.store.GetByRange(ctx, symbol, domain.Day(start), domain.Day(end))
	if err != nil {
		err = fmt.Errorf("read bars %s: %v: %w", symbol, err, ErrUnavailable)
	}
	observability.RecordPriceFetch(s.name, time.Since(begin).Seconds(), err)
	if err != nil {
		return nil, err
	}
	return inRange(bars, start, end), nil
}
