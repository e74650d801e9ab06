package pricesource

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/observability"
	"trade-outcome-lab/internal/storage"
)

// RecordingSource wraps a Source and writes every fetched bar into a DailyBarStore,
// so a later run can be served offline through StoreSource.
type RecordingSource struct {
	inner  Source
	store  storage.DailyBarStore
	logger zerolog.Logger
}

// NewRecordingSource creates a RecordingSource.
func NewRecordingSource(inner Source, store storage.DailyBarStore, logger zerolog.Logger) *RecordingSource {
	return &RecordingSource{inner: inner, store: store, logger: logger}
}

// Compile-time interface check.
var _ Source = (*RecordingSource)(nil)

// FetchDaily delegates to the wrapped source and records bars not already stored.
// Recording failures are logged and never fail the fetch.
func (s *RecordingSource) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]*domain.DailyBar, error) {
	bars, err := s.inner.FetchDaily(ctx, symbol, start, end)
	if err != nil || len(bars) == 0 {
		return bars, err
	}

	n, recErr := s.record(ctx, symbol, bars)
	if recErr != nil {
		s.logger.Warn().Err(recErr).Str("symbol", symbol).Msg("record daily bars")
	} else if n > 0 {
		observability.RecordBarsIngested(n)
	}
	return bars, nil
}

// record inserts the bars whose dates are not yet stored and returns how many were written.
func (s *RecordingSource) record(ctx context.Context, symbol string, bars []*domain.DailyBar) (int, error) {
	existing, err := s.store.GetByRange(ctx, symbol, bars[0].Date, bars[len(bars)-1].Date)
	if err != nil {
		return 0, err
	}
	have := make(map[time.Time]struct{}, len(existing))
	for _, b := range existing {
		have[domain.Day(b.Date)] = struct{}{}
	}

	var fresh []*domain.DailyBar
	for _, b := range bars {
		d := domain.Day(b.Date)
		if _, ok := have[d]; ok {
			continue
		}
		have[d] = struct{}{}
		fresh = append(fresh, b)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	// A concurrent recorder may have stored the same days first.
	if err := s.store.InsertBulk(ctx, fresh); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return 0, err
	}
	return len(fresh), nil
}
