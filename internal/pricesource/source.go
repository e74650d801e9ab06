// Package pricesource fetches ordered daily bars for a normalized symbol.
package pricesource

import (
	"context"
	"errors"
	"time"

	"trade-outcome-lab/internal/domain"
)

var (
	// ErrUnavailable is returned when the upstream data source cannot serve a request.
	ErrUnavailable = errors.New("price source unavailable")

	// ErrUnknownSymbol is returned when the source has no instrument with the given symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// Source provides daily bars.
type Source interface {
	// FetchDaily returns bars for symbol within [start, end] (inclusive calendar days),
	// ordered by date ASC. An empty slice with nil error means no trading data.
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]*domain.DailyBar, error)
}

// inRange keeps bars whose day falls within [start, end] and orders them by date.
func inRange(bars []*domain.DailyBar, start, end time.Time) []*domain.DailyBar {
	from, to := domain.Day(start), domain.Day(end)
	out := make([]*domain.DailyBar, 0, len(bars))
	for _, b := range bars {
		d := domain.Day(b.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, b)
	}
	domain.SortBars(out)
	return out
}
