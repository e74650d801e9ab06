package lookup

import (
	"errors"
	"time"

	"trade-outcome-lab/internal/domain"
)

// ErrNoPriceData is returned when a lookup is given no bars.
var ErrNoPriceData = errors.New("no price data available")

// NearestClose returns the bar closest in calendar days to target.
// An exact date match wins; otherwise the smallest absolute day distance wins
// and equal distances go to the earlier date. Bars need not be sorted.
// Returns ErrNoPriceData if the slice is empty.
func NearestClose(target time.Time, bars []*domain.DailyBar) (*domain.DailyBar, error) {
	if len(bars) == 0 {
		return nil, ErrNoPriceData
	}

	day := domain.Day(target)
	var best *domain.DailyBar
	bestDist := 0

	for _, b := range bars {
		dist := absDays(domain.DaysBetween(day, b.Date))
		if best == nil || dist < bestDist || (dist == bestDist && b.Date.Before(best.Date)) {
			best, bestDist = b, dist
		}
		if dist == 0 {
			break
		}
	}

	return best, nil
}

// BarsAfter returns the bars strictly after from and at or before through,
// preserving input order.
func BarsAfter(from, through time.Time, bars []*domain.DailyBar) []*domain.DailyBar {
	lo, hi := domain.Day(from), domain.Day(through)
	out := make([]*domain.DailyBar, 0, len(bars))
	for _, b := range bars {
		d := domain.Day(b.Date)
		if !d.After(lo) || d.After(hi) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func absDays(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
