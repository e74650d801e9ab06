package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DailyBar represents one trading day of aggregated prices for an instrument.
// Corresponds to daily_bars table in ClickHouse.
type DailyBar struct {
	Symbol string          // normalized instrument identifier (e.g. RELIANCE.NS)
	Date   time.Time       // trading day, UTC midnight
	Open   decimal.Decimal // first traded price
	High   decimal.Decimal // highest traded price
	Low    decimal.Decimal // lowest traded price
	Close  decimal.Decimal // last traded price
	Volume int64           // shares traded
}

// Day truncates t to UTC midnight of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// SortBars orders bars by date ASC, keeping the first of equal dates first.
func SortBars(bars []*DailyBar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}
