package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/pricesource"
	"trade-outcome-lab/internal/pricesource/stub"
)

var entry = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func after(days int) time.Time {
	return entry.AddDate(0, 0, days)
}

func bar(days int, high, low string) *domain.DailyBar {
	return stub.Bar("TEST.NS", after(days), high, low, "100")
}

// Entry 100, target 3%, stop 2%: target 103, stop 98.
var th = domain.NewThresholds(decimal.NewFromInt(100), 3, 2)

func TestClassifySeries(t *testing.T) {
	tests := []struct {
		name     string
		bars     []*domain.DailyBar
		want     domain.Outcome
		wantExit time.Time
	}{
		{
			name:     "target on day 3",
			bars:     []*domain.DailyBar{bar(1, "101", "99"), bar(2, "102", "99"), bar(3, "103.5", "100")},
			want:     domain.OutcomeTargetHit,
			wantExit: after(3),
		},
		{
			name:     "stop on day 2",
			bars:     []*domain.DailyBar{bar(1, "101", "99"), bar(2, "101", "97.9")},
			want:     domain.OutcomeStopLossHit,
			wantExit: after(2),
		},
		{
			name: "neither within range",
			bars: []*domain.DailyBar{bar(1, "102.9", "98.1"), bar(10, "102", "99"), bar(30, "101", "99")},
			want: domain.OutcomeNeitherHit,
		},
		{
			name:     "same day touches both, target wins",
			bars:     []*domain.DailyBar{bar(4, "104", "97")},
			want:     domain.OutcomeTargetHit,
			wantExit: after(4),
		},
		{
			name:     "exact threshold counts",
			bars:     []*domain.DailyBar{bar(1, "102", "98")},
			want:     domain.OutcomeStopLossHit,
			wantExit: after(1),
		},
		{
			name:     "last horizon day included",
			bars:     []*domain.DailyBar{bar(1, "101", "99"), bar(30, "103", "99")},
			want:     domain.OutcomeTargetHit,
			wantExit: after(30),
		},
		{
			name: "day after horizon ignored",
			bars: []*domain.DailyBar{bar(1, "101", "99"), bar(31, "110", "99")},
			want: domain.OutcomeNeitherHit,
		},
		{
			name: "entry day ignored",
			bars: []*domain.DailyBar{bar(0, "110", "90"), bar(1, "101", "99")},
			want: domain.OutcomeNeitherHit,
		},
		{
			name: "only entry day present",
			bars: []*domain.DailyBar{bar(0, "110", "90")},
			want: domain.OutcomeNeitherHit,
		},
		{
			name: "empty series",
			bars: nil,
			want: domain.OutcomeNoData,
		},
		{
			name:     "unsorted input scanned in date order",
			bars:     []*domain.DailyBar{bar(5, "104", "99"), bar(2, "101", "97")},
			want:     domain.OutcomeStopLossHit,
			wantExit: after(2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifySeries(tt.bars, entry, DefaultHorizonDays, th)
			assert.Equal(t, tt.want, got.Outcome)
			assert.Equal(t, tt.wantExit, got.ExitDate)
		})
	}
}

func TestClassify_FetchesHorizonFromSource(t *testing.T) {
	src := stub.NewSource().AddBars("TEST.NS",
		bar(0, "120", "80"),
		bar(1, "101", "99"),
		bar(6, "103.01", "99"),
	)
	c := New(src)

	got := c.Classify(context.Background(), "TEST", entry, th)
	assert.Equal(t, domain.OutcomeTargetHit, got.Outcome)
	assert.Equal(t, after(6), got.ExitDate)
	assert.Equal(t, 1, src.Calls("TEST.NS"))
}

func TestClassify_EmptySeriesIsNoData(t *testing.T) {
	got := New(stub.NewSource()).Classify(context.Background(), "TEST", entry, th)
	assert.Equal(t, domain.OutcomeNoData, got.Outcome)
}

func TestClassify_UnknownSymbolIsNoData(t *testing.T) {
	src := stub.NewSource().FailWith("GONE.NS", pricesource.ErrUnknownSymbol)
	got := New(src).Classify(context.Background(), "GONE", entry, th)
	assert.Equal(t, domain.OutcomeNoData, got.Outcome)
}

func TestClassify_FetchErrorIsError(t *testing.T) {
	src := stub.NewSource().FailWith("TEST.NS", errors.New("connection reset"))
	got := New(src).Classify(context.Background(), "TEST", entry, th)
	assert.Equal(t, domain.OutcomeError, got.Outcome)
	assert.Contains(t, got.Detail, "connection reset")
}

func TestClassify_CustomHorizon(t *testing.T) {
	src := stub.NewSource().AddBars("TEST.NS", bar(1, "101", "99"), bar(8, "104", "99"))

	got := New(src, WithHorizonDays(5)).Classify(context.Background(), "TEST", entry, th)
	assert.Equal(t, domain.OutcomeNeitherHit, got.Outcome)

	got = New(src, WithHorizonDays(10)).Classify(context.Background(), "TEST", entry, th)
	assert.Equal(t, domain.OutcomeTargetHit, got.Outcome)
}
