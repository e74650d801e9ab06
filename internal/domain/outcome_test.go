package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOutcome_PnLPct(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    float64
	}{
		{OutcomeTargetHit, 3},
		{OutcomeStopLossHit, -2},
		{OutcomeNeitherHit, 0},
		{OutcomeNoData, 0},
		{OutcomePriceNotFound, 0},
		{OutcomeError, 0},
	}

	for _, tt := range tests {
		if got := tt.outcome.PnLPct(3, 2); got != tt.want {
			t.Errorf("%s: PnLPct = %v, want %v", tt.outcome, got, tt.want)
		}
	}
}

func TestOutcome_Valid(t *testing.T) {
	for _, o := range AllOutcomes {
		if !o.Valid() {
			t.Errorf("%s should be valid", o)
		}
	}
	if Outcome("Maybe").Valid() {
		t.Error("unknown outcome reported valid")
	}
}

func TestNewThresholds(t *testing.T) {
	th := NewThresholds(decimal.NewFromInt(100), 3, 2)
	if !th.Target.Equal(decimal.NewFromInt(103)) {
		t.Errorf("target = %s, want 103", th.Target)
	}
	if !th.StopLoss.Equal(decimal.NewFromInt(98)) {
		t.Errorf("stop loss = %s, want 98", th.StopLoss)
	}

	th = NewThresholds(decimal.RequireFromString("1650.25"), 3, 2)
	if !th.Target.Equal(decimal.RequireFromString("1699.7575")) {
		t.Errorf("target = %s, want 1699.7575", th.Target)
	}
	if !th.StopLoss.Equal(decimal.RequireFromString("1617.245")) {
		t.Errorf("stop loss = %s, want 1617.245", th.StopLoss)
	}
}

func TestDaysBetween(t *testing.T) {
	a := Day(mustDate("2024-02-27"))
	b := Day(mustDate("2024-03-02"))
	if got := DaysBetween(a, b); got != 4 {
		t.Errorf("DaysBetween = %d, want 4 (leap year)", got)
	}
	if got := DaysBetween(b, a); got != -4 {
		t.Errorf("DaysBetween = %d, want -4", got)
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
