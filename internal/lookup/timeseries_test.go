package lookup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trade-outcome-lab/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func closeBar(d int, price string) *domain.DailyBar {
	return &domain.DailyBar{Symbol: "TEST.NS", Date: day(d), Close: decimal.RequireFromString(price)}
}

func TestNearestClose_EmptySlice(t *testing.T) {
	_, err := NearestClose(day(10), nil)
	if err != ErrNoPriceData {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}

	_, err = NearestClose(day(10), []*domain.DailyBar{})
	if err != ErrNoPriceData {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
}

func TestNearestClose_ExactMatch(t *testing.T) {
	bars := []*domain.DailyBar{
		closeBar(9, "99"),
		closeBar(10, "100"),
		closeBar(11, "101"),
	}

	b, err := NearestClose(day(10), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Close.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100, got %s", b.Close)
	}
}

func TestNearestClose_IgnoresTimeOfDay(t *testing.T) {
	bars := []*domain.DailyBar{closeBar(10, "100"), closeBar(12, "102")}

	b, err := NearestClose(day(10).Add(23*time.Hour), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Date.Equal(day(10)) {
		t.Errorf("expected day 10, got %s", b.Date)
	}
}

func TestNearestClose_Closest(t *testing.T) {
	bars := []*domain.DailyBar{
		closeBar(3, "103"),
		closeBar(8, "108"),
		closeBar(15, "115"),
	}

	// Target 10: distance 2 to day 8, 5 to day 15
	b, err := NearestClose(day(10), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Date.Equal(day(8)) {
		t.Errorf("expected day 8, got %s", b.Date)
	}
}

func TestNearestClose_TieGoesToEarlierDate(t *testing.T) {
	// Unsorted on purpose: the later bar comes first
	bars := []*domain.DailyBar{
		closeBar(12, "112"),
		closeBar(8, "108"),
	}

	b, err := NearestClose(day(10), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Date.Equal(day(8)) {
		t.Errorf("expected earlier day 8 on tie, got %s", b.Date)
	}
}

func TestNearestClose_OnlyAfterTarget(t *testing.T) {
	bars := []*domain.DailyBar{closeBar(15, "115"), closeBar(17, "117")}

	b, err := NearestClose(day(10), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Date.Equal(day(15)) {
		t.Errorf("expected day 15, got %s", b.Date)
	}
}

func TestBarsAfter(t *testing.T) {
	bars := []*domain.DailyBar{
		closeBar(1, "1"),
		closeBar(2, "2"),
		closeBar(5, "5"),
		closeBar(31, "31"),
	}

	got := BarsAfter(day(1), day(5), bars)
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	if !got[0].Date.Equal(day(2)) || !got[1].Date.Equal(day(5)) {
		t.Errorf("unexpected bars: %s, %s", got[0].Date, got[1].Date)
	}

	if got := BarsAfter(day(31), day(31), bars); len(got) != 0 {
		t.Errorf("entry day must be excluded, got %d bars", len(got))
	}
}
