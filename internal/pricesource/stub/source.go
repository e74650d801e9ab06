// Package stub provides a deterministic in-memory price source for tests.
package stub

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/pricesource"
)

// Source implements pricesource.Source for testing.
// Bars are keyed by upper-cased symbol; Errors injects a failure per symbol.
type Source struct {
	mu     sync.Mutex
	bars   map[string][]*domain.DailyBar
	errors map[string]error
	calls  map[string]int
	delay  time.Duration
}

// NewSource creates an empty stub source.
func NewSource() *Source {
	return &Source{
		bars:   make(map[string][]*domain.DailyBar),
		errors: make(map[string]error),
		calls:  make(map[string]int),
	}
}

// Compile-time interface check.
var _ pricesource.Source = (*Source)(nil)

// AddBars registers bars for a symbol.
func (s *Source) AddBars(symbol string, bars ...*domain.DailyBar) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToUpper(symbol)
	s.bars[key] = append(s.bars[key], bars...)
	return s
}

// FailWith makes every fetch for symbol return err.
func (s *Source) FailWith(symbol string, err error) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[strings.ToUpper(symbol)] = err
	return s
}

// SetDelay makes each fetch block for d or until the context is done.
func (s *Source) SetDelay(d time.Duration) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	return s
}

// Calls returns how many fetches were made for symbol.
func (s *Source) Calls(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[strings.ToUpper(symbol)]
}

// TotalCalls returns the number of fetches across all symbols.
func (s *Source) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// FetchDaily returns copies of the registered bars within [start, end], ordered by date.
func (s *Source) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]*domain.DailyBar, error) {
	key := strings.ToUpper(symbol)

	s.mu.Lock()
	s.calls[key]++
	delay := s.delay
	err := s.errors[key]
	registered := s.bars[key]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}

	from, to := domain.Day(start), domain.Day(end)
	var out []*domain.DailyBar
	for _, b := range registered {
		d := domain.Day(b.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		barCopy := *b
		out = append(out, &barCopy)
	}
	domain.SortBars(out)
	return out, nil
}

// Bar builds a bar with open = close. Prices are parsed from decimal strings.
func Bar(symbol string, date time.Time, high, low, closePrice string) *domain.DailyBar {
	c := decimal.RequireFromString(closePrice)
	return &domain.DailyBar{
		Symbol: symbol,
		Date:   domain.Day(date),
		Open:   c,
		High:   decimal.RequireFromString(high),
		Low:    decimal.RequireFromString(low),
		Close:  c,
		Volume: 1000,
	}
}
