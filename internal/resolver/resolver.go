// Package resolver finds the reference close price for a symbol on an entry date.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trade-outcome-lab/internal/cache"
	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/lookup"
	"trade-outcome-lab/internal/pricesource"
)

// DefaultWindowDays is how many calendar days on each side of the date are searched.
const DefaultWindowDays = 7

// Entry is a resolved reference price. Found is false when no bar exists
// within the window or the source failed.
type Entry struct {
	Symbol  string          // normalized symbol
	Date    time.Time       // requested day
	Close   decimal.Decimal // close of the chosen bar
	BarDate time.Time       // day of the chosen bar
	Found   bool
}

// Resolver resolves (symbol, date) to the nearest available close.
type Resolver struct {
	source     pricesource.Source
	cache      *cache.Cache[Entry]
	windowDays int
	suffix     string
	logger     zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache injects a shared cache. Without it each Resolver owns a private one.
func WithCache(c *cache.Cache[Entry]) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithWindowDays sets the lookup window on each side of the date.
func WithWindowDays(n int) Option {
	return func(r *Resolver) {
		if n >= 0 {
			r.windowDays = n
		}
	}
}

// WithExchangeSuffix sets the suffix appended to bare symbols.
func WithExchangeSuffix(suffix string) Option {
	return func(r *Resolver) {
		r.suffix = suffix
	}
}

// WithLogger sets the logger used for swallowed source errors.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New creates a Resolver over source.
func New(source pricesource.Source, opts ...Option) *Resolver {
	r := &Resolver{
		source:     source,
		windowDays: DefaultWindowDays,
		suffix:     domain.DefaultExchangeSuffix,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = cache.New[Entry]()
	}
	return r
}

// Resolve parses dateText and resolves the close for symbol on that day.
// The only error is ErrInvalidDate; source failures yield an entry with Found false.
func (r *Resolver) Resolve(ctx context.Context, symbol, dateText string) (Entry, error) {
	date, err := ParseDate(dateText)
	if err != nil {
		return Entry{}, err
	}
	return r.ResolveDate(ctx, symbol, date), nil
}

// ResolveDate resolves the close for symbol on date. Results are cached per
// (normalized symbol, day); failed fetches are logged and not cached.
func (r *Resolver) ResolveDate(ctx context.Context, symbol string, date time.Time) Entry {
	sym := domain.NormalizeSymbol(symbol, r.suffix)
	day := domain.Day(date)

	entry, err := r.cache.GetOrLoad(ctx, cache.Key{Symbol: sym, Date: day}, func(ctx context.Context) (Entry, error) {
		return r.load(ctx, sym, day)
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("symbol", sym).Time("date", day).Msg("price lookup failed; treating as not found")
		return Entry{Symbol: sym, Date: day}
	}
	return entry
}

func (r *Resolver) load(ctx context.Context, sym string, day time.Time) (Entry, error) {
	start := day.AddDate(0, 0, -r.windowDays)
	end := day.AddDate(0, 0, r.windowDays)

	bars, err := r.source.FetchDaily(ctx, sym, start, end)
	if err != nil {
		return Entry{}, fmt.Errorf("fetch %s around %s: %w", sym, day.Format("2006-01-02"), err)
	}

	bar, err := lookup.NearestClose(day, bars)
	if err != nil {
		// No trading data in the window is a valid, cacheable answer.
		return Entry{Symbol: sym, Date: day}, nil
	}

	return Entry{
		Symbol:  sym,
		Date:    day,
		Close:   bar.Close,
		BarDate: domain.Day(bar.Date),
		Found:   true,
	}, nil
}

// CacheStats returns the resolver cache counters.
func (r *Resolver) CacheStats() cache.Stats {
	return r.cache.Stats()
}
