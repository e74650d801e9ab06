// Package classifier decides whether a long entry reached its target or stop-loss
// within a fixed horizon of trading days.
package classifier

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/lookup"
	"trade-outcome-lab/internal/pricesource"
)

// DefaultHorizonDays is the number of calendar days after entry that are scanned.
const DefaultHorizonDays = 30

// Result is the classification of one entry.
type Result struct {
	Outcome  domain.Outcome
	ExitDate time.Time // day the winning threshold was touched; zero when unresolved
	Detail   string    // error text for OutcomeError
}

// ClassifySeries classifies a fetched series. It is pure: bars on or before
// entry and bars after entry+horizonDays are ignored, and the remaining bars
// are scanned in date order. On each bar the target is tested before the
// stop-loss, so a day touching both counts as a target hit.
// An empty series is NoData.
func ClassifySeries(bars []*domain.DailyBar, entry time.Time, horizonDays int, th domain.Thresholds) Result {
	if len(bars) == 0 {
		return Result{Outcome: domain.OutcomeNoData}
	}

	sorted := make([]*domain.DailyBar, len(bars))
	copy(sorted, bars)
	domain.SortBars(sorted)

	day := domain.Day(entry)
	for _, b := range lookup.BarsAfter(day, day.AddDate(0, 0, horizonDays), sorted) {
		if b.High.GreaterThanOrEqual(th.Target) {
			return Result{Outcome: domain.OutcomeTargetHit, ExitDate: domain.Day(b.Date)}
		}
		if b.Low.LessThanOrEqual(th.StopLoss) {
			return Result{Outcome: domain.OutcomeStopLossHit, ExitDate: domain.Day(b.Date)}
		}
	}

	return Result{Outcome: domain.OutcomeNeitherHit}
}

// Classifier fetches the horizon series from a Source and classifies it.
type Classifier struct {
	source      pricesource.Source
	horizonDays int
	suffix      string
	logger      zerolog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithHorizonDays sets the number of days scanned after entry.
func WithHorizonDays(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.horizonDays = n
		}
	}
}

// WithExchangeSuffix sets the suffix appended to bare symbols.
func WithExchangeSuffix(suffix string) Option {
	return func(c *Classifier) {
		c.suffix = suffix
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Classifier) {
		c.logger = l
	}
}

// New creates a Classifier over source.
func New(source pricesource.Source, opts ...Option) *Classifier {
	c := &Classifier{
		source:      source,
		horizonDays: DefaultHorizonDays,
		suffix:      domain.DefaultExchangeSuffix,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HorizonDays returns the configured horizon.
func (c *Classifier) HorizonDays() int {
	return c.horizonDays
}

// Classify fetches [entry, entry+horizon] for symbol and classifies it.
// An unknown symbol is NoData; any other fetch failure is OutcomeError with the
// error text in Detail.
func (c *Classifier) Classify(ctx context.Context, symbol string, entry time.Time, th domain.Thresholds) Result {
	sym := domain.NormalizeSymbol(symbol, c.suffix)
	day := domain.Day(entry)

	bars, err := c.source.FetchDaily(ctx, sym, day, day.AddDate(0, 0, c.horizonDays))
	if err != nil {
		if errors.Is(err, pricesource.ErrUnknownSymbol) {
			return Result{Outcome: domain.OutcomeNoData}
		}
		c.logger.Warn().Err(err).Str("symbol", sym).Time("entry", day).Msg("horizon fetch failed")
		return Result{Outcome: domain.OutcomeError, Detail: err.Error()}
	}

	return ClassifySeries(bars, day, c.horizonDays, th)
}
