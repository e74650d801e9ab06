// Package ingestion backfills daily bars from a price source into a bar store
// so evaluations can later run offline.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/observability"
	"trade-outcome-lab/internal/pricesource"
	"trade-outcome-lab/internal/resolver"
	"trade-outcome-lab/internal/storage"
)

// DefaultWorkers is the number of symbols fetched concurrently.
const DefaultWorkers = 4

// Job is one symbol and the inclusive day range to fetch for it.
type Job struct {
	Symbol string // normalized
	From   time.Time
	To     time.Time
}

// Backfiller copies bars from a Source into a DailyBarStore.
type Backfiller struct {
	source         pricesource.Source
	store          storage.DailyBarStore
	exchangeSuffix string
	workers        int
	logger         zerolog.Logger
}

// BackfillOptions contains configuration for creating a Backfiller.
type BackfillOptions struct {
	Source         pricesource.Source
	Store          storage.DailyBarStore
	ExchangeSuffix string // defaults to domain.DefaultExchangeSuffix
	Workers        int    // defaults to DefaultWorkers
	Logger         zerolog.Logger
}

// NewBackfiller creates a new daily bar backfiller.
func NewBackfiller(opts BackfillOptions) *Backfiller {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	suffix := opts.ExchangeSuffix
	if suffix == "" {
		suffix = domain.DefaultExchangeSuffix
	}
	return &Backfiller{
		source:         opts.Source,
		store:          opts.Store,
		exchangeSuffix: suffix,
		workers:        workers,
		logger:         opts.Logger,
	}
}

// SymbolResult contains statistics for one job.
type SymbolResult struct {
	Symbol            string
	Fetched           int
	Inserted          int
	DuplicatesSkipped int
	Err               error
}

// BackfillResult contains statistics from a backfill operation.
type BackfillResult struct {
	Symbols           []SymbolResult // in job order
	BarsIngested      int
	DuplicatesSkipped int
	Errors            int
	Duration          time.Duration
}

// BackfillRange fetches [from, to] for every symbol.
func (b *Backfiller) BackfillRange(ctx context.Context, symbols []string, from, to time.Time) (*BackfillResult, error) {
	jobs := make([]Job, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		sym := domain.NormalizeSymbol(s, b.exchangeSuffix)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		jobs = append(jobs, Job{Symbol: sym, From: domain.Day(from), To: domain.Day(to)})
	}
	return b.Run(ctx, jobs)
}

// Run executes jobs on the worker pool. A failed job is counted and logged
// and never stops the others. Jobs not started before ctx is cancelled are
// skipped and ctx.Err() is returned with the partial result.
func (b *Backfiller) Run(ctx context.Context, jobs []Job) (*BackfillResult, error) {
	start := time.Now()
	result := &BackfillResult{Symbols: make([]SymbolResult, len(jobs))}

	b.logger.Info().Int("symbols", len(jobs)).Int("workers", b.workers).Msg("starting backfill")

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(b.workers)

	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			sr := b.runJob(ctx, job)
			result.Symbols[i] = sr

			mu.Lock()
			result.BarsIngested += sr.Inserted
			result.DuplicatesSkipped += sr.DuplicatesSkipped
			if sr.Err != nil {
				result.Errors++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i := range result.Symbols {
		if result.Symbols[i].Symbol == "" {
			result.Symbols[i] = SymbolResult{Symbol: jobs[i].Symbol, Err: context.Canceled}
		}
	}
	result.Duration = time.Since(start)

	b.logger.Info().
		Int("bars_ingested", result.BarsIngested).
		Int("duplicates_skipped", result.DuplicatesSkipped).
		Int("errors", result.Errors).
		Dur("duration", result.Duration).
		Msg("backfill finished")

	return result, ctx.Err()
}

// runJob fetches one symbol and inserts the bars the store does not have yet.
func (b *Backfiller) runJob(ctx context.Context, job Job) SymbolResult {
	sr := SymbolResult{Symbol: job.Symbol}
	log := b.logger.With().Str("symbol", job.Symbol).Logger()

	bars, err := b.source.FetchDaily(ctx, job.Symbol, job.From, job.To)
	if err != nil {
		sr.Err = fmt.Errorf("fetch %s: %w", job.Symbol, err)
		log.Warn().Err(err).Msg("fetch failed")
		return sr
	}
	sr.Fetched = len(bars)

	existing, err := b.store.GetByRange(ctx, job.Symbol, job.From, job.To)
	if err != nil {
		sr.Err = fmt.Errorf("read stored bars %s: %w", job.Symbol, err)
		log.Warn().Err(err).Msg("read stored bars failed")
		return sr
	}
	have := make(map[time.Time]bool, len(existing))
	for _, e := range existing {
		have[domain.Day(e.Date)] = true
	}

	fresh := make([]*domain.DailyBar, 0, len(bars))
	for _, bar := range bars {
		day := domain.Day(bar.Date)
		if have[day] {
			sr.DuplicatesSkipped++
			continue
		}
		have[day] = true
		fresh = append(fresh, bar)
	}
	if len(fresh) == 0 {
		return sr
	}

	if err := b.store.InsertBulk(ctx, fresh); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// A concurrent writer stored the same bars first.
			sr.DuplicatesSkipped += len(fresh)
			return sr
		}
		sr.Err = fmt.Errorf("insert bars %s: %w", job.Symbol, err)
		log.Warn().Err(err).Msg("insert failed")
		return sr
	}
	sr.Inserted = len(fresh)
	observability.RecordBarsIngested(sr.Inserted)
	log.Debug().Int("inserted", sr.Inserted).Msg("bars stored")
	return sr
}

// PlanFromRequests builds one job per symbol covering every day an evaluation
// of requests would read: windowDays before the earliest entry through
// max(windowDays, horizonDays) after the latest. Rows with an empty symbol or
// an unparseable date are skipped. Jobs are sorted by symbol.
func PlanFromRequests(requests []domain.TradeRequest, exchangeSuffix string, windowDays, horizonDays int) []Job {
	type span struct{ first, last time.Time }
	spans := make(map[string]*span)

	for _, r := range requests {
		sym := domain.NormalizeSymbol(r.Symbol, exchangeSuffix)
		if strings.TrimSpace(sym) == "" {
			continue
		}
		date, err := resolver.ParseDate(r.EntryDate)
		if err != nil {
			continue
		}
		sp, ok := spans[sym]
		if !ok {
			spans[sym] = &span{first: date, last: date}
			continue
		}
		if date.Before(sp.first) {
			sp.first = date
		}
		if date.After(sp.last) {
			sp.last = date
		}
	}

	after := max(windowDays, horizonDays)
	jobs := make([]Job, 0, len(spans))
	for sym, sp := range spans {
		jobs = append(jobs, Job{
			Symbol: sym,
			From:   sp.first.AddDate(0, 0, -windowDays),
			To:     sp.last.AddDate(0, 0, after),
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Symbol < jobs[j].Symbol })
	return jobs
}
