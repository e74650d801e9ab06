// Package app wires configuration into stores, price sources and the evaluator.
// It is shared by the binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"trade-outcome-lab/internal/cache"
	"trade-outcome-lab/internal/classifier"
	"trade-outcome-lab/internal/config"
	"trade-outcome-lab/internal/evaluator"
	"trade-outcome-lab/internal/orchestrator"
	"trade-outcome-lab/internal/pricesource"
	"trade-outcome-lab/internal/resolver"
	"trade-outcome-lab/internal/storage"
	chstore "trade-outcome-lab/internal/storage/clickhouse"
	"trade-outcome-lab/internal/storage/memory"
	"trade-outcome-lab/internal/storage/migrations"
	pgstore "trade-outcome-lab/internal/storage/postgres"
)

// Stores holds the storage implementations of one process.
type Stores struct {
	Runs    storage.RunStore
	Results storage.TradeResultStore
	Bars    storage.DailyBarStore

	// Durable reports whether runs go to PostgreSQL rather than memory.
	Durable bool

	closers []func()
}

// Close releases database connections.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStores connects to PostgreSQL and ClickHouse when their DSNs are set and
// applies migrations. Stores without a DSN fall back to memory.
func OpenStores(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Stores, error) {
	runs := memory.NewRunStore()
	s := &Stores{
		Runs:    runs,
		Results: memory.NewTradeResultStore(runs),
		Bars:    memory.NewDailyBarStore(),
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.Runs = pgstore.NewRunStore(pool)
		s.Results = pgstore.NewTradeResultStore(pool)
		s.Durable = true
		logger.Info().Msg("postgres stores ready")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		s.closers = append(s.closers, func() { conn.Close() })
		s.Bars = chstore.NewDailyBarStore(conn)
		logger.Info().Msg("clickhouse bar store ready")
	}

	return s, nil
}

// BuildSource returns the configured price source and its name.
// A Yahoo source records fetched bars when a ClickHouse bar store is configured.
func BuildSource(cfg config.Config, stores *Stores, logger zerolog.Logger) (pricesource.Source, string, error) {
	switch cfg.PriceSource {
	case config.SourceYahoo:
		yahoo := pricesource.NewYahooClient(cfg.YahooBaseURL,
			pricesource.WithTimeout(cfg.HTTPTimeout),
			pricesource.WithLogger(logger),
		)
		if cfg.ClickhouseDSN != "" {
			return pricesource.NewRecordingSource(yahoo, stores.Bars, logger), cfg.PriceSource, nil
		}
		return yahoo, cfg.PriceSource, nil
	case config.SourceClickhouse, config.SourceMemory:
		return pricesource.NewStoreSource(stores.Bars, cfg.PriceSource), cfg.PriceSource, nil
	default:
		return nil, "", fmt.Errorf("%w: unknown price source %q", config.ErrInvalidConfig, cfg.PriceSource)
	}
}

// BuildEvaluator creates a resolver with a fresh cache, a classifier and an
// evaluator configured from cfg. Extra options are applied last.
func BuildEvaluator(cfg config.Config, src pricesource.Source, logger zerolog.Logger, opts ...evaluator.Option) *evaluator.Evaluator {
	res := resolver.New(src,
		resolver.WithCache(cache.New[resolver.Entry]()),
		resolver.WithWindowDays(cfg.LookupWindowDays),
		resolver.WithExchangeSuffix(cfg.ExchangeSuffix),
		resolver.WithLogger(logger),
	)
	cls := classifier.New(src,
		classifier.WithHorizonDays(cfg.HorizonDays),
		classifier.WithExchangeSuffix(cfg.ExchangeSuffix),
		classifier.WithLogger(logger),
	)
	all := append([]evaluator.Option{
		evaluator.WithWorkers(cfg.Workers),
		evaluator.WithLogger(logger),
	}, opts...)
	return evaluator.New(res, cls, all...)
}

// BuildOrchestrator ties an evaluator to the stores. Runs are persisted only
// when persist is set.
func BuildOrchestrator(cfg config.Config, eval *evaluator.Evaluator, stores *Stores, sourceName string, persist bool, logger zerolog.Logger) *orchestrator.Orchestrator {
	opts := orchestrator.Options{
		Evaluator:        eval,
		SourceName:       sourceName,
		HorizonDays:      cfg.HorizonDays,
		LookupWindowDays: cfg.LookupWindowDays,
		ExchangeSuffix:   cfg.ExchangeSuffix,
		Logger:           logger,
	}
	if persist {
		opts.RunStore = stores.Runs
		opts.TradeResultStore = stores.Results
	}
	return orchestrator.New(opts)
}
