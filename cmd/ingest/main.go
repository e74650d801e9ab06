// Command ingest backfills daily bars from Yahoo Finance into ClickHouse so
// later evaluations can run with --price-source clickhouse.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trade-outcome-lab/internal/app"
	"trade-outcome-lab/internal/config"
	"trade-outcome-lab/internal/ingestion"
	"trade-outcome-lab/internal/logging"
	"trade-outcome-lab/internal/observability"
	"trade-outcome-lab/internal/pricesource"
	"trade-outcome-lab/internal/tradefile"
)

const dateLayout = "2006-01-02"

func main() {
	if err := config.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Parse flags (env vars as defaults)
	symbols := flag.String("symbols", "", "Comma-separated symbols to backfill")
	input := flag.String("input", "", "Trade file; backfills every symbol over the days its evaluation reads")
	fromDate := flag.String("from", "", "Start date for --symbols (YYYY-MM-DD)")
	toDate := flag.String("to", "", "End date for --symbols (YYYY-MM-DD, default today)")
	flag.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	flag.StringVar(&cfg.YahooBaseURL, "yahoo-base-url", cfg.YahooBaseURL, "Yahoo Finance base URL")
	flag.StringVar(&cfg.ExchangeSuffix, "suffix", cfg.ExchangeSuffix, "Exchange suffix appended to symbols")
	workers := flag.Int("workers", ingestion.DefaultWorkers, "Concurrent symbol fetches")
	dryRun := flag.Bool("dry-run", false, "Fetch into memory only; nothing is stored")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address (empty to disable)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: console, json")
	flag.Parse()

	// Setup logger
	logger := logging.MustNew("ingest", logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Validate flags
	if (*symbols == "") == (*input == "") {
		logger.Fatal().Msg("exactly one of --symbols or --input is required")
	}
	if *dryRun {
		cfg.ClickhouseDSN = ""
	} else if cfg.ClickhouseDSN == "" {
		logger.Fatal().Msg("--clickhouse-dsn is required (use --dry-run to fetch without storing)")
	}
	cfg.PostgresDSN = ""

	// Start metrics server if enabled
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open stores")
	}
	defer stores.Close()

	yahoo := pricesource.NewYahooClient(cfg.YahooBaseURL,
		pricesource.WithTimeout(cfg.HTTPTimeout),
		pricesource.WithLogger(logger),
	)
	backfiller := ingestion.NewBackfiller(ingestion.BackfillOptions{
		Source:         yahoo,
		Store:          stores.Bars,
		ExchangeSuffix: cfg.ExchangeSuffix,
		Workers:        *workers,
		Logger:         logger,
	})

	var result *ingestion.BackfillResult
	if *input != "" {
		requests, err := tradefile.ReadFile(*input)
		if err != nil {
			logger.Fatal().Err(err).Msg("read input")
		}
		jobs := ingestion.PlanFromRequests(requests, cfg.ExchangeSuffix, cfg.LookupWindowDays, cfg.HorizonDays)
		result, err = backfiller.Run(ctx, jobs)
		if err != nil {
			logger.Warn().Err(err).Msg("backfill interrupted")
		}
	} else {
		from, to, err := parseRange(*fromDate, *toDate)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid date range")
		}
		result, err = backfiller.BackfillRange(ctx, strings.Split(*symbols, ","), from, to)
		if err != nil {
			logger.Warn().Err(err).Msg("backfill interrupted")
		}
	}

	for _, s := range result.Symbols {
		if s.Err != nil {
			logger.Error().Err(s.Err).Str("symbol", s.Symbol).Msg("symbol failed")
		}
	}
	fmt.Printf("Backfill complete: %d symbols, %d bars stored, %d duplicates skipped, %d errors in %s\n",
		len(result.Symbols), result.BarsIngested, result.DuplicatesSkipped, result.Errors, result.Duration.Round(time.Millisecond))

	if result.Errors > 0 {
		os.Exit(1)
	}
}

// parseRange parses --from and --to. --to defaults to today.
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" {
		return time.Time{}, time.Time{}, errors.New("--from is required with --symbols")
	}
	from, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
	}
	to := time.Now().UTC()
	if toStr != "" {
		if to, err = time.Parse(dateLayout, toStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", toStr, fromStr)
	}
	return from, to, nil
}
