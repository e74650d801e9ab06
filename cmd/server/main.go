// Package main provides the HTTP service:
// - POST /evaluate: upload a trade file and evaluate it
// - GET /runs, /runs/{id}, exports and markdown reports of stored runs
// - GET /ws/progress: live progress of running evaluations
// - /health and /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-outcome-lab/internal/api"
	"trade-outcome-lab/internal/app"
	"trade-outcome-lab/internal/config"
	"trade-outcome-lab/internal/evaluator"
	"trade-outcome-lab/internal/logging"
	"trade-outcome-lab/internal/metrics"
	"trade-outcome-lab/internal/reporting"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 30 * time.Second

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
	addr := flag.String("addr", ":8080", "HTTP listen address")
	flag.StringVar(&cfg.PriceSource, "price-source", cfg.PriceSource, "Price source: yahoo, clickhouse, memory")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string (runs kept in memory when empty)")
	flag.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent price fetches per evaluation")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: console, json")
	maxUpload := flag.Int64("max-upload-bytes", api.DefaultMaxUploadBytes, "Maximum upload size")
	flag.Parse()

	// Setup logger
	logger := logging.MustNew("server", logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create stores
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open stores")
	}
	defer stores.Close()
	if !stores.Durable {
		logger.Warn().Msg("no --postgres-dsn; runs are kept in memory and lost on restart")
	}

	src, sourceName, err := app.BuildSource(cfg, stores, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build price source")
	}

	// Wire components
	broadcaster := evaluator.NewBroadcaster(evaluator.DefaultSubscriberBuffer)
	eval := app.BuildEvaluator(cfg, src, logger, evaluator.WithBroadcaster(broadcaster))
	orch := app.BuildOrchestrator(cfg, eval, stores, sourceName, true, logger)
	gen := reporting.NewGenerator(metrics.NewAggregator(stores.Runs, stores.Results))

	srv := api.New(api.Options{
		Orchestrator:   orch,
		Generator:      gen,
		Broadcaster:    broadcaster,
		TargetPct:      cfg.TargetPct,
		SLPct:          cfg.SLPct,
		MaxUploadBytes: *maxUpload,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", *addr).Str("price_source", sourceName).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("received signal, initiating graceful shutdown")
	case err := <-errCh:
		logger.Error().Err(err).Msg("HTTP server error")
	}

	// Close progress streams first; Shutdown does not wait for hijacked connections.
	broadcaster.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}
