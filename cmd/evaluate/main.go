// Command evaluate classifies the trades of a CSV or XLSX file and writes
// result exports.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-outcome-lab/internal/app"
	"trade-outcome-lab/internal/config"
	"trade-outcome-lab/internal/evaluator"
	"trade-outcome-lab/internal/logging"
	"trade-outcome-lab/internal/metrics"
	"trade-outcome-lab/internal/orchestrator"
	"trade-outcome-lab/internal/reporting"
	"trade-outcome-lab/internal/tradefile"
)

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
	input := flag.String("input", "", "Trade file to evaluate, .csv or .xlsx (required)")
	flag.Float64Var(&cfg.TargetPct, "target-pct", cfg.TargetPct, "Target percentage, (0, 50]")
	flag.Float64Var(&cfg.SLPct, "sl-pct", cfg.SLPct, "Stop-loss percentage, (0, 50]")
	flag.IntVar(&cfg.HorizonDays, "horizon-days", cfg.HorizonDays, "Calendar days after entry to scan for an exit")
	flag.IntVar(&cfg.LookupWindowDays, "window-days", cfg.LookupWindowDays, "Days either side of the entry date searched for a close")
	flag.StringVar(&cfg.ExchangeSuffix, "suffix", cfg.ExchangeSuffix, "Exchange suffix appended to symbols")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent price fetches")
	flag.StringVar(&cfg.PriceSource, "price-source", cfg.PriceSource, "Price source: yahoo, clickhouse, memory")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string (required with --persist)")
	flag.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: console, json")
	outputDir := flag.String("output-dir", ".", "Output directory for exports")
	formats := flag.String("formats", "xlsx", "Comma-separated export formats: xlsx, csv, md")
	persist := flag.Bool("persist", false, "Persist the run to PostgreSQL")
	outputJSON := flag.Bool("json", false, "Print the summary as JSON")
	flag.Parse()

	// Setup logger
	logger := logging.MustNew("evaluate", logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Validate flags
	if *input == "" {
		logger.Fatal().Msg("--input is required")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if *persist && cfg.PostgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required with --persist")
	}
	exportFormats, err := reporting.ParseFormats(*formats)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --formats")
	}

	// Read input before touching any price source.
	requests, err := tradefile.ReadFile(*input)
	if err != nil {
		if errors.Is(err, tradefile.ErrMissingColumns) {
			logger.Fatal().Err(err).Strs("required", tradefile.RequiredColumns).Msg("input is missing columns")
		}
		logger.Fatal().Err(err).Msg("read input")
	}
	logger.Info().Str("input", *input).Int("rows", len(requests)).Msg("input loaded")

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create stores
	if !*persist {
		cfg.PostgresDSN = ""
	}
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open stores")
	}
	defer stores.Close()

	src, sourceName, err := app.BuildSource(cfg, stores, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build price source")
	}

	step := max(len(requests)/20, 1)
	progress := func(p evaluator.Progress) {
		if p.Done || p.Completed%step == 0 {
			logger.Info().Int("completed", p.Completed).Int("total", p.Total).
				Msgf("progress %.0f%%", p.Fraction()*100)
		}
	}
	eval := app.BuildEvaluator(cfg, src, logger, evaluator.WithProgressFunc(progress))
	orch := app.BuildOrchestrator(cfg, eval, stores, sourceName, *persist, logger)

	// Run evaluation
	result, err := orch.Run(ctx, requests, cfg.TargetPct, cfg.SLPct)
	if err != nil && result == nil {
		logger.Fatal().Err(err).Msg("evaluation failed")
	}
	switch {
	case errors.Is(err, orchestrator.ErrPersist):
		logger.Error().Err(err).Msg("run not persisted; exports are still written")
	case err != nil:
		logger.Warn().Err(err).Msg("evaluation interrupted; unstarted rows are marked cancelled")
	}

	// Write exports
	report := reporting.Build(result.Analysis, time.Now())
	paths, werr := reporting.WriteFiles(*outputDir, report, exportFormats)
	if werr != nil {
		logger.Fatal().Err(werr).Msg("write exports")
	}
	for _, p := range paths {
		logger.Info().Str("path", p).Msg("export written")
	}

	// Output summary
	if *outputJSON {
		output, _ := json.MarshalIndent(result.Run, "", "  ")
		fmt.Println(string(output))
	} else {
		printSummary(result.Run.RunID, result.Analysis)
	}

	if err != nil {
		os.Exit(1)
	}
}

// printSummary outputs a human-readable run summary.
func printSummary(runID string, a *metrics.Analysis) {
	s := a.Summary
	fmt.Println()
	fmt.Println("=== Strategy Analysis ===")
	fmt.Printf("Run ID:                 %s\n", runID)
	fmt.Printf("Total Trades:           %d\n", s.TotalTrades)
	fmt.Printf("Target Hit:             %d (%.1f%%)\n", s.TargetHit, metrics.Percent(s.TargetHit, s.TotalTrades))
	fmt.Printf("Stop Loss Hit:          %d (%.1f%%)\n", s.StopLossHit, metrics.Percent(s.StopLossHit, s.TotalTrades))
	fmt.Printf("No Result:              %d (%.1f%%)\n", s.NoResult, metrics.Percent(s.NoResult, s.TotalTrades))
	fmt.Println()

	fmt.Println("Profit & Loss:")
	fmt.Printf("  Total P&L:            %.2f%%\n", s.TotalPnLPct)
	fmt.Printf("  Win Rate:             %.1f%%\n", s.WinRate*100)
	fmt.Printf("  Average per Trade:    %.2f%%\n", s.AvgPnLPct)
	fmt.Printf("  Max Drawdown:         %.2f%%\n", s.MaxDrawdownPct)
	fmt.Printf("  Max Losing Streak:    %d\n", s.MaxConsecutiveLosses)
	fmt.Println()

	fmt.Println("Distribution:")
	for _, d := range a.Distribution {
		fmt.Printf("  %-20s %5d (%.1f%%)\n", d.Outcome, d.Count, d.Pct)
	}
}
