// Package orchestrator provides end-to-end evaluation runs.
// It coordinates: evaluation → persistence → metrics
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/evaluator"
	"trade-outcome-lab/internal/idhash"
	"trade-outcome-lab/internal/metrics"
	"trade-outcome-lab/internal/storage"
)

var (
	// ErrNoStore is returned by Load when the orchestrator has no run store.
	ErrNoStore = errors.New("no run store configured")

	// ErrPersist wraps storage failures of an otherwise evaluated run.
	ErrPersist = errors.New("persist run")
)

// Orchestrator coordinates one evaluation run.
// Flow: evaluate → persist run and results → analyze
type Orchestrator struct {
	evaluator *evaluator.Evaluator

	// Stores (optional; nil skips persistence)
	runStore         storage.RunStore
	tradeResultStore storage.TradeResultStore

	// Recorded with every run
	sourceName       string
	horizonDays      int
	lookupWindowDays int
	exchangeSuffix   string

	logger zerolog.Logger
	now    func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Evaluator *evaluator.Evaluator

	// Optional stores; both must be set to persist runs
	RunStore         storage.RunStore
	TradeResultStore storage.TradeResultStore

	// Run metadata
	SourceName       string
	HorizonDays      int
	LookupWindowDays int
	ExchangeSuffix   string

	Logger zerolog.Logger
	Now    func() time.Time // defaults to time.Now().UTC()
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{
		evaluator:        opts.Evaluator,
		runStore:         opts.RunStore,
		tradeResultStore: opts.TradeResultStore,
		sourceName:       opts.SourceName,
		horizonDays:      opts.HorizonDays,
		lookupWindowDays: opts.LookupWindowDays,
		exchangeSuffix:   opts.ExchangeSuffix,
		logger:           opts.Logger,
		now:              now,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Run       *domain.EvaluationRun
	Analysis  *metrics.Analysis
	Duration  time.Duration
	Persisted bool
}

// Persists reports whether runs are written to storage.
func (o *Orchestrator) Persists() bool {
	return o.runStore != nil && o.tradeResultStore != nil
}

// Run evaluates requests and, when stores are configured, persists the run.
// Phases:
//  1. Validate parameters and assign a run_id
//  2. Evaluate every request
//  3. Persist run and results
//  4. Compute breakdowns
//
// A cancelled run is still persisted (unstarted rows carry the cancelled
// marker) and returned together with the context error. When persistence
// fails the evaluated run is returned with an error wrapping ErrPersist.
func (o *Orchestrator) Run(ctx context.Context, requests []domain.TradeRequest, targetPct, slPct float64) (*RunResult, error) {
	// Phase 1: Validate
	if err := evaluator.ValidateParams(targetPct, slPct); err != nil {
		return nil, err
	}
	createdAt := o.now()
	params := domain.EvaluationParams{
		TargetPct:        targetPct,
		SLPct:            slPct,
		HorizonDays:      o.horizonDays,
		LookupWindowDays: o.lookupWindowDays,
		ExchangeSuffix:   o.exchangeSuffix,
	}
	runID := idhash.ComputeRunID(params, requests, createdAt)
	log := o.logger.With().Str("run_id", runID).Logger()

	// Phase 2: Evaluate
	log.Debug().Int("requests", len(requests)).Msg("phase 2: evaluating")
	report, evalErr := o.evaluator.Evaluate(ctx, runID, requests, targetPct, slPct)
	if report == nil {
		return nil, fmt.Errorf("evaluate: %w", evalErr)
	}

	run := &domain.EvaluationRun{
		RunID:     runID,
		CreatedAt: createdAt,
		Source:    o.sourceName,
		Params:    params,
		Summary:   report.Summary,
	}
	result := &RunResult{Run: run, Duration: report.Duration}

	// Phase 3: Persist
	var persistErr error
	if o.Persists() {
		log.Debug().Msg("phase 3: persisting")
		if err := o.persist(context.WithoutCancel(ctx), run, report.Results); err != nil {
			persistErr = fmt.Errorf("%w %s: %w", ErrPersist, runID, err)
			log.Error().Err(err).Msg("run not persisted")
		} else {
			result.Persisted = true
		}
	}

	// Phase 4: Metrics
	log.Debug().Msg("phase 4: computing breakdowns")
	result.Analysis = metrics.Analyze(report.Results)
	result.Analysis.Run = run

	log.Info().
		Int("trades", run.Summary.TotalTrades).
		Bool("persisted", result.Persisted).
		Dur("duration", result.Duration).
		Msg("run completed")

	return result, errors.Join(evalErr, persistErr)
}

// persist writes the run and its results. Results reference their run, so
// the run goes first. A run store that implements storage.RunRecorder
// writes both in one transaction.
func (o *Orchestrator) persist(ctx context.Context, run *domain.EvaluationRun, results []*domain.TradeResult) error {
	if rec, ok := o.runStore.(storage.RunRecorder); ok {
		if err := rec.InsertWithResults(ctx, run, results); err != nil {
			return fmt.Errorf("insert run with results: %w", err)
		}
		return nil
	}
	if err := o.runStore.Insert(ctx, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if len(results) > 0 {
		if err := o.tradeResultStore.InsertBulk(ctx, results); err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
	}
	return nil
}

// Load rebuilds the analysis of a persisted run.
// Returns storage.ErrNotFound if the run does not exist.
func (o *Orchestrator) Load(ctx context.Context, runID string) (*metrics.Analysis, error) {
	if !o.Persists() {
		return nil, ErrNoStore
	}
	return metrics.NewAggregator(o.runStore, o.tradeResultStore).AnalyzeRun(ctx, runID)
}

// Recent lists the most recent persisted runs, newest first.
func (o *Orchestrator) Recent(ctx context.Context, limit int) ([]*domain.EvaluationRun, error) {
	if !o.Persists() {
		return nil, ErrNoStore
	}
	return o.runStore.List(ctx, limit)
}
