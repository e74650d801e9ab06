// Package evaluator runs the resolve-then-classify pipeline over a batch of
// trade requests with a bounded worker pool.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"trade-outcome-lab/internal/classifier"
	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/metrics"
	"trade-outcome-lab/internal/observability"
	"trade-outcome-lab/internal/resolver"
)

// DefaultWorkers is the default worker pool size.
const DefaultWorkers = 8

// CancelledDetail is the Detail of rows that never started because the run was cancelled.
const CancelledDetail = "cancelled"

// ErrInvalidParameter is returned when a percentage is outside (0, 100].
var ErrInvalidParameter = errors.New("invalid parameter")

// Report is the output of one batch evaluation.
type Report struct {
	RunID    string
	Results  []*domain.TradeResult // one per request, in request order
	Summary  domain.PortfolioSummary
	Duration time.Duration
}

// Evaluator evaluates batches of trade requests.
type Evaluator struct {
	resolver    *resolver.Resolver
	classifier  *classifier.Classifier
	workers     int
	logger      zerolog.Logger
	broadcaster *Broadcaster
	onProgress  func(Progress)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// WithBroadcaster publishes progress events to b.
func WithBroadcaster(b *Broadcaster) Option {
	return func(e *Evaluator) {
		e.broadcaster = b
	}
}

// WithProgressFunc calls fn for every progress event, in order, from a worker goroutine.
// fn must not block for long.
func WithProgressFunc(fn func(Progress)) Option {
	return func(e *Evaluator) {
		e.onProgress = fn
	}
}

// New creates an Evaluator.
func New(res *resolver.Resolver, cls *classifier.Classifier, opts ...Option) *Evaluator {
	e := &Evaluator{
		resolver:   res,
		classifier: cls,
		workers:    DefaultWorkers,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateParams checks that both percentages are in (0, 100].
func ValidateParams(targetPct, slPct float64) error {
	if err := validatePct("target_pct", targetPct); err != nil {
		return err
	}
	return validatePct("sl_pct", slPct)
}

func validatePct(name string, v float64) error {
	if math.IsNaN(v) || v <= 0 || v > 100 {
		return fmt.Errorf("%s must be in (0, 100], got %v: %w", name, v, ErrInvalidParameter)
	}
	return nil
}

// Evaluate classifies every request. Rows run concurrently on the worker pool
// and each writes only its own slot. Row failures become outcomes and never
// abort siblings.
//
// When ctx is cancelled no new row starts; rows already running finish their
// fetches. Rows that never started get OutcomeError with CancelledDetail, and
// the full report is returned together with ctx.Err().
func (e *Evaluator) Evaluate(ctx context.Context, runID string, requests []domain.TradeRequest, targetPct, slPct float64) (*Report, error) {
	if err := ValidateParams(targetPct, slPct); err != nil {
		return nil, err
	}

	start := time.Now()
	observability.EvaluationStarted()
	defer observability.EvaluationFinished()

	total := len(requests)
	results := make([]*domain.TradeResult, total)
	log := e.logger.With().Str("run_id", runID).Logger()
	log.Info().Int("rows", total).Int("workers", e.workers).
		Float64("target_pct", targetPct).Float64("sl_pct", slPct).Msg("evaluation started")

	var (
		mu        sync.Mutex
		completed int
	)
	emit := func(p Progress) {
		if e.onProgress != nil {
			e.onProgress(p)
		}
		if e.broadcaster != nil {
			e.broadcaster.Publish(p)
		}
	}

	// Fetches outlive cancellation so in-flight rows complete.
	fetchCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(e.workers)

	for i := range requests {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			r := e.evaluateRow(fetchCtx, runID, requests[i], targetPct, slPct)
			results[i] = r
			observability.RecordRowEvaluated(string(r.Outcome))

			mu.Lock()
			completed++
			emit(Progress{
				RunID:     runID,
				Completed: completed,
				Total:     total,
				Row:       r.Request.Row,
				Symbol:    r.Request.Symbol,
				Outcome:   r.Outcome,
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	cancelled := 0
	for i, r := range results {
		if r != nil {
			continue
		}
		cancelled++
		results[i] = &domain.TradeResult{
			RunID:     runID,
			Request:   requests[i],
			TargetPct: targetPct,
			SLPct:     slPct,
			Outcome:   domain.OutcomeError,
			Detail:    CancelledDetail,
		}
	}

	report := &Report{
		RunID:    runID,
		Results:  results,
		Summary:  metrics.ComputeSummary(results),
		Duration: time.Since(start),
	}

	emit(Progress{RunID: runID, Completed: completed, Total: total, Row: -1, Done: true})

	status := "success"
	err := ctx.Err()
	if err != nil {
		status = "cancelled"
		log.Warn().Err(err).Int("cancelled_rows", cancelled).Msg("evaluation cancelled")
	}
	observability.RecordEvaluationRun(status, report.Duration.Seconds(), time.Now().Unix())

	log.Info().
		Int("target_hit", report.Summary.TargetHit).
		Int("stop_loss_hit", report.Summary.StopLossHit).
		Int("no_result", report.Summary.NoResult).
		Float64("total_pnl_pct", report.Summary.TotalPnLPct).
		Dur("duration", report.Duration).
		Msg("evaluation finished")

	return report, err
}

// evaluateRow resolves the reference close and classifies one request.
func (e *Evaluator) evaluateRow(ctx context.Context, runID string, req domain.TradeRequest, targetPct, slPct float64) *domain.TradeResult {
	res := &domain.TradeResult{
		RunID:     runID,
		Request:   req,
		TargetPct: targetPct,
		SLPct:     slPct,
		Outcome:   domain.OutcomePriceNotFound,
	}

	if strings.TrimSpace(req.Symbol) == "" {
		res.Detail = "missing symbol"
		return res
	}

	date, err := resolver.ParseDate(req.EntryDate)
	if err != nil {
		res.Detail = err.Error()
		return res
	}
	res.EntryDate = date

	entry := e.resolver.ResolveDate(ctx, req.Symbol, date)
	if !entry.Found {
		return res
	}
	res.ClosePrice = entry.Close

	th := domain.NewThresholds(entry.Close, targetPct, slPct)
	res.TargetPrice = th.Target
	res.StopLossPrice = th.StopLoss

	cls := e.classifier.Classify(ctx, req.Symbol, date, th)
	res.Outcome = cls.Outcome
	res.ExitDate = cls.ExitDate
	res.Detail = cls.Detail
	res.PnLPct = cls.Outcome.PnLPct(targetPct, slPct)

	e.logger.Debug().
		Str("run_id", runID).
		Int("row", req.Row).
		Str("symbol", entry.Symbol).
		Str("close", entry.Close.String()).
		Str("outcome", string(cls.Outcome)).
		Msg("row evaluated")

	return res
}
