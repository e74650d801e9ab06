package storage

import (
	"context"
	"time"

	"trade-outcome-lab/internal/domain"
)

// DailyBarStore provides access to daily_bars storage.
type DailyBarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, date).
	InsertBulk(ctx context.Context, bars []*domain.DailyBar) error

	// GetByRange retrieves bars for a symbol within [start, end] (inclusive), ordered by date ASC.
	GetByRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.DailyBar, error)
}

// RunStore provides access to evaluation_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.EvaluationRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.EvaluationRun, error)

	// List retrieves the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]*domain.EvaluationRun, error)
}

// TradeResultStore provides access to trade_results storage.
type TradeResultStore interface {
	// InsertBulk adds multiple results atomically. Fails entire batch on duplicate (run_id, row).
	// Every referenced run must already exist; otherwise returns ErrNotFound
	// and nothing is inserted.
	InsertBulk(ctx context.Context, results []*domain.TradeResult) error

	// GetByRunID retrieves all results of a run, ordered by row ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TradeResult, error)
}

// RunRecorder is implemented by run stores that can write a run and its
// results in one transaction.
type RunRecorder interface {
	// InsertWithResults adds a run and its results atomically.
	// Returns ErrDuplicateKey if the run or any (run_id, row) exists.
	InsertWithResults(ctx context.Context, r *domain.EvaluationRun, results []*domain.TradeResult) error
}
