package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface checks.
var (
	_ storage.RunStore    = (*RunStore)(nil)
	_ storage.RunRecorder = (*RunStore)(nil)
)

const runColumns = `
	run_id, created_at, source,
	target_pct, sl_pct, horizon_days, lookup_window_days, exchange_suffix,
	total_trades, target_hit, stop_loss_hit, neither_hit, no_data, price_not_found, errors,
	total_pnl_pct, avg_pnl_pct, win_rate, max_drawdown_pct, max_consecutive_losses
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.EvaluationRun) (err error) {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	defer observeQuery("insert_run", time.Now(), &err)

	return insertRun(ctx, s.pool, r)
}

// InsertWithResults adds a run and its results in one transaction.
// Results must belong to the run. Nothing is written on any error.
func (s *RunStore) InsertWithResults(ctx context.Context, r *domain.EvaluationRun, results []*domain.TradeResult) (err error) {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	for _, res := range results {
		if res == nil || res.RunID != r.RunID {
			return storage.ErrInvalidInput
		}
	}

	defer observeQuery("insert_run_with_results", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertRun(ctx, tx, r); err != nil {
		return err
	}
	if err := insertResults(ctx, tx, results); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertRun(ctx context.Context, db execer, r *domain.EvaluationRun) error {
	query := `INSERT INTO evaluation_runs (` + runColumns + `) VALUES (
		$1, $2, $3,
		$4, $5, $6, $7, $8,
		$9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20
	)`

	sum := r.Summary
	_, err := db.Exec(ctx, query,
		r.RunID, r.CreatedAt, r.Source,
		r.Params.TargetPct, r.Params.SLPct, r.Params.HorizonDays, r.Params.LookupWindowDays, r.Params.ExchangeSuffix,
		sum.TotalTrades, sum.TargetHit, sum.StopLossHit, sum.NeitherHit, sum.NoData, sum.PriceNotFound, sum.Errors,
		sum.TotalPnLPct, sum.AvgPnLPct, sum.WinRate, sum.MaxDrawdownPct, sum.MaxConsecutiveLosses,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert evaluation run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (_ *domain.EvaluationRun, err error) {
	defer observeQuery("get_run", time.Now(), &err)

	query := `SELECT ` + runColumns + ` FROM evaluation_runs WHERE run_id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get evaluation run by id: %w", err)
	}
	return r, nil
}

// List retrieves the most recent runs, newest first.
// A non-positive limit returns all runs.
func (s *RunStore) List(ctx context.Context, limit int) (_ []*domain.EvaluationRun, err error) {
	defer observeQuery("list_runs", time.Now(), &err)

	query := `SELECT ` + runColumns + ` FROM evaluation_runs ORDER BY created_at DESC, run_id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evaluation runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.EvaluationRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluation run rows: %w", err)
	}
	return runs, nil
}

// scanRun scans a single row into an EvaluationRun.
func scanRun(row pgx.Row) (*domain.EvaluationRun, error) {
	var r domain.EvaluationRun
	sum := &r.Summary

	err := row.Scan(
		&r.RunID, &r.CreatedAt, &r.Source,
		&r.Params.TargetPct, &r.Params.SLPct, &r.Params.HorizonDays, &r.Params.LookupWindowDays, &r.Params.ExchangeSuffix,
		&sum.TotalTrades, &sum.TargetHit, &sum.StopLossHit, &sum.NeitherHit, &sum.NoData, &sum.PriceNotFound, &sum.Errors,
		&sum.TotalPnLPct, &sum.AvgPnLPct, &sum.WinRate, &sum.MaxDrawdownPct, &sum.MaxConsecutiveLosses,
	)
	if err != nil {
		return nil, err
	}

	sum.NoResult = sum.NeitherHit + sum.NoData + sum.PriceNotFound + sum.Errors
	return &r, nil
}
