package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/storage"
)

// TradeResultStore implements storage.TradeResultStore using PostgreSQL.
type TradeResultStore struct {
	pool *Pool
}

// NewTradeResultStore creates a new TradeResultStore.
func NewTradeResultStore(pool *Pool) *TradeResultStore {
	return &TradeResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeResultStore = (*TradeResultStore)(nil)

// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
// Returns ErrNotFound if the referenced run does not exist.
func (s *TradeResultStore) InsertBulk(ctx context.Context, results []*domain.TradeResult) (err error) {
	if len(results) == 0 {
		return nil
	}
	for _, r := range results {
		if r == nil || r.RunID == "" {
			return storage.ErrInvalidInput
		}
	}

	defer observeQuery("insert_trade_results", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertResults(ctx, tx, results); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// insertResults writes results inside tx. A missing run surfaces as ErrNotFound.
func insertResults(ctx context.Context, tx pgx.Tx, results []*domain.TradeResult) error {
	query := `
		INSERT INTO trade_results (
			run_id, row_index, symbol, entry_date_text, market_cap, sector,
			entry_date, close_price, target_price, stop_loss_price,
			target_pct, sl_pct,
			outcome, detail, exit_date, pnl_pct
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12,
			$13, $14, $15, $16
		)
	`

	for _, r := range results {
		req := r.Request
		_, err := tx.Exec(ctx, query,
			r.RunID, req.Row, req.Symbol, req.EntryDate, req.MarketCap, req.Sector,
			nullableDate(r.EntryDate), r.ClosePrice, r.TargetPrice, r.StopLossPrice,
			r.TargetPct, r.SLPct,
			string(r.Outcome), r.Detail, nullableDate(r.ExitDate), r.PnLPct,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			if isForeignKeyError(err) {
				return fmt.Errorf("run %s: %w", r.RunID, storage.ErrNotFound)
			}
			return fmt.Errorf("insert trade result in bulk: %w", err)
		}
	}
	return nil
}

// GetByRunID retrieves all results of a run, ordered by row ASC.
func (s *TradeResultStore) GetByRunID(ctx context.Context, runID string) (_ []*domain.TradeResult, err error) {
	defer observeQuery("get_trade_results", time.Now(), &err)

	query := `
		SELECT
			run_id, row_index, symbol, entry_date_text, market_cap, sector,
			entry_date, close_price, target_price, stop_loss_price,
			target_pct, sl_pct,
			outcome, detail, exit_date, pnl_pct
		FROM trade_results
		WHERE run_id = $1
		ORDER BY row_index ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trade results by run id: %w", err)
	}
	defer rows.Close()

	return scanTradeResults(rows)
}

// scanTradeResults scans multiple rows into a slice of TradeResult.
func scanTradeResults(rows pgx.Rows) ([]*domain.TradeResult, error) {
	var results []*domain.TradeResult

	for rows.Next() {
		var (
			r         domain.TradeResult
			outcome   string
			entryDate *time.Time
			exitDate  *time.Time
		)
		req := &r.Request

		err := rows.Scan(
			&r.RunID, &req.Row, &req.Symbol, &req.EntryDate, &req.MarketCap, &req.Sector,
			&entryDate, &r.ClosePrice, &r.TargetPrice, &r.StopLossPrice,
			&r.TargetPct, &r.SLPct,
			&outcome, &r.Detail, &exitDate, &r.PnLPct,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade result row: %w", err)
		}

		r.Outcome = domain.Outcome(outcome)
		if entryDate != nil {
			r.EntryDate = domain.Day(*entryDate)
		}
		if exitDate != nil {
			r.ExitDate = domain.Day(*exitDate)
		}
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade result rows: %w", err)
	}

	return results, nil
}
