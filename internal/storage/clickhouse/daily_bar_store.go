package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/storage"
)

// DailyBarStore implements storage.DailyBarStore using ClickHouse.
type DailyBarStore struct {
	conn *Conn
}

// NewDailyBarStore creates a new DailyBarStore.
func NewDailyBarStore(conn *Conn) *DailyBarStore {
	return &DailyBarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyBarStore = (*DailyBarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, date).
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
func (s *DailyBarStore) InsertBulk(ctx context.Context, bars []*domain.DailyBar) (err error) {
	if len(bars) == 0 {
		return nil
	}
	defer observeQuery("insert_daily_bars", time.Now(), &err)

	type key struct {
		symbol string
		date   time.Time
	}
	type span struct{ from, to time.Time }

	seen := make(map[key]struct{}, len(bars))
	spans := make(map[string]*span)
	for _, b := range bars {
		if b == nil || b.Symbol == "" || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		d := domain.Day(b.Date)
		k := key{strings.ToUpper(b.Symbol), d}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}

		sp, ok := spans[k.symbol]
		if !ok {
			spans[k.symbol] = &span{d, d}
			continue
		}
		if d.Before(sp.from) {
			sp.from = d
		}
		if d.After(sp.to) {
			sp.to = d
		}
	}

	// Check for duplicates against existing rows, one range query per symbol
	for symbol, sp := range spans {
		existing, err := s.GetByRange(ctx, symbol, sp.from, sp.to)
		if err != nil {
			return fmt.Errorf("check existing bars: %w", err)
		}
		for _, b := range existing {
			if _, dup := seen[key{symbol, b.Date}]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_bars (symbol, date, open, high, low, close, volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			strings.ToUpper(b.Symbol), domain.Day(b.Date),
			b.Open, b.High, b.Low, b.Close, uint64(b.Volume),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRange retrieves bars for a symbol within [start, end] (inclusive), ordered by date ASC.
func (s *DailyBarStore) GetByRange(ctx context.Context, symbol string, start, end time.Time) (_ []*domain.DailyBar, err error) {
	defer observeQuery("get_daily_bars", time.Now(), &err)

	query := `
		SELECT symbol, date, open, high, low, close, volume
		FROM daily_bars FINAL
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, strings.ToUpper(symbol), domain.Day(start), domain.Day(end))
	if err != nil {
		return nil, fmt.Errorf("query by range: %w", err)
	}
	defer rows.Close()

	return scanDailyBars(rows)
}

// scanDailyBars scans multiple rows.
func scanDailyBars(rows chRows) ([]*domain.DailyBar, error) {
	var bars []*domain.DailyBar

	for rows.Next() {
		var b domain.DailyBar
		var volume uint64

		err := rows.Scan(
			&b.Symbol, &b.Date,
			&b.Open, &b.High, &b.Low, &b.Close, &volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily bar row: %w", err)
		}

		b.Date = domain.Day(b.Date)
		b.Volume = int64(volume)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily bar rows: %w", err)
	}

	return bars, nil
}
