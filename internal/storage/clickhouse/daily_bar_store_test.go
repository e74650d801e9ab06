package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/storage"
)

func testBar(symbol string, date time.Time, open, high, low, close string) *domain.DailyBar {
	return &domain.DailyBar{
		Symbol: symbol,
		Date:   date,
		Open:   decimal.RequireFromString(open),
		High:   decimal.RequireFromString(high),
		Low:    decimal.RequireFromString(low),
		Close:  decimal.RequireFromString(close),
		Volume: 1000,
	}
}

func TestDailyBarStore_InsertAndGetByRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDailyBarStore(conn)

	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := []*domain.DailyBar{
		testBar("RELIANCE.NS", d, "2580.5", "2601.25", "2570", "2590.75"),
		testBar("RELIANCE.NS", d.AddDate(0, 0, 1), "2590", "2610", "2585.1", "2605.2"),
		testBar("TCS.NS", d, "3700", "3720", "3690", "3710"),
	}

	require.NoError(t, store.InsertBulk(ctx, bars))

	got, err := store.GetByRange(ctx, "reliance.ns", d, d.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "RELIANCE.NS", got[0].Symbol)
	assert.True(t, got[0].Date.Equal(d))
	assert.True(t, got[0].High.Equal(decimal.RequireFromString("2601.25")))
	assert.True(t, got[1].Close.Equal(decimal.RequireFromString("2605.2")))
	assert.Equal(t, int64(1000), got[1].Volume)
}

func TestDailyBarStore_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDailyBarStore(conn)

	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := []*domain.DailyBar{testBar("INFY.NS", d, "1", "1", "1", "1")}

	require.NoError(t, store.InsertBulk(ctx, bars))
	assert.ErrorIs(t, store.InsertBulk(ctx, bars), storage.ErrDuplicateKey)
}
