package reporting

import (
	"fmt"
	"time"

	"trade-outcome-lab/internal/domain"
)

// ExportColumns is the header of result exports.
var ExportColumns = []string{"Date", "Symbol", "Market Cap", "Sector", "Close Price", "Target %", "SL %", "Result"}

// ExportFilePrefix starts every export file name.
const ExportFilePrefix = "processed_strategy_results_"

// ExportFileName returns processed_strategy_results_YYYYMMDD_HHMMSS.<ext>.
func ExportFileName(t time.Time, ext string) string {
	return ExportFilePrefix + t.Format("20060102_150405") + "." + ext
}

// ResultLabel is the Result column text. Error rows carry their detail.
func ResultLabel(r *domain.TradeResult) string {
	if r.Outcome == domain.OutcomeError && r.Detail != "" {
		return fmt.Sprintf("%s: %s", domain.OutcomeError, r.Detail)
	}
	return string(r.Outcome)
}

// exportRecord formats one result as export cells. Close price is rounded to
// two places; 0.00 marks a price that was not found.
func exportRecord(r *domain.TradeResult) []string {
	return []string{
		r.Request.EntryDate,
		r.Request.Symbol,
		r.Request.MarketCap,
		r.Request.Sector,
		r.ClosePrice.StringFixed(2),
		formatPct(r.TargetPct),
		formatPct(r.SLPct),
		ResultLabel(r),
	}
}

func formatPct(v float64) string {
	return fmt.Sprintf("%g", v)
}
