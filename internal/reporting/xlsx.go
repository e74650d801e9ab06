package reporting

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/metrics"
)

// Sheet names used in XLSX exports.
const (
	DataSheet    = "Processed_Data"
	SummarySheet = "Summary"
)

// WriteXLSX writes a workbook with the results sheet and a summary sheet.
// Close price and percentages are numeric cells.
func WriteXLSX(w io.Writer, results []*domain.TradeResult, summary domain.PortfolioSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(ExportColumns))
	for i, c := range ExportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(DataSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range results {
		closePrice, _ := r.ClosePrice.Round(2).Float64()
		row := []any{
			r.Request.EntryDate,
			r.Request.Symbol,
			r.Request.MarketCap,
			r.Request.Sector,
			closePrice,
			r.TargetPct,
			r.SLPct,
			ResultLabel(r),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(DataSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r.Request.Row, err)
		}
	}

	if err := writeSummarySheet(f, summary); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, s domain.PortfolioSummary) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	rows := [][]any{
		{"Metric", "Value", "Share %"},
		{"Total Trades", s.TotalTrades, nil},
		{"Target Hit", s.TargetHit, metrics.Percent(s.TargetHit, s.TotalTrades)},
		{"Stop Loss Hit", s.StopLossHit, metrics.Percent(s.StopLossHit, s.TotalTrades)},
		{"Neither Hit", s.NeitherHit, metrics.Percent(s.NeitherHit, s.TotalTrades)},
		{"No Data", s.NoData, metrics.Percent(s.NoData, s.TotalTrades)},
		{"Price Not Found", s.PriceNotFound, metrics.Percent(s.PriceNotFound, s.TotalTrades)},
		{"Error", s.Errors, metrics.Percent(s.Errors, s.TotalTrades)},
		{"No Result", s.NoResult, metrics.Percent(s.NoResult, s.TotalTrades)},
		{"Total P&L %", s.TotalPnLPct, nil},
		{"Win Rate %", s.WinRate * 100, nil},
		{"Average P&L per Trade %", s.AvgPnLPct, nil},
		{"Max Drawdown %", s.MaxDrawdownPct, nil},
		{"Max Consecutive Losses", s.MaxConsecutiveLosses, nil},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return nil
}
