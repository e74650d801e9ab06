package reporting

import (
	"fmt"
	"strings"
	"time"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/metrics"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	s := r.Summary

	// Header
	sb.WriteString("# Strategy Evaluation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s` | Source: %s\n\n", r.RunID, r.Source))
		sb.WriteString(fmt.Sprintf("Target: %.2f%% | Stop Loss: %.2f%% | Horizon: %d days | Lookup Window: %d days | Suffix: %s\n\n",
			r.Params.TargetPct, r.Params.SLPct, r.Params.HorizonDays, r.Params.LookupWindowDays, r.Params.ExchangeSuffix))
	}

	// Strategy Analysis
	sb.WriteString("## Strategy Analysis\n\n")
	sb.WriteString("| Metric | Value | Share |\n")
	sb.WriteString("|--------|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d | |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Target Hit | %d | %.1f%% |\n", s.TargetHit, metrics.Percent(s.TargetHit, s.TotalTrades)))
	sb.WriteString(fmt.Sprintf("| Stop Loss Hit | %d | %.1f%% |\n", s.StopLossHit, metrics.Percent(s.StopLossHit, s.TotalTrades)))
	sb.WriteString(fmt.Sprintf("| No Result | %d | %.1f%% |\n", s.NoResult, metrics.Percent(s.NoResult, s.TotalTrades)))
	sb.WriteString("\n")

	// Profit & Loss
	sb.WriteString("## Profit & Loss\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total P&L | %.2f%% |\n", s.TotalPnLPct))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.1f%% |\n", s.WinRate*100))
	sb.WriteString(fmt.Sprintf("| Average P&L per Trade | %.2f%% |\n", s.AvgPnLPct))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f%% |\n", s.MaxDrawdownPct))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", s.MaxConsecutiveLosses))
	sb.WriteString("\n")

	// Distribution
	sb.WriteString("## Trade Results Distribution\n\n")
	sb.WriteString("| Result | Count | Share |\n")
	sb.WriteString("|--------|-------|-------|\n")
	for _, d := range r.Distribution {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.1f%% |\n", d.Outcome, d.Count, d.Pct))
	}
	sb.WriteString("\n")

	writeBreakdown(&sb, "Sector-wise Performance", "Sector", r.BySector)
	writeBreakdown(&sb, "Market Cap wise Performance", "Market Cap", r.ByMarketCap)
	writeBreakdown(&sb, "Monthly Performance Trend", "Month", r.ByMonth)

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	dq := r.DataQuality
	if len(dq.UnparseableDates) == 0 && len(dq.FetchErrors) == 0 && len(dq.IntegrityErrors) == 0 {
		sb.WriteString("No data quality issues.\n\n")
		return sb.String()
	}
	writeIssues(&sb, "Unparseable Dates", dq.UnparseableDates)
	writeIssues(&sb, "Fetch Errors", dq.FetchErrors)
	if len(dq.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, e := range dq.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeBreakdown(sb *strings.Builder, title, groupHeader string, groups []metrics.Breakdown) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(groups) == 0 {
		sb.WriteString("No trades.\n\n")
		return
	}

	sb.WriteString(fmt.Sprintf("| %s | Trades |", groupHeader))
	for _, o := range domain.AllOutcomes {
		sb.WriteString(fmt.Sprintf(" %s |", o))
	}
	sb.WriteString(" Win Rate | P&L |\n")
	sb.WriteString("|" + strings.Repeat("---|", len(domain.AllOutcomes)+4) + "\n")

	for _, g := range groups {
		sb.WriteString(fmt.Sprintf("| %s | %d |", escapeCell(g.Group), g.Total))
		for _, o := range domain.AllOutcomes {
			sb.WriteString(fmt.Sprintf(" %d |", g.Counts[o]))
		}
		sb.WriteString(fmt.Sprintf(" %.1f%% | %.2f%% |\n", g.WinRate()*100, g.PnLPct))
	}
	sb.WriteString("\n")
}

func writeIssues(sb *strings.Builder, title string, issues []RowIssue) {
	if len(issues) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	sb.WriteString("| Row | Symbol | Detail |\n")
	sb.WriteString("|-----|--------|--------|\n")
	for _, i := range issues {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s |\n", i.Row, escapeCell(i.Symbol), escapeCell(i.Detail)))
	}
	sb.WriteString("\n")
}

// escapeCell keeps pipes inside a value from splitting the table cell.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
