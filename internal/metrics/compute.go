package metrics

import (
	"sort"

	"trade-outcome-lab/internal/domain"
)

// ComputeSummary derives a PortfolioSummary from results alone.
// Results are sorted by EntryDate ASC, Row ASC before computing order-dependent
// metrics (MaxDrawdownPct, MaxConsecutiveLosses). Rows without a parsed entry
// date sort first. An empty slice yields an all-zero summary.
func ComputeSummary(results []*domain.TradeResult) domain.PortfolioSummary {
	var s domain.PortfolioSummary
	n := len(results)
	if n == 0 {
		return s
	}

	sorted := sortChronologically(results)

	pnls := make([]float64, 0, n)
	for _, r := range sorted {
		switch r.Outcome {
		case domain.OutcomeTargetHit:
			s.TargetHit++
		case domain.OutcomeStopLossHit:
			s.StopLossHit++
		case domain.OutcomeNeitherHit:
			s.NeitherHit++
		case domain.OutcomeNoData:
			s.NoData++
		case domain.OutcomePriceNotFound:
			s.PriceNotFound++
		default:
			s.Errors++
		}
		s.TotalPnLPct += r.PnLPct
		pnls = append(pnls, r.PnLPct)
	}

	s.TotalTrades = n
	s.NoResult = s.NeitherHit + s.NoData + s.PriceNotFound + s.Errors
	s.AvgPnLPct = s.TotalPnLPct / float64(n)
	s.WinRate = computeWinRate(s.TargetHit, s.TargetHit+s.StopLossHit)
	s.MaxDrawdownPct = computeMaxDrawdown(pnls)
	s.MaxConsecutiveLosses = computeMaxConsecutiveLosses(sorted)

	return s
}

// Percent returns count as a percentage of total, 0 when total is 0.
func Percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// sortChronologically returns a copy of results ordered by EntryDate ASC, Row ASC.
func sortChronologically(results []*domain.TradeResult) []*domain.TradeResult {
	sorted := make([]*domain.TradeResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].EntryDate.Equal(sorted[j].EntryDate) {
			return sorted[i].EntryDate.Before(sorted[j].EntryDate)
		}
		return sorted[i].Request.Row < sorted[j].Request.Row
	})
	return sorted
}

// computeWinRate calculates win rate as wins / resolved.
func computeWinRate(wins, resolved int) float64 {
	if resolved == 0 {
		return 0
	}
	return float64(wins) / float64(resolved)
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative P&L.
// max_drawdown = MAX(peak_cumulative - trough_cumulative)
// P&L values must be in chronological order.
func computeMaxDrawdown(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}

	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, p := range pnls {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := peak - cumulative
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest run of stop-loss hits.
// Unresolved rows neither extend nor break a streak; a target hit breaks it.
// Results must be in chronological order.
func computeMaxConsecutiveLosses(results []*domain.TradeResult) int {
	maxStreak := 0
	currentStreak := 0

	for _, r := range results {
		switch r.Outcome {
		case domain.OutcomeStopLossHit:
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		case domain.OutcomeTargetHit:
			currentStreak = 0
		}
	}
	return maxStreak
}
