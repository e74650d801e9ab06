package metrics

import (
	"sort"
	"strings"

	"trade-outcome-lab/internal/domain"
)

// UnknownGroup labels rows whose grouping value is empty or unparseable.
const UnknownGroup = "Unknown"

// OutcomeShare is one slice of the outcome distribution.
type OutcomeShare struct {
	Outcome domain.Outcome
	Count   int
	Pct     float64 // of total trades
}

// Breakdown counts outcomes for one group (a sector, a market cap bucket or a month).
type Breakdown struct {
	Group  string
	Total  int
	Counts map[domain.Outcome]int
	PnLPct float64
}

// WinRate returns TargetHit / (TargetHit + StopLossHit) within the group.
func (b Breakdown) WinRate() float64 {
	th := b.Counts[domain.OutcomeTargetHit]
	return computeWinRate(th, th+b.Counts[domain.OutcomeStopLossHit])
}

// Distribution returns the count and share of every outcome, in domain.AllOutcomes order.
func Distribution(results []*domain.TradeResult) []OutcomeShare {
	counts := make(map[domain.Outcome]int, len(domain.AllOutcomes))
	for _, r := range results {
		counts[r.Outcome]++
	}

	shares := make([]OutcomeShare, 0, len(domain.AllOutcomes))
	for _, o := range domain.AllOutcomes {
		shares = append(shares, OutcomeShare{
			Outcome: o,
			Count:   counts[o],
			Pct:     Percent(counts[o], len(results)),
		})
	}
	return shares
}

// BySector groups results by the request's sector.
func BySector(results []*domain.TradeResult) []Breakdown {
	return groupBy(results, func(r *domain.TradeResult) string {
		return r.Request.Sector
	})
}

// ByMarketCap groups results by the request's market cap bucket.
func ByMarketCap(results []*domain.TradeResult) []Breakdown {
	return groupBy(results, func(r *domain.TradeResult) string {
		return r.Request.MarketCap
	})
}

// ByMonth groups results by entry month (YYYY-MM). Rows without a parsed
// entry date fall into UnknownGroup.
func ByMonth(results []*domain.TradeResult) []Breakdown {
	return groupBy(results, func(r *domain.TradeResult) string {
		if r.EntryDate.IsZero() {
			return ""
		}
		return r.EntryDate.Format("2006-01")
	})
}

// groupBy buckets results by key and returns groups sorted by name,
// with UnknownGroup last.
func groupBy(results []*domain.TradeResult, key func(*domain.TradeResult) string) []Breakdown {
	groups := make(map[string]*Breakdown)
	for _, r := range results {
		k := strings.TrimSpace(key(r))
		if k == "" {
			k = UnknownGroup
		}
		b, ok := groups[k]
		if !ok {
			b = &Breakdown{Group: k, Counts: make(map[domain.Outcome]int)}
			groups[k] = b
		}
		b.Total++
		b.Counts[r.Outcome]++
		b.PnLPct += r.PnLPct
	}

	out := make([]Breakdown, 0, len(groups))
	for _, b := range groups {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Group == UnknownGroup) != (out[j].Group == UnknownGroup) {
			return out[j].Group == UnknownGroup
		}
		return out[i].Group < out[j].Group
	})
	return out
}
