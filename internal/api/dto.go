package api

import (
	"time"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/metrics"
	"trade-outcome-lab/internal/reporting"
)

const dateLayout = "2006-01-02"

type paramsDTO struct {
	TargetPct        float64 `json:"target_pct"`
	SLPct            float64 `json:"sl_pct"`
	HorizonDays      int     `json:"horizon_days"`
	LookupWindowDays int     `json:"lookup_window_days"`
	ExchangeSuffix   string  `json:"exchange_suffix"`
}

type summaryDTO struct {
	TotalTrades          int     `json:"total_trades"`
	TargetHit            int     `json:"target_hit"`
	StopLossHit          int     `json:"stop_loss_hit"`
	NeitherHit           int     `json:"neither_hit"`
	NoData               int     `json:"no_data"`
	PriceNotFound        int     `json:"price_not_found"`
	Errors               int     `json:"errors"`
	NoResult             int     `json:"no_result"`
	TotalPnLPct          float64 `json:"total_pnl_pct"`
	AvgPnLPct            float64 `json:"avg_pnl_pct"`
	WinRate              float64 `json:"win_rate"`
	MaxDrawdownPct       float64 `json:"max_drawdown_pct"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
}

type shareDTO struct {
	Outcome domain.Outcome `json:"outcome"`
	Count   int            `json:"count"`
	Pct     float64        `json:"pct"`
}

type breakdownDTO struct {
	Group   string                 `json:"group"`
	Total   int                    `json:"total"`
	Counts  map[domain.Outcome]int `json:"counts"`
	WinRate float64                `json:"win_rate"`
	PnLPct  float64                `json:"pnl_pct"`
}

type resultDTO struct {
	Row           int            `json:"row"`
	Date          string         `json:"date"`
	Symbol        string         `json:"symbol"`
	MarketCap     string         `json:"market_cap"`
	Sector        string         `json:"sector"`
	EntryDate     string         `json:"entry_date,omitempty"`
	ClosePrice    string         `json:"close_price"`
	TargetPrice   string         `json:"target_price,omitempty"`
	StopLossPrice string         `json:"stop_loss_price,omitempty"`
	TargetPct     float64        `json:"target_pct"`
	SLPct         float64        `json:"sl_pct"`
	Outcome       domain.Outcome `json:"outcome"`
	Result        string         `json:"result"`
	Detail        string         `json:"detail,omitempty"`
	ExitDate      string         `json:"exit_date,omitempty"`
	PnLPct        float64        `json:"pnl_pct"`
}

type runResponse struct {
	RunID        string         `json:"run_id"`
	CreatedAt    time.Time      `json:"created_at"`
	Source       string         `json:"source"`
	Params       paramsDTO      `json:"params"`
	Summary      summaryDTO     `json:"summary"`
	Distribution []shareDTO     `json:"distribution"`
	BySector     []breakdownDTO `json:"by_sector"`
	ByMarketCap  []breakdownDTO `json:"by_market_cap"`
	ByMonth      []breakdownDTO `json:"by_month"`
	Results      []resultDTO    `json:"results,omitempty"`
}

type runListItem struct {
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source"`
	Params      paramsDTO `json:"params"`
	TotalTrades int       `json:"total_trades"`
	TotalPnLPct float64   `json:"total_pnl_pct"`
	WinRate     float64   `json:"win_rate"`
}

func newRunListItem(run *domain.EvaluationRun) runListItem {
	return runListItem{
		RunID:       run.RunID,
		CreatedAt:   run.CreatedAt,
		Source:      run.Source,
		Params:      newParamsDTO(run.Params),
		TotalTrades: run.Summary.TotalTrades,
		TotalPnLPct: run.Summary.TotalPnLPct,
		WinRate:     run.Summary.WinRate,
	}
}

func newRunResponse(a *metrics.Analysis, includeResults bool) runResponse {
	resp := runResponse{
		Summary:      newSummaryDTO(a.Summary),
		Distribution: make([]shareDTO, 0, len(a.Distribution)),
		BySector:     newBreakdownDTOs(a.BySector),
		ByMarketCap:  newBreakdownDTOs(a.ByMarketCap),
		ByMonth:      newBreakdownDTOs(a.ByMonth),
	}
	if a.Run != nil {
		resp.RunID = a.Run.RunID
		resp.CreatedAt = a.Run.CreatedAt
		resp.Source = a.Run.Source
		resp.Params = newParamsDTO(a.Run.Params)
	}
	for _, d := range a.Distribution {
		resp.Distribution = append(resp.Distribution, shareDTO{Outcome: d.Outcome, Count: d.Count, Pct: d.Pct})
	}
	if includeResults {
		resp.Results = make([]resultDTO, 0, len(a.Results))
		for _, r := range a.Results {
			resp.Results = append(resp.Results, newResultDTO(r))
		}
	}
	return resp
}

func newParamsDTO(p domain.EvaluationParams) paramsDTO {
	return paramsDTO{
		TargetPct:        p.TargetPct,
		SLPct:            p.SLPct,
		HorizonDays:      p.HorizonDays,
		LookupWindowDays: p.LookupWindowDays,
		ExchangeSuffix:   p.ExchangeSuffix,
	}
}

func newSummaryDTO(s domain.PortfolioSummary) summaryDTO {
	return summaryDTO{
		TotalTrades:          s.TotalTrades,
		TargetHit:            s.TargetHit,
		StopLossHit:          s.StopLossHit,
		NeitherHit:           s.NeitherHit,
		NoData:               s.NoData,
		PriceNotFound:        s.PriceNotFound,
		Errors:               s.Errors,
		NoResult:             s.NoResult,
		TotalPnLPct:          s.TotalPnLPct,
		AvgPnLPct:            s.AvgPnLPct,
		WinRate:              s.WinRate,
		MaxDrawdownPct:       s.MaxDrawdownPct,
		MaxConsecutiveLosses: s.MaxConsecutiveLosses,
	}
}

func newBreakdownDTOs(groups []metrics.Breakdown) []breakdownDTO {
	out := make([]breakdownDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, breakdownDTO{
			Group:   g.Group,
			Total:   g.Total,
			Counts:  g.Counts,
			WinRate: g.WinRate(),
			PnLPct:  g.PnLPct,
		})
	}
	return out
}

func newResultDTO(r *domain.TradeResult) resultDTO {
	dto := resultDTO{
		Row:        r.Request.Row,
		Date:       r.Request.EntryDate,
		Symbol:     r.Request.Symbol,
		MarketCap:  r.Request.MarketCap,
		Sector:     r.Request.Sector,
		ClosePrice: r.ClosePrice.StringFixed(2),
		TargetPct:  r.TargetPct,
		SLPct:      r.SLPct,
		Outcome:    r.Outcome,
		Result:     reporting.ResultLabel(r),
		Detail:     r.Detail,
		PnLPct:     r.PnLPct,
	}
	if !r.EntryDate.IsZero() {
		dto.EntryDate = r.EntryDate.Format(dateLayout)
	}
	if !r.TargetPrice.IsZero() {
		dto.TargetPrice = r.TargetPrice.String()
		dto.StopLossPrice = r.StopLossPrice.String()
	}
	if !r.ExitDate.IsZero() {
		dto.ExitDate = r.ExitDate.Format(dateLayout)
	}
	return dto
}
