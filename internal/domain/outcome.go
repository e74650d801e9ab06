package domain

// Outcome classifies how a trade resolved within the horizon.
// The string values are the labels used in exports.
type Outcome string

// Outcome constants
const (
	OutcomeTargetHit     Outcome = "Target Hit"
	OutcomeStopLossHit   Outcome = "Stop Loss Hit"
	OutcomeNeitherHit    Outcome = "Neither Hit"
	OutcomeNoData        Outcome = "No Data"
	OutcomePriceNotFound Outcome = "Price Not Found"
	OutcomeError         Outcome = "Error"
)

// AllOutcomes lists every outcome in reporting order.
var AllOutcomes = []Outcome{
	OutcomeTargetHit,
	OutcomeStopLossHit,
	OutcomeNeitherHit,
	OutcomeNoData,
	OutcomePriceNotFound,
	OutcomeError,
}

// Resolved reports whether one of the two thresholds was reached.
func (o Outcome) Resolved() bool {
	return o == OutcomeTargetHit || o == OutcomeStopLossHit
}

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	for _, known := range AllOutcomes {
		if o == known {
			return true
		}
	}
	return false
}

// PnLPct returns the P&L percentage booked for an outcome.
// Unresolved outcomes book nothing.
func (o Outcome) PnLPct(targetPct, slPct float64) float64 {
	switch o {
	case OutcomeTargetHit:
		return targetPct
	case OutcomeStopLossHit:
		return -slPct
	default:
		return 0
	}
}
