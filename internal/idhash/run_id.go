package idhash

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"trade-outcome-lab/internal/domain"
)

// runIDBytes is the number of hash bytes kept in a run_id.
const runIDBytes = 16

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(target_pct|sl_pct|horizon_days|window_days|suffix|created_at_ns|row:symbol:date ...)
// Returns the first 16 hash bytes base58-encoded (about 22 characters).
func ComputeRunID(params domain.EvaluationParams, requests []domain.TradeRequest, createdAt time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%g|%g|%d|%d|%s|%d",
		params.TargetPct,
		params.SLPct,
		params.HorizonDays,
		params.LookupWindowDays,
		params.ExchangeSuffix,
		createdAt.UnixNano(),
	))
	for _, r := range requests {
		sb.WriteString(fmt.Sprintf("|%d:%s:%s", r.Row, r.Symbol, r.EntryDate))
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return base58.Encode(hash[:runIDBytes])
}
