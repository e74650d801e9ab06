package domain

import "strings"

// DefaultExchangeSuffix is appended to bare symbols (National Stock Exchange of India).
const DefaultExchangeSuffix = ".NS"

// NormalizeSymbol trims and upper-cases symbol and appends suffix unless the
// symbol already ends with it. An empty suffix leaves the symbol bare.
func NormalizeSymbol(symbol, suffix string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || suffix == "" {
		return s
	}
	suffix = strings.ToUpper(suffix)
	if strings.HasSuffix(s, suffix) {
		return s
	}
	return s + suffix
}
