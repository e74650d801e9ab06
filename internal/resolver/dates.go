package resolver

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a date string matches none of the accepted layouts.
var ErrInvalidDate = errors.New("invalid date format")

// dateLayouts are tried in order; the first successful parse wins.
// Day-first comes before month-first, so 02/01/2024 is 2 January.
var dateLayouts = []string{
	"2/1/2006",            // DD/MM/YYYY
	"2-1-2006",            // DD-MM-YYYY
	"1/2/2006",            // MM/DD/YYYY
	"1-2-2006",            // MM-DD-YYYY
	"2006-1-2",            // YYYY-MM-DD
	"2006-1-2 15:04:05",   // spreadsheet datetime export
	"2006-01-02T15:04:05", // ISO datetime without zone
}

// ParseDate parses an entry date and returns UTC midnight of that day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date: %w", ErrInvalidDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q: %w", s, ErrInvalidDate)
}
