package domain

import (
	"fmt"
	"time"
)

// Period identifies the accounting month a reconciliation run covers.
// Persistence keys and summaries are scoped to it.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// PreviousMonth returns the period for the calendar month before now.
func PreviousMonth(now time.Time) Period {
	year, month := now.Year(), int(now.Month())
	if month == 1 {
		return Period{Year: year - 1, Month: 12}
	}
	return Period{Year: year, Month: month - 1}
}

// ParsePeriod parses a "YYYY-MM" string.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	return Period{Year: t.Year(), Month: int(t.Month())}, nil
}

// Start returns midnight UTC on the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End returns midnight UTC on the last day of the period.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Key is the sort-key form used by the persistence layer, e.g. "2024-3".
func (p Period) Key() string {
	return fmt.Sprintf("%d-%d", p.Year, p.Month)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
