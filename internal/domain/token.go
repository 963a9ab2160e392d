package domain

import (
	"regexp"
	"strings"
)

// Aggregator codes identify the invoicing channel embedded in invoice
// numbers. The set is fixed; unknown codes never produce a token.
const (
	AggregatorNanotech = "NNTCH"
	AggregatorFordulat = "FRDLT"
)

// tokenPattern matches invoice references of the form E-<CODE>-<YYYY>-<digits>.
var tokenPattern = regexp.MustCompile(`(?i)E-(NNTCH|FRDLT)-(\d{4})-(\d+)`)

// ExtractToken pulls the leftmost invoice-reference token out of a free-text
// transaction description. The result is uppercased so it compares directly
// against invoice numbers. Returns "" when no token is present.
func ExtractToken(description string) string {
	m := tokenPattern.FindString(description)
	if m == "" {
		return ""
	}
	return strings.ToUpper(m)
}
