// Package similarity scores how alike two event names are.
package similarity

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the Ratcliff/Obershelp similarity of a and b in [0,1]:
// twice the number of characters in the matching blocks divided by the total
// length of both strings. Two empty strings score 1.0; one empty string
// scores 0.0.
//
// The matching-block decomposition breaks ties by position and is not
// symmetric on its own, so Ratio scores both directions and keeps the higher.
func Ratio(a, b string) float64 {
	ra, rb := runes(a), runes(b)
	if len(ra)+len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}
	fwd := difflib.NewMatcher(ra, rb).Ratio()
	rev := difflib.NewMatcher(rb, ra).Ratio()
	if rev > fwd {
		return rev
	}
	return fwd
}

// runes splits s into single-character elements for the sequence matcher.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
