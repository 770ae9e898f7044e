// Package dedup decides when two candidate records describe the same
// real-world event and drops the duplicates from record pools.
package dedup

import (
	"fmt"
	"slices"
	"strings"

	"schoolcal/internal/models"
	"schoolcal/internal/similarity"
)

// Thresholds are the name-similarity bars of the duplicate predicate.
type Thresholds struct {
	// Dated applies when both records carry the same date.
	Dated float64 `yaml:"dated"`
	// Undated applies when at least one record has no date.
	Undated float64 `yaml:"undated"`
}

// DefaultThresholds returns the empirically tuned 0.5 / 0.8 pair.
func DefaultThresholds() Thresholds {
	return Thresholds{Dated: 0.5, Undated: 0.8}
}

// Validate checks that both bars lie in [0,1].
func (t Thresholds) Validate() error {
	if t.Dated < 0 || t.Dated > 1 {
		return fmt.Errorf("dated threshold %v outside [0,1]", t.Dated)
	}
	if t.Undated < 0 || t.Undated > 1 {
		return fmt.Errorf("undated threshold %v outside [0,1]", t.Undated)
	}
	return nil
}

// Matcher applies the duplicate predicate with a fixed pair of thresholds.
// The zero value is not useful; use NewMatcher or Default.
type Matcher struct {
	thresholds Thresholds
}

// NewMatcher creates a Matcher using t.
func NewMatcher(t Thresholds) Matcher {
	return Matcher{thresholds: t}
}

// Default returns a Matcher with DefaultThresholds.
func Default() Matcher {
	return NewMatcher(DefaultThresholds())
}

// Thresholds returns the bars the matcher was built with.
func (m Matcher) Thresholds() Thresholds {
	return m.thresholds
}

// Compare scores the names of x and y and reports whether the pair is a
// duplicate:
//
//   - both dated, dates textually equal, similarity > Dated; or
//   - at least one undated and similarity > Undated.
//
// Menu records are never duplicates of anything.
func (m Matcher) Compare(x, y models.Event) (float64, bool) {
	if x.IsMenu() || y.IsMenu() {
		return 0, false
	}
	score := similarity.Ratio(strings.ToLower(x.Name), strings.ToLower(y.Name))
	if x.HasDate() && y.HasDate() {
		return score, x.Date == y.Date && score > m.thresholds.Dated
	}
	return score, score > m.thresholds.Undated
}

// IsDuplicate is Compare without the score.
func (m Matcher) IsDuplicate(x, y models.Event) bool {
	_, dup := m.Compare(x, y)
	return dup
}

// Pair returns primary followed by every secondary record that does not
// duplicate a record of primary. Secondary records are only checked against
// primary, never against each other. Primary wins every conflict.
func (m Matcher) Pair(primary, secondary []models.Event) []models.Event {
	if len(secondary) == 0 {
		return slices.Clone(primary)
	}
	if len(primary) == 0 {
		return slices.Clone(secondary)
	}

	result := slices.Clone(primary)
	for _, sec := range secondary {
		dup := slices.ContainsFunc(primary, func(pri models.Event) bool {
			return m.IsDuplicate(sec, pri)
		})
		if !dup {
			result = append(result, sec)
		}
	}
	return result
}

// Within removes duplicates from a single pool in one left-to-right pass.
// A record is kept unless it duplicates a record already kept, so the
// earliest occurrence wins and the output order is stable.
func (m Matcher) Within(events []models.Event) []models.Event {
	if len(events) <= 1 {
		return slices.Clone(events)
	}

	keep := make([]models.Event, 0, len(events))
	for _, ev := range events {
		dup := slices.ContainsFunc(keep, func(kept models.Event) bool {
			return m.IsDuplicate(ev, kept)
		})
		if !dup {
			keep = append(keep, ev)
		}
	}
	return keep
}

// Pair runs Matcher.Pair with the default thresholds.
func Pair(primary, secondary []models.Event) []models.Event {
	return Default().Pair(primary, secondary)
}

// Within runs Matcher.Within with the default thresholds.
func Within(events []models.Event) []models.Event {
	return Default().Within(events)
}
