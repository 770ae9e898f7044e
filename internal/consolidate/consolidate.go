// Package consolidate folds same-named, date-adjacent closure records (a
// recess spanning a week, a long weekend) into one record with a date range.
package consolidate

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"schoolcal/internal/models"
)

// DefaultTriggers is the vocabulary that marks a record as a closure.
var DefaultTriggers = []string{"recess", "no school", "holiday", "break", "vacation"}

// Consolidator merges runs of closure records.
type Consolidator struct {
	triggers []string
}

// New creates a Consolidator for the given trigger words. Words are matched
// as lower-case substrings of the record name.
func New(triggers []string) (*Consolidator, error) {
	if len(triggers) == 0 {
		return nil, errors.New("consolidate: at least one trigger word is required")
	}
	lowered := make([]string, 0, len(triggers))
	for _, t := range triggers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			return nil, errors.New("consolidate: empty trigger word")
		}
		lowered = append(lowered, t)
	}
	return &Consolidator{triggers: lowered}, nil
}

// Default returns a Consolidator over DefaultTriggers.
func Default() *Consolidator {
	c, _ := New(DefaultTriggers)
	return c
}

// Triggers returns the normalized trigger words.
func (c *Consolidator) Triggers() []string {
	return slices.Clone(c.triggers)
}

// candidate reports whether ev takes part in consolidation: a dated,
// non-menu record whose name contains a trigger word.
func (c *Consolidator) candidate(ev models.Event) bool {
	if ev.IsMenu() || !ev.HasDate() {
		return false
	}
	name := strings.ToLower(ev.Name)
	for _, t := range c.triggers {
		if strings.Contains(name, t) {
			return true
		}
	}
	return false
}

type dated struct {
	ev  models.Event
	day time.Time
}

// Consolidate returns the non-candidate records in their original order,
// followed by the candidate records grouped by exact name (groups in order of
// first appearance) with every contiguous run collapsed into a single record.
//
// A candidate with a date that does not parse fails the whole call with an
// error wrapping models.ErrInvalidDate.
func (c *Consolidator) Consolidate(events []models.Event) ([]models.Event, error) {
	out := make([]models.Event, 0, len(events))
	groups := make(map[string][]dated)
	var order []string

	for _, ev := range events {
		if !c.candidate(ev) {
			out = append(out, ev)
			continue
		}
		day, err := models.ParseDate(ev.Date)
		if err != nil {
			return nil, fmt.Errorf("consolidate %q: %w", ev.Name, err)
		}
		if _, ok := groups[ev.Name]; !ok {
			order = append(order, ev.Name)
		}
		groups[ev.Name] = append(groups[ev.Name], dated{ev: ev, day: day})
	}

	for _, name := range order {
		out = append(out, collapse(groups[name])...)
	}
	return out, nil
}

// collapse sorts one name group by date and emits one record per run.
func collapse(group []dated) []models.Event {
	slices.SortStableFunc(group, func(a, b dated) int {
		return a.day.Compare(b.day)
	})

	var out []models.Event
	start := 0
	for i := 1; i <= len(group); i++ {
		if i < len(group) && contiguous(group[i-1].day, group[i].day) {
			continue
		}
		out = append(out, emit(group[start:i]))
		start = i
	}
	return out
}

// contiguous reports whether next continues a run ending at prev: the next
// calendar day, or anything up to three days after a Friday.
func contiguous(prev, next time.Time) bool {
	gap := int(next.Sub(prev).Hours() / 24)
	if gap == 1 {
		return true
	}
	return prev.Weekday() == time.Friday && gap <= 3
}

func emit(run []dated) models.Event {
	first := run[0]
	if len(run) == 1 {
		return first.ev
	}
	last := run[len(run)-1]

	merged := first.ev
	merged.Date = first.day.Format(models.DateLayout)
	merged.EndDate = last.day.Format(models.DateLayout)
	merged.DateDisplay = displayRange(first.day, last.day)
	return merged
}

// displayRange renders "Feb 16-20" within a month and "Jan 29 - Feb 02"
// across months.
func displayRange(start, end time.Time) string {
	if start.Year() == end.Year() && start.Month() == end.Month() {
		return start.Format("Jan 02") + "-" + end.Format("02")
	}
	return start.Format("Jan 02") + " - " + end.Format("Jan 02")
}

// Consolidate runs Consolidator.Consolidate with DefaultTriggers.
func Consolidate(events []models.Event) ([]models.Event, error) {
	return Default().Consolidate(events)
}
