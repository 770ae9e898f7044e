package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DateLayout is the calendar date format used by every pool (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a record carries a date that is not a valid
// YYYY-MM-DD calendar date.
var ErrInvalidDate = errors.New("invalid event date")

// EventType classifies a record. Menu types are a disjoint category that is
// never reconciled against other sources.
type EventType string

const (
	TypeEvent         EventType = "event"
	TypeDeadline      EventType = "deadline"
	TypeBreakfastMenu EventType = "breakfast_menu"
	TypeLunchMenu     EventType = "lunch_menu"
)

// IsMenu reports whether t is one of the cafeteria menu types.
func (t EventType) IsMenu() bool {
	return t == TypeBreakfastMenu || t == TypeLunchMenu
}

// Priority is informational metadata carried through the pipeline.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Event is a single school calendar item as produced by an extractor.
// An empty Date means the record is undated. EndDate and DateDisplay are
// only ever set by date-range consolidation.
type Event struct {
	Name        string    `json:"name"`
	Date        string    `json:"date,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	DateDisplay string    `json:"date_display,omitempty"`
	Type        EventType `json:"type,omitempty"`
	Priority    Priority  `json:"priority,omitempty"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	Location    string    `json:"location,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Time        string    `json:"time,omitempty"`
	Source      string    `json:"source,omitempty"`
}

// HasDate reports whether the record carries a date.
func (e Event) HasDate() bool {
	return e.Date != ""
}

// IsMenu reports whether the record is a breakfast or lunch menu item.
func (e Event) IsMenu() bool {
	return e.Type.IsMenu()
}

// ParseDate parses a YYYY-MM-DD string. Failures wrap ErrInvalidDate.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
	}
	return t, nil
}

// Upcoming returns the events and deadlines still current on or after day
// (merged ranges count until their end date), sorted by
// date and capped at limit entries. A limit <= 0 means no cap.
func Upcoming(events []Event, day time.Time, limit int) []Event {
	today := day.Format(DateLayout)
	var out []Event
	for _, e := range events {
		if e.Type != TypeEvent && e.Type != TypeDeadline {
			continue
		}
		if !e.HasDate() {
			continue
		}
		last := e.Date
		if e.EndDate != "" {
			last = e.EndDate
		}
		if last < today {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
