// Package calendar renders the canonical collection as iCalendar data.
package calendar

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"schoolcal/internal/models"
)

const productID = "-//schoolcal//EN"

// ErrEmpty is returned by Encode when no record can be placed on a calendar.
var ErrEmpty = errors.New("no dated events to encode")

// uidNamespace scopes the name-based UIDs of published events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://schoolcal.local/events"))

// UID returns a stable identifier for ev derived from its name, start date and
// type, so re-publishing the same record overwrites instead of duplicating.
func UID(ev models.Event) string {
	key := strings.ToLower(ev.Name) + "|" + ev.Date + "|" + string(ev.Type)
	return uuid.NewSHA1(uidNamespace, []byte(key)).String()
}

// NewEvent converts a dated record into an all-day VEVENT. Undated records
// cannot be placed on a calendar and are rejected.
func NewEvent(ev models.Event, stamp time.Time) (*ical.Component, error) {
	if !ev.HasDate() {
		return nil, fmt.Errorf("event %q has no date", ev.Name)
	}
	start, err := models.ParseDate(ev.Date)
	if err != nil {
		return nil, err
	}
	end := start
	if ev.EndDate != "" {
		if end, err = models.ParseDate(ev.EndDate); err != nil {
			return nil, err
		}
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, UID(ev))
	ve.Props.SetText(ical.PropSummary, ev.Name)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDate(ical.PropDateTimeStart, start)
	// DTEND is exclusive for all-day events.
	ve.Props.SetDate(ical.PropDateTimeEnd, end.AddDate(0, 0, 1))

	if desc := description(ev); desc != "" {
		ve.Props.SetText(ical.PropDescription, desc)
	}
	if ev.Location != "" {
		ve.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.URL != "" {
		ve.Props.SetText(ical.PropURL, ev.URL)
	}
	if ev.Type != "" {
		ve.Props.SetText(ical.PropCategories, string(ev.Type))
	}
	return ve, nil
}

func description(ev models.Event) string {
	var parts []string
	if ev.Time != "" {
		parts = append(parts, ev.Time)
	}
	if ev.Description != "" {
		parts = append(parts, ev.Description)
	}
	return strings.Join(parts, "\n")
}

// NewCalendar wraps components in a VCALENDAR.
func NewCalendar(components ...*ical.Component) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, components...)
	return cal
}

// Encode writes every dated record of events to w as one calendar and
// returns how many undated records were skipped.
func Encode(w io.Writer, events []models.Event, stamp time.Time) (int, error) {
	var comps []*ical.Component
	skipped := 0
	for _, ev := range events {
		if !ev.HasDate() {
			skipped++
			continue
		}
		ve, err := NewEvent(ev, stamp)
		if err != nil {
			return skipped, err
		}
		comps = append(comps, ve)
	}
	if len(comps) == 0 {
		return skipped, ErrEmpty
	}
	if err := ical.NewEncoder(w).Encode(NewCalendar(comps...)); err != nil {
		return skipped, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return skipped, nil
}
