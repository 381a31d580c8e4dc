// Package ical bridges iCalendar components to the recurrence engine,
// building an occurrence helper from a VEVENT's DTSTART, DTEND/DURATION,
// RRULE, RDATE and EXDATE properties.
package ical

import (
	"fmt"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"

	"github.com/cyp0633/daterecur/occurrence"
)

// FromComponent builds a helper from an iCal component. A component without
// an RRULE or RDATE yields the non-recurring helper for its single span.
func FromComponent(comp *ical.Component) (*occurrence.Helper, error) {
	if comp.Props.Get(ical.PropDateTimeStart) == nil {
		return nil, fmt.Errorf("component has no DTSTART")
	}
	start, err := comp.Props.DateTime(ical.PropDateTimeStart, nil)
	if err != nil {
		return nil, fmt.Errorf("read DTSTART: %w", err)
	}

	end := start
	if comp.Props.Get(ical.PropDateTimeEnd) != nil {
		end, err = comp.Props.DateTime(ical.PropDateTimeEnd, nil)
		if err != nil {
			return nil, fmt.Errorf("read DTEND: %w", err)
		}
	} else if durProp := comp.Props.Get(ical.PropDuration); durProp != nil {
		dur, err := durProp.Duration()
		if err != nil {
			return nil, fmt.Errorf("read DURATION: %w", err)
		}
		end = start.Add(dur)
	}

	var lines []string
	if p := comp.Props.Get(ical.PropRecurrenceRule); p != nil && p.Value != "" {
		lines = append(lines, "RRULE:"+p.Value)
	}
	for _, p := range comp.Props.Values(ical.PropRecurrenceDates) {
		if p.Value != "" {
			lines = append(lines, "RDATE:"+p.Value)
		}
	}
	for _, p := range comp.Props.Values(ical.PropExceptionDates) {
		if p.Value != "" {
			lines = append(lines, "EXDATE:"+p.Value)
		}
	}

	if len(lines) == 0 {
		return occurrence.NewNonRecurring(start, mo.Some(end))
	}
	return occurrence.NewHelper(strings.Join(lines, "\n"), start, mo.Some(end))
}
