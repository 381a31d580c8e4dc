// Package occurrence turns a recurrence rule set and an initial event span
// into concrete (start, end) occurrences: lazy range-bounded enumeration for
// display, and bounded materialization for persistence.
package occurrence

import (
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/daterecur/rrule"
)

// Occurrence is one concrete instance of a recurring value. End is always
// Start plus the helper's fixed duration.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Range bounds enumeration on either side. An absent bound means unbounded
// on that side. An occurrence is inside the range when it overlaps it
// partially: End >= Range.Start and Start <= Range.End.
type Range struct {
	Start mo.Option[time.Time]
	End   mo.Option[time.Time]
}

// Between is shorthand for a fully bounded range.
func Between(start, end time.Time) Range {
	return Range{Start: mo.Some(start), End: mo.Some(end)}
}

// Helper evaluates one recurring (or single) date value. It is immutable
// after construction and cheap to rebuild from the same rule text and
// anchors.
type Helper struct {
	set      *rrule.Set // nil for a non-recurring value
	start    time.Time
	duration time.Duration
}

// NewHelper parses rule text anchored at dtStart and builds a helper. The
// duration of every occurrence is dtEnd minus dtStart; an absent dtEnd means
// zero duration.
func NewHelper(text string, dtStart time.Time, dtEnd mo.Option[time.Time]) (*Helper, error) {
	d, err := anchorDuration(dtStart, dtEnd)
	if err != nil {
		return nil, err
	}
	set, err := rrule.ParseSet(text, dtStart)
	if err != nil {
		return nil, err
	}
	return &Helper{set: set, start: dtStart, duration: d}, nil
}

// NewNonRecurring builds the degenerate helper for a plain date value: a
// single occurrence and no rule.
func NewNonRecurring(dtStart time.Time, dtEnd mo.Option[time.Time]) (*Helper, error) {
	d, err := anchorDuration(dtStart, dtEnd)
	if err != nil {
		return nil, err
	}
	return &Helper{start: dtStart, duration: d}, nil
}

func anchorDuration(dtStart time.Time, dtEnd mo.Option[time.Time]) (time.Duration, error) {
	end := dtEnd.OrElse(dtStart)
	if end.Before(dtStart) {
		return 0, &rrule.ArgumentError{Msg: "end date is before start date"}
	}
	return end.Sub(dtStart), nil
}

// IsInfinite reports whether the value recurs forever. Always false for a
// non-recurring value.
func (h *Helper) IsInfinite() bool {
	return h.set != nil && h.set.IsInfinite()
}

// IsRecurring reports whether the helper carries a rule set.
func (h *Helper) IsRecurring() bool { return h.set != nil }

// Duration returns the fixed span applied to every occurrence start.
func (h *Helper) Duration() time.Duration { return h.duration }

// RuleSet returns the underlying set, or nil for a non-recurring value.
func (h *Helper) RuleSet() *rrule.Set { return h.set }

// Iterator lazily yields occurrences overlapping a range, in ascending
// order. It holds no resources; dropping it mid-iteration costs nothing.
type Iterator struct {
	h       *Helper
	r       Range
	inner   *rrule.SetIterator
	emitted bool
	done    bool
}

// Generate returns a fresh occurrence cursor for the given range.
func (h *Helper) Generate(r Range) *Iterator {
	it := &Iterator{h: h, r: r}
	if h.set != nil {
		it.inner = h.set.Iterator()
	}
	return it
}

// Next returns the next occurrence overlapping the range. It stops pulling
// from the rule set once a candidate starts past the range end.
func (it *Iterator) Next() (Occurrence, bool) {
	if it.done {
		return Occurrence{}, false
	}
	rangeStart, hasStart := it.r.Start.Get()
	rangeEnd, hasEnd := it.r.End.Get()

	if it.inner == nil {
		it.done = true
		if it.emitted {
			return Occurrence{}, false
		}
		it.emitted = true
		occ := Occurrence{Start: it.h.start, End: it.h.start.Add(it.h.duration)}
		if hasStart && occ.End.Before(rangeStart) {
			return Occurrence{}, false
		}
		if hasEnd && occ.Start.After(rangeEnd) {
			return Occurrence{}, false
		}
		return occ, true
	}

	for {
		t, ok := it.inner.Next()
		if !ok {
			it.done = true
			return Occurrence{}, false
		}
		occ := Occurrence{Start: t, End: t.Add(it.h.duration)}
		if hasEnd && occ.Start.After(rangeEnd) {
			it.done = true
			return Occurrence{}, false
		}
		if hasStart && occ.End.Before(rangeStart) {
			continue
		}
		return occ, true
	}
}

// GetOccurrences eagerly collects occurrences overlapping the range, up to
// limit when present. Requesting an unbounded enumeration of an infinite
// value (no range end and no limit) is refused with a LogicError rather
// than looping forever. A negative limit is an ArgumentError; a zero limit
// yields an empty slice.
func (h *Helper) GetOccurrences(r Range, limit mo.Option[int]) ([]Occurrence, error) {
	if l, ok := limit.Get(); ok {
		if l < 0 {
			return nil, &rrule.ArgumentError{Msg: "invalid count limit"}
		}
		if l == 0 {
			return []Occurrence{}, nil
		}
	}
	if h.IsInfinite() && r.End.IsAbsent() && limit.IsAbsent() {
		return nil, &rrule.LogicError{Msg: "cannot get all occurrences of an infinite recurrence rule"}
	}

	var out []Occurrence
	it := h.Generate(r)
	for {
		occ, ok := it.Next()
		if !ok {
			return out, nil
		}
		out = append(out, occ)
		if l, ok := limit.Get(); ok && len(out) >= l {
			return out, nil
		}
	}
}
