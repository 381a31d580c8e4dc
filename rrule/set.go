package rrule

import "time"

// Set composes one primary rule with literal extra dates, excluded dates and
// excluded sub-rules into a single ordered, deduplicated instant sequence.
// Exclusions always win: an instant matched by an EXDATE or EXRULE never
// appears, even if also an RDATE. Finiteness is governed solely by the
// primary rule's bound.
type Set struct {
	rule    *Rule
	rdates  []time.Time
	exdates []time.Time
	exrules []*Rule
}

// NewSet wraps a single validated primary rule.
func NewSet(rule *Rule) *Set {
	return &Set{rule: rule}
}

// Rule returns the primary rule.
func (s *Set) Rule() *Rule { return s.rule }

// AddRDate unions an explicit instant into the sequence.
func (s *Set) AddRDate(t time.Time) { s.rdates = append(s.rdates, t) }

// AddExDate subtracts an explicit instant from the sequence.
func (s *Set) AddExDate(t time.Time) { s.exdates = append(s.exdates, t) }

// AddExRule subtracts every instant generated by the given rule.
func (s *Set) AddExRule(r *Rule) { s.exrules = append(s.exrules, r) }

// IsInfinite reports whether the primary rule is unbounded. Extra dates
// cannot make a finite set infinite and exclusions cannot make an infinite
// set finite.
func (s *Set) IsInfinite() bool {
	return s.rule != nil && s.rule.IsInfinite()
}

// SetIterator is a lazy merge cursor over a Set. It pulls the primary rule
// and the sorted extra dates in lock-step, suppresses excluded instants, and
// never buffers beyond the current heads, so an infinite set is safe to
// iterate as far as the consumer pulls.
type SetIterator struct {
	primary     *Iterator
	primaryHead time.Time
	primaryOK   bool

	rdates   []time.Time
	rdateIdx int

	exdates []time.Time
	exIdx   int

	exrules []*exCursor

	last    time.Time
	started bool
}

type exCursor struct {
	it   *Iterator
	head time.Time
	ok   bool
}

// Iterator returns a fresh merge cursor; the Set is not mutated and can
// produce any number of independent cursors.
func (s *Set) Iterator() *SetIterator {
	it := &SetIterator{
		primary: s.rule.Iterator(),
		rdates:  sortTimes(s.rdates),
		exdates: sortTimes(s.exdates),
	}
	it.primaryHead, it.primaryOK = it.primary.Next()
	for _, ex := range s.exrules {
		c := &exCursor{it: ex.Iterator()}
		c.head, c.ok = c.it.Next()
		it.exrules = append(it.exrules, c)
	}
	return it
}

// Next returns the next instant of the composed sequence in strictly
// increasing order.
func (it *SetIterator) Next() (time.Time, bool) {
	for {
		var t time.Time
		haveRDate := it.rdateIdx < len(it.rdates)

		switch {
		case it.primaryOK && (!haveRDate || !it.rdates[it.rdateIdx].Before(it.primaryHead)):
			t = it.primaryHead
			// The primary rule wins ties against an identical extra date.
			if haveRDate && it.rdates[it.rdateIdx].Equal(t) {
				it.rdateIdx++
			}
			it.primaryHead, it.primaryOK = it.primary.Next()
		case haveRDate:
			t = it.rdates[it.rdateIdx]
			it.rdateIdx++
		default:
			return time.Time{}, false
		}

		if it.started && !t.After(it.last) {
			continue
		}
		if it.excluded(t) {
			it.started = true
			it.last = t
			continue
		}
		it.started = true
		it.last = t
		return t, true
	}
}

// excluded advances the exclusion cursors only as far as needed to decide t.
func (it *SetIterator) excluded(t time.Time) bool {
	for it.exIdx < len(it.exdates) && it.exdates[it.exIdx].Before(t) {
		it.exIdx++
	}
	if it.exIdx < len(it.exdates) && it.exdates[it.exIdx].Equal(t) {
		return true
	}
	for _, c := range it.exrules {
		for c.ok && c.head.Before(t) {
			c.head, c.ok = c.it.Next()
		}
		if c.ok && c.head.Equal(t) {
			return true
		}
	}
	return false
}
