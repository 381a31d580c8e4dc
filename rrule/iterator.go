package rrule

import (
	"sort"
	"time"
)

// maxEmptyPeriods bounds how many consecutive period windows may yield no
// candidate before the iterator gives up, so a rule that can never match
// (yearly Feb 30) does not spin forever. The widest gap a satisfiable rule
// can produce is a leap-day limit (BYMONTH=2;BYMONTHDAY=29), which stays
// empty for up to eight years, so the bound covers nine years of periods at
// each frequency.
func (r *Rule) maxEmptyPeriods() int {
	const years = 9
	switch r.Freq {
	case Daily:
		return years * 366
	case Hourly:
		return years * 366 * 24
	case Minutely:
		return years * 366 * 24 * 60
	case Secondly:
		return years * 366 * 24 * 60 * 60
	default:
		return 1000
	}
}

// Iterator is a lazy cursor over a rule's occurrence instants. Each call to
// Rule.Iterator returns an independent cursor; the rule itself is never
// mutated, so iteration is freely restartable.
type Iterator struct {
	r          *Rule
	k          int64 // period index, 0 = period containing DTStart
	buf        []time.Time
	idx        int
	emitted    int
	empty      int
	emptyLimit int
	primed     bool
	done       bool
}

// Iterator returns a fresh expansion cursor positioned before the first
// occurrence.
func (r *Rule) Iterator() *Iterator {
	return &Iterator{r: r, emptyLimit: r.maxEmptyPeriods()}
}

// Next returns the next occurrence instant in ascending order. The second
// return is false once the rule's bound is reached or no further candidate
// can exist.
func (it *Iterator) Next() (time.Time, bool) {
	if it.done {
		return time.Time{}, false
	}
	for {
		if it.idx < len(it.buf) {
			t := it.buf[it.idx]
			it.idx++
			if it.r.Until != nil && t.After(*it.r.Until) {
				it.done = true
				return time.Time{}, false
			}
			it.emitted++
			if it.r.Count > 0 && it.emitted > it.r.Count {
				it.done = true
				return time.Time{}, false
			}
			return t, true
		}

		if it.primed {
			it.k++
		}
		it.primed = true
		it.buf = it.r.periodCandidates(it.k)
		it.idx = 0
		if len(it.buf) == 0 {
			it.empty++
			if it.empty >= it.emptyLimit {
				it.done = true
				return time.Time{}, false
			}
			continue
		}
		it.empty = 0
	}
}

// All expands a bounded rule completely. It returns a LogicError for an
// unbounded rule.
func (r *Rule) All() ([]time.Time, error) {
	if r.IsInfinite() {
		return nil, &LogicError{Msg: "cannot get all occurrences of an infinite recurrence rule"}
	}
	var out []time.Time
	it := r.Iterator()
	for {
		t, ok := it.Next()
		if !ok {
			return out, nil
		}
		out = append(out, t)
	}
}

// date is a calendar day independent of time-of-day.
type date struct {
	y int
	m time.Month
	d int
}

func (a date) before(b date) bool {
	if a.y != b.y {
		return a.y < b.y
	}
	if a.m != b.m {
		return a.m < b.m
	}
	return a.d < b.d
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func daysInYear(y int) int {
	if daysIn(y, time.February) == 29 {
		return 366
	}
	return 365
}

// periodCandidates computes the sorted candidate instants of period k: the
// period window is located, day candidates are generated and filtered, the
// time-of-day dimension is expanded, BYSETPOS is applied, and anything
// before DTStart is dropped.
func (r *Rule) periodCandidates(k int64) []time.Time {
	var out []time.Time
	switch r.Freq {
	case Yearly:
		year := r.DTStart.Year() + int(k)*r.Interval
		out = r.instantsForDates(r.yearDates(year))
	case Monthly:
		ym := r.DTStart.Year()*12 + int(r.DTStart.Month()) - 1 + int(k)*r.Interval
		y, m := ym/12, time.Month(ym%12+1)
		out = r.instantsForDates(r.monthDates(y, m))
	case Weekly:
		ws := startOfWeek(r.DTStart, r.WeekStart).AddDate(0, 0, int(k)*7*r.Interval)
		out = r.instantsForDates(r.weekDates(ws))
	case Daily:
		d := r.DTStart.AddDate(0, 0, int(k)*r.Interval)
		out = r.instantsForDates(r.dayDates(date{d.Year(), d.Month(), d.Day()}))
	case Hourly, Minutely, Secondly:
		out = r.subDailyCandidates(k)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	out = applySetPos(out, r.BySetPos)

	n := 0
	for _, t := range out {
		if !t.Before(r.DTStart) {
			out[n] = t
			n++
		}
	}
	return out[:n]
}

// instantsForDates crosses day candidates with the expanded time-of-day
// lists.
func (r *Rule) instantsForDates(dates []date) []time.Time {
	if len(dates) == 0 {
		return nil
	}
	hours := orDefault(r.ByHour, r.DTStart.Hour())
	minutes := orDefault(r.ByMinute, r.DTStart.Minute())
	seconds := orDefault(r.BySecond, r.DTStart.Second())
	loc := r.DTStart.Location()

	out := make([]time.Time, 0, len(dates)*len(hours)*len(minutes)*len(seconds))
	for _, d := range dates {
		for _, h := range hours {
			for _, mi := range minutes {
				for _, s := range seconds {
					out = append(out, time.Date(d.y, d.m, d.d, h, mi, s, 0, loc))
				}
			}
		}
	}
	return out
}

func orDefault(vs []int, def int) []int {
	if len(vs) == 0 {
		return []int{def}
	}
	return sortedUniqueInts(vs)
}

// yearDates generates the day candidates of one yearly period following the
// RFC 5545 expand/limit table.
func (r *Rule) yearDates(year int) []date {
	var dates []date
	switch {
	case len(r.ByYearDay) > 0:
		n := daysInYear(year)
		for _, v := range r.ByYearDay {
			d := v
			if d < 0 {
				d = n + 1 + v
			}
			if d >= 1 && d <= n {
				t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d-1)
				dates = append(dates, date{t.Year(), t.Month(), t.Day()})
			}
		}
		dates = limitDates(dates, r.ByMonth, r.ByMonthDay, plainWeekdays(r.ByDay))

	case len(r.ByWeekNo) > 0:
		total := weeksInYear(year, r.WeekStart)
		for _, v := range r.ByWeekNo {
			wn := v
			if wn < 0 {
				wn = total + 1 + v
			}
			if wn < 1 || wn > total {
				continue
			}
			ws := weekOneStart(year, r.WeekStart).AddDate(0, 0, (wn-1)*7)
			for i := 0; i < 7; i++ {
				day := ws.AddDate(0, 0, i)
				if day.Year() != year {
					// Weeks straddling a year boundary would break the
					// strictly-increasing ordering across periods.
					continue
				}
				if len(r.ByDay) > 0 {
					if !weekdayListed(day.Weekday(), r.ByDay) {
						continue
					}
				} else if day.Weekday() != r.DTStart.Weekday() {
					continue
				}
				dates = append(dates, date{day.Year(), day.Month(), day.Day()})
			}
		}
		dates = limitDates(dates, r.ByMonth, r.ByMonthDay, nil)

	case len(r.ByMonth) > 0:
		for _, m := range sortedUniqueInts(r.ByMonth) {
			dates = append(dates, r.monthDatesUnchecked(year, time.Month(m))...)
		}

	case len(r.ByMonthDay) > 0:
		for m := time.January; m <= time.December; m++ {
			dates = append(dates, resolveMonthDays(year, m, r.ByMonthDay, plainWeekdays(r.ByDay))...)
		}

	case len(r.ByDay) > 0:
		dates = byDayInYear(year, r.ByDay)

	default:
		if r.DTStart.Day() <= daysIn(year, r.DTStart.Month()) {
			dates = append(dates, date{year, r.DTStart.Month(), r.DTStart.Day()})
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].before(dates[j]) })
	return dedupeDates(dates)
}

// monthDates generates the day candidates of one monthly period.
func (r *Rule) monthDates(year int, m time.Month) []date {
	if len(r.ByMonth) > 0 && !intListed(int(m), r.ByMonth) {
		return nil
	}
	dates := r.monthDatesUnchecked(year, m)
	sort.Slice(dates, func(i, j int) bool { return dates[i].before(dates[j]) })
	return dedupeDates(dates)
}

// monthDatesUnchecked resolves day candidates within a single month, with
// BYMONTH already applied by the caller.
func (r *Rule) monthDatesUnchecked(year int, m time.Month) []date {
	switch {
	case len(r.ByMonthDay) > 0:
		return resolveMonthDays(year, m, r.ByMonthDay, plainWeekdays(r.ByDay))
	case len(r.ByDay) > 0:
		return byDayInMonth(year, m, r.ByDay)
	default:
		if r.DTStart.Day() <= daysIn(year, m) {
			return []date{{year, m, r.DTStart.Day()}}
		}
		return nil
	}
}

// weekDates generates the day candidates of one weekly period starting at
// weekStart (midnight of the first day of the week window).
func (r *Rule) weekDates(weekStart time.Time) []date {
	var dates []date
	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i)
		if len(r.ByDay) > 0 {
			if !weekdayListed(day.Weekday(), r.ByDay) {
				continue
			}
		} else if day.Weekday() != r.DTStart.Weekday() {
			continue
		}
		if len(r.ByMonth) > 0 && !intListed(int(day.Month()), r.ByMonth) {
			continue
		}
		dates = append(dates, date{day.Year(), day.Month(), day.Day()})
	}
	return dates
}

// dayDates applies the daily-frequency limit filters to a single day.
func (r *Rule) dayDates(d date) []date {
	if len(r.ByMonth) > 0 && !intListed(int(d.m), r.ByMonth) {
		return nil
	}
	if len(r.ByMonthDay) > 0 && !monthDayListed(d, r.ByMonthDay) {
		return nil
	}
	if len(r.ByDay) > 0 {
		wd := time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC).Weekday()
		if !weekdayListed(wd, r.ByDay) {
			return nil
		}
	}
	return []date{d}
}

// subDailyCandidates handles HOURLY, MINUTELY and SECONDLY periods. The
// period cursor carries the units at and above the frequency; units below it
// expand, units at or above it limit.
func (r *Rule) subDailyCandidates(k int64) []time.Time {
	dt := r.DTStart
	loc := dt.Location()
	var cur time.Time
	switch r.Freq {
	case Hourly:
		cur = time.Date(dt.Year(), dt.Month(), dt.Day(), dt.Hour()+int(k)*r.Interval, 0, 0, 0, loc)
	case Minutely:
		cur = time.Date(dt.Year(), dt.Month(), dt.Day(), dt.Hour(), dt.Minute()+int(k)*r.Interval, 0, 0, loc)
	case Secondly:
		cur = time.Date(dt.Year(), dt.Month(), dt.Day(), dt.Hour(), dt.Minute(), dt.Second()+int(k)*r.Interval, 0, loc)
	}

	d := date{cur.Year(), cur.Month(), cur.Day()}
	if len(r.dayDates(d)) == 0 {
		return nil
	}
	if len(r.ByHour) > 0 && !intListed(cur.Hour(), r.ByHour) {
		return nil
	}
	if r.Freq != Hourly && len(r.ByMinute) > 0 && !intListed(cur.Minute(), r.ByMinute) {
		return nil
	}
	if r.Freq == Secondly {
		if len(r.BySecond) > 0 && !intListed(cur.Second(), r.BySecond) {
			return nil
		}
		return []time.Time{cur}
	}

	var out []time.Time
	if r.Freq == Hourly {
		minutes := orDefault(r.ByMinute, dt.Minute())
		seconds := orDefault(r.BySecond, dt.Second())
		for _, mi := range minutes {
			for _, s := range seconds {
				out = append(out, time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), mi, s, 0, loc))
			}
		}
		return out
	}
	// Minutely: seconds expand.
	for _, s := range orDefault(r.BySecond, dt.Second()) {
		out = append(out, time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), cur.Minute(), s, 0, loc))
	}
	return out
}

// applySetPos selects the listed 1-based positions (negative from the end)
// from a period's sorted candidate set.
func applySetPos(ts []time.Time, setpos []int) []time.Time {
	if len(setpos) == 0 || len(ts) == 0 {
		return ts
	}
	picked := make(map[int]bool, len(setpos))
	for _, p := range setpos {
		i := p
		if i < 0 {
			i = len(ts) + 1 + p
		}
		if i >= 1 && i <= len(ts) {
			picked[i-1] = true
		}
	}
	out := make([]time.Time, 0, len(picked))
	for i, t := range ts {
		if picked[i] {
			out = append(out, t)
		}
	}
	return out
}

// resolveMonthDays maps BYMONTHDAY ordinals (negative from month end) to
// days of one month, optionally limited to the given weekdays. Nonexistent
// days are skipped, mirroring calendar semantics.
func resolveMonthDays(year int, m time.Month, monthDays []int, weekdays []time.Weekday) []date {
	n := daysIn(year, m)
	var dates []date
	for _, v := range monthDays {
		d := v
		if d < 0 {
			d = n + 1 + v
		}
		if d < 1 || d > n {
			continue
		}
		if len(weekdays) > 0 {
			wd := time.Date(year, m, d, 0, 0, 0, 0, time.UTC).Weekday()
			if !plainWeekdayListed(wd, weekdays) {
				continue
			}
		}
		dates = append(dates, date{year, m, d})
	}
	return dates
}

// byDayInMonth resolves BYDAY entries within one month. Ordinal entries
// select the Nth matching weekday; a month without enough matches yields
// nothing for that entry.
func byDayInMonth(year int, m time.Month, byDay []WeekdayNum) []date {
	n := daysIn(year, m)
	var dates []date
	for _, w := range byDay {
		var matches []int
		for d := 1; d <= n; d++ {
			if time.Date(year, m, d, 0, 0, 0, 0, time.UTC).Weekday() == w.Day {
				matches = append(matches, d)
			}
		}
		dates = append(dates, pickOrdinal(matches, w.N, year, m)...)
	}
	return dates
}

// byDayInYear resolves BYDAY entries against the whole year, used for
// FREQ=YEARLY without BYMONTH.
func byDayInYear(year int, byDay []WeekdayNum) []date {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	var dates []date
	for _, w := range byDay {
		var matches []time.Time
		first := jan1.AddDate(0, 0, (int(w.Day)-int(jan1.Weekday())+7)%7)
		for t := first; t.Year() == year; t = t.AddDate(0, 0, 7) {
			matches = append(matches, t)
		}
		for _, i := range ordinalIndexes(len(matches), w.N) {
			t := matches[i]
			dates = append(dates, date{t.Year(), t.Month(), t.Day()})
		}
	}
	return dates
}

func pickOrdinal(days []int, ordinal int, year int, m time.Month) []date {
	var dates []date
	for _, i := range ordinalIndexes(len(days), ordinal) {
		dates = append(dates, date{year, m, days[i]})
	}
	return dates
}

// ordinalIndexes maps an ordinal qualifier to indexes into a match list of
// the given length: 0 selects all, N selects the Nth, negative N counts from
// the end. Out-of-range ordinals select nothing.
func ordinalIndexes(n, ordinal int) []int {
	if n == 0 {
		return nil
	}
	if ordinal == 0 {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	i := ordinal
	if i < 0 {
		i = n + 1 + ordinal
	}
	if i < 1 || i > n {
		return nil
	}
	return []int{i - 1}
}

func limitDates(dates []date, byMonth, byMonthDay []int, weekdays []time.Weekday) []date {
	n := 0
	for _, d := range dates {
		if len(byMonth) > 0 && !intListed(int(d.m), byMonth) {
			continue
		}
		if len(byMonthDay) > 0 && !monthDayListed(d, byMonthDay) {
			continue
		}
		if len(weekdays) > 0 {
			wd := time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC).Weekday()
			if !plainWeekdayListed(wd, weekdays) {
				continue
			}
		}
		dates[n] = d
		n++
	}
	return dates[:n]
}

func intListed(v int, vs []int) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

func monthDayListed(d date, byMonthDay []int) bool {
	n := daysIn(d.y, d.m)
	for _, v := range byMonthDay {
		md := v
		if md < 0 {
			md = n + 1 + v
		}
		if md == d.d {
			return true
		}
	}
	return false
}

func weekdayListed(wd time.Weekday, byDay []WeekdayNum) bool {
	for _, w := range byDay {
		if w.Day == wd {
			return true
		}
	}
	return false
}

func plainWeekdays(byDay []WeekdayNum) []time.Weekday {
	var out []time.Weekday
	for _, w := range byDay {
		out = append(out, w.Day)
	}
	return out
}

func plainWeekdayListed(wd time.Weekday, ws []time.Weekday) bool {
	for _, w := range ws {
		if w == wd {
			return true
		}
	}
	return false
}

func dedupeDates(dates []date) []date {
	n := 0
	for i, d := range dates {
		if i == 0 || d != dates[n-1] {
			dates[n] = d
			n++
		}
	}
	return dates[:n]
}

// startOfWeek returns midnight of the first day of the week window
// containing t, where weeks begin on wkst.
func startOfWeek(t time.Time, wkst time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(wkst) + 7) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// weekOneStart returns the first day of week 1 of the year: the week
// (beginning on wkst) holding at least four days of the new year.
func weekOneStart(year int, wkst time.Weekday) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	diff := (int(jan1.Weekday()) - int(wkst) + 7) % 7
	ws := jan1.AddDate(0, 0, -diff)
	if 7-diff < 4 {
		ws = ws.AddDate(0, 0, 7)
	}
	return ws
}

func weeksInYear(year int, wkst time.Weekday) int {
	days := int(weekOneStart(year+1, wkst).Sub(weekOneStart(year, wkst)).Hours() / 24)
	return days / 7
}
