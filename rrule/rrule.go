package rrule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Frequency is the base repetition unit of a rule.
type Frequency int

const (
	Yearly Frequency = iota
	Monthly
	Weekly
	Daily
	Hourly
	Minutely
	Secondly
)

var freqNames = map[Frequency]string{
	Yearly:   "YEARLY",
	Monthly:  "MONTHLY",
	Weekly:   "WEEKLY",
	Daily:    "DAILY",
	Hourly:   "HOURLY",
	Minutely: "MINUTELY",
	Secondly: "SECONDLY",
}

var freqFromName = map[string]Frequency{
	"YEARLY":   Yearly,
	"MONTHLY":  Monthly,
	"WEEKLY":   Weekly,
	"DAILY":    Daily,
	"HOURLY":   Hourly,
	"MINUTELY": Minutely,
	"SECONDLY": Secondly,
}

func (f Frequency) String() string { return freqNames[f] }

var dayNames = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// WeekdayNum is a BYDAY entry: a weekday with an optional ordinal qualifier.
// N > 0 selects the Nth matching weekday in the period, N < 0 counts from the
// end of the period, N == 0 selects every matching weekday.
type WeekdayNum struct {
	Day time.Weekday
	N   int
}

func (w WeekdayNum) String() string {
	if w.N != 0 {
		return fmt.Sprintf("%d%s", w.N, dayAbbrev[w.Day])
	}
	return dayAbbrev[w.Day]
}

// Rule is the normalized representation of one recurrence rule. A Rule is
// immutable once validated; iteration state lives in the Iterator so a Rule
// can be expanded any number of times concurrently.
type Rule struct {
	Freq       Frequency
	Interval   int // step size in units of Freq, >= 1
	Count      int // 0 = no count bound
	Until      *time.Time
	BySecond   []int
	ByMinute   []int
	ByHour     []int
	ByDay      []WeekdayNum
	ByMonthDay []int
	ByYearDay  []int
	ByWeekNo   []int
	ByMonth    []int
	BySetPos   []int
	WeekStart  time.Weekday

	// DTStart anchors the rule: expansion begins at the first instant at or
	// after DTStart that satisfies every filter. Its location is the zone
	// all candidates are generated in.
	DTStart time.Time
}

// IsInfinite reports whether the rule has neither a count nor an until bound.
// It never generates an instant to decide.
func (r *Rule) IsInfinite() bool {
	return r.Count == 0 && r.Until == nil
}

// Validate rejects field combinations the expansion algorithm does not give
// meaning to. Rules produced by ParseRule and ParseSet are already validated;
// hand-built rules should be validated before iterating.
func (r *Rule) Validate() error {
	if _, ok := freqNames[r.Freq]; !ok {
		return &GrammarError{Key: "FREQ", Msg: "unknown frequency"}
	}
	if r.Interval < 1 {
		return &GrammarError{Key: "INTERVAL", Msg: "interval must be a positive integer"}
	}
	if r.Count < 0 {
		return &GrammarError{Key: "COUNT", Msg: "count must be a positive integer"}
	}
	if r.Count > 0 && r.Until != nil {
		return &GrammarError{Key: "COUNT", Msg: "COUNT and UNTIL are mutually exclusive"}
	}
	if err := checkRange("BYSECOND", r.BySecond, 0, 59, false); err != nil {
		return err
	}
	if err := checkRange("BYMINUTE", r.ByMinute, 0, 59, false); err != nil {
		return err
	}
	if err := checkRange("BYHOUR", r.ByHour, 0, 23, false); err != nil {
		return err
	}
	if err := checkRange("BYMONTH", r.ByMonth, 1, 12, false); err != nil {
		return err
	}
	if err := checkRange("BYMONTHDAY", r.ByMonthDay, 1, 31, true); err != nil {
		return err
	}
	if err := checkRange("BYYEARDAY", r.ByYearDay, 1, 366, true); err != nil {
		return err
	}
	if err := checkRange("BYWEEKNO", r.ByWeekNo, 1, 53, true); err != nil {
		return err
	}
	if err := checkRange("BYSETPOS", r.BySetPos, 1, 366, true); err != nil {
		return err
	}
	for _, w := range r.ByDay {
		if w.N < -53 || w.N > 53 {
			return &GrammarError{Key: "BYDAY", Msg: "ordinal out of range"}
		}
	}
	if len(r.ByWeekNo) > 0 && r.Freq != Yearly {
		return &GrammarError{Key: "BYWEEKNO", Msg: "only valid with FREQ=YEARLY"}
	}
	if len(r.ByYearDay) > 0 && (r.Freq == Daily || r.Freq == Weekly || r.Freq == Monthly) {
		return &GrammarError{Key: "BYYEARDAY", Msg: "not valid with FREQ=DAILY, WEEKLY or MONTHLY"}
	}
	if len(r.ByMonthDay) > 0 && r.Freq == Weekly {
		return &GrammarError{Key: "BYMONTHDAY", Msg: "not valid with FREQ=WEEKLY"}
	}
	if r.hasOrdinalByDay() {
		if r.Freq != Monthly && r.Freq != Yearly {
			return &GrammarError{Key: "BYDAY", Msg: "ordinal only valid with FREQ=MONTHLY or YEARLY"}
		}
		if len(r.ByWeekNo) > 0 || len(r.ByYearDay) > 0 {
			return &GrammarError{Key: "BYDAY", Msg: "ordinal cannot be combined with BYWEEKNO or BYYEARDAY"}
		}
		if len(r.ByMonthDay) > 0 {
			return &GrammarError{Key: "BYDAY", Msg: "ordinal cannot be combined with BYMONTHDAY"}
		}
	}
	if len(r.BySetPos) > 0 && !r.hasOtherByFilter() {
		return &GrammarError{Key: "BYSETPOS", Msg: "requires at least one other by-filter"}
	}
	return nil
}

func (r *Rule) hasOrdinalByDay() bool {
	for _, w := range r.ByDay {
		if w.N != 0 {
			return true
		}
	}
	return false
}

func (r *Rule) hasOtherByFilter() bool {
	return len(r.BySecond) > 0 || len(r.ByMinute) > 0 || len(r.ByHour) > 0 ||
		len(r.ByDay) > 0 || len(r.ByMonthDay) > 0 || len(r.ByYearDay) > 0 ||
		len(r.ByWeekNo) > 0 || len(r.ByMonth) > 0
}

func checkRange(key string, vs []int, lo, hi int, signed bool) error {
	for _, v := range vs {
		if signed {
			if v == 0 {
				return &GrammarError{Key: key, Msg: "zero is not a valid value"}
			}
			if v < -hi || v > hi || (v > 0 && v < lo) || (v < 0 && v > -lo) {
				return &GrammarError{Key: key, Msg: fmt.Sprintf("value %d out of range", v)}
			}
			continue
		}
		if v < lo || v > hi {
			return &GrammarError{Key: key, Msg: fmt.Sprintf("value %d out of range", v)}
		}
	}
	return nil
}

// String serializes the rule body back to RRULE form. Only fields differing
// from their defaults are emitted; DTStart is not part of the body.
func (r *Rule) String() string {
	parts := []string{"FREQ=" + freqNames[r.Freq]}
	if r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	}
	if r.Count > 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", r.Count))
	}
	if r.Until != nil {
		parts = append(parts, "UNTIL="+r.Until.UTC().Format(dateTimeUTCLayout))
	}
	if s := joinInts(r.BySecond); s != "" {
		parts = append(parts, "BYSECOND="+s)
	}
	if s := joinInts(r.ByMinute); s != "" {
		parts = append(parts, "BYMINUTE="+s)
	}
	if s := joinInts(r.ByHour); s != "" {
		parts = append(parts, "BYHOUR="+s)
	}
	if len(r.ByDay) > 0 {
		days := make([]string, len(r.ByDay))
		for i, w := range r.ByDay {
			days[i] = w.String()
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if s := joinInts(r.ByMonthDay); s != "" {
		parts = append(parts, "BYMONTHDAY="+s)
	}
	if s := joinInts(r.ByYearDay); s != "" {
		parts = append(parts, "BYYEARDAY="+s)
	}
	if s := joinInts(r.ByWeekNo); s != "" {
		parts = append(parts, "BYWEEKNO="+s)
	}
	if s := joinInts(r.ByMonth); s != "" {
		parts = append(parts, "BYMONTH="+s)
	}
	if s := joinInts(r.BySetPos); s != "" {
		parts = append(parts, "BYSETPOS="+s)
	}
	if r.WeekStart != time.Monday {
		parts = append(parts, "WKST="+dayAbbrev[r.WeekStart])
	}
	return strings.Join(parts, ";")
}

func joinInts(vs []int) string {
	if len(vs) == 0 {
		return ""
	}
	ss := make([]string, len(vs))
	for i, v := range vs {
		ss[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(ss, ",")
}

func sortedUniqueInts(vs []int) []int {
	out := append([]int(nil), vs...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}
