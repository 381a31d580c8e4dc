package rrule

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	dateTimeUTCLayout   = "20060102T150405Z"
	dateTimeLocalLayout = "20060102T150405"
	dateLayout          = "20060102"
)

// Line-type tags accepted by ParseSet.
const (
	lineRRule  = "RRULE"
	lineRDate  = "RDATE"
	lineExDate = "EXDATE"
	lineExRule = "EXRULE"
)

// ParseRule parses a single rule body like "FREQ=WEEKLY;BYDAY=MO,WE" into a
// validated Rule anchored at dtstart. Unknown keys are a hard error; the
// grammar never guesses.
func ParseRule(body string, dtstart time.Time) (*Rule, error) {
	return parseRuleLine(body, dtstart, 0)
}

func parseRuleLine(body string, dtstart time.Time, line int) (*Rule, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, &GrammarError{Line: line, Msg: "empty rule"}
	}

	r := &Rule{Interval: 1, WeekStart: time.Monday, DTStart: dtstart}
	seen := map[string]bool{}
	var hasFreq bool

	for _, field := range strings.Split(body, ";") {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			return nil, &GrammarError{Line: line, Msg: "field is not of the form KEY=VALUE: " + strconv.Quote(field)}
		}
		key, val := kv[0], kv[1]
		if seen[key] {
			return nil, &GrammarError{Line: line, Key: key, Msg: "duplicate field"}
		}
		seen[key] = true

		var err error
		switch key {
		case "FREQ":
			f, ok := freqFromName[val]
			if !ok {
				return nil, &GrammarError{Line: line, Key: key, Msg: "unknown frequency " + strconv.Quote(val)}
			}
			r.Freq = f
			hasFreq = true

		case "INTERVAL":
			r.Interval, err = parsePositiveInt(key, val, line)

		case "COUNT":
			r.Count, err = parsePositiveInt(key, val, line)

		case "UNTIL":
			var t time.Time
			t, err = parseInstant(val, dtstart.Location())
			if err == nil {
				r.Until = &t
			} else {
				err = &GrammarError{Line: line, Key: key, Msg: "invalid date value " + strconv.Quote(val)}
			}

		case "BYSECOND":
			r.BySecond, err = parseIntList(key, val, line)
		case "BYMINUTE":
			r.ByMinute, err = parseIntList(key, val, line)
		case "BYHOUR":
			r.ByHour, err = parseIntList(key, val, line)
		case "BYMONTHDAY":
			r.ByMonthDay, err = parseIntList(key, val, line)
		case "BYYEARDAY":
			r.ByYearDay, err = parseIntList(key, val, line)
		case "BYWEEKNO":
			r.ByWeekNo, err = parseIntList(key, val, line)
		case "BYMONTH":
			r.ByMonth, err = parseIntList(key, val, line)
		case "BYSETPOS":
			r.BySetPos, err = parseIntList(key, val, line)

		case "BYDAY":
			r.ByDay, err = parseByDay(val, line)

		case "WKST":
			wd, ok := dayNames[val]
			if !ok {
				return nil, &GrammarError{Line: line, Key: key, Msg: "unknown weekday " + strconv.Quote(val)}
			}
			r.WeekStart = wd

		default:
			return nil, &GrammarError{Line: line, Key: key, Msg: "unknown field"}
		}
		if err != nil {
			return nil, err
		}
	}

	if !hasFreq {
		return nil, &GrammarError{Line: line, Key: "FREQ", Msg: "frequency is required"}
	}
	if err := r.Validate(); err != nil {
		if ge, ok := err.(*GrammarError); ok {
			ge.Line = line
		}
		return nil, err
	}
	return r, nil
}

// ParseSet parses rule text into a Set. The text is either a single rule
// body (implicitly the RRULE) or newline-separated lines each prefixed with
// RRULE:, RDATE:, EXDATE: or EXRULE:. Exactly one RRULE line is required.
// Date values without a zone marker are read in dtstart's location.
func ParseSet(text string, dtstart time.Time) (*Set, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &GrammarError{Msg: "empty rule"}
	}

	// Single-line shorthand: a bare rule body with no line-type tag.
	if !strings.Contains(text, "\n") && !hasLineTag(text) {
		rule, err := ParseRule(text, dtstart)
		if err != nil {
			return nil, err
		}
		return NewSet(rule), nil
	}

	var (
		rules   []*Rule
		set     = &Set{}
		lineNum int
	)
	for _, raw := range strings.Split(text, "\n") {
		lineNum++
		ln := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if ln == "" {
			continue
		}
		idx := strings.Index(ln, ":")
		if idx < 0 {
			return nil, &GrammarError{Line: lineNum, Msg: "line must be prefixed with RRULE, RDATE, EXDATE or EXRULE"}
		}
		tag, val := ln[:idx], ln[idx+1:]
		switch tag {
		case lineRRule:
			rule, err := parseRuleLine(val, dtstart, lineNum)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		case lineRDate:
			ts, err := parseInstantList(tag, val, dtstart.Location(), lineNum)
			if err != nil {
				return nil, err
			}
			set.rdates = append(set.rdates, ts...)
		case lineExDate:
			ts, err := parseInstantList(tag, val, dtstart.Location(), lineNum)
			if err != nil {
				return nil, err
			}
			set.exdates = append(set.exdates, ts...)
		case lineExRule:
			rule, err := parseRuleLine(val, dtstart, lineNum)
			if err != nil {
				return nil, err
			}
			set.exrules = append(set.exrules, rule)
		default:
			return nil, &GrammarError{Line: lineNum, Msg: "unsupported line type " + strconv.Quote(tag)}
		}
	}

	switch len(rules) {
	case 0:
		return nil, &GrammarError{Msg: "missing RRULE"}
	case 1:
		set.rule = rules[0]
	default:
		return nil, &GrammarError{Msg: "only one RRULE permitted"}
	}
	return set, nil
}

func hasLineTag(s string) bool {
	for _, tag := range []string{lineRRule, lineRDate, lineExDate, lineExRule} {
		if strings.HasPrefix(s, tag+":") {
			return true
		}
	}
	return false
}

func parsePositiveInt(key, val string, line int) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return 0, &GrammarError{Line: line, Key: key, Msg: "must be a positive integer, got " + strconv.Quote(val)}
	}
	return n, nil
}

func parseIntList(key, val string, line int) ([]int, error) {
	var out []int
	for _, tok := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return nil, &GrammarError{Line: line, Key: key, Msg: "invalid number " + strconv.Quote(tok)}
		}
		out = append(out, n)
	}
	return out, nil
}

func parseByDay(val string, line int) ([]WeekdayNum, error) {
	var out []WeekdayNum
	for _, tok := range strings.Split(val, ",") {
		tok = strings.TrimSpace(tok)
		if len(tok) < 2 {
			return nil, &GrammarError{Line: line, Key: "BYDAY", Msg: "invalid weekday " + strconv.Quote(tok)}
		}
		num, code := tok[:len(tok)-2], tok[len(tok)-2:]
		wd, ok := dayNames[code]
		if !ok {
			return nil, &GrammarError{Line: line, Key: "BYDAY", Msg: "unknown weekday " + strconv.Quote(code)}
		}
		var n int
		if num != "" {
			var err error
			n, err = strconv.Atoi(num)
			if err != nil {
				return nil, &GrammarError{Line: line, Key: "BYDAY", Msg: "invalid ordinal " + strconv.Quote(num)}
			}
			if n == 0 {
				return nil, &GrammarError{Line: line, Key: "BYDAY", Msg: "ordinal zero is not valid"}
			}
		}
		out = append(out, WeekdayNum{Day: wd, N: n})
	}
	return out, nil
}

// parseInstant reads an iCalendar date or date-time. A trailing Z means UTC;
// otherwise the value is read in loc.
func parseInstant(val string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(dateTimeUTCLayout, val); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(dateTimeLocalLayout, val, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateLayout, val, loc)
}

func parseInstantList(key, val string, loc *time.Location, line int) ([]time.Time, error) {
	var out []time.Time
	for _, tok := range strings.Split(val, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		t, err := parseInstant(tok, loc)
		if err != nil {
			return nil, &GrammarError{Line: line, Key: key, Msg: "invalid date value " + strconv.Quote(tok)}
		}
		out = append(out, t)
	}
	return out, nil
}

func sortTimes(ts []time.Time) []time.Time {
	out := append([]time.Time(nil), ts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	n := 0
	for i, t := range out {
		if i == 0 || !t.Equal(out[n-1]) {
			out[n] = t
			n++
		}
	}
	return out[:n]
}
