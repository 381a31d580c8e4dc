/*
Package rrule parses and evaluates RFC 5545 recurrence rules.

A rule is built from iCalendar-style text plus an anchor instant (DTSTART).
The anchor supplies the time of day and location for every field the rule
does not constrain:

	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	r, err := rrule.ParseRule("FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=10", anchor)
	if err != nil {
		log.Fatal(err)
	}
	it := r.Iterator()
	for t, ok := it.Next(); ok; t, ok = it.Next() {
		fmt.Println(t)
	}

Multi-line input with RDATE, EXDATE and EXRULE lines parses into a Set,
which merges inclusions and exclusions into one strictly increasing
sequence:

	s, err := rrule.ParseSet("RRULE:FREQ=DAILY;COUNT=5\nEXDATE:20240102T090000Z", anchor)

Iteration is lazy. Rules without COUNT or UNTIL are infinite; Rule.All
refuses to enumerate them and returns a LogicError instead of looping
forever.
*/
package rrule
