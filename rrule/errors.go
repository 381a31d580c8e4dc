package rrule

import "fmt"

// GrammarError indicates malformed rule text. It is always returned at parse
// or validation time; a rule that constructed without error never produces a
// GrammarError later.
type GrammarError struct {
	Line int    // 1-based line number, 0 for single-line input
	Key  string // offending field key, if any
	Msg  string
}

func (e *GrammarError) Error() string {
	switch {
	case e.Line > 0 && e.Key != "":
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Key, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	case e.Key != "":
		return fmt.Sprintf("%s: %s", e.Key, e.Msg)
	default:
		return e.Msg
	}
}

// LogicError indicates a well-formed rule used unsafely, such as requesting
// every occurrence of an unbounded rule. It marks a programming error in the
// caller, not bad user input.
type LogicError struct {
	Msg string
}

func (e *LogicError) Error() string { return e.Msg }

// ArgumentError indicates an invalid argument to an otherwise valid call,
// such as a negative occurrence limit.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string { return e.Msg }
