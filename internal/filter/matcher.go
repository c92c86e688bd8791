// Package filter implements the chat message matching engine.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"twitch_notify/internal/model"
)

var errEmptyPattern = errors.New("empty pattern")

// PatternCompileError reports a trigger whose pattern could not be compiled.
type PatternCompileError struct {
	Trigger model.Trigger
	Err     error
}

func (e *PatternCompileError) Error() string {
	return fmt.Sprintf("compile trigger %d %q: %v", e.Trigger.ID, e.Trigger.Pattern, e.Err)
}

func (e *PatternCompileError) Unwrap() error { return e.Err }

// Matcher is a compiled trigger.
type Matcher struct {
	Trigger model.Trigger

	// exactly one of re and literal is set
	re      *regexp.Regexp
	literal string
}

// Compile prepares a trigger for matching.
//
// Plain case-sensitive triggers use substring search. Everything else compiles
// to a regular expression; case-insensitive literals are quoted and prefixed
// with (?i) so that match offsets always index the original text.
func Compile(t model.Trigger) (*Matcher, error) {
	if t.Pattern == "" {
		return nil, &PatternCompileError{Trigger: t, Err: errEmptyPattern}
	}

	if !t.IsRegex && t.CaseSensitive {
		return &Matcher{Trigger: t, literal: t.Pattern}, nil
	}

	expr := t.Pattern
	if !t.IsRegex {
		expr = regexp.QuoteMeta(expr)
	}
	if !t.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &PatternCompileError{Trigger: t, Err: err}
	}
	return &Matcher{Trigger: t, re: re}, nil
}

// FindAll returns every non-overlapping, non-empty match of the trigger in
// text as byte offsets, in ascending order.
func (m *Matcher) FindAll(text string) []model.MatchSpan {
	if m.re == nil {
		return findLiteral(text, m.literal)
	}

	var spans []model.MatchSpan
	for _, loc := range m.re.FindAllStringIndex(text, -1) {
		if loc[1] > loc[0] {
			spans = append(spans, model.MatchSpan{Start: loc[0], End: loc[1]})
		}
	}
	return spans
}

func findLiteral(text, pattern string) []model.MatchSpan {
	var spans []model.MatchSpan
	offset := 0
	for {
		i := strings.Index(text[offset:], pattern)
		if i < 0 {
			return spans
		}
		start := offset + i
		end := start + len(pattern)
		spans = append(spans, model.MatchSpan{Start: start, End: end})
		offset = end
	}
}

// ValidatePattern checks whether a trigger pattern would compile.
func ValidatePattern(pattern string, isRegex, caseSensitive bool) error {
	_, err := Compile(model.Trigger{Pattern: pattern, IsRegex: isRegex, CaseSensitive: caseSensitive})
	if err != nil {
		var pe *PatternCompileError
		if errors.As(err, &pe) {
			return fmt.Errorf("invalid pattern: %w", pe.Err)
		}
		return err
	}
	return nil
}
