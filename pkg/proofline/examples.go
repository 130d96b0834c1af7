package proofline

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/cognicore/proofline/pkg/proofline/rules"
)

const (
	markerStart = "<marker>"
	markerEnd   = "</marker>"
)

// ExampleFailure is a rule example the rule does not handle as documented.
type ExampleFailure struct {
	RuleID string
	Text   string
	Reason string
}

func (f ExampleFailure) String() string {
	return fmt.Sprintf("%s: %q: %s", f.RuleID, f.Text, f.Reason)
}

type exampleRule interface {
	rules.Rule
	Examples() []rules.Example
}

// VerifyExamples checks every active rule against its examples. An
// incorrect example must produce a match over its marked span offering
// each "|" separated correction; a correct example must produce none.
func (c *Checker) VerifyExamples(ctx context.Context) ([]ExampleFailure, error) {
	var failures []ExampleFailure
	for _, r := range c.active {
		er, ok := r.(exampleRule)
		if !ok {
			continue
		}
		for _, ex := range er.Examples() {
			if err := ctx.Err(); err != nil {
				return failures, err
			}
			if f, ok := c.verifyExample(ctx, er, ex); !ok {
				failures = append(failures, f)
			}
		}
	}
	return failures, nil
}

func (c *Checker) verifyExample(ctx context.Context, r rules.Rule, ex rules.Example) (ExampleFailure, bool) {
	fail := func(format string, args ...interface{}) (ExampleFailure, bool) {
		return ExampleFailure{RuleID: r.ID(), Text: ex.Text, Reason: fmt.Sprintf(format, args...)}, false
	}
	text, start, end, marked := stripMarker(ex.Text)
	if ex.Incorrect && !marked {
		return fail("incorrect example without %s", markerStart)
	}

	sentences, err := c.Analyze(ctx, text)
	if err != nil {
		return fail("analyze: %v", err)
	}
	var matches []rules.RuleMatch
	st := rules.MapState{}
	for _, s := range sentences {
		if sr, ok := r.(rules.StatefulRule); ok {
			matches = append(matches, c.matchStateful(sr, s, st)...)
		} else {
			matches = append(matches, c.match(r, s)...)
		}
	}

	if !ex.Incorrect {
		if len(matches) > 0 {
			return fail("unexpected match at %d..%d", matches[0].Start, matches[0].End)
		}
		return ExampleFailure{}, true
	}

	for _, m := range matches {
		if m.Start != start || m.End != end {
			continue
		}
		if ex.Correction == "" {
			return ExampleFailure{}, true
		}
		for _, want := range strings.Split(ex.Correction, "|") {
			if !slices.Contains(m.Suggestions, want) {
				return fail("suggestions %q lack %q", m.Suggestions, want)
			}
		}
		return ExampleFailure{}, true
	}
	return fail("no match at %d..%d (%d matches)", start, end, len(matches))
}

// stripMarker removes the marker tags and returns the marked byte span.
func stripMarker(s string) (text string, start, end int, ok bool) {
	start = strings.Index(s, markerStart)
	if start < 0 {
		return s, 0, 0, false
	}
	rest := s[start+len(markerStart):]
	n := strings.Index(rest, markerEnd)
	if n < 0 {
		return s, 0, 0, false
	}
	text = s[:start] + rest[:n] + rest[n+len(markerEnd):]
	return text, start, start + n, true
}
