// Package pattern implements the token pattern language shared by error
// rules and disambiguation rules, and the matching automaton that evaluates
// it over ambiguous sentences.
package pattern

import (
	"github.com/cognicore/proofline/pkg/proofline/analysis"
)

// Unbounded marks an unlimited skip or occurrence count.
const Unbounded = -1

// Scope selects which token an exception is tested against.
type Scope int

const (
	// ScopeCurrent tests the token matched by the element.
	ScopeCurrent Scope = iota
	// ScopeNext tests the tokens following the element, up to and including
	// the token matched by the next element.
	ScopeNext
	// ScopePrevious tests the token right before the element.
	ScopePrevious
)

// Exception vetoes an otherwise matching token.
type Exception struct {
	Text      *StringMatcher
	POS       *StringMatcher
	Inflected bool
	Negate    bool
	NegatePOS bool
	Scope     Scope
}

// Element is one position of a pattern.
type Element struct {
	// Text tests the surface form, or the lemma when Inflected is set.
	Text *StringMatcher
	// POS tests reading tags.
	POS       *StringMatcher
	Inflected bool
	// Chunk tests the multiword boundary tags of the token.
	Chunk *StringMatcher

	Negate    bool
	NegatePOS bool

	Exceptions []Exception

	// Skip is the number of tokens that may be passed over after this
	// element before the next element must match. Unbounded allows any.
	Skip int

	// Min and Max bound the number of consecutive tokens this element
	// consumes. The zero value of both means exactly one.
	Min, Max int

	// Phrase names an entry of the phrase table; the element then matches
	// any of the phrase's token sequences.
	Phrase string

	// Unify lists the features this element must agree on with every other
	// unified element of the match.
	Unify []string

	// Marker elements delimit the reported span.
	Marker bool

	// Ref is a 1-based reference to an earlier element's token. Matching
	// against it is not supported.
	Ref int
}

// occurrences returns the normalized occurrence bounds.
func (e *Element) occurrences() (min, max int) {
	if e.Min == 0 && e.Max == 0 {
		return 1, 1
	}
	min, max = e.Min, e.Max
	if max == 0 {
		max = 1
	}
	if max != Unbounded && max < min {
		max = min
	}
	return min, max
}

// readingMatches reports whether r satisfies the element's reading level
// tests: the lemma (for inflected elements) and the POS matcher.
func (e *Element) readingMatches(r analysis.Reading) bool {
	if e.Inflected && e.Text != nil && !e.Text.Match(r.Lemma) {
		return false
	}
	if e.POS == nil {
		return true
	}
	return e.POS.Match(r.Tag) != e.NegatePOS
}

// positive evaluates the element without negation and exceptions.
func (e *Element) positive(t analysis.AnnotatedToken) bool {
	if e.Chunk != nil && !e.Chunk.Match(t.ChunkStart) && !e.Chunk.Match(t.ChunkEnd) {
		return false
	}
	if !e.Inflected && e.Text != nil && !e.Text.Match(t.Text) {
		return false
	}
	if !e.Inflected && e.POS == nil {
		return true
	}
	for _, r := range t.Readings() {
		if e.readingMatches(r) {
			return true
		}
	}
	return false
}

// MatchToken runs the element's own test on t: the positive test, negation
// and current-scope exceptions.
func (e *Element) MatchToken(t analysis.AnnotatedToken) bool {
	if e.positive(t) == e.Negate {
		return false
	}
	for i := range e.Exceptions {
		ex := &e.Exceptions[i]
		if ex.Scope == ScopeCurrent && ex.matches(t) {
			return false
		}
	}
	return true
}

// MatchedReadings returns the readings of t that satisfy the element. For
// elements without reading level tests every reading is returned.
func (e *Element) MatchedReadings(t analysis.AnnotatedToken) []analysis.Reading {
	if e.Negate || (!e.Inflected && e.POS == nil) {
		return t.Readings()
	}
	var out []analysis.Reading
	for _, r := range t.Readings() {
		if e.readingMatches(r) {
			out = append(out, r)
		}
	}
	return out
}

func (x *Exception) matches(t analysis.AnnotatedToken) bool {
	hit := x.positive(t)
	return hit != x.Negate
}

func (x *Exception) positive(t analysis.AnnotatedToken) bool {
	if !x.Inflected && x.Text != nil && !x.Text.Match(t.Text) {
		return false
	}
	if !x.Inflected && x.POS == nil {
		return true
	}
	for _, r := range t.Readings() {
		if x.Inflected && x.Text != nil && !x.Text.Match(r.Lemma) {
			continue
		}
		if x.POS == nil || x.POS.Match(r.Tag) != x.NegatePOS {
			return true
		}
	}
	return false
}

func (e *Element) hasScoped(scope Scope) bool {
	for i := range e.Exceptions {
		if e.Exceptions[i].Scope == scope {
			return true
		}
	}
	return false
}

func (e *Element) scopedVeto(scope Scope, t analysis.AnnotatedToken) bool {
	for i := range e.Exceptions {
		ex := &e.Exceptions[i]
		if ex.Scope == scope && ex.matches(t) {
			return true
		}
	}
	return false
}
