package pattern

import (
	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/internalerr"
)

// Options configures a Matcher.
type Options struct {
	Phrases *PhraseTable
	Unifier *Unifier
	// MatchImmunized lets elements match immunized tokens. Error rules
	// leave it off; disambiguation rules turn it on.
	MatchImmunized bool
}

// Matcher evaluates one element sequence over sentences. It is immutable
// and safe for concurrent use.
//
// The automaton is greedy-minimal and committed: each element takes the
// smallest gap at which it matches, optional occurrences stop as soon as
// the following element matches, and no choice is ever revisited. Cost per
// start position is linear in the sentence length.
type Matcher struct {
	elements []Element
	opts     Options
	features []string
}

// Match is one occurrence of a pattern.
type Match struct {
	// Tokens holds, per element, the sentence token indices it consumed.
	// Elements that matched zero times have an empty slice.
	Tokens [][]int
	// First and Last are the sentence indices of the first and last
	// consumed token.
	First, Last int
}

// NewMatcher validates elements and builds a matcher. Patterns the engine
// cannot evaluate fail with internalerr.CodeRuleUnsupported.
func NewMatcher(elements []Element, opts Options) (*Matcher, error) {
	if err := Validate(elements, opts); err != nil {
		return nil, err
	}
	m := &Matcher{elements: elements, opts: opts}
	seen := make(map[string]bool)
	for i := range elements {
		for _, f := range elements[i].Unify {
			if !seen[f] {
				seen[f] = true
				m.features = append(m.features, f)
			}
		}
	}
	return m, nil
}

// Validate reports element combinations the engine does not evaluate.
func Validate(elements []Element, opts Options) error {
	unsupported := func(format string, args ...interface{}) error {
		return internalerr.Newf(internalerr.CodeRuleUnsupported, format, args...)
	}
	if len(elements) == 0 {
		return unsupported("empty pattern")
	}
	if elements[0].Negate {
		return unsupported("negation at position 0")
	}
	for i := range elements {
		e := &elements[i]
		switch {
		case e.Ref != 0:
			return unsupported("element %d: token reference", i+1)
		case e.Phrase != "" && e.Negate:
			return unsupported("element %d: negated phrase", i+1)
		case e.Phrase != "" && !opts.Phrases.Has(e.Phrase):
			return unsupported("element %d: unknown phrase %q", i+1, e.Phrase)
		}
		if e.Phrase != "" {
			if min, max := e.occurrences(); min != 1 || max != 1 {
				return unsupported("element %d: phrase with occurrence quantifier", i+1)
			}
		}
		if e.Min < 0 || (e.Max < 0 && e.Max != Unbounded) || e.Skip < Unbounded {
			return unsupported("element %d: negative quantifier", i+1)
		}
		for _, f := range e.Unify {
			if !opts.Unifier.Has(f) {
				return unsupported("element %d: unknown unification feature %q", i+1, f)
			}
		}
	}
	return nil
}

// Elements returns the matcher's elements. The slice must not be modified.
func (m *Matcher) Elements() []Element { return m.elements }

// FindAll returns the matches in s from left to right. With all unset only
// the first match is returned; otherwise scanning resumes after each match,
// so matches never overlap.
func (m *Matcher) FindAll(s *analysis.Sentence, all bool) []Match {
	toks := s.NonBlankTokens()
	idx := s.NonBlank()
	var out []Match
	for start := 0; start < len(toks); {
		spans, ok := m.matchAt(toks, start)
		if !ok {
			start++
			continue
		}
		mt := toMatch(spans, idx)
		out = append(out, mt)
		if !all {
			break
		}
		end := start + 1
		for _, sp := range spans {
			if sp[1] > end {
				end = sp[1]
			}
		}
		start = end
	}
	return out
}

// MatchAt tries the pattern with its first element at non-blank position
// pos (an index into s.NonBlankTokens()).
func (m *Matcher) MatchAt(s *analysis.Sentence, pos int) (Match, bool) {
	toks := s.NonBlankTokens()
	if pos < 0 || pos >= len(toks) {
		return Match{}, false
	}
	spans, ok := m.matchAt(toks, pos)
	if !ok {
		return Match{}, false
	}
	return toMatch(spans, s.NonBlank()), true
}

func toMatch(spans [][2]int, idx []int) Match {
	mt := Match{Tokens: make([][]int, len(spans)), First: -1, Last: -1}
	for ei, sp := range spans {
		for p := sp[0]; p < sp[1]; p++ {
			mt.Tokens[ei] = append(mt.Tokens[ei], idx[p])
			if mt.First < 0 {
				mt.First = idx[p]
			}
			mt.Last = idx[p]
		}
	}
	return mt
}

func (m *Matcher) tokenOK(e *Element, t analysis.AnnotatedToken) bool {
	if t.Immunized && !m.opts.MatchImmunized {
		return false
	}
	return e.MatchToken(t)
}

// matchAt runs the automaton from start and returns, per element, the
// half-open range of compact positions it consumed.
func (m *Matcher) matchAt(toks []analysis.AnnotatedToken, start int) ([][2]int, bool) {
	spans := make([][2]int, len(m.elements))
	pos := start
	gapMax := 0
	consumed := 0
	for ei := range m.elements {
		e := &m.elements[ei]
		found := false
		for g := 0; gapMax == Unbounded || g <= gapMax; g++ {
			at := pos + g
			if at > len(toks) || (ei == 0 && g > 0) {
				break
			}
			n, ok := m.consume(toks, at, ei)
			if !ok {
				if at == len(toks) {
					break
				}
				continue
			}
			if ei > 0 && g > 0 || ei > 0 && m.elements[ei-1].hasScoped(ScopeNext) {
				if m.nextVeto(&m.elements[ei-1], toks, pos, at) {
					return nil, false
				}
			}
			spans[ei] = [2]int{at, at + n}
			consumed += n
			pos = at + n
			found = true
			break
		}
		if !found {
			return nil, false
		}
		if spans[ei][0] == spans[ei][1] && ei > 0 {
			// An element matched zero times passes its allowance on.
			if gapMax != Unbounded && (e.Skip == Unbounded || e.Skip > gapMax) {
				gapMax = e.Skip
			}
			continue
		}
		gapMax = e.Skip
	}
	if consumed == 0 {
		return nil, false
	}

	last := &m.elements[len(m.elements)-1]
	if last.hasScoped(ScopeNext) && pos < len(toks) && last.scopedVeto(ScopeNext, toks[pos]) {
		return nil, false
	}
	if len(m.features) > 0 && !m.unifies(toks, spans) {
		return nil, false
	}
	return spans, true
}

// nextVeto checks the next-scope exceptions of prev against the skipped
// tokens toks[from:at] and the token at at.
func (m *Matcher) nextVeto(prev *Element, toks []analysis.AnnotatedToken, from, at int) bool {
	if !prev.hasScoped(ScopeNext) {
		return false
	}
	for p := from; p <= at && p < len(toks); p++ {
		if prev.scopedVeto(ScopeNext, toks[p]) {
			return true
		}
	}
	return false
}

// consume matches element ei at toks[at:] and returns how many tokens it
// took.
func (m *Matcher) consume(toks []analysis.AnnotatedToken, at, ei int) (int, bool) {
	e := &m.elements[ei]
	if e.hasScoped(ScopePrevious) && at > 0 && e.scopedVeto(ScopePrevious, toks[at-1]) {
		return 0, false
	}

	if e.Phrase != "" {
		if at >= len(toks) {
			return 0, false
		}
		n := m.opts.Phrases.matchAt(e.Phrase, toks, at)
		if n == 0 {
			return 0, false
		}
		if !m.opts.MatchImmunized {
			for p := at; p < at+n; p++ {
				if toks[p].Immunized {
					return 0, false
				}
			}
		}
		return n, true
	}

	min, max := e.occurrences()
	var next *Element
	if ei+1 < len(m.elements) {
		next = &m.elements[ei+1]
	}
	n := 0
	for {
		if max != Unbounded && n >= max {
			break
		}
		if n >= min && next != nil && m.startsAt(next, toks, at+n) {
			break
		}
		if at+n >= len(toks) || !m.tokenOK(e, toks[at+n]) {
			break
		}
		n++
	}
	if n < min {
		return 0, false
	}
	return n, true
}

// startsAt is the single-position test used to stop optional occurrences.
func (m *Matcher) startsAt(e *Element, toks []analysis.AnnotatedToken, at int) bool {
	if at >= len(toks) {
		return false
	}
	if e.Phrase != "" {
		return m.opts.Phrases.matchAt(e.Phrase, toks, at) > 0
	}
	return m.tokenOK(e, toks[at])
}

func (m *Matcher) unifies(toks []analysis.AnnotatedToken, spans [][2]int) bool {
	var sets [][]analysis.Reading
	for ei := range m.elements {
		e := &m.elements[ei]
		if len(e.Unify) == 0 {
			continue
		}
		for p := spans[ei][0]; p < spans[ei][1]; p++ {
			sets = append(sets, e.MatchedReadings(toks[p]))
		}
	}
	_, ok := m.opts.Unifier.Unify(m.features, sets)
	return ok
}

// UnifiedReadings returns, for each token consumed by a unified element of
// mt, the readings that agree with the rest of the match. Tokens outside
// unified elements are absent from the map.
func (m *Matcher) UnifiedReadings(s *analysis.Sentence, mt Match) map[int][]analysis.Reading {
	if len(m.features) == 0 {
		return nil
	}
	var sets [][]analysis.Reading
	var at []int
	for ei := range m.elements {
		e := &m.elements[ei]
		if len(e.Unify) == 0 || ei >= len(mt.Tokens) {
			continue
		}
		for _, ti := range mt.Tokens[ei] {
			sets = append(sets, e.MatchedReadings(s.Token(ti)))
			at = append(at, ti)
		}
	}
	keep, ok := m.opts.Unifier.Unify(m.features, sets)
	if !ok {
		return nil
	}
	out := make(map[int][]analysis.Reading, len(at))
	for i, ti := range at {
		out[ti] = keep[i]
	}
	return out
}
