package rules

import (
	"strings"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/pattern"
)

// Policy selects how many matches a pattern rule reports per sentence.
type Policy int

const (
	// PolicyFirst reports only the leftmost match.
	PolicyFirst Policy = iota
	// PolicyAll reports every non-overlapping match.
	PolicyAll
)

// Example is a sentence documenting a rule. Incorrect examples mark the
// expected error span with <marker>...</marker>.
type Example struct {
	Text       string
	Incorrect  bool
	Correction string
}

// PatternRuleSpec is the declarative form of a pattern rule.
type PatternRuleSpec struct {
	Meta
	Elements []pattern.Element
	// Message may contain \N back-references and <suggestion> bodies.
	Message      string
	ShortMessage string
	// Suggestions are extra suggestion templates outside the message.
	Suggestions  []string
	Antipatterns [][]pattern.Element
	Policy       Policy
	Examples     []Example
	// KeepSuggestionCase disables capitalizing suggestions at a capitalized
	// match.
	KeepSuggestionCase bool
}

// PatternRule reports the spans matched by a token pattern.
type PatternRule struct {
	meta        Meta
	matcher     *pattern.Matcher
	anti        []*pattern.Matcher
	message     *pattern.Template
	short       *pattern.Template
	suggestions []*pattern.Template
	policy      Policy
	examples    []Example
	keepCase    bool
	synth       pattern.Synthesizer

	// element range whose tokens form the reported span
	markFrom, markTo int
}

// NewPatternRule compiles spec. Patterns the engine cannot evaluate fail
// with internalerr.CodeRuleUnsupported; malformed templates with
// internalerr.CodeRuleInvalid.
func NewPatternRule(spec PatternRuleSpec, opts pattern.Options, synth pattern.Synthesizer) (*PatternRule, error) {
	if spec.ID == "" {
		return nil, internalerr.New(internalerr.CodeRuleInvalid, "pattern rule without id")
	}
	m, err := pattern.NewMatcher(spec.Elements, opts)
	if err != nil {
		return nil, internalerr.Wrapf(err, internalerr.CodeOf(err), "rule %s", spec.ID)
	}
	r := &PatternRule{
		meta:     spec.Meta,
		matcher:  m,
		policy:   spec.Policy,
		examples: spec.Examples,
		keepCase: spec.KeepSuggestionCase,
		synth:    synth,
		markFrom: -1,
	}

	for i, anti := range spec.Antipatterns {
		am, err := pattern.NewMatcher(anti, opts)
		if err != nil {
			return nil, internalerr.Wrapf(err, internalerr.CodeOf(err), "rule %s: antipattern %d", spec.ID, i+1)
		}
		r.anti = append(r.anti, am)
	}

	if r.message, err = r.compile(spec.Message, len(spec.Elements)); err != nil {
		return nil, err
	}
	if spec.ShortMessage != "" {
		if r.short, err = r.compile(spec.ShortMessage, len(spec.Elements)); err != nil {
			return nil, err
		}
	}
	for _, src := range spec.Suggestions {
		if !strings.Contains(src, "<suggestion>") {
			src = "<suggestion>" + src + "</suggestion>"
		}
		t, err := r.compile(src, len(spec.Elements))
		if err != nil {
			return nil, err
		}
		r.suggestions = append(r.suggestions, t)
	}

	for i := range spec.Elements {
		if !spec.Elements[i].Marker {
			continue
		}
		if r.markFrom < 0 {
			r.markFrom = i
		}
		r.markTo = i
	}
	if r.markFrom < 0 {
		r.markFrom, r.markTo = 0, len(spec.Elements)-1
	}
	return r, nil
}

func (r *PatternRule) compile(src string, elements int) (*pattern.Template, error) {
	t, err := pattern.CompileTemplate(src)
	if err != nil {
		return nil, internalerr.Wrapf(err, internalerr.CodeRuleInvalid, "rule %s", r.meta.ID)
	}
	if t.MaxRef() > elements {
		return nil, internalerr.Newf(internalerr.CodeRuleInvalid,
			"rule %s: template references element %d of %d", r.meta.ID, t.MaxRef(), elements)
	}
	return t, nil
}

// ID implements Rule.
func (r *PatternRule) ID() string { return r.meta.ID }

// Meta implements Described.
func (r *PatternRule) Meta() Meta { return r.meta }

// Examples returns the documented example sentences.
func (r *PatternRule) Examples() []Example { return r.examples }

// Matcher returns the compiled pattern.
func (r *PatternRule) Matcher() *pattern.Matcher { return r.matcher }

// Match implements Rule.
func (r *PatternRule) Match(s *analysis.Sentence) []RuleMatch {
	found := r.matcher.FindAll(s, true)
	if len(found) == 0 {
		return nil
	}
	var blocked [][2]int
	for _, am := range r.anti {
		for _, a := range am.FindAll(s, true) {
			blocked = append(blocked, [2]int{a.First, a.Last})
		}
	}

	var out []RuleMatch
	for _, mt := range found {
		if overlapsAny(blocked, mt.First, mt.Last) {
			continue
		}
		rm, ok := r.toRuleMatch(s, mt)
		if !ok {
			continue
		}
		out = append(out, rm)
		if r.policy == PolicyFirst {
			break
		}
	}
	return out
}

func overlapsAny(spans [][2]int, first, last int) bool {
	for _, sp := range spans {
		if first <= sp[1] && sp[0] <= last {
			return true
		}
	}
	return false
}

// span returns the first and last reported token of mt. The sentence-start
// token is never part of a reported span.
func (r *PatternRule) span(s *analysis.Sentence, mt pattern.Match) (int, int, bool) {
	first, last := -1, -1
	for ei := r.markFrom; ei <= r.markTo && ei < len(mt.Tokens); ei++ {
		for _, ti := range mt.Tokens[ei] {
			if s.Token(ti).IsSentenceStart() {
				continue
			}
			if first < 0 {
				first = ti
			}
			last = ti
		}
	}
	if first >= 0 {
		return first, last, true
	}
	// Marked elements matched nothing: report the whole match.
	for _, toks := range mt.Tokens {
		for _, ti := range toks {
			if s.Token(ti).IsSentenceStart() {
				continue
			}
			if first < 0 {
				first = ti
			}
			last = ti
		}
	}
	return first, last, first >= 0
}

func (r *PatternRule) toRuleMatch(s *analysis.Sentence, mt pattern.Match) (RuleMatch, bool) {
	first, last, ok := r.span(s, mt)
	if !ok {
		return RuleMatch{}, false
	}
	in := pattern.ExpandInput{
		Sentence:    s,
		Match:       mt,
		Synthesizer: r.synth,
		Capitalize:  !r.keepCase && pattern.StartsWithUpper(s.Token(first).Text),
	}

	rm := newMatch(r.meta, s, first, last)
	msg := r.message.Expand(in)
	rm.Message = msg.Text
	rm.Suggestions = msg.Suggestions
	if r.short != nil {
		rm.ShortMessage = r.short.Expand(in).Text
	}
	for _, t := range r.suggestions {
		for _, sug := range t.Expand(in).Suggestions {
			rm.Suggestions = appendUnique(rm.Suggestions, sug)
		}
	}
	return rm, true
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
