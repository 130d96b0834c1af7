package rules

import (
	"strings"
	"unicode"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
)

// WordRepeatID is the id of the repeated word rule.
const WordRepeatID = "WORD_REPEAT_RULE"

// Tautonyms and reduplications that are written twice on purpose.
var defaultRepeatIgnore = []string{
	"blá", "bla", "duran", "sapiens", "bora", "bison", "bufo", "gorilla",
	"vulpes", "rattus",
}

// WordRepeatRule reports a word immediately followed by itself, ignoring
// case: "This this is".
type WordRepeatRule struct {
	meta   Meta
	ignore map[string]struct{}
}

// NewWordRepeatRule creates the rule. ignore lists additional words whose
// repetition is allowed.
func NewWordRepeatRule(ignore ...string) *WordRepeatRule {
	r := &WordRepeatRule{
		meta: Meta{
			ID:          WordRepeatID,
			Description: "Word repetition (e.g. 'will will')",
			Category:    "MISC",
		},
		ignore: make(map[string]struct{}),
	}
	for _, w := range defaultRepeatIgnore {
		r.ignore[w] = struct{}{}
	}
	for _, w := range ignore {
		r.ignore[strings.ToLower(w)] = struct{}{}
	}
	return r
}

// ID implements Rule.
func (r *WordRepeatRule) ID() string { return r.meta.ID }

// Meta implements Described.
func (r *WordRepeatRule) Meta() Meta { return r.meta }

// Match implements Rule.
func (r *WordRepeatRule) Match(s *analysis.Sentence) []RuleMatch {
	toks := s.NonBlankTokens()
	idx := s.NonBlank()
	var out []RuleMatch
	for k := 2; k < len(toks); k++ {
		prev, cur := toks[k-1], toks[k]
		if !cur.WhitespaceBefore || !isWordToken(prev.Text) || !isWordToken(cur.Text) {
			continue
		}
		if prev.Immunized || cur.Immunized {
			continue
		}
		if !strings.EqualFold(prev.Text, cur.Text) {
			continue
		}
		if _, ok := r.ignore[strings.ToLower(cur.Text)]; ok {
			continue
		}
		m := newMatch(r.meta, s, idx[k-1], idx[k])
		m.Message = "Possible typo: you repeated a word"
		m.ShortMessage = "Word repetition"
		m.Suggestions = []string{prev.Text}
		out = append(out, m)
	}
	return out
}

// isWordToken reports whether s contains a letter.
func isWordToken(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
