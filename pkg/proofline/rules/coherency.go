package rules

import (
	"fmt"
	"strings"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/pattern"
)

// CoherencyRule enforces one spelling variant per document: the first
// variant of a group seen in the document wins and later use of another
// variant of the same group is reported.
type CoherencyRule struct {
	meta   Meta
	groups map[string][]string // group -> variants
	index  map[string]string   // variant -> group
}

// NewCoherencyRule creates a rule without variant groups.
func NewCoherencyRule(meta Meta) *CoherencyRule {
	if meta.Category == "" {
		meta.Category = "STYLE"
	}
	return &CoherencyRule{
		meta:   meta,
		groups: make(map[string][]string),
		index:  make(map[string]string),
	}
}

// AddGroup registers variants that must not be mixed. The group is keyed by
// canonical, which is always one of its variants. Adding an existing group
// replaces it.
func (r *CoherencyRule) AddGroup(canonical string, variants ...string) {
	canonical = strings.ToLower(canonical)
	for _, old := range r.groups[canonical] {
		delete(r.index, old)
	}

	seen := map[string]bool{canonical: true}
	group := []string{canonical}
	for _, v := range variants {
		v = strings.ToLower(v)
		if !seen[v] {
			seen[v] = true
			group = append(group, v)
		}
	}
	r.groups[canonical] = group
	for _, v := range group {
		r.index[v] = canonical
	}
}

// Groups returns the number of variant groups.
func (r *CoherencyRule) Groups() int { return len(r.groups) }

// ID implements Rule.
func (r *CoherencyRule) ID() string { return r.meta.ID }

// Meta implements Described.
func (r *CoherencyRule) Meta() Meta { return r.meta }

// Match implements Rule.
func (r *CoherencyRule) Match(s *analysis.Sentence) []RuleMatch {
	return r.MatchWithState(s, MapState{})
}

// variant finds the group variant used by t, looking at the surface form
// first and then at reading lemmas.
func (r *CoherencyRule) variant(t analysis.AnnotatedToken) (group, variant string, ok bool) {
	lower := strings.ToLower(t.Text)
	if g, hit := r.index[lower]; hit {
		return g, lower, true
	}
	for _, rd := range t.Readings() {
		lemma := strings.ToLower(rd.Lemma)
		if g, hit := r.index[lemma]; hit {
			return g, lemma, true
		}
	}
	return "", "", false
}

// MatchWithState implements StatefulRule.
func (r *CoherencyRule) MatchWithState(s *analysis.Sentence, st State) []RuleMatch {
	toks := s.NonBlankTokens()
	idx := s.NonBlank()
	var out []RuleMatch
	for k := 1; k < len(toks); k++ {
		t := toks[k]
		if t.Immunized {
			continue
		}
		group, used, ok := r.variant(t)
		if !ok {
			continue
		}
		key := r.meta.ID + "/" + group
		chosen, seen := st.Get(key)
		if !seen {
			st.Set(key, used)
			continue
		}
		if chosen == used {
			continue
		}
		suggestion := chosen
		if pattern.StartsWithUpper(t.Text) {
			suggestion = uppercaseFirst(chosen)
		}
		m := newMatch(r.meta, s, idx[k], idx[k])
		m.Message = fmt.Sprintf("'%s' and '%s' should not be used in the same text; use '%s'.", chosen, used, chosen)
		m.ShortMessage = "Inconsistent spelling"
		m.Suggestions = []string{suggestion}
		out = append(out, m)
	}
	return out
}
