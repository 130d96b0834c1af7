package pattern

import (
	"fmt"
	"sort"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
)

// PhraseTable holds named token sequences referenced by phrase elements.
// Alternatives of a phrase are tried longest first.
type PhraseTable struct {
	phrases map[string][][]Element
}

// NewPhraseTable creates an empty table.
func NewPhraseTable() *PhraseTable {
	return &PhraseTable{phrases: make(map[string][][]Element)}
}

// Add registers one alternative of phrase name. Alternatives are plain
// single-token elements; skips and occurrence counts are not allowed.
func (t *PhraseTable) Add(name string, seq []Element) error {
	if len(seq) == 0 {
		return fmt.Errorf("phrase %q: empty alternative", name)
	}
	for i := range seq {
		e := &seq[i]
		if e.Skip != 0 || e.Phrase != "" || e.Ref != 0 {
			return fmt.Errorf("phrase %q: element %d uses skip, phrase or reference", name, i+1)
		}
		if min, max := e.occurrences(); min != 1 || max != 1 {
			return fmt.Errorf("phrase %q: element %d has an occurrence quantifier", name, i+1)
		}
	}
	alts := append(t.phrases[name], seq)
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	t.phrases[name] = alts
	return nil
}

// Has reports whether name is defined.
func (t *PhraseTable) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.phrases[name]
	return ok
}

// Len returns the number of phrases.
func (t *PhraseTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.phrases)
}

// matchAt returns the number of tokens the phrase consumes at toks[pos:],
// or 0 when no alternative matches.
func (t *PhraseTable) matchAt(name string, toks []analysis.AnnotatedToken, pos int) int {
	for _, alt := range t.phrases[name] {
		if pos+len(alt) > len(toks) {
			continue
		}
		ok := true
		for i := range alt {
			if !alt[i].MatchToken(toks[pos+i]) {
				ok = false
				break
			}
		}
		if ok {
			return len(alt)
		}
	}
	return 0
}
