package disambig

import (
	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/pattern"
)

// readingMatcher selects readings by lemma and tag. Empty parts match
// anything.
type readingMatcher struct {
	lemma string
	tag   *pattern.StringMatcher
}

func (m readingMatcher) match(r analysis.Reading) bool {
	if m.lemma != "" && m.lemma != r.Lemma {
		return false
	}
	return m.tag == nil || m.tag.Match(r.Tag)
}

// RemovalTable removes readings of specific words. Entries are keyed by
// the normalized surface form; a reading is removed when any matcher of
// its word selects it.
type RemovalTable struct {
	id      string
	keyer   *Keyer
	entries map[string][]readingMatcher
}

// NewRemovalTable creates an empty table. keyer may be nil, in which case
// keys are only case folded and stripped of diacritics.
func NewRemovalTable(id string, keyer *Keyer) *RemovalTable {
	return &RemovalTable{id: id, keyer: keyer, entries: make(map[string][]readingMatcher)}
}

// Add removes, from tokens whose key equals word's key, the readings with
// the given lemma and a tag fully matching tagRegex. At least one of lemma
// and tagRegex must be set.
func (t *RemovalTable) Add(word, lemma, tagRegex string) error {
	if word == "" {
		return internalerr.New(internalerr.CodeRuleInvalid, "removal entry without word")
	}
	if lemma == "" && tagRegex == "" {
		return internalerr.Newf(internalerr.CodeRuleInvalid, "removal entry %q removes every reading", word)
	}
	m := readingMatcher{lemma: lemma}
	if tagRegex != "" {
		tag, err := pattern.NewStringMatcher(tagRegex, true, true)
		if err != nil {
			return internalerr.Wrapf(err, internalerr.CodeRuleInvalid, "removal entry %q", word)
		}
		m.tag = tag
	}
	key := t.keyer.Key(word)
	t.entries[key] = append(t.entries[key], m)
	return nil
}

// Len is the number of distinct keys.
func (t *RemovalTable) Len() int { return len(t.entries) }

// ID implements Rule.
func (t *RemovalTable) ID() string { return t.id }

// Apply implements Rule.
func (t *RemovalTable) Apply(s *analysis.Sentence) *analysis.Sentence {
	if len(t.entries) == 0 {
		return s
	}
	ed := s.Edit()
	for _, i := range s.NonBlank() {
		tok := s.Token(i)
		if tok.IsSentenceStart() {
			continue
		}
		ms, ok := t.entries[t.keyer.Key(tok.Text)]
		if !ok {
			continue
		}
		kept, changed := narrow(tok.Readings(), func(r analysis.Reading) bool {
			for _, m := range ms {
				if m.match(r) {
					return false
				}
			}
			return true
		})
		if changed {
			ed.SetReadings(i, kept)
		}
	}
	return ed.Sentence()
}
