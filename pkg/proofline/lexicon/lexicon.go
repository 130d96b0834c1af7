package lexicon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/store"
	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"
)

// Lexicon maps word forms to their readings and lemmas back to forms.
// It serves as tagger (form -> readings), synthesizer (lemma + tag ->
// forms) and dictionary (is the form known).
//
// A Lexicon is built once and then only read; concurrent reads are safe.
type Lexicon struct {
	// form -> readings, in insertion order
	// Example: "walks" -> [{walk VBZ} {walk NNS}]
	forms map[string][]analysis.Reading

	// lemma -> entries
	// Example: "walk" -> [walks/VBZ walks/NNS walked/VBD]
	lemmas map[string][]store.Entry

	// lowercased form -> present, for case-insensitive IsKnown
	known map[string]struct{}
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		forms:  make(map[string][]analysis.Reading),
		lemmas: make(map[string][]store.Entry),
		known:  make(map[string]struct{}),
	}
}

// Add records one reading of a form. Duplicates are ignored.
func (l *Lexicon) Add(e store.Entry) {
	if e.Form == "" {
		return
	}
	r := analysis.Reading{Lemma: e.Lemma, Tag: e.Tag}
	for _, existing := range l.forms[e.Form] {
		if existing == r {
			return
		}
	}
	l.forms[e.Form] = append(l.forms[e.Form], r)
	l.known[strings.ToLower(e.Form)] = struct{}{}
	if e.Lemma != "" {
		l.lemmas[e.Lemma] = append(l.lemmas[e.Lemma], e)
	}
}

// LoadFromYAML loads entries from a YAML file.
//
// Expected format:
//
//	entries:
//	  - form: walks
//	    lemma: walk
//	    tag: VBZ
//	words:
//	  - "walked walk VBD"
//
// The compact "words" list holds whitespace separated form, lemma, tag.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		Entries []struct {
			Form  string `yaml:"form"`
			Lemma string `yaml:"lemma"`
			Tag   string `yaml:"tag"`
		} `yaml:"entries"`
		Words []string `yaml:"words"`
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	lex := New()
	for _, e := range config.Entries {
		lex.Add(store.Entry{Form: e.Form, Lemma: e.Lemma, Tag: e.Tag})
	}
	for i, w := range config.Words {
		parts := strings.Fields(w)
		if len(parts) != 3 {
			return nil, fmt.Errorf("words[%d]: expected \"form lemma tag\", got %q", i, w)
		}
		lex.Add(store.Entry{Form: parts[0], Lemma: parts[1], Tag: parts[2]})
	}
	return lex, nil
}

// ReadTSV parses a tab separated dump with one "form<TAB>lemma<TAB>tag"
// entry per line. Blank lines and lines starting with # are skipped.
func ReadTSV(r io.Reader) ([]store.Entry, error) {
	var out []store.Entry
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(text, "\t")
		if len(parts) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 tab separated fields, got %d", line, len(parts))
		}
		out = append(out, store.Entry{Form: parts[0], Lemma: parts[1], Tag: parts[2]})
	}
	return out, sc.Err()
}

// FromEntries builds a lexicon from entries.
func FromEntries(entries []store.Entry) *Lexicon {
	lex := New()
	for _, e := range entries {
		lex.Add(e)
	}
	return lex
}

// FromStore loads every entry of st into memory.
func FromStore(ctx context.Context, st store.Store) (*Lexicon, error) {
	lex := New()
	err := st.Each(ctx, func(e store.Entry) error {
		lex.Add(e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load lexicon from store: %w", err)
	}
	return lex, nil
}

// Lookup returns the readings of form. A capitalized form with no entry of
// its own falls back to its lowercase form, so sentence-initial words are
// found. Unknown forms return nil.
func (l *Lexicon) Lookup(form string) []analysis.Reading {
	if rs, ok := l.forms[form]; ok {
		return rs
	}
	if lower := strings.ToLower(form); lower != form {
		return l.forms[lower]
	}
	return nil
}

// Tag implements analysis.Tagger.
func (l *Lexicon) Tag(tokens []string) ([][]analysis.Reading, error) {
	out := make([][]analysis.Reading, len(tokens))
	for i, tok := range tokens {
		out[i] = l.Lookup(tok)
	}
	return out, nil
}

// IsKnown implements analysis.Dictionary. The check ignores case.
func (l *Lexicon) IsKnown(word string) bool {
	_, ok := l.known[strings.ToLower(word)]
	return ok
}

// Synthesize returns the forms of lemma whose tag fully matches tagRegex,
// sorted and without duplicates.
func (l *Lexicon) Synthesize(lemma, tagRegex string) ([]string, error) {
	re, err := regexp2.Compile(`^(?:`+tagRegex+`)$`, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", lemma, err)
	}
	seen := make(map[string]struct{})
	var forms []string
	for _, e := range l.lemmas[lemma] {
		ok, err := re.MatchString(e.Tag)
		if err != nil {
			return nil, fmt.Errorf("synthesize %s: %w", lemma, err)
		}
		if !ok {
			continue
		}
		if _, dup := seen[e.Form]; dup {
			continue
		}
		seen[e.Form] = struct{}{}
		forms = append(forms, e.Form)
	}
	sort.Strings(forms)
	return forms, nil
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() Stats {
	readings := 0
	for _, rs := range l.forms {
		readings += len(rs)
	}
	return Stats{Forms: len(l.forms), Readings: readings, Lemmas: len(l.lemmas)}
}

// Stats holds lexicon size figures.
type Stats struct {
	Forms    int
	Readings int
	Lemmas   int
}

// IsPunctuation reports whether tok has no letters or digits.
func IsPunctuation(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
