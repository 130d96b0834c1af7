package disambig

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Keyer normalizes surface forms into lookup keys: case folded, stripped
// of diacritics and of one enclitic suffix. A Keyer is safe for concurrent
// use.
type Keyer struct {
	enclitics []string
}

// NewKeyer creates a keyer stripping the given enclitic suffixes, e.g.
// "'s" or "-la".
func NewKeyer(enclitics ...string) *Keyer {
	k := &Keyer{}
	for _, e := range enclitics {
		if e = fold(e); e != "" {
			k.enclitics = append(k.enclitics, e)
		}
	}
	sort.SliceStable(k.enclitics, func(i, j int) bool {
		return len(k.enclitics[i]) > len(k.enclitics[j])
	})
	return k
}

// Key returns the normalized key of word.
func (k *Keyer) Key(word string) string {
	key := fold(word)
	if k == nil {
		return key
	}
	for _, e := range k.enclitics {
		if len(key) > len(e) && strings.HasSuffix(key, e) {
			return key[:len(key)-len(e)]
		}
	}
	return key
}

// fold case folds s and removes combining marks.
func fold(s string) string {
	// Casers and transformers keep state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, cases.Fold().String(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return stripped
}
