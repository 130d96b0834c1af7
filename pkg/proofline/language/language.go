// Package language describes the per-language pieces of the pipeline:
// abbreviations for sentence splitting, word break characters, merge rules
// and the enclitic suffixes used to key disambiguation rules.
package language

import (
	"sort"
	"sync"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/tokenize"
)

// Language is a language profile.
type Language struct {
	Code string
	Name string

	// Abbreviations never end a sentence. Matched case-sensitively.
	Abbreviations []string
	// SingleLineBreaksMarkParagraph makes one line break end a paragraph.
	SingleLineBreaksMarkParagraph bool

	// BreakChars overrides tokenize.DefaultBreakChars when set.
	BreakChars string
	// MergeRules builds the ordered second-pass merge list. dict may be nil.
	MergeRules func(dict analysis.Dictionary) []tokenize.MergeRule

	// Enclitics are suffixes stripped when computing normalized word keys.
	Enclitics []string
}

// SentenceTokenizer builds a sentence splitter for the language.
func (l *Language) SentenceTokenizer() *tokenize.SentenceTokenizer {
	t := tokenize.NewSentenceTokenizer(l.Abbreviations)
	t.SetSingleLineBreaksMarkParagraph(l.SingleLineBreaksMarkParagraph)
	return t
}

// WordTokenizer builds a word tokenizer for the language. dict verifies
// hyphenated compounds; with a nil dict they always stay split.
func (l *Language) WordTokenizer(dict analysis.Dictionary) *tokenize.WordTokenizer {
	var merges []tokenize.MergeRule
	if l.MergeRules != nil {
		merges = l.MergeRules(dict)
	}
	return tokenize.NewWordTokenizer(l.BreakChars, merges...)
}

// Registry holds language profiles by code. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*Language
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*Language)}
}

// Default returns a fresh registry with the built-in profiles.
func Default() *Registry {
	r := NewRegistry()
	for _, l := range []*Language{English(), Catalan()} {
		_ = r.Register(l)
	}
	return r
}

// Register adds a profile. Codes must be unique.
func (r *Registry) Register(l *Language) error {
	if l == nil || l.Code == "" {
		return internalerr.New(internalerr.CodeInvalidInput, "language code cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[l.Code]; exists {
		return internalerr.Newf(internalerr.CodeInvalidInput, "language %q is already registered", l.Code)
	}
	r.items[l.Code] = l
	return nil
}

// Get returns the profile for code.
func (r *Registry) Get(code string) (*Language, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.items[code]
	if !ok {
		return nil, internalerr.Newf(internalerr.CodeLanguage, "language %q not found", code)
	}
	return l, nil
}

// Has reports whether code is registered.
func (r *Registry) Has(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[code]
	return ok
}

// List returns the registered codes in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.items))
	for c := range r.items {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// English is the built-in English profile.
func English() *Language {
	return &Language{
		Code: "en",
		Name: "English",
		Abbreviations: []string{
			"Mr", "Mrs", "Ms", "Dr", "Prof", "Sr", "Jr", "St", "Mt", "Gen", "Col", "Lt", "Sgt", "Capt",
			"Rev", "Hon", "Gov", "Sen", "Rep", "Inc", "Ltd", "Co", "Corp", "vs", "etc", "approx",
			"e.g", "i.e", "cf", "al", "Jan", "Feb", "Mar", "Apr", "Jun", "Jul", "Aug", "Sep", "Sept",
			"Oct", "Nov", "Dec", "No", "Nos", "Vol", "Fig", "pp", "Ph.D", "a.m", "p.m",
		},
		MergeRules: func(dict analysis.Dictionary) []tokenize.MergeRule {
			return []tokenize.MergeRule{
				tokenize.Email,
				tokenize.URL,
				tokenize.Decimal,
				tokenize.HyphenCompound{Dict: dict},
				tokenize.Apostrophe("s", "t", "ll", "re", "ve", "d", "m"),
			}
		},
		Enclitics: []string{"'s", "’s"},
	}
}

// Catalan is a small Catalan profile exercising elision and hyphenated
// enclitic pronouns.
func Catalan() *Language {
	enclitics := []string{"hi", "ho", "la", "les", "li", "lo", "los", "me", "m", "ne", "n", "nos", "s", "se", "te", "t", "us", "vos"}
	return &Language{
		Code:          "ca",
		Name:          "Catalan",
		Abbreviations: []string{"Sr", "Sra", "Dr", "Dra", "núm", "pàg", "etc", "p.ex", "aprox", "av", "c"},
		// The middle dot is a word character in Catalan ("col·legi").
		BreakChars: catalanBreakChars(),
		MergeRules: func(dict analysis.Dictionary) []tokenize.MergeRule {
			return []tokenize.MergeRule{
				tokenize.Email,
				tokenize.URL,
				tokenize.Decimal,
				tokenize.HyphenCompound{Dict: dict},
				tokenize.Elision("l", "d", "s", "m", "t", "n", "qu"),
				tokenize.HyphenEnclitic(enclitics...),
				tokenize.Apostrophe("hi", "ho", "l", "ls", "m", "n", "ns", "s", "t"),
			}
		},
		Enclitics: prefixed("-", enclitics),
	}
}

func catalanBreakChars() string {
	out := make([]rune, 0, len(tokenize.DefaultBreakChars))
	for _, r := range tokenize.DefaultBreakChars {
		if r != '·' {
			out = append(out, r)
		}
	}
	return string(out)
}

func prefixed(prefix string, items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = prefix + s
	}
	return out
}
