package tokenize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/dlclark/regexp2"
)

// MergeRule decides whether tokens starting at position i form a single
// word. Merge returns the number of tokens to fuse (at least 2), or 0.
type MergeRule interface {
	Merge(tokens []string, i int) int
}

// MergeFunc adapts a function to MergeRule.
type MergeFunc func(tokens []string, i int) int

func (f MergeFunc) Merge(tokens []string, i int) int { return f(tokens, i) }

// SequenceRule fuses a fixed run of tokens when each one fully matches the
// regex at the same position.
type SequenceRule struct {
	Name  string
	parts []*regexp2.Regexp
}

// NewSequenceRule compiles one anchored regex per token position.
func NewSequenceRule(name string, parts ...string) (*SequenceRule, error) {
	if len(parts) < 2 {
		return nil, fmt.Errorf("merge rule %s: need at least two parts, got %d", name, len(parts))
	}
	r := &SequenceRule{Name: name}
	for _, p := range parts {
		re, err := regexp2.Compile(`^(?:`+p+`)$`, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("merge rule %s: %w", name, err)
		}
		r.parts = append(r.parts, re)
	}
	return r, nil
}

// MustSequenceRule is NewSequenceRule for patterns known at compile time.
func MustSequenceRule(name string, parts ...string) *SequenceRule {
	r, err := NewSequenceRule(name, parts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *SequenceRule) Merge(tokens []string, i int) int {
	if i+len(r.parts) > len(tokens) {
		return 0
	}
	for k, re := range r.parts {
		ok, err := re.MatchString(tokens[i+k])
		if err != nil || !ok {
			return 0
		}
	}
	return len(r.parts)
}

// Apostrophe returns a rule that fuses an apostrophe with a following
// enclitic, e.g. "'" + "t" in "isn't" becomes "'t".
func Apostrophe(suffixes ...string) *SequenceRule {
	return MustSequenceRule("apostrophe", `['’]`, `(?i)(?:`+strings.Join(suffixes, "|")+`)`)
}

// Elision returns a rule that fuses an elided article or pronoun with its
// apostrophe, e.g. "l" + "'" becomes "l'".
func Elision(prefixes ...string) *SequenceRule {
	return MustSequenceRule("elision", `(?i)(?:`+strings.Join(prefixes, "|")+`)`, `['’]`)
}

// HyphenEnclitic returns a rule that fuses a hyphen with a following
// enclitic pronoun, e.g. "-" + "hi" becomes "-hi".
func HyphenEnclitic(enclitics ...string) *SequenceRule {
	return MustSequenceRule("hyphen-enclitic", `-`, `(?i)(?:`+strings.Join(enclitics, "|")+`)`)
}

// Decimal fuses digit groups around a decimal point or comma: "3" "." "14".
var Decimal = MustSequenceRule("decimal", `\d+`, `[.,]`, `\d+`)

// HyphenCompound fuses word-hyphen-word runs the dictionary knows, trying
// the longest run first. Unknown compounds stay split at their hyphens.
type HyphenCompound struct {
	Dict     analysis.Dictionary
	MaxParts int
}

func (h HyphenCompound) Merge(tokens []string, i int) int {
	if h.Dict == nil || !isWord(tokens[i]) {
		return 0
	}
	maxParts := h.MaxParts
	if maxParts <= 0 {
		maxParts = 4
	}
	end := i + 1
	parts := 1
	for end+1 < len(tokens) && parts < maxParts && tokens[end] == "-" && isWord(tokens[end+1]) {
		end += 2
		parts++
	}
	for e := end; e > i+1; e -= 2 {
		if h.Dict.IsKnown(strings.Join(tokens[i:e], "")) {
			return e - i
		}
	}
	return 0
}

func isWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

var (
	urlChars     = regexp2.MustCompile(`^[a-zA-Z0-9/%$-_.+!*'(),?#~]+$`, regexp2.None)
	domainChars  = regexp2.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]+$`, regexp2.None)
	emailAtStart = regexp2.MustCompile(
		`^@?\b[a-zA-Z0-9.!#$%&'*+/=?^_`+"`"+`{|}~-]+@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))\b`,
		regexp2.None)
)

var urlProtocols = []string{"http", "https", "ftp"}

func matches(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}

// URL fuses the tokens of a web address: "https" ":" "/" "/" "example" ...
var URL MergeRule = MergeFunc(mergeURL)

func mergeURL(tokens []string, i int) int {
	if !urlStartsAt(tokens, i) {
		return 0
	}
	quote := ""
	if i > 0 {
		quote = tokens[i-1]
	}
	j := i + 1
	for j < len(tokens) && !urlEndsAt(tokens, j, quote) {
		j++
	}
	if j-i < 2 {
		return 0
	}
	return j - i
}

func urlStartsAt(l []string, i int) bool {
	tok := l[i]
	for _, p := range urlProtocols {
		if tok == p && len(l) > i+3 && l[i+1] == ":" && l[i+2] == "/" && l[i+3] == "/" {
			return true
		}
	}
	if tok == "www" && len(l) > i+1 && l[i+1] == "." {
		return true
	}
	if len(l) > i+3 && l[i+1] == "." && l[i+3] == "/" &&
		matches(domainChars, tok) && matches(domainChars, l[i+2]) {
		return true
	}
	return len(l) > i+5 && l[i+1] == "." && l[i+3] == "." && l[i+5] == "/" &&
		matches(domainChars, tok) && matches(domainChars, l[i+2]) && matches(domainChars, l[i+4])
}

func urlEndsAt(l []string, i int, quote string) bool {
	tok := l[i]
	if isSpace(tok) || tok == ")" || tok == "]" {
		return true
	}
	if len(l) > i+1 {
		next := l[i+1]
		closing := isSpace(next) || oneOf(next, "\"", "»", "«", "‘", "’", "“", "”", "'", ".")
		trailing := oneOf(tok, ".", ",", ";", ":", "!", "?") || tok == quote
		return (closing && trailing) || !matches(urlChars, tok)
	}
	return !matches(urlChars, tok) || tok == "." || tok == quote
}

// Email fuses an e-mail address split at "." "@" and "-".
var Email MergeRule = MergeFunc(mergeEmail)

func mergeEmail(tokens []string, i int) int {
	if i > 0 && tokens[i-1] == ":" {
		return 0
	}
	// Collect the run up to the next whitespace; an address has none.
	end := i
	hasAt := false
	for end < len(tokens) && !isSpace(tokens[end]) {
		if strings.Contains(tokens[end], "@") {
			hasAt = true
		}
		end++
	}
	if !hasAt || end-i < 2 || !(isWord(tokens[i]) || tokens[i] == "@") {
		return 0
	}
	run := strings.Join(tokens[i:end], "")
	m, err := emailAtStart.FindStringMatch(run)
	if err != nil || m == nil {
		return 0
	}
	// The address must end on a token boundary.
	length := 0
	for k := i; k < end; k++ {
		length += len(tokens[k])
		if length == len(m.String()) {
			if k-i+1 < 2 {
				return 0
			}
			return k - i + 1
		}
		if length > len(m.String()) {
			return 0
		}
	}
	return 0
}

func isSpace(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func oneOf(s string, opts ...string) bool {
	for _, o := range opts {
		if s == o {
			return true
		}
	}
	return false
}
