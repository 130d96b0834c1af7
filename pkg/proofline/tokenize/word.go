package tokenize

import (
	"strings"
	"unicode/utf8"
)

// DefaultBreakChars are the characters that end a word. Each of them is
// emitted as a token of its own. The hyphen is included so compounds can be
// re-joined by a dictionary-checked merge rule.
const DefaultBreakChars = "\u0020\u00A0\u115f\u1160\u1680" +
	"\u2000\u2001\u2002\u2003\u2004\u2005\u2006\u2007" +
	"\u2008\u2009\u200A\u200B\u200c\u200d\u200e\u200f" +
	"\u2028\u2029\u202a\u202b\u202c\u202d\u202e\u202f" +
	"\u205F\u2060\u2061\u2062\u2063\u206A\u206b\u206c\u206d" +
	"\u206E\u206F\u3000\u3164\ufeff\uffa0\ufff9\ufffa\ufffb" +
	"¦‖∣|,.;()[]{}=*#∗+×·÷<>!?:~/\\\"'«»„”“‘’`´‛′›‹…¿¡‼⁇⁈⁉™®\u203d" +
	"\u2012\u2013\u2014\u2015" + // dashes
	"\u2500\u3161\u2713" +
	"\u25CF\u25CB\u25C6\u27A2\u25A0\u25A1\u2605\u274F\u2794\u21B5\u2756\u25AA\u2751\u2022" + // bullets
	"\u2B9A\u2265\u2192\u21FE\u21C9\u21D2\u21E8\u21DB" + // arrows
	"\u00b9\u00b2\u00b3\u2070\u2071\u2074\u2075\u2076\u2077\u2078\u2079" + // superscripts
	"\t\n\r-"

// WordTokenizer splits a sentence into word and separator tokens.
//
// The first pass cuts at break characters. The second pass walks the token
// list once and, at each position, asks the merge rules in order whether
// the following tokens should be fused; the first rule that answers wins and
// the fused run is never revisited.
type WordTokenizer struct {
	breaks map[rune]struct{}
	merges []MergeRule
}

// NewWordTokenizer creates a tokenizer for the given break characters.
// An empty breakChars selects DefaultBreakChars.
func NewWordTokenizer(breakChars string, merges ...MergeRule) *WordTokenizer {
	if breakChars == "" {
		breakChars = DefaultBreakChars
	}
	breaks := make(map[rune]struct{}, utf8.RuneCountInString(breakChars))
	for _, r := range breakChars {
		breaks[r] = struct{}{}
	}
	return &WordTokenizer{breaks: breaks, merges: merges}
}

// AddMergeRule appends a merge rule with the lowest priority.
func (t *WordTokenizer) AddMergeRule(r MergeRule) {
	t.merges = append(t.merges, r)
}

// IsBreak reports whether r ends a word.
func (t *WordTokenizer) IsBreak(r rune) bool {
	_, ok := t.breaks[r]
	return ok
}

// Tokenize splits text into tokens. Joining them yields text.
func (t *WordTokenizer) Tokenize(text string) []string {
	return t.merge(t.split(text))
}

func (t *WordTokenizer) split(text string) []string {
	var tokens []string
	start := 0
	for i, r := range text {
		if !t.IsBreak(r) {
			continue
		}
		if i > start {
			tokens = append(tokens, text[start:i])
		}
		_, w := utf8.DecodeRuneInString(text[i:])
		end := i + w
		tokens = append(tokens, text[i:end])
		start = end
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

func (t *WordTokenizer) merge(tokens []string) []string {
	if len(t.merges) == 0 {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		n := 0
		for _, rule := range t.merges {
			if k := rule.Merge(tokens, i); k >= 2 && i+k <= len(tokens) {
				n = k
				break
			}
		}
		if n == 0 {
			out = append(out, tokens[i])
			i++
			continue
		}
		out = append(out, strings.Join(tokens[i:i+n], ""))
		i += n
	}
	return out
}
