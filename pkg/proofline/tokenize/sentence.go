// Package tokenize splits text into sentences and sentences into word
// tokens. Both splitters are lossless: joining their output reproduces the
// input exactly.
package tokenize

import (
	"iter"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// eos is the internal break marker; eosPattern is its regex form.
const (
	eos        = "\x00"
	eosPattern = `\x00`
)

const (
	punct      = `[.!?…]`
	afterPunct = `(?:'|«|"|”|\)|\]|\})?`
	punctAfter = punct + afterPunct
)

var (
	paragraphByTwoLineBreaks = mustCompile(`(\n\s*\n)`)
	paragraphByLineBreak     = mustCompile(`(\n)`)

	punctWhitespace = mustCompile(`(` + punctAfter + `(\x02)?\s)`)
	punctUpperLower = mustCompile(`(` + punctAfter + `)(\p{Lu}[^\p{Lu}.])`)
	letterPunct     = mustCompile(`(\s\w` + punct + `)`)

	initialsSpaced   = mustCompile(`([^-\w]\w` + punctAfter + `\s)` + eosPattern)
	initialsJoined   = mustCompile(`([^-\w]\w` + punct + `)` + eosPattern)
	singleLetterAbbr = mustCompile(`(\s\w\.\s+)` + eosPattern)
	ellipsisLower    = mustCompile(`(\.\.\. )` + eosPattern + `(\p{Ll})`)
	quotedPunct      = mustCompile(`(['"]` + punct + `['"]\s+)` + eosPattern)
	quoteLower       = mustCompile(`(["']\s*)` + eosPattern + `(\s*\p{Ll})`)
	lonePunct        = mustCompile(`(\s` + punctAfter + `\s)` + eosPattern)
	dottedDate       = mustCompile(`(\d{1,2}\.\d{1,2}\.\s+)` + eosPattern)
	ordinalLower     = mustCompile(`(\d+\.) ` + eosPattern + `(\p{Ll}+)`)
	listItem         = mustCompile(`(?m)(^[ \t]*\d{1,3}\.[ \t]+)` + eosPattern)
	bracketedPunct   = mustCompile(`\(([!?]+)\) ` + eosPattern)

	contractionEnd = mustCompile(`('\w` + punct + `)(\s)(?!\s*\x00)`)
	noFollowedBy   = mustCompile(`(\sno\.)(\s+)(?![\d\x00])`)
)

func mustCompile(expr string) *regexp2.Regexp {
	return regexp2.MustCompile(expr, regexp2.None)
}

// replace applies re and keeps s unchanged if the engine reports an error.
func replace(re *regexp2.Regexp, s, repl string) string {
	out, err := re.Replace(s, repl, -1, -1)
	if err != nil {
		return s
	}
	return out
}

// SentenceTokenizer splits text into sentences by inserting break markers
// at likely boundaries and then removing the ones that follow
// abbreviations, initials, dates and similar false positives.
type SentenceTokenizer struct {
	abbreviations []string
	abbrev        *regexp2.Regexp
	paragraph     *regexp2.Regexp
}

// NewSentenceTokenizer creates a tokenizer that never splits after the
// given abbreviations (matched case-sensitively, without the final dot).
func NewSentenceTokenizer(abbreviations []string) *SentenceTokenizer {
	t := &SentenceTokenizer{paragraph: paragraphByTwoLineBreaks}
	t.SetAbbreviations(abbreviations)
	return t
}

// SetAbbreviations replaces the abbreviation list.
func (t *SentenceTokenizer) SetAbbreviations(abbreviations []string) {
	list := make([]string, 0, len(abbreviations))
	for _, a := range abbreviations {
		a = strings.TrimSuffix(strings.TrimSpace(a), ".")
		if a != "" {
			list = append(list, a)
		}
	}
	// Longest first so alternation prefers "Ph.D" over "Ph".
	sort.SliceStable(list, func(i, j int) bool { return len(list[i]) > len(list[j]) })
	t.abbreviations = list
	t.abbrev = nil
	if len(list) == 0 {
		return
	}
	quoted := make([]string, len(list))
	for i, a := range list {
		quoted[i] = regexp2.Escape(a)
	}
	t.abbrev = mustCompile(`(\b(?:` + strings.Join(quoted, "|") + `)` + punctAfter + `\s)` + eosPattern)
}

// Abbreviations returns the active abbreviation list.
func (t *SentenceTokenizer) Abbreviations() []string {
	return append([]string(nil), t.abbreviations...)
}

// SetSingleLineBreaksMarkParagraph selects whether a single line break ends
// a paragraph (and thus a sentence). By default two are required.
func (t *SentenceTokenizer) SetSingleLineBreaksMarkParagraph(single bool) {
	if single {
		t.paragraph = paragraphByLineBreak
	} else {
		t.paragraph = paragraphByTwoLineBreaks
	}
}

// Split returns the sentences of text. Joining them yields text.
func (t *SentenceTokenizer) Split(text string) []string {
	var out []string
	for s := range t.Sentences(text) {
		out = append(out, s)
	}
	return out
}

// Sentences yields the sentences of text in order. Each sentence is a
// slice of text, so bytes that are not valid UTF-8 pass through unchanged.
func (t *SentenceTokenizer) Sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}
		start := 0
		for _, end := range t.boundaries(text) {
			if end <= start {
				continue
			}
			if !yield(text[start:end]) {
				return
			}
			start = end
		}
		if start < len(text) {
			yield(text[start:])
		}
	}
}

// boundaries returns the byte offsets of text at which a sentence ends.
// The markers are placed on a cleaned copy holding one rune per decoded
// rune of text, and each marker is mapped back by walking both in step.
func (t *SentenceTokenizer) boundaries(text string) []int {
	marked := t.mark(cleanRunes(text))
	var cuts []int
	pos := 0
	for _, r := range marked {
		if r == 0 {
			cuts = append(cuts, pos)
			continue
		}
		_, w := utf8.DecodeRuneInString(text[pos:])
		pos += w
	}
	return cuts
}

// cleanRunes returns text as valid UTF-8 without NUL bytes. Invalid bytes
// and NULs become utf8.RuneError, so the rune count matches the number of
// runes utf8.DecodeRuneInString finds in text.
func cleanRunes(text string) string {
	if utf8.ValidString(text) && !strings.Contains(text, eos) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		r, w := utf8.DecodeRuneInString(text[i:])
		if r == 0 {
			r = utf8.RuneError
		}
		b.WriteRune(r)
		i += w
	}
	return b.String()
}

func (t *SentenceTokenizer) mark(s string) string {
	s = t.firstSplit(s)
	s = t.removeFalseBreaks(s)
	s = removeBreaksInParentheses(s)
	return splitUnsplit(s)
}

func (t *SentenceTokenizer) firstSplit(s string) string {
	s = replace(t.paragraph, s, "$1"+eos)
	s = replace(punctWhitespace, s, "$1"+eos)
	s = replace(punctUpperLower, s, "$1"+eos+"$2")
	return replace(letterPunct, s, "$1"+eos)
}

func (t *SentenceTokenizer) removeFalseBreaks(s string) string {
	// "U. S. A." and "U.S.A."
	s = replace(initialsSpaced, s, "$1")
	s = replace(initialsJoined, s, "$1")
	// " p. "
	s = replace(singleLetterAbbr, s, "$1")
	s = replace(ellipsisLower, s, "$1$2")
	s = replace(quotedPunct, s, "$1")
	if t.abbrev != nil {
		s = replace(t.abbrev, s, "$1")
	}
	s = replace(quoteLower, s, "$1$2")
	s = replace(lonePunct, s, "$1")
	s = replace(dottedDate, s, "$1")
	s = replace(ordinalLower, s, "$1 $2")
	s = replace(listItem, s, "$1")
	return replace(bracketedPunct, s, "($1) ")
}

// splitUnsplit re-inserts boundaries the removal pass is known to eat:
// "He won't. Really." and "He said no. Not really."
func splitUnsplit(s string) string {
	s = replace(contractionEnd, s, "$1"+eos+"$2")
	return replace(noFollowedBy, s, "$1"+eos+"$2")
}

// removeBreaksInParentheses drops markers between a "(" and its matching
// ")" when both sit in the same paragraph. Markers right after a line break
// are kept.
func removeBreaksInParentheses(s string) string {
	if !strings.Contains(s, "(") || !strings.Contains(s, eos) {
		return s
	}
	type span struct{ open, close int }
	var spans []span
	var stack []int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			stack = append(stack, i)
		case ')':
			if n := len(stack); n > 0 {
				spans = append(spans, span{stack[n-1], i})
				stack = stack[:n-1]
			}
		case '\n':
			if i+1 < len(s) && (s[i+1] == '\n' || s[i+1] == '\r') {
				stack = stack[:0]
			}
		}
	}
	if len(spans) == 0 {
		return s
	}

	inside := func(pos int) bool {
		for _, sp := range spans {
			if pos > sp.open && pos < sp.close {
				return true
			}
		}
		return false
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == 0 && inside(i) && (i == 0 || s[i-1] != '\n') {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
