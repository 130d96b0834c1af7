package rules

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
)

// UppercaseSentenceStartID is the id of the sentence capitalization rule.
const UppercaseSentenceStartID = "UPPERCASE_SENTENCE_START"

var (
	// lowercase enumerations: a), iv.
	enumerationRe = regexp2.MustCompile(`^(?:[a-z]|m{0,4}(?:c[md]|d?c{0,3})(?:x[cl]|l?x{0,3})(?:i[xv]|v?i{0,3}))$`, regexp2.None)
	numberedRe    = regexp2.MustCompile(`^\d+\. |\n\d+\. $`, regexp2.None)
	urlLikeRe     = regexp2.MustCompile(`^(?:[a-z][a-z0-9+.-]*://|www\.)|^[^@\s]+@[^@\s]+\.[a-z]{2,}$`, regexp2.IgnoreCase)
)

var sentenceStartExceptions = map[string]struct{}{
	"n":   {}, // n/a
	"w":   {}, // w/o
	"x86": {},
	"ⓒ":   {},
	"ø":   {},
	"cc":  {},
	"pH":  {},
}

var leadingQuotes = map[string]struct{}{
	"\"": {}, "'": {}, "„": {}, "»": {}, "«": {}, "“": {}, "‘": {}, "¡": {}, "¿": {},
}

// UppercaseSentenceStartRule reports sentences starting with a lowercase
// letter. It remembers how the previous sentence ended, so it is a
// StatefulRule.
type UppercaseSentenceStartRule struct {
	meta Meta
}

// NewUppercaseSentenceStartRule creates the rule.
func NewUppercaseSentenceStartRule() *UppercaseSentenceStartRule {
	return &UppercaseSentenceStartRule{meta: Meta{
		ID:          UppercaseSentenceStartID,
		Description: "Checks that a sentence starts with an uppercase letter",
		Category:    "CASING",
	}}
}

// ID implements Rule.
func (r *UppercaseSentenceStartRule) ID() string { return r.meta.ID }

// Meta implements Described.
func (r *UppercaseSentenceStartRule) Meta() Meta { return r.meta }

// Match implements Rule. A sentence consisting of a single word is not
// reported.
func (r *UppercaseSentenceStartRule) Match(s *analysis.Sentence) []RuleMatch {
	if len(s.NonBlankTokens()) == 2 {
		return nil
	}
	return r.MatchWithState(s, MapState{})
}

func (r *UppercaseSentenceStartRule) key(name string) string {
	return r.meta.ID + "/" + name
}

// MatchWithState implements StatefulRule.
func (r *UppercaseSentenceStartRule) MatchWithState(s *analysis.Sentence, st State) []RuleMatch {
	toks := s.NonBlankTokens()
	if len(toks) < 2 {
		return nil
	}
	prevLast, _ := st.Get(r.key("last"))
	list, _ := st.Get(r.key("list"))
	prevList := list == "1"

	at := 1
	if len(toks) >= 3 {
		if _, ok := leadingQuotes[toks[1].Text]; ok {
			at = 2
		}
	}
	tok := toks[at]

	last := toks[len(toks)-1].Text
	if len(toks) > 2 && isClosingQuoteOrSpace(last) {
		last = toks[len(toks)-2].Text
	}

	prevent := prevList || prevLast == "," || prevLast == ";"
	if prevLast != "" && !isSentenceEnd(prevLast) && !isSentenceEnd(last) {
		prevent = true
	}
	if strings.IndexFunc(tok.Text, unicode.IsDigit) >= 0 || tok.Immunized {
		prevent = true
	}
	if at+1 < len(toks) && matchString(enumerationRe, tok.Text) {
		if next := toks[at+1].Text; next == "." || next == ")" {
			prevent = true
		}
	}
	if matchString(urlLikeRe, tok.Text) {
		prevent = true
	}

	if strings.TrimSpace(strings.ReplaceAll(s.Text(), "\u00a0", " ")) != "" {
		st.Set(r.key("last"), last)
	}
	// Plain text lists ("1. item") are not split well; their items may
	// start lowercase.
	if matchString(numberedRe, s.Text()) {
		st.Set(r.key("list"), "1")
	} else {
		st.Set(r.key("list"), "0")
	}

	if prevent {
		return nil
	}
	first, _ := utf8.DecodeRuneInString(tok.Text)
	if !unicode.IsLower(first) {
		return nil
	}
	if _, ok := sentenceStartExceptions[tok.Text]; ok || isCamelCase(tok.Text) {
		return nil
	}
	m := newMatch(r.meta, s, s.NonBlank()[at], s.NonBlank()[at])
	m.Message = "This sentence does not start with an uppercase letter."
	m.Suggestions = []string{uppercaseFirst(tok.Text)}
	return []RuleMatch{m}
}

func isSentenceEnd(tok string) bool {
	switch tok {
	case ".", "?", "!", "…":
		return true
	}
	return false
}

func isClosingQuoteOrSpace(tok string) bool {
	switch tok {
	case "\"", "'", "„", "«", "»", "‘", "’", "“", "”", "\n":
		return true
	}
	return false
}

// isCamelCase reports words like "iPhone" that start lowercase and contain
// an uppercase letter later on.
func isCamelCase(s string) bool {
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func uppercaseFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func matchString(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}
