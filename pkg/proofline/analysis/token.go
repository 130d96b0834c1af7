// Package analysis holds the ambiguous token and sentence model shared by
// the tokenizers, the disambiguator and the rule engine.
package analysis

import (
	"strings"
	"unicode"
)

// Reserved tags attached by the sentence builder.
const (
	SentStartTag = "SENT_START"
	SentEndTag   = "SENT_END"
)

// Reading is one candidate analysis of a token. Empty fields mean absent;
// a Reading with neither lemma nor tag is the "unknown word" reading.
type Reading struct {
	Lemma string
	Tag   string
}

// Unknown is the reading given to tokens nothing could analyze.
func Unknown() Reading { return Reading{} }

// IsUnknown reports whether r carries no lemma and no tag.
func (r Reading) IsUnknown() bool { return r.Lemma == "" && r.Tag == "" }

// Token is a raw substring of a sentence.
type Token struct {
	Text             string
	Start            int // byte offset relative to the sentence
	WhitespaceBefore bool
}

// End is the exclusive end offset of the token.
func (t Token) End() int { return t.Start + len(t.Text) }

// IsWhitespace reports whether the token consists only of whitespace.
// The zero-length sentence-start token is not whitespace.
func (t Token) IsWhitespace() bool {
	if t.Text == "" {
		return false
	}
	for _, r := range t.Text {
		if !unicode.IsSpace(r) && r != '\u200b' && r != '\ufeff' {
			return false
		}
	}
	return true
}

// AnnotatedToken is a token together with its candidate readings.
// Readings are shared between sentences derived from each other and must
// never be modified in place.
type AnnotatedToken struct {
	Token
	readings []Reading

	// Multiword span boundary tags set by the chunker.
	ChunkStart string
	ChunkEnd   string

	// Immunized tokens are never matched by error rules.
	Immunized      bool
	IgnoreSpelling bool
}

// NewAnnotatedToken builds a token with the given readings. Duplicates are
// dropped and an empty set becomes a single unknown reading.
func NewAnnotatedToken(tok Token, readings []Reading) AnnotatedToken {
	return AnnotatedToken{Token: tok, readings: normalizeReadings(readings)}
}

func normalizeReadings(readings []Reading) []Reading {
	if len(readings) == 0 {
		return []Reading{Unknown()}
	}
	out := make([]Reading, 0, len(readings))
	for _, r := range readings {
		dup := false
		for _, seen := range out {
			if seen == r {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

// Readings returns the token's readings. The slice is shared; do not modify it.
func (t AnnotatedToken) Readings() []Reading { return t.readings }

// IsSentenceStart reports whether this is the implicit sentence-start token.
func (t AnnotatedToken) IsSentenceStart() bool {
	return t.Text == "" && t.HasTag(SentStartTag)
}

// HasTag reports whether any reading carries exactly this tag.
func (t AnnotatedToken) HasTag(tag string) bool {
	for _, r := range t.readings {
		if r.Tag == tag {
			return true
		}
	}
	return false
}

// HasPartialTag reports whether any reading's tag contains part.
func (t AnnotatedToken) HasPartialTag(part string) bool {
	for _, r := range t.readings {
		if r.Tag != "" && strings.Contains(r.Tag, part) {
			return true
		}
	}
	return false
}

// HasLemma reports whether any reading carries the lemma.
func (t AnnotatedToken) HasLemma(lemma string) bool {
	for _, r := range t.readings {
		if r.Lemma == lemma {
			return true
		}
	}
	return false
}

// IsTagged reports whether at least one reading is not the unknown reading.
func (t AnnotatedToken) IsTagged() bool {
	for _, r := range t.readings {
		if !r.IsUnknown() {
			return true
		}
	}
	return false
}
