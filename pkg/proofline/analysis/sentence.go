package analysis

import "strings"

// Tagger supplies candidate readings for raw tokens. It must return exactly
// one reading set per input token; an empty set is read as "unknown".
type Tagger interface {
	Tag(tokens []string) ([][]Reading, error)
}

// Dictionary answers whether a word form is known.
type Dictionary interface {
	IsKnown(word string) bool
}

// Sentence is an immutable sequence of annotated tokens. Index 0 is always
// the zero-length sentence-start token. Derived sentences share the token
// data of their source and only differ where an Editor changed them.
type Sentence struct {
	text     string
	base     int
	tokens   []AnnotatedToken
	nonBlank []int
	compact  []AnnotatedToken
}

// NewSentence wraps tokens into a sentence. A sentence-start token is
// prepended when tokens does not begin with one. base is the byte offset of
// the sentence within its document.
func NewSentence(text string, base int, tokens []AnnotatedToken) *Sentence {
	if len(tokens) == 0 || !tokens[0].IsSentenceStart() {
		start := NewAnnotatedToken(Token{}, []Reading{{Tag: SentStartTag}})
		tokens = append([]AnnotatedToken{start}, tokens...)
	}
	s := &Sentence{text: text, base: base, tokens: tokens}
	s.index()
	return s
}

func (s *Sentence) index() {
	s.nonBlank = make([]int, 0, len(s.tokens))
	s.compact = make([]AnnotatedToken, 0, len(s.tokens))
	for i, t := range s.tokens {
		if !t.IsWhitespace() {
			s.nonBlank = append(s.nonBlank, i)
			s.compact = append(s.compact, t)
		}
	}
}

// Build creates a sentence from raw word tokens and their readings. Empty
// tokens are dropped. The last non-blank token receives an extra
// sentence-end reading.
func Build(text string, base int, words []string, readings [][]Reading) *Sentence {
	tokens := make([]AnnotatedToken, 0, len(words)+1)
	tokens = append(tokens, NewAnnotatedToken(Token{}, []Reading{{Tag: SentStartTag}}))

	offset := 0
	prevSpace := false
	for i, w := range words {
		if w == "" {
			continue
		}
		var rs []Reading
		if i < len(readings) {
			rs = readings[i]
		}
		tok := Token{Text: w, Start: offset, WhitespaceBefore: prevSpace}
		if tok.IsWhitespace() {
			rs = nil
		}
		tokens = append(tokens, NewAnnotatedToken(tok, rs))
		prevSpace = tok.IsWhitespace()
		offset += len(w)
	}

	for i := len(tokens) - 1; i > 0; i-- {
		if tokens[i].IsWhitespace() {
			continue
		}
		rs := tokens[i].readings
		if len(rs) == 1 && rs[0].IsUnknown() {
			rs = nil
		}
		tokens[i].readings = normalizeReadings(append(append([]Reading{}, rs...), Reading{Tag: SentEndTag}))
		break
	}
	return NewSentence(text, base, tokens)
}

// Text returns the sentence text.
func (s *Sentence) Text() string { return s.text }

// Base is the byte offset of the sentence in its document.
func (s *Sentence) Base() int { return s.base }

// Len is the number of tokens including the sentence-start token.
func (s *Sentence) Len() int { return len(s.tokens) }

// Token returns the token at index i.
func (s *Sentence) Token(i int) AnnotatedToken { return s.tokens[i] }

// Tokens returns a copy of the token slice.
func (s *Sentence) Tokens() []AnnotatedToken {
	out := make([]AnnotatedToken, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// NonBlank returns the indices of all non-whitespace tokens, starting with
// the sentence-start token. The slice must not be modified.
func (s *Sentence) NonBlank() []int { return s.nonBlank }

// NonBlankTokens returns the non-whitespace tokens in order; element k is
// the token at index NonBlank()[k]. The slice must not be modified.
func (s *Sentence) NonBlankTokens() []AnnotatedToken { return s.compact }

// ReadingCount is the total number of readings across all tokens.
func (s *Sentence) ReadingCount() int {
	n := 0
	for _, t := range s.tokens {
		n += len(t.readings)
	}
	return n
}

// String renders the sentence with readings, one token per slash group,
// e.g. "<S> The[the/DT] dog[dog/NN]".
func (s *Sentence) String() string {
	var b strings.Builder
	for _, i := range s.nonBlank {
		t := s.tokens[i]
		if t.IsSentenceStart() {
			b.WriteString("<S>")
			continue
		}
		b.WriteByte(' ')
		b.WriteString(t.Text)
		b.WriteByte('[')
		for j, r := range t.readings {
			if j > 0 {
				b.WriteByte(',')
			}
			if r.IsUnknown() {
				b.WriteString("null")
				continue
			}
			b.WriteString(r.Lemma)
			b.WriteByte('/')
			b.WriteString(r.Tag)
		}
		b.WriteByte(']')
	}
	return b.String()
}

// Edit starts a copy-on-write edit of the sentence.
func (s *Sentence) Edit() *Editor {
	return &Editor{src: s}
}

// Editor collects changes to a sentence and yields a new Sentence. The
// token slice is copied on the first change only.
type Editor struct {
	src    *Sentence
	tokens []AnnotatedToken
}

func (e *Editor) ensure() {
	if e.tokens == nil {
		e.tokens = make([]AnnotatedToken, len(e.src.tokens))
		copy(e.tokens, e.src.tokens)
	}
}

// Token returns the current state of token i.
func (e *Editor) Token(i int) AnnotatedToken {
	if e.tokens != nil {
		return e.tokens[i]
	}
	return e.src.tokens[i]
}

// Len is the number of tokens.
func (e *Editor) Len() int { return len(e.src.tokens) }

// SetReadings replaces the readings of token i. An empty set becomes a
// single unknown reading.
func (e *Editor) SetReadings(i int, readings []Reading) {
	e.ensure()
	e.tokens[i].readings = normalizeReadings(readings)
}

// SetChunk marks token i with multiword boundary tags.
func (e *Editor) SetChunk(i int, start, end string) {
	e.ensure()
	if start != "" {
		e.tokens[i].ChunkStart = start
	}
	if end != "" {
		e.tokens[i].ChunkEnd = end
	}
}

// Immunize protects token i from error rules.
func (e *Editor) Immunize(i int) {
	e.ensure()
	e.tokens[i].Immunized = true
}

// IgnoreSpelling marks token i as exempt from spell checking.
func (e *Editor) IgnoreSpelling(i int) {
	e.ensure()
	e.tokens[i].IgnoreSpelling = true
}

// Changed reports whether any edit was made.
func (e *Editor) Changed() bool { return e.tokens != nil }

// Sentence returns the edited sentence, or the source when nothing changed.
// Later edits start from the returned sentence and do not affect it.
func (e *Editor) Sentence() *Sentence {
	if e.tokens == nil {
		return e.src
	}
	s := &Sentence{text: e.src.text, base: e.src.base, tokens: e.tokens}
	s.index()
	e.src, e.tokens = s, nil
	return s
}

// View is the read access shared by Sentence and Editor.
type View interface {
	Len() int
	Token(i int) AnnotatedToken
}

// WithReadings returns a copy of s where token i carries readings.
func (s *Sentence) WithReadings(i int, readings []Reading) *Sentence {
	ed := s.Edit()
	ed.SetReadings(i, readings)
	return ed.Sentence()
}
