package analysis

import (
	"reflect"
	"testing"
)

func buildSample() *Sentence {
	words := []string{"The", " ", "dog", " ", "barks", "."}
	readings := [][]Reading{
		{{Lemma: "the", Tag: "DT"}},
		nil,
		{{Lemma: "dog", Tag: "NN"}, {Lemma: "dog", Tag: "VB"}},
		nil,
		{{Lemma: "bark", Tag: "VBZ"}},
		nil,
	}
	return Build("The dog barks.", 10, words, readings)
}

func TestBuildOffsets(t *testing.T) {
	s := buildSample()

	if s.Len() != 7 {
		t.Fatalf("Expected 7 tokens including sentence start, got %d", s.Len())
	}
	if !s.Token(0).IsSentenceStart() {
		t.Error("Expected token 0 to be the sentence start")
	}
	if s.Base() != 10 {
		t.Errorf("Expected base 10, got %d", s.Base())
	}

	tests := []struct {
		idx   int
		text  string
		start int
		wsb   bool
	}{
		{1, "The", 0, false},
		{2, " ", 3, false},
		{3, "dog", 4, true},
		{5, "barks", 8, true},
		{6, ".", 13, false},
	}
	for _, tt := range tests {
		tok := s.Token(tt.idx)
		if tok.Text != tt.text || tok.Start != tt.start || tok.WhitespaceBefore != tt.wsb {
			t.Errorf("Token %d = %q@%d wsb=%v, want %q@%d wsb=%v",
				tt.idx, tok.Text, tok.Start, tok.WhitespaceBefore, tt.text, tt.start, tt.wsb)
		}
	}
	if end := s.Token(6).End(); end != 14 {
		t.Errorf("Expected last token to end at 14, got %d", end)
	}
}

func TestBuildSentenceEnd(t *testing.T) {
	s := buildSample()

	last := s.Token(6)
	want := []Reading{{Tag: SentEndTag}}
	if !reflect.DeepEqual(last.Readings(), want) {
		t.Errorf("Expected unknown reading replaced by SENT_END, got %v", last.Readings())
	}

	words := []string{"Hi", " "}
	s = Build("Hi ", 0, words, [][]Reading{{{Lemma: "hi", Tag: "UH"}}})
	if !s.Token(1).HasTag(SentEndTag) || !s.Token(1).HasTag("UH") {
		t.Errorf("Expected SENT_END added to last non-blank token, got %v", s.Token(1).Readings())
	}
	if s.Token(2).HasTag(SentEndTag) {
		t.Error("Expected trailing whitespace not to receive SENT_END")
	}
}

func TestBuildDropsEmptyWords(t *testing.T) {
	s := Build("ab", 0, []string{"a", "", "b"}, nil)
	if s.Len() != 3 {
		t.Fatalf("Expected 3 tokens, got %d", s.Len())
	}
	if s.Token(2).Start != 1 {
		t.Errorf("Expected b at offset 1, got %d", s.Token(2).Start)
	}
}

func TestNonBlankAndString(t *testing.T) {
	s := buildSample()

	if got := s.NonBlank(); !reflect.DeepEqual(got, []int{0, 1, 3, 5, 6}) {
		t.Errorf("NonBlank() = %v", got)
	}
	want := "<S> The[the/DT] dog[dog/NN,dog/VB] barks[bark/VBZ] .[/SENT_END]"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	u := Build("x", 0, []string{"x", " ", "y"}, nil)
	if got := u.String(); got != "<S> x[null] y[/SENT_END]" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewAnnotatedTokenNormalizes(t *testing.T) {
	tok := NewAnnotatedToken(Token{Text: "a"}, []Reading{{Lemma: "a", Tag: "DT"}, {Lemma: "a", Tag: "DT"}})
	if len(tok.Readings()) != 1 {
		t.Errorf("Expected duplicates dropped, got %v", tok.Readings())
	}

	empty := NewAnnotatedToken(Token{Text: "zz"}, nil)
	if len(empty.Readings()) != 1 || !empty.Readings()[0].IsUnknown() {
		t.Errorf("Expected single unknown reading, got %v", empty.Readings())
	}
	if empty.IsTagged() {
		t.Error("Expected unknown token not to be tagged")
	}
}

func TestTokenPredicates(t *testing.T) {
	tok := NewAnnotatedToken(Token{Text: "walks"}, []Reading{{Lemma: "walk", Tag: "VBZ"}, {Lemma: "walk", Tag: "NNS"}})

	if !tok.HasTag("NNS") || tok.HasTag("NN") {
		t.Error("HasTag mismatch")
	}
	if !tok.HasPartialTag("VB") {
		t.Error("Expected partial tag VB")
	}
	if !tok.HasLemma("walk") || tok.HasLemma("walks") {
		t.Error("HasLemma mismatch")
	}

	spaces := map[string]bool{" ": true, "\t\n": true, "\u00a0": true, "\u200b": true, "": false, "a ": false}
	for text, want := range spaces {
		if got := (Token{Text: text}).IsWhitespace(); got != want {
			t.Errorf("IsWhitespace(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestEditorCopyOnWrite(t *testing.T) {
	s := buildSample()

	ed := s.Edit()
	if ed.Changed() {
		t.Error("Expected fresh editor to be unchanged")
	}
	if ed.Sentence() != s {
		t.Error("Expected unchanged editor to return the source sentence")
	}

	ed.SetReadings(3, []Reading{{Lemma: "dog", Tag: "NN"}})
	ed.Immunize(5)
	ed.SetChunk(1, "B-NP", "")
	out := ed.Sentence()

	if out == s {
		t.Fatal("Expected a new sentence after edits")
	}
	if len(s.Token(3).Readings()) != 2 {
		t.Errorf("Expected source sentence untouched, got %v", s.Token(3).Readings())
	}
	if s.Token(5).Immunized {
		t.Error("Expected source token not immunized")
	}
	if len(out.Token(3).Readings()) != 1 {
		t.Errorf("Expected edited readings, got %v", out.Token(3).Readings())
	}
	if !out.Token(5).Immunized || out.Token(1).ChunkStart != "B-NP" {
		t.Error("Expected flags on derived sentence")
	}
	if out.Text() != s.Text() || out.Base() != s.Base() {
		t.Error("Expected text and base preserved")
	}
}

func TestEditorReadingFloor(t *testing.T) {
	s := buildSample()
	ed := s.Edit()
	ed.SetReadings(1, nil)
	out := ed.Sentence()

	rs := out.Token(1).Readings()
	if len(rs) != 1 || !rs[0].IsUnknown() {
		t.Errorf("Expected a single unknown reading, got %v", rs)
	}
	if out.ReadingCount() > s.ReadingCount() {
		t.Errorf("Expected reading count not to grow: %d > %d", out.ReadingCount(), s.ReadingCount())
	}
}
