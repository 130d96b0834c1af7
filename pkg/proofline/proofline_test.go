package proofline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/config"
	"github.com/cognicore/proofline/pkg/proofline/rules"
)

const testCatalog = `
language: en
rules:
  - id: EN_A_VS_AN
    description: a vs. an
    category: GRAMMAR
    pattern: '"a" /[aeiou].*/'
    message: 'Use <suggestion>an \2</suggestion>.'
    examples:
      - text: 'I ate <marker>a apple</marker>.'
        correction: an apple
      - text: 'I ate an apple.'
  - id: FOO
    pattern: '"foo"'
    message: Foo.
    examples:
      - text: 'No foo here.'
disambiguation:
  - id: CAN_NOUN
    pattern: '"the" [ "can" ]'
    action: filter
    postag: NN
`

const testLexicon = `words:
  - "the the DT"
  - "can can MD"
  - "can can NN"
  - "left leave VBD"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadComponents(t *testing.T) *config.Components {
	t.Helper()
	dir := t.TempDir()
	l := &config.Loader{
		Language:     "en",
		LexiconPath:  writeFile(t, dir, "lexicon.yaml", testLexicon),
		CatalogPaths: []string{writeFile(t, dir, "grammar.yaml", testCatalog)},
		BuiltinRules: true,
	}
	comp, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { comp.Close() })
	return comp
}

func newChecker(t *testing.T, opts Options) *Checker {
	t.Helper()
	if opts.Components == nil {
		opts.Components = loadComponents(t)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

type span struct {
	Rule       string
	Start, End int
}

func spans(ms []rules.RuleMatch) []span {
	out := make([]span, 0, len(ms))
	for _, m := range ms {
		out = append(out, span{m.RuleID, m.Start, m.End})
	}
	return out
}

func TestCheckRepeatedWord(t *testing.T) {
	c := newChecker(t, Options{})

	matches, err := c.Check(context.Background(), "This this is a test sentence.")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got, want := spans(matches), []span{{rules.WordRepeatID, 0, 9}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	if !reflect.DeepEqual(matches[0].Suggestions, []string{"This"}) {
		t.Errorf("Suggestions = %v", matches[0].Suggestions)
	}
}

func TestAnalyzeSentences(t *testing.T) {
	c := newChecker(t, Options{})

	sentences, err := c.Analyze(context.Background(), "Mr. Smith talked. He left.")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(sentences) != 2 {
		t.Fatalf("Expected 2 sentences, got %d", len(sentences))
	}
	if sentences[0].Text() != "Mr. Smith talked. " || sentences[1].Text() != "He left." {
		t.Errorf("Unexpected sentences %q / %q", sentences[0].Text(), sentences[1].Text())
	}
	if sentences[1].Base() != 18 {
		t.Errorf("Expected second sentence at 18, got %d", sentences[1].Base())
	}

	last := sentences[1].NonBlankTokens()
	if !last[len(last)-1].HasTag(analysis.SentEndTag) {
		t.Error("Last token should carry the sentence end reading")
	}
	for _, tok := range last {
		if tok.Text == "left" && !tok.HasLemma("leave") {
			t.Errorf("left: %v", tok.Readings())
		}
	}
}

func TestTokenizeContraction(t *testing.T) {
	c := newChecker(t, Options{})
	got := c.Components().Words.Tokenize("isn't")
	if !reflect.DeepEqual(got, []string{"isn", "'t"}) {
		t.Errorf("Expected [isn 't], got %q", got)
	}
}

func TestLengthSkew(t *testing.T) {
	c := newChecker(t, Options{})
	rule := rules.NewLengthSkewRule().WithReference(strings.Repeat("x", 100))

	tests := []struct {
		text string
		want int
	}{
		{strings.Repeat("y", 20), 1},
		{strings.Repeat("y", 90), 0},
	}
	for _, tt := range tests {
		sentences, err := c.Analyze(context.Background(), tt.text)
		if err != nil {
			t.Fatal(err)
		}
		if got := len(rule.Match(sentences[0])); got != tt.want {
			t.Errorf("%d chars: expected %d matches, got %d", len(tt.text), tt.want, got)
		}
	}
}

func TestCheckAbsoluteOffsets(t *testing.T) {
	c := newChecker(t, Options{})
	text := "Fine. I ate a apple."

	matches, err := c.Check(context.Background(), text)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %v", spans(matches))
	}
	m := matches[0]
	if text[m.Start:m.End] != "a apple" {
		t.Errorf("Match covers %q", text[m.Start:m.End])
	}
	if !reflect.DeepEqual(m.Suggestions, []string{"an apple"}) {
		t.Errorf("Suggestions = %v", m.Suggestions)
	}
}

func TestCheckOffsetsAfterInvalidUTF8(t *testing.T) {
	c := newChecker(t, Options{})
	text := "Bad \xff one. Then word word here."

	matches, err := c.Check(context.Background(), text)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	var found bool
	for _, m := range matches {
		if m.RuleID != rules.WordRepeatID {
			continue
		}
		found = true
		if m.Start != 16 || m.End != 25 {
			t.Errorf("Expected span 16..25, got %d..%d (%q)", m.Start, m.End, text[m.Start:m.End])
		}
	}
	if !found {
		t.Errorf("Expected %s, got %v", rules.WordRepeatID, spans(matches))
	}
}

func TestCheckStatefulAcrossSentences(t *testing.T) {
	c := newChecker(t, Options{})
	text := "He left. then he came back."

	matches, err := c.Check(context.Background(), text)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got, want := spans(matches), []span{{rules.UppercaseSentenceStartID, 9, 13}}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestCheckRuleSelection(t *testing.T) {
	c := newChecker(t, Options{DisabledRules: []string{rules.WordRepeatID}})

	matches, err := c.Check(context.Background(), "This this is a test.")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("Disabled rule reported %v", spans(matches))
	}
	for _, r := range c.Rules() {
		if r.ID() == rules.WordRepeatID {
			t.Error("Disabled rule is active")
		}
	}
}

func TestCheckParallelMatchesSequential(t *testing.T) {
	comp := loadComponents(t)
	text := strings.Repeat("This this is it. He left. then go to a office. ", 40)

	seq, err := newChecker(t, Options{Components: comp, Workers: 1}).Check(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	par, err := newChecker(t, Options{Components: comp, Workers: 8}).Check(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	if len(seq) != 120 {
		t.Errorf("Expected 120 matches, got %d", len(seq))
	}
	if !reflect.DeepEqual(spans(seq), spans(par)) {
		t.Error("Parallel check differs from sequential check")
	}
}

func TestCheckCanceled(t *testing.T) {
	c := newChecker(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	matches, err := c.Check(ctx, "This this is a test. And and more.")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Expected no matches, got %v", spans(matches))
	}
}

type panicRule struct{}

func (panicRule) ID() string { return "PANIC" }

func (panicRule) Match(*analysis.Sentence) []rules.RuleMatch { panic("boom") }

func TestCheckRecoversPanickingRule(t *testing.T) {
	comp := loadComponents(t)
	if err := comp.Catalog.Rules.Add(panicRule{}); err != nil {
		t.Fatal(err)
	}
	c := newChecker(t, Options{Components: comp})

	matches, err := c.Check(context.Background(), "This this is a test.")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got, want := spans(matches), []span{{rules.WordRepeatID, 0, 9}}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

type failingTagger struct{}

func (failingTagger) Tag([]string) ([][]analysis.Reading, error) {
	return nil, errors.New("tagger unavailable")
}

func TestCheckTaggerFailure(t *testing.T) {
	comp := loadComponents(t)
	comp.Tagger = failingTagger{}
	c := newChecker(t, Options{Components: comp})

	sentences, err := c.Analyze(context.Background(), "He left.")
	if err != nil {
		t.Fatal(err)
	}
	for _, tok := range sentences[0].NonBlankTokens()[1:] {
		if tok.HasLemma("leave") {
			t.Errorf("%s should have unknown readings, got %v", tok.Text, tok.Readings())
		}
	}

	matches, err := c.Check(context.Background(), "This this is a test.")
	if err != nil || len(matches) != 1 {
		t.Errorf("Expected 1 match without tags, got %v (%v)", spans(matches), err)
	}
}

func TestAnalyzeDisambiguates(t *testing.T) {
	c := newChecker(t, Options{})

	sentences, err := c.Analyze(context.Background(), "Open the can now.")
	if err != nil {
		t.Fatal(err)
	}
	for _, tok := range sentences[0].Tokens() {
		if tok.Text != "can" {
			continue
		}
		if tok.HasTag("MD") || !tok.HasTag("NN") {
			t.Errorf("can: %v", tok.Readings())
		}
	}
}

func TestCheckMarkup(t *testing.T) {
	c := newChecker(t, Options{})
	input := "<p>This <b>this</b> is a test.</p>"

	matches, text, err := c.CheckMarkup(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("CheckMarkup: %v", err)
	}
	if text.Plain != "This this is a test." {
		t.Errorf("Plain = %q", text.Plain)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %v", spans(matches))
	}
	if got := input[matches[0].Start:matches[0].End]; got != "This <b>this" {
		t.Errorf("Match covers %q in markup", got)
	}
}

func TestVerifyExamples(t *testing.T) {
	c := newChecker(t, Options{})

	failures, err := c.VerifyExamples(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].RuleID != "FOO" {
		t.Errorf("Expected one FOO failure, got %v", failures)
	}
}

func TestStripMarker(t *testing.T) {
	text, start, end, ok := stripMarker("I ate <marker>a apple</marker>.")
	if !ok || text != "I ate a apple." || start != 6 || end != 13 {
		t.Errorf("stripMarker = %q %d %d %v", text, start, end, ok)
	}
	if _, _, _, ok := stripMarker("no marker"); ok {
		t.Error("Expected no marker")
	}
}

func TestResourcesLoadOnce(t *testing.T) {
	res := NewResources(&config.Loader{Language: "en"})
	defer res.Close()

	a, err := res.Components(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, _ := res.Components(context.Background())
	if a != b {
		t.Error("Components should be loaded once")
	}

	bad := NewResources(&config.Loader{Language: "xx"})
	_, err1 := bad.Components(context.Background())
	_, err2 := bad.Components(context.Background())
	if err1 == nil || err1 != err2 {
		t.Errorf("Expected the same load error twice, got %v / %v", err1, err2)
	}
}

func TestNewWithoutComponents(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("Expected error without components")
	}
}
