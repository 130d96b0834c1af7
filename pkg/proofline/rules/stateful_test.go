package rules

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/pattern"
)

func TestUppercaseSentenceStart(t *testing.T) {
	r := NewUppercaseSentenceStartRule()

	got := r.Match(analyze("this is a test.", 0, nil))
	if len(got) != 1 {
		t.Fatalf("Expected one match, got %d", len(got))
	}
	if covered(got[0], 0) != "this" {
		t.Errorf("Expected span \"this\", got %q", covered(got[0], 0))
	}
	if !reflect.DeepEqual(got[0].Suggestions, []string{"This"}) {
		t.Errorf("Suggestions = %v", got[0].Suggestions)
	}

	quoted := r.Match(analyze(`"this is quoted."`, 0, nil))
	if len(quoted) != 1 || quoted[0].Start != 1 || quoted[0].End != 5 {
		t.Errorf("Expected the word after the quote at 1..5, got %+v", quoted)
	}
}

func TestUppercaseSentenceStartExceptions(t *testing.T) {
	r := NewUppercaseSentenceStartRule()
	texts := []string{
		"This is fine.",
		"hello",
		"iPhone sales rose.",
		"x86 chips are fast.",
		"pH levels vary.",
		"a) the first item",
		"iv. the fourth item",
	}
	for _, text := range texts {
		if got := r.Match(analyze(text, 0, nil)); len(got) != 0 {
			t.Errorf("%q: expected no match, got %+v", text, got)
		}
	}
}

func TestUppercaseSentenceStartState(t *testing.T) {
	r := NewUppercaseSentenceStartRule()

	tests := []struct {
		name   string
		first  string
		second string
		want   int
	}{
		{"after full stop", "It was late. ", "then we left.", 1},
		{"after semicolon", "It was late;", "then we left.", 0},
		{"after unfinished sentence", "It was late and", "then we left", 0},
		{"after numbered list item", "1. first item", "second item here.", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := MapState{}
			if got := r.MatchWithState(analyze(tt.first, 0, nil), st); len(got) != 0 {
				t.Fatalf("First sentence: unexpected matches %+v", got)
			}
			base := len(tt.first)
			got := r.MatchWithState(analyze(tt.second, base, nil), st)
			if len(got) != tt.want {
				t.Fatalf("Expected %d matches, got %d", tt.want, len(got))
			}
			if tt.want == 1 && got[0].Start != base {
				t.Errorf("Expected match at %d, got %d", base, got[0].Start)
			}
		})
	}
}

func newColorRule() *CoherencyRule {
	r := NewCoherencyRule(Meta{ID: "EN_SPELLING_COHERENCY"})
	r.AddGroup("color", "colour")
	r.AddGroup("realize", "realise")
	return r
}

func TestCoherencyRuleFirstVariantWins(t *testing.T) {
	r := newColorRule()
	st := MapState{}

	if got := r.MatchWithState(analyze("The colour is red.", 0, nil), st); len(got) != 0 {
		t.Fatalf("First use must not be reported, got %+v", got)
	}
	got := r.MatchWithState(analyze("Color matters.", 19, nil), st)
	if len(got) != 1 {
		t.Fatalf("Expected one match, got %d", len(got))
	}
	if got[0].Start != 19 || got[0].End != 24 {
		t.Errorf("Expected 19..24, got %d..%d", got[0].Start, got[0].End)
	}
	if !reflect.DeepEqual(got[0].Suggestions, []string{"Colour"}) {
		t.Errorf("Suggestions = %v", got[0].Suggestions)
	}
	if !strings.Contains(got[0].Message, "'colour'") {
		t.Errorf("Message = %q", got[0].Message)
	}

	if again := r.MatchWithState(analyze("I realise it.", 34, nil), st); len(again) != 0 {
		t.Errorf("Other groups are independent, got %+v", again)
	}
}

func TestCoherencyRuleSingleSentence(t *testing.T) {
	r := newColorRule()
	got := r.Match(analyze("The colours fade but the color stays.", 0, map[string][]string{
		"colours": {"colour/NNS"},
	}))
	if len(got) != 1 {
		t.Fatalf("Expected one match, got %d", len(got))
	}
	if covered(got[0], 0) != "color" {
		t.Errorf("Expected \"color\", got %q", covered(got[0], 0))
	}
	if !reflect.DeepEqual(got[0].Suggestions, []string{"colour"}) {
		t.Errorf("Suggestions = %v", got[0].Suggestions)
	}
}

func TestCoherencyRuleReplaceGroup(t *testing.T) {
	r := newColorRule()
	r.AddGroup("color", "colour", "Colour")
	if r.Groups() != 2 {
		t.Errorf("Groups() = %d, want 2", r.Groups())
	}
}

func TestLengthSkew(t *testing.T) {
	r := NewLengthSkewRule()
	ref := strings.Repeat("a", 100)

	if !r.Skewed(ref, strings.Repeat("b", 20)) {
		t.Error("Expected 100/20 to be skewed")
	}
	if r.Skewed(ref, strings.Repeat("b", 90)) {
		t.Error("Expected 100/90 not to be skewed")
	}
	if !r.Skewed(strings.Repeat("a", 20), ref) {
		t.Error("Expected 20/100 to be skewed")
	}
	if r.Skewed(ref, "") {
		t.Error("Expected an empty text never to be skewed")
	}
}

func TestLengthSkewMatch(t *testing.T) {
	ref := strings.Repeat("a", 100)
	// 20 and 90 characters
	short := strings.Repeat("abcd ", 4)
	long := strings.Repeat("abcdefgh ", 10)

	r := NewLengthSkewRule().WithReference(ref)
	got := r.Match(analyze(short, 0, nil))
	if len(got) != 1 {
		t.Fatalf("Expected one match, got %d", len(got))
	}
	if got[0].Start != 0 || got[0].End != 19 {
		t.Errorf("Expected 0..19, got %d..%d", got[0].Start, got[0].End)
	}
	if got := r.Match(analyze(long, 0, nil)); len(got) != 0 {
		t.Errorf("Expected no match, got %d", len(got))
	}

	if got := NewLengthSkewRule().Match(analyze(short, 0, nil)); got != nil {
		t.Errorf("Expected no match without reference, got %+v", got)
	}
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	if err := c.Add(NewWordRepeatRule()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Add(NewWordRepeatRule()); !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("Expected duplicate error, got %v", err)
	}

	ok, err := c.AddPattern(PatternRuleSpec{
		Meta:     Meta{ID: "BAD"},
		Elements: pattern.MustParseNotation(`!"a" "b"`),
	}, pattern.Options{}, nil)
	if ok || err != nil {
		t.Fatalf("Expected unsupported rule to be skipped, got %v, %v", ok, err)
	}
	skipped := c.Skipped()
	if len(skipped) != 1 || skipped[0].ID != "BAD" || skipped[0].Reason != string(internalerr.CodeRuleUnsupported) {
		t.Errorf("Skipped = %+v", skipped)
	}

	spec := articleSpec()
	spec.DefaultOff = true
	if ok, err := c.AddPattern(spec, pattern.Options{}, nil); !ok || err != nil {
		t.Fatalf("AddPattern: %v, %v", ok, err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if _, found := c.Get("EN_A_VS_AN"); !found {
		t.Error("Expected rule by id")
	}

	ids := func(rs []Rule) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID())
		}
		return out
	}
	if got := ids(c.Select(nil, nil)); !reflect.DeepEqual(got, []string{WordRepeatID}) {
		t.Errorf("Default selection = %v", got)
	}
	if got := ids(c.Select([]string{"EN_A_VS_AN"}, []string{WordRepeatID})); !reflect.DeepEqual(got, []string{"EN_A_VS_AN"}) {
		t.Errorf("Explicit selection = %v", got)
	}
}

func TestCatalogMerge(t *testing.T) {
	a := NewCatalog()
	_ = a.Add(NewWordRepeatRule())
	b := NewCatalog()
	_ = b.Add(NewUppercaseSentenceStartRule())
	b.Skip("GONE", internalerr.New(internalerr.CodeRuleInvalid, "broken"))

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if a.Len() != 2 || len(a.Skipped()) != 1 {
		t.Errorf("Expected 2 rules and 1 skip, got %d and %d", a.Len(), len(a.Skipped()))
	}
	if err := a.Merge(b); err == nil {
		t.Error("Expected duplicate error on second merge")
	}
}

func TestMetaOf(t *testing.T) {
	if got := MetaOf(NewWordRepeatRule()); got.Category != "MISC" {
		t.Errorf("MetaOf = %+v", got)
	}
}
