package pattern

import (
	"errors"
	"testing"

	"github.com/cognicore/proofline/pkg/proofline/internalerr"
)

func TestParseNotation(t *testing.T) {
	els, err := ParseNotation(`"a" /[aeiou].*/ <NN.*> !"the" ?{0,2}`, NotationOptions{})
	if err != nil {
		t.Fatalf("ParseNotation: %v", err)
	}
	if len(els) != 5 {
		t.Fatalf("Expected 5 elements, got %d", len(els))
	}

	if els[0].Text == nil || els[0].Text.IsRegex() || !els[0].Text.Match("A") {
		t.Errorf("Expected case-insensitive literal, got %+v", els[0])
	}
	if els[1].Text == nil || !els[1].Text.IsRegex() || !els[1].Text.Match("apple") {
		t.Errorf("Expected surface regex, got %+v", els[1])
	}
	if els[2].POS == nil || els[2].Text != nil || !els[2].POS.Match("NNS") {
		t.Errorf("Expected POS element, got %+v", els[2])
	}
	if !els[3].Negate {
		t.Error("Expected negated element")
	}
	if els[4].Text != nil || els[4].POS != nil || els[4].Min != 0 || els[4].Max != 2 {
		t.Errorf("Expected wildcard {0,2}, got %+v", els[4])
	}
}

func TestParseNotationModifiers(t *testing.T) {
	els, err := ParseNotation(`="walk":<VB.*> ~3 ^"walking" ^!<VBG> &number [ @prep <DT> ] ?{1,*} ~*`, NotationOptions{CaseSensitive: true})
	if err != nil {
		t.Fatalf("ParseNotation: %v", err)
	}
	if len(els) != 4 {
		t.Fatalf("Expected 4 elements, got %d", len(els))
	}

	walk := els[0]
	if !walk.Inflected || walk.Text == nil || walk.POS == nil {
		t.Errorf("Expected lemma and tag, got %+v", walk)
	}
	if walk.Text.Match("Walk") {
		t.Error("Expected case-sensitive lemma")
	}
	if walk.Skip != 3 {
		t.Errorf("Expected skip 3, got %d", walk.Skip)
	}
	if len(walk.Exceptions) != 2 || !walk.Exceptions[1].Negate {
		t.Errorf("Expected two exceptions, the second negated, got %+v", walk.Exceptions)
	}
	if len(walk.Unify) != 1 || walk.Unify[0] != "number" {
		t.Errorf("Expected unify on number, got %v", walk.Unify)
	}

	if els[1].Phrase != "prep" || !els[1].Marker || !els[2].Marker {
		t.Errorf("Expected marked phrase and tag, got %+v %+v", els[1], els[2])
	}
	if els[0].Marker || els[3].Marker {
		t.Error("Expected unmarked elements outside brackets")
	}
	if els[3].Min != 1 || els[3].Max != Unbounded || els[3].Skip != Unbounded {
		t.Errorf("Expected {1,*} ~*, got %+v", els[3])
	}
}

func TestParseNotationErrors(t *testing.T) {
	bad := []string{
		``,
		`"unterminated`,
		`/[/`,
		`?{3,1}`,
		`?{0,0}`,
		`"a" ^@prep`,
		`[ ]`,
	}
	for _, src := range bad {
		_, err := ParseNotation(src, NotationOptions{})
		if err == nil {
			t.Errorf("Expected error for %q", src)
			continue
		}
		if !errors.Is(err, internalerr.ErrUnsupportedRule) {
			t.Errorf("%q: expected rule error, got %v", src, err)
		}
	}
}

func TestNotationDrivesMatcher(t *testing.T) {
	els := MustParseNotation(`"a" [ /[aeiou].*/ ]`)
	m := mustMatcher(t, els, Options{})
	s := sentence("a apple and a pear", nil)

	got := m.FindAll(s, true)
	if len(got) != 1 {
		t.Fatalf("Expected one match, got %d", len(got))
	}
	if text := matchedText(s, got[0]); text != "a apple" {
		t.Errorf("Expected \"a apple\", got %q", text)
	}
}
