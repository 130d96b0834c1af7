package language

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cognicore/proofline/pkg/proofline/internalerr"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()

	if got := reg.List(); !reflect.DeepEqual(got, []string{"ca", "en"}) {
		t.Errorf("Expected [ca en], got %v", got)
	}

	en, err := reg.Get("en")
	if err != nil {
		t.Fatalf("Get(en) failed: %v", err)
	}
	if en.Name != "English" {
		t.Errorf("Expected English, got %s", en.Name)
	}
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(&Language{}); err == nil {
		t.Error("Expected error for empty code")
	}
	if err := reg.Register(English()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(English()); err == nil {
		t.Error("Expected error for duplicate code")
	}

	_, err := reg.Get("xx")
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if reg.Has("xx") || !reg.Has("en") {
		t.Error("Has reports wrong membership")
	}
}

func TestEnglishPipelinePieces(t *testing.T) {
	en := English()

	sentences := en.SentenceTokenizer().Split("Mr. Smith talked. He left.")
	if len(sentences) != 2 {
		t.Errorf("Expected 2 sentences, got %q", sentences)
	}

	words := en.WordTokenizer(nil).Tokenize("isn't")
	if !reflect.DeepEqual(words, []string{"isn", "'t"}) {
		t.Errorf("Expected [isn 't], got %q", words)
	}
}

func TestCatalanKeepsMiddleDot(t *testing.T) {
	words := Catalan().WordTokenizer(nil).Tokenize("col·legi")
	if len(words) != 1 {
		t.Errorf("Expected a single token, got %q", words)
	}
}
