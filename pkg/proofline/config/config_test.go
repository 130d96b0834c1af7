package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/disambig"
	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/language"
	"github.com/cognicore/proofline/pkg/proofline/rules"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

var english = language.English().WordTokenizer(nil)

func analyze(text string, tags map[string][]string) *analysis.Sentence {
	toks := english.Tokenize(text)
	readings := make([][]analysis.Reading, len(toks))
	for i, tok := range toks {
		for _, lt := range tags[tok] {
			parts := strings.SplitN(lt, "/", 2)
			readings[i] = append(readings[i], analysis.Reading{Lemma: parts[0], Tag: parts[1]})
		}
	}
	return analysis.Build(text, 0, toks, readings)
}

func TestLoadAbbreviations(t *testing.T) {
	path := writeFile(t, "abbreviations.yaml", `terms:
  - Mr
  - Dr
  - etc
`)

	ab, err := LoadAbbreviations(path)
	if err != nil {
		t.Fatalf("Failed to load abbreviations: %v", err)
	}

	if !reflect.DeepEqual(ab.Terms, []string{"Mr", "Dr", "etc"}) {
		t.Errorf("Terms = %v", ab.Terms)
	}

	if _, err := LoadAbbreviations(filepath.Join(t.TempDir(), "missing.yaml")); !internalerr.IsCode(err, internalerr.CodeConfigLoad) {
		t.Errorf("Expected config load error, got %v", err)
	}
}

func TestLoadDict(t *testing.T) {
	path := writeFile(t, "dict.txt", `# multiword expressions
in spite of|IN
New York|new york|NNP

|orphan
lonely
`)

	dict, err := LoadDict(path)
	if err != nil {
		t.Fatalf("Failed to load dict: %v", err)
	}

	if len(dict.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(dict.Entries))
	}

	ny := dict.Entries[1]
	if ny.Phrase != "New York" || ny.Tag != "NNP" {
		t.Errorf("Unexpected entry: %+v", ny)
	}
	if len(ny.Variants) != 1 || ny.Variants[0] != "new york" {
		t.Errorf("Expected 1 variant, got %v", ny.Variants)
	}

	phrases := dict.Phrases()
	if len(phrases) != 3 {
		t.Errorf("Expected 3 phrases, got %d", len(phrases))
	}
}

const catalogYAML = `
language: en
unification:
  number:
    sg: "NN|DT"
    pl: "NNS|DTp"
phrases:
  article:
    - '"a"'
    - '"an"'
rules:
  - id: EN_A_VS_AN
    description: a vs. an
    category: GRAMMAR
    pattern: '"a" /[aeiou].*/'
    antipatterns: ['"a" /uni.*/']
    message: 'Use <suggestion>an \2</suggestion> instead.'
    policy: all
    examples:
      - text: 'This is <marker>a apple</marker>.'
        correction: an apple
      - text: 'This is an apple.'
  - id: BROKEN
    pattern: '!"a" "b"'
    message: never loaded
  - id: ARTICLE_PHRASE
    pattern: '@article "the"'
    message: Double article.
    default_off: true
disambiguation:
  - id: CAN_NOUN
    pattern: '"the" [ "can" ]'
    action: filter
    postag: NN
  - id: BAD_ACTION
    pattern: '"x"'
    action: add
removals:
  - id: EN_REMOVE
    entries:
      - word: rusts
        postag: NNS
coherency:
  - id: EN_COHERENCY
    groups:
      - [color, colour]
initials: {}
`

func TestParseCatalogYAML(t *testing.T) {
	cat, err := ParseCatalogYAML([]byte(catalogYAML), LoadOptions{})
	if err != nil {
		t.Fatalf("ParseCatalogYAML: %v", err)
	}

	if cat.Language != "en" {
		t.Errorf("Language = %q", cat.Language)
	}
	if got := cat.Rules.Len(); got != 3 {
		t.Errorf("Expected 3 rules, got %d", got)
	}
	if !cat.Phrases.Has("article") {
		t.Error("Expected phrase article")
	}
	if !cat.Unifier.Has("number") {
		t.Error("Expected unification feature number")
	}

	skipped := map[string]string{}
	for _, s := range cat.Rules.Skipped() {
		skipped[s.ID] = s.Reason
	}
	if skipped["BROKEN"] != string(internalerr.CodeRuleUnsupported) {
		t.Errorf("Expected BROKEN to be skipped as unsupported, got %v", skipped)
	}
	if skipped["BAD_ACTION"] != string(internalerr.CodeRuleUnsupported) {
		t.Errorf("Expected BAD_ACTION to be skipped as unsupported, got %v", skipped)
	}

	r, ok := cat.Rules.Get("EN_A_VS_AN")
	if !ok {
		t.Fatal("Rule EN_A_VS_AN missing")
	}
	pr := r.(*rules.PatternRule)
	if len(pr.Examples()) != 2 || !pr.Examples()[0].Incorrect || pr.Examples()[1].Incorrect {
		t.Errorf("Examples = %+v", pr.Examples())
	}
	matches := r.Match(analyze("I ate a apple and a unicorn.", nil))
	if len(matches) != 1 || !reflect.DeepEqual(matches[0].Suggestions, []string{"an apple"}) {
		t.Errorf("Matches = %+v", matches)
	}
	if meta := rules.MetaOf(r); meta.Category != "GRAMMAR" || meta.Description != "a vs. an" {
		t.Errorf("Meta = %+v", meta)
	}

	off, _ := cat.Rules.Get("ARTICLE_PHRASE")
	if !rules.MetaOf(off).DefaultOff {
		t.Error("ARTICLE_PHRASE should be off by default")
	}

	// removal table, pattern rule, initials
	if len(cat.Disambiguation) != 3 {
		t.Fatalf("Expected 3 disambiguation steps, got %d", len(cat.Disambiguation))
	}
	s := disambig.New(cat.Disambiguation...).Disambiguate(analyze("the can rusts", map[string][]string{
		"can":   {"can/MD", "can/NN"},
		"rusts": {"rust/VBZ", "rust/NNS"},
	}))
	for _, tok := range s.Tokens() {
		switch tok.Text {
		case "can":
			if tok.HasTag("MD") || !tok.HasTag("NN") {
				t.Errorf("can: %v", tok.Readings())
			}
		case "rusts":
			if tok.HasTag("NNS") || !tok.HasTag("VBZ") {
				t.Errorf("rusts: %v", tok.Readings())
			}
		}
	}
}

func TestParseCatalogYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code internalerr.Code
	}{
		{"malformed", "rules: [", internalerr.CodeCatalogParse},
		{"bad phrase", "phrases:\n  p: ['?{2}']\n", internalerr.CodeCatalogParse},
		{"bad unification", "unification:\n  number:\n    sg: '(['\n", internalerr.CodeCatalogParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalogYAML([]byte(tt.data), LoadOptions{})
			if !internalerr.IsCode(err, tt.code) {
				t.Errorf("Expected %s, got %v", tt.code, err)
			}
			if !errors.Is(err, internalerr.ErrCatalogLoad) {
				t.Errorf("Expected ErrCatalogLoad, got %v", err)
			}
		})
	}
}

const grammarXML = `<?xml version="1.0" encoding="UTF-8"?>
<rules lang="en">
  <unification feature="number">
    <equivalence type="sg"><token postag="NN|DT" postag_regexp="yes"/></equivalence>
    <equivalence type="pl"><token postag="NNS|DTp" postag_regexp="yes"/></equivalence>
  </unification>
  <phrases>
    <phrase id="few"><token>a</token><token>few</token></phrase>
  </phrases>
  <category id="GRAMMAR" name="Grammar">
    <rule id="EN_A_VS_AN" name="a vs. an">
      <pattern>
        <marker><token>a</token></marker>
        <token regexp="yes">[aeiou].*<exception regexp="yes">uni.*|one</exception></token>
      </pattern>
      <message>Use <suggestion>an</suggestion> before a vowel: <match no="2"/>.</message>
      <short>Wrong article</short>
      <example correction="an">I ate <marker>a</marker> apple.</example>
      <example>I ate an apple.</example>
    </rule>
    <rulegroup id="AGREEMENT" name="Agreement">
      <antipattern><token>these</token><token>sheep</token></antipattern>
      <rule>
        <pattern>
          <unify><feature id="number"/><token postag="DT.*" postag_regexp="yes"/><token postag="NN.*" postag_regexp="yes"/></unify>
        </pattern>
        <message>Agreement.</message>
      </rule>
      <rule default="off">
        <pattern><phraseref idref="few"/><token min="0" max="-1">more</token><token>people</token></pattern>
        <message>Phrase.</message>
      </rule>
    </rulegroup>
    <rule id="AND_GROUP" name="and">
      <pattern><and><token>a</token><token postag="DT"/></and></pattern>
      <message>Unsupported.</message>
    </rule>
    <rule id="TOKEN_REF" name="reference">
      <pattern><token>x</token><token><match no="1"/></token></pattern>
      <message>Unsupported.</message>
    </rule>
  </category>
</rules>
`

func TestParseCatalogXML(t *testing.T) {
	cat, err := ParseCatalogXML([]byte(grammarXML), LoadOptions{})
	if err != nil {
		t.Fatalf("ParseCatalogXML: %v", err)
	}
	if cat.Language != "en" {
		t.Errorf("Language = %q", cat.Language)
	}

	var ids []string
	for _, r := range cat.Rules.Rules() {
		ids = append(ids, r.ID())
	}
	if !reflect.DeepEqual(ids, []string{"EN_A_VS_AN", "AGREEMENT[1]", "AGREEMENT[2]"}) {
		t.Errorf("Rule ids = %v", ids)
	}
	var skipped []string
	for _, s := range cat.Rules.Skipped() {
		skipped = append(skipped, s.ID)
		if s.Reason != string(internalerr.CodeRuleUnsupported) {
			t.Errorf("%s: reason %s", s.ID, s.Reason)
		}
	}
	if !reflect.DeepEqual(skipped, []string{"AND_GROUP", "TOKEN_REF"}) {
		t.Errorf("Skipped = %v", skipped)
	}

	r, _ := cat.Rules.Get("EN_A_VS_AN")
	matches := r.Match(analyze("I ate a apple, not a unicorn.", nil))
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Start != 6 || m.End != 7 {
		t.Errorf("Expected marker span 6..7, got %d..%d", m.Start, m.End)
	}
	if m.Message != "Use 'an' before a vowel: apple." || m.ShortMessage != "Wrong article" {
		t.Errorf("Message = %q, short = %q", m.Message, m.ShortMessage)
	}
	if meta := rules.MetaOf(r); meta.Category != "GRAMMAR" || meta.Description != "a vs. an" {
		t.Errorf("Meta = %+v", meta)
	}
	examples := r.(*rules.PatternRule).Examples()
	if len(examples) != 2 || examples[0].Text != "I ate <marker>a</marker> apple." || examples[0].Correction != "an" {
		t.Errorf("Examples = %+v", examples)
	}

	agreement, _ := cat.Rules.Get("AGREEMENT[1]")
	tags := map[string][]string{
		"these": {"this/DTp"}, "dogs": {"dog/NNS"}, "dog": {"dog/NN"}, "sheep": {"sheep/NN", "sheep/NNS"},
	}
	if got := agreement.Match(analyze("these dogs", tags)); len(got) != 1 {
		t.Errorf("Expected agreeing pair to match, got %d", len(got))
	}
	if got := agreement.Match(analyze("these dog", tags)); len(got) != 0 {
		t.Errorf("Expected disagreeing pair not to match, got %d", len(got))
	}
	if got := agreement.Match(analyze("these sheep", tags)); len(got) != 0 {
		t.Errorf("Expected group antipattern to suppress, got %d", len(got))
	}

	phrase, _ := cat.Rules.Get("AGREEMENT[2]")
	if !rules.MetaOf(phrase).DefaultOff {
		t.Error("Expected AGREEMENT[2] to be off by default")
	}
	for text, want := range map[string]int{"a few people": 1, "a few more more people": 1, "a people": 0} {
		if got := phrase.Match(analyze(text, nil)); len(got) != want {
			t.Errorf("%q: expected %d matches, got %d", text, want, len(got))
		}
	}
}

const disambiguationXML = `<?xml version="1.0" encoding="UTF-8"?>
<rules lang="en">
  <rule id="CAN_NOUN" name="can as noun">
    <pattern><token>the</token><marker><token>can</token></marker></pattern>
    <disambig action="filter" postag="NN"/>
  </rule>
  <rulegroup id="RUSTS">
    <antipattern><token>never</token><token>rusts</token></antipattern>
    <rule>
      <pattern><token>rusts</token></pattern>
      <disambig><wd lemma="rust" pos="VBZ"/></disambig>
    </rule>
  </rulegroup>
  <rule id="IMMUNE" name="immunize">
    <pattern><token>Mr</token></pattern>
    <disambig action="immunize"/>
  </rule>
  <rule id="ADD" name="add">
    <pattern><token>x</token></pattern>
    <disambig action="add"><wd pos="X"/></disambig>
  </rule>
</rules>
`

func TestParseDisambiguationXML(t *testing.T) {
	cat, err := ParseDisambiguationXML([]byte(disambiguationXML))
	if err != nil {
		t.Fatalf("ParseDisambiguationXML: %v", err)
	}
	if len(cat.Disambiguation) != 3 {
		t.Fatalf("Expected 3 rules, got %d", len(cat.Disambiguation))
	}
	if sk := cat.Rules.Skipped(); len(sk) != 1 || sk[0].ID != "ADD" {
		t.Errorf("Skipped = %+v", sk)
	}

	d := disambig.New(cat.Disambiguation...)
	tags := map[string][]string{
		"can":   {"can/MD", "can/NN"},
		"rusts": {"rust/VBZ", "rust/NNS"},
	}
	s := d.Disambiguate(analyze("the can rusts", tags))
	for _, tok := range s.Tokens() {
		switch tok.Text {
		case "can":
			if tok.HasTag("MD") {
				t.Errorf("can: %v", tok.Readings())
			}
		case "rusts":
			if tok.HasTag("NNS") || !tok.HasTag("VBZ") {
				t.Errorf("rusts: %v", tok.Readings())
			}
		}
	}

	s = d.Disambiguate(analyze("iron never rusts", tags))
	for _, tok := range s.Tokens() {
		if tok.Text == "rusts" && !tok.HasTag("NNS") {
			t.Errorf("Antipattern should keep rusts ambiguous: %v", tok.Readings())
		}
	}
}

func TestParseXMLErrors(t *testing.T) {
	if _, err := ParseCatalogXML([]byte("<rules><unclosed></rules>"), LoadOptions{}); !internalerr.IsCode(err, internalerr.CodeCatalogParse) {
		t.Errorf("Expected parse error, got %v", err)
	}
	if _, err := ParseDisambiguationXML([]byte("<other/>")); !internalerr.IsCode(err, internalerr.CodeCatalogParse) {
		t.Errorf("Expected missing root error, got %v", err)
	}
	if _, err := LoadCatalogXML(filepath.Join(t.TempDir(), "missing.xml"), LoadOptions{}); !errors.Is(err, internalerr.ErrCatalogLoad) {
		t.Errorf("Expected catalog load error, got %v", err)
	}
}
