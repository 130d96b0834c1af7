package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/proofline/pkg/proofline/disambig"
	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/pattern"
	"github.com/cognicore/proofline/pkg/proofline/rules"
)

// yamlCatalog is the YAML rule catalog. Patterns use the compact notation
// of the pattern package.
//
//	language: en
//	unification:
//	  number: {sg: "NN|VBZ", pl: "NNS|VBP"}
//	phrases:
//	  vowel_word: ['/[aeiou].*/']
//	rules:
//	  - id: EN_A_VS_AN
//	    pattern: '"a" /[aeiou].*/'
//	    message: 'Use <suggestion>an \2</suggestion>.'
//	disambiguation:
//	  - id: CAN_NOUN
//	    pattern: '"the" [ "can" ]'
//	    action: filter
//	    postag: NN
type yamlCatalog struct {
	Language       string                       `yaml:"language"`
	Unification    map[string]map[string]string `yaml:"unification"`
	Phrases        map[string][]string          `yaml:"phrases"`
	Rules          []yamlRule                   `yaml:"rules"`
	Disambiguation []yamlDisambiguation         `yaml:"disambiguation"`
	Removals       []yamlRemoval                `yaml:"removals"`
	Coherency      []yamlCoherency              `yaml:"coherency"`
	Initials       *yamlInitials                `yaml:"initials"`
}

type yamlRule struct {
	ID            string        `yaml:"id"`
	Description   string        `yaml:"description"`
	Category      string        `yaml:"category"`
	DefaultOff    bool          `yaml:"default_off"`
	Pattern       string        `yaml:"pattern"`
	CaseSensitive bool          `yaml:"case_sensitive"`
	Antipatterns  []string      `yaml:"antipatterns"`
	Message       string        `yaml:"message"`
	Short         string        `yaml:"short"`
	Suggestions   []string      `yaml:"suggestions"`
	Policy        string        `yaml:"policy"`
	KeepCase      bool          `yaml:"keep_case"`
	Examples      []yamlExample `yaml:"examples"`
}

type yamlExample struct {
	Text       string `yaml:"text"`
	Correction string `yaml:"correction"`
	Incorrect  bool   `yaml:"incorrect"`
}

type yamlDisambiguation struct {
	ID            string   `yaml:"id"`
	Pattern       string   `yaml:"pattern"`
	CaseSensitive bool     `yaml:"case_sensitive"`
	Antipatterns  []string `yaml:"antipatterns"`
	Action        string   `yaml:"action"`
	POS           string   `yaml:"postag"`
	Lemma         string   `yaml:"lemma"`
}

type yamlRemoval struct {
	ID      string `yaml:"id"`
	Entries []struct {
		Word  string `yaml:"word"`
		Lemma string `yaml:"lemma"`
		POS   string `yaml:"postag"`
	} `yaml:"entries"`
}

type yamlCoherency struct {
	ID          string     `yaml:"id"`
	Description string     `yaml:"description"`
	Category    string     `yaml:"category"`
	Groups      [][]string `yaml:"groups"`
}

type yamlInitials struct {
	LastName   string `yaml:"lname"`
	FirstName  string `yaml:"fname"`
	Patronymic string `yaml:"pname"`
}

// LoadCatalogYAML loads a YAML rule catalog.
func LoadCatalogYAML(path string, lo LoadOptions) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, internalerr.Wrapf(err, internalerr.CodeCatalogLoad, "read catalog %s", path)
	}
	cat, err := ParseCatalogYAML(data, lo)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalogYAML builds a catalog from YAML. Malformed YAML and broken
// phrase or unification definitions fail the load; individual rules that
// cannot be compiled are skipped.
func ParseCatalogYAML(data []byte, lo LoadOptions) (*Catalog, error) {
	var raw yamlCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, internalerr.Wrap(err, internalerr.CodeCatalogParse, "parse catalog")
	}
	cat := newCatalog(raw.Language)

	for _, feature := range sortedKeys(raw.Unification) {
		types := raw.Unification[feature]
		for _, typ := range sortedKeys(types) {
			if err := cat.Unifier.Define(feature, typ, types[typ]); err != nil {
				return nil, internalerr.Wrap(err, internalerr.CodeCatalogParse, "unification")
			}
		}
	}
	for _, name := range sortedKeys(raw.Phrases) {
		for _, alt := range raw.Phrases[name] {
			seq, err := pattern.ParseNotation(alt, pattern.NotationOptions{})
			if err == nil {
				err = cat.Phrases.Add(name, seq)
			}
			if err != nil {
				return nil, internalerr.Wrapf(err, internalerr.CodeCatalogParse, "phrase %s", name)
			}
		}
	}

	for _, r := range raw.Rules {
		spec, err := r.spec()
		if err != nil {
			cat.Rules.Skip(r.ID, err)
			continue
		}
		if _, err := cat.Rules.AddPattern(spec, cat.options(), lo.Synthesizer); err != nil {
			return nil, err
		}
	}

	for _, c := range raw.Coherency {
		rule := rules.NewCoherencyRule(rules.Meta{ID: c.ID, Description: c.Description, Category: c.Category})
		for _, g := range c.Groups {
			if len(g) > 0 {
				rule.AddGroup(g[0], g[1:]...)
			}
		}
		if err := cat.Rules.Add(rule); err != nil {
			return nil, err
		}
	}

	for _, rm := range raw.Removals {
		table := disambig.NewRemovalTable(rm.ID, lo.Keyer)
		for _, e := range rm.Entries {
			if err := table.Add(e.Word, e.Lemma, e.POS); err != nil {
				return nil, fmt.Errorf("removal %s: %w", rm.ID, err)
			}
		}
		cat.Disambiguation = append(cat.Disambiguation, table)
	}

	for _, d := range raw.Disambiguation {
		spec, err := d.spec()
		if err != nil {
			cat.Rules.Skip(d.ID, err)
			continue
		}
		cat.addDisambiguation(spec)
	}

	if raw.Initials != nil {
		in := disambig.DefaultInitials()
		if raw.Initials.LastName != "" {
			in = disambig.Initials{LastName: raw.Initials.LastName, FirstName: raw.Initials.FirstName, Patronymic: raw.Initials.Patronymic}
		}
		cat.Disambiguation = append(cat.Disambiguation, in)
	}

	return cat, nil
}

func (r yamlRule) spec() (rules.PatternRuleSpec, error) {
	opts := pattern.NotationOptions{CaseSensitive: r.CaseSensitive}
	elements, err := parsePattern(r.ID, r.Pattern, opts)
	if err != nil {
		return rules.PatternRuleSpec{}, err
	}
	anti, err := parseAntipatterns(r.ID, r.Antipatterns, opts)
	if err != nil {
		return rules.PatternRuleSpec{}, err
	}
	policy, err := parsePolicy(r.Policy)
	if err != nil {
		return rules.PatternRuleSpec{}, err
	}
	spec := rules.PatternRuleSpec{
		Meta:               rules.Meta{ID: r.ID, Description: r.Description, Category: r.Category, DefaultOff: r.DefaultOff},
		Elements:           elements,
		Message:            r.Message,
		ShortMessage:       r.Short,
		Suggestions:        r.Suggestions,
		Antipatterns:       anti,
		Policy:             policy,
		KeepSuggestionCase: r.KeepCase,
	}
	for _, ex := range r.Examples {
		spec.Examples = append(spec.Examples, rules.Example{Text: ex.Text, Incorrect: ex.Incorrect || ex.Correction != "", Correction: ex.Correction})
	}
	return spec, nil
}

func (d yamlDisambiguation) spec() (disambig.PatternSpec, error) {
	opts := pattern.NotationOptions{CaseSensitive: d.CaseSensitive}
	elements, err := parsePattern(d.ID, d.Pattern, opts)
	if err != nil {
		return disambig.PatternSpec{}, err
	}
	anti, err := parseAntipatterns(d.ID, d.Antipatterns, opts)
	if err != nil {
		return disambig.PatternSpec{}, err
	}
	action, err := disambig.ParseAction(d.Action)
	if err != nil {
		return disambig.PatternSpec{}, err
	}
	return disambig.PatternSpec{ID: d.ID, Elements: elements, Antipatterns: anti, Action: action, POS: d.POS, Lemma: d.Lemma}, nil
}

func parsePattern(id, src string, opts pattern.NotationOptions) ([]pattern.Element, error) {
	if src == "" {
		return nil, internalerr.Newf(internalerr.CodeRuleInvalid, "rule %s: empty pattern", id)
	}
	elements, err := pattern.ParseNotation(src, opts)
	if err != nil {
		return nil, internalerr.Wrapf(err, internalerr.CodeOf(err), "rule %s", id)
	}
	return elements, nil
}

func parseAntipatterns(id string, srcs []string, opts pattern.NotationOptions) ([][]pattern.Element, error) {
	var out [][]pattern.Element
	for _, src := range srcs {
		elements, err := parsePattern(id, src, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, elements)
	}
	return out, nil
}

func parsePolicy(s string) (rules.Policy, error) {
	switch s {
	case "", "first":
		return rules.PolicyFirst, nil
	case "all":
		return rules.PolicyAll, nil
	}
	return 0, internalerr.Newf(internalerr.CodeRuleInvalid, "unknown policy %q", s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
