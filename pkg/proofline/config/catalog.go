package config

import (
	"github.com/cognicore/proofline/pkg/proofline/disambig"
	"github.com/cognicore/proofline/pkg/proofline/pattern"
	"github.com/cognicore/proofline/pkg/proofline/rules"
)

// LoadOptions carries the collaborators catalog rules are compiled
// against. Both fields may be nil.
type LoadOptions struct {
	Synthesizer pattern.Synthesizer
	Keyer       *disambig.Keyer
}

// Catalog is a loaded rule catalog. Rules that could not be compiled are
// listed in Rules.Skipped, including disambiguation rules.
type Catalog struct {
	Language       string
	Rules          *rules.Catalog
	Disambiguation []disambig.Rule
	Phrases        *pattern.PhraseTable
	Unifier        *pattern.Unifier
}

func newCatalog(lang string) *Catalog {
	return &Catalog{
		Language: lang,
		Rules:    rules.NewCatalog(),
		Phrases:  pattern.NewPhraseTable(),
		Unifier:  pattern.NewUnifier(),
	}
}

func (c *Catalog) options() pattern.Options {
	return pattern.Options{Phrases: c.Phrases, Unifier: c.Unifier}
}

// addDisambiguation compiles spec, recording it as skipped on failure.
func (c *Catalog) addDisambiguation(spec disambig.PatternSpec) {
	r, err := disambig.NewPatternRule(spec, c.options())
	if err != nil {
		c.Rules.Skip(spec.ID, err)
		return
	}
	c.Disambiguation = append(c.Disambiguation, r)
}

// Merge appends the rules of other after the rules of c. Phrase tables
// and unification features stay with the catalog that defined them.
func (c *Catalog) Merge(other *Catalog) error {
	if other == nil {
		return nil
	}
	if err := c.Rules.Merge(other.Rules); err != nil {
		return err
	}
	c.Disambiguation = append(c.Disambiguation, other.Disambiguation...)
	if c.Language == "" {
		c.Language = other.Language
	}
	return nil
}
