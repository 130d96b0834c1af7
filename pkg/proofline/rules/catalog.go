package rules

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/logging"
	"github.com/cognicore/proofline/pkg/proofline/pattern"
)

// SkippedRule records a rule left out of the catalog.
type SkippedRule struct {
	ID     string
	Reason string
	Err    error
}

// Catalog is an ordered, read-only-after-load set of rules.
type Catalog struct {
	rules   []Rule
	byID    map[string]Rule
	skipped []SkippedRule
	logger  zerolog.Logger
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byID:   make(map[string]Rule),
		logger: logging.GetLogger("rules.catalog"),
	}
}

// Add appends r. Rule ids must be unique.
func (c *Catalog) Add(r Rule) error {
	if r.ID() == "" {
		return internalerr.New(internalerr.CodeRuleInvalid, "rule without id")
	}
	if _, ok := c.byID[r.ID()]; ok {
		return fmt.Errorf("rule %s: %w", r.ID(), internalerr.ErrDuplicate)
	}
	c.rules = append(c.rules, r)
	c.byID[r.ID()] = r
	return nil
}

// AddPattern compiles spec and appends it. A rule the engine cannot
// evaluate is recorded as skipped instead; the returned bool reports
// whether the rule was added.
func (c *Catalog) AddPattern(spec PatternRuleSpec, opts pattern.Options, synth pattern.Synthesizer) (bool, error) {
	r, err := NewPatternRule(spec, opts, synth)
	if err != nil {
		c.Skip(spec.ID, err)
		return false, nil
	}
	if err := c.Add(r); err != nil {
		return false, err
	}
	return true, nil
}

// Skip records that rule id was left out because of err and logs it.
func (c *Catalog) Skip(id string, err error) {
	reason := string(internalerr.CodeOf(err))
	c.skipped = append(c.skipped, SkippedRule{ID: id, Reason: reason, Err: err})
	c.logger.Warn().Str("rule", id).Str("reason", reason).Err(err).Msg("rule skipped")
}

// Rules returns the rules in catalog order. The slice must not be modified.
func (c *Catalog) Rules() []Rule { return c.rules }

// Skipped returns the rules left out at load time.
func (c *Catalog) Skipped() []SkippedRule { return c.skipped }

// Get returns the rule with the given id.
func (c *Catalog) Get(id string) (Rule, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Len is the number of loaded rules.
func (c *Catalog) Len() int { return len(c.rules) }

// Merge appends the rules and skip records of other.
func (c *Catalog) Merge(other *Catalog) error {
	for _, r := range other.rules {
		if err := c.Add(r); err != nil {
			return err
		}
	}
	c.skipped = append(c.skipped, other.skipped...)
	return nil
}

// Select returns the active rules: default-off rules only when listed in
// enabled, and never the ones listed in disabled.
func (c *Catalog) Select(enabled, disabled []string) []Rule {
	on := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		on[id] = true
	}
	off := make(map[string]bool, len(disabled))
	for _, id := range disabled {
		off[id] = true
	}
	out := make([]Rule, 0, len(c.rules))
	for _, r := range c.rules {
		if off[r.ID()] {
			continue
		}
		if MetaOf(r).DefaultOff && !on[r.ID()] {
			continue
		}
		out = append(out, r)
	}
	return out
}
