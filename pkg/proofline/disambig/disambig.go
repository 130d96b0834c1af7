// Package disambig narrows the readings of analyzed sentences. Rules run
// in order, each one seeing the result of the previous ones, and only ever
// remove readings: a token never ends up with more readings than it had.
package disambig

import (
	"github.com/rs/zerolog"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/logging"
)

// Rule is one disambiguation step. Apply returns s itself when nothing
// changed. Implementations must be safe for concurrent use.
type Rule interface {
	ID() string
	Apply(s *analysis.Sentence) *analysis.Sentence
}

// Disambiguator runs an ordered list of rules.
type Disambiguator struct {
	rules  []Rule
	logger zerolog.Logger
}

// New creates a disambiguator running rules in the given order.
func New(rules ...Rule) *Disambiguator {
	return &Disambiguator{
		rules:  rules,
		logger: logging.GetLogger("disambig"),
	}
}

// Add appends a rule.
func (d *Disambiguator) Add(r Rule) {
	d.rules = append(d.rules, r)
}

// Rules returns the rules in order. The slice must not be modified.
func (d *Disambiguator) Rules() []Rule { return d.rules }

// Disambiguate applies every rule to s and returns the narrowed sentence.
// A panicking rule is logged and skipped for this sentence.
func (d *Disambiguator) Disambiguate(s *analysis.Sentence) *analysis.Sentence {
	if d == nil {
		return s
	}
	for _, r := range d.rules {
		s = d.apply(r, s)
	}
	return s
}

func (d *Disambiguator) apply(r Rule, s *analysis.Sentence) (out *analysis.Sentence) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error().Str("rule", r.ID()).Interface("panic", rec).Msg("disambiguation rule failed")
			out = s
		}
	}()
	return r.Apply(s)
}

// isBoundary reports the readings added by the sentence builder.
func isBoundary(r analysis.Reading) bool {
	return r.Lemma == "" && (r.Tag == analysis.SentStartTag || r.Tag == analysis.SentEndTag)
}

// narrow keeps the readings for which keep returns true. Sentence boundary
// readings always stay. When no other reading survives the token keeps its
// boundary readings, or a single unknown reading.
func narrow(rs []analysis.Reading, keep func(analysis.Reading) bool) ([]analysis.Reading, bool) {
	out := make([]analysis.Reading, 0, len(rs))
	changed := false
	for _, r := range rs {
		if isBoundary(r) || keep(r) {
			out = append(out, r)
			continue
		}
		changed = true
	}
	return out, changed
}

// replaceWith swaps the non-boundary readings of rs for r, provided the
// token does not grow.
func replaceWith(rs []analysis.Reading, r analysis.Reading) []analysis.Reading {
	out := []analysis.Reading{r}
	for _, old := range rs {
		if isBoundary(old) {
			out = append(out, old)
		}
	}
	if len(out) > len(rs) {
		return out[:len(rs)]
	}
	return out
}
