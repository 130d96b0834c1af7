package rules

import (
	"strings"
	"unicode/utf8"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
)

// LengthSkewID is the id of the length skew rule.
const LengthSkewID = "TRANSLATION_LENGTH"

// Default skew limits in percent of reference length over text length.
const (
	DefaultMaxSkew = 250.0
	DefaultMinSkew = 30.0
)

// LengthSkewRule compares the length of a text with a reference text, such
// as a translation with its source, and reports texts whose length differs
// too much.
type LengthSkewRule struct {
	meta      Meta
	MaxSkew   float64
	MinSkew   float64
	reference string
}

// NewLengthSkewRule creates the rule with the default limits.
func NewLengthSkewRule() *LengthSkewRule {
	return &LengthSkewRule{
		meta: Meta{
			ID:          LengthSkewID,
			Description: "Unusual length difference between source and translation",
			Category:    "MISC",
		},
		MaxSkew: DefaultMaxSkew,
		MinSkew: DefaultMinSkew,
	}
}

// WithReference returns a copy of the rule that compares every sentence
// with reference.
func (r *LengthSkewRule) WithReference(reference string) *LengthSkewRule {
	c := *r
	c.reference = reference
	return &c
}

// ID implements Rule.
func (r *LengthSkewRule) ID() string { return r.meta.ID }

// Meta implements Described.
func (r *LengthSkewRule) Meta() Meta { return r.meta }

// Skewed reports whether reference and text lengths differ beyond the
// limits. Lengths are counted in characters of the trimmed texts; an empty
// text is never skewed.
func (r *LengthSkewRule) Skewed(reference, text string) bool {
	ref := utf8.RuneCountInString(strings.TrimSpace(reference))
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if ref == 0 || n == 0 {
		return false
	}
	skew := float64(ref) / float64(n) * 100
	return skew > r.MaxSkew || skew < r.MinSkew
}

// Match implements Rule. Without a reference it reports nothing.
func (r *LengthSkewRule) Match(s *analysis.Sentence) []RuleMatch {
	if r.reference == "" || !r.Skewed(r.reference, s.Text()) {
		return nil
	}
	idx := s.NonBlank()
	if len(idx) < 2 {
		return nil
	}
	m := newMatch(r.meta, s, idx[1], idx[len(idx)-1])
	m.Message = "Source and target translation lengths are very different."
	return []RuleMatch{m}
}
