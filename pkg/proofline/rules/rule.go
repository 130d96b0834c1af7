// Package rules defines error rules and the matches they report. Pattern
// rules wrap the pattern matcher; the other kinds are hand-written checks
// that satisfy the same Rule interface.
package rules

import (
	"sort"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
)

// Meta describes a rule for reports and filtering.
type Meta struct {
	ID          string
	Description string
	Category    string
	// DefaultOff rules only run when enabled explicitly.
	DefaultOff bool
}

// Rule inspects one sentence. Implementations must be safe for concurrent
// use by multiple goroutines.
type Rule interface {
	ID() string
	Match(s *analysis.Sentence) []RuleMatch
}

// Described is implemented by rules that carry metadata.
type Described interface {
	Meta() Meta
}

// State is document-scoped memory handed to stateful rules. A fresh State
// is used per document.
type State interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// StatefulRule is a rule that reads and updates document state. The checker
// calls MatchWithState once per sentence, in document order. Match alone
// treats the sentence as a document of its own.
type StatefulRule interface {
	Rule
	MatchWithState(s *analysis.Sentence, st State) []RuleMatch
}

// MapState is a State backed by a map. It is not safe for concurrent use.
type MapState map[string]string

// Get implements State.
func (m MapState) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Set implements State.
func (m MapState) Set(key, value string) { m[key] = value }

// RuleMatch is one error found in a sentence. Start and End are absolute
// byte offsets into the checked document.
type RuleMatch struct {
	RuleID       string
	Sentence     *analysis.Sentence
	Start        int
	End          int
	Message      string
	ShortMessage string
	Suggestions  []string
	Category     string
	Description  string
}

// Length is the byte length of the matched span.
func (m RuleMatch) Length() int { return m.End - m.Start }

// newMatch builds a match over the sentence tokens first..last.
func newMatch(meta Meta, s *analysis.Sentence, first, last int) RuleMatch {
	return RuleMatch{
		RuleID:      meta.ID,
		Sentence:    s,
		Start:       s.Base() + s.Token(first).Start,
		End:         s.Base() + s.Token(last).End(),
		Category:    meta.Category,
		Description: meta.Description,
	}
}

// SortMatches orders matches by start offset, then end offset and rule id.
func SortMatches(ms []RuleMatch) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.RuleID < b.RuleID
	})
}

// MetaOf returns the metadata of r, or a Meta holding only its id.
func MetaOf(r Rule) Meta {
	if d, ok := r.(Described); ok {
		return d.Meta()
	}
	return Meta{ID: r.ID()}
}
