package pattern

import (
	"fmt"
	"sort"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
)

// Unifier holds the feature equivalences used by unified elements, e.g.
// feature "number" with types "sg" (tag NN|VBZ) and "pl" (tag NNS|VBP).
// It is configured once and read concurrently afterwards.
type Unifier struct {
	features map[string][]equivalence
}

type equivalence struct {
	typ string
	pos *StringMatcher
}

// NewUnifier creates a unifier without features.
func NewUnifier() *Unifier {
	return &Unifier{features: make(map[string][]equivalence)}
}

// Define adds a type of feature whose readings are recognized by posRegex.
func (u *Unifier) Define(feature, typ, posRegex string) error {
	m, err := NewStringMatcher(posRegex, true, true)
	if err != nil {
		return fmt.Errorf("unification %s/%s: %w", feature, typ, err)
	}
	u.features[feature] = append(u.features[feature], equivalence{typ: typ, pos: m})
	return nil
}

// Has reports whether the feature is defined.
func (u *Unifier) Has(feature string) bool {
	if u == nil {
		return false
	}
	_, ok := u.features[feature]
	return ok
}

// Features returns the defined feature names, sorted.
func (u *Unifier) Features() []string {
	out := make([]string, 0, len(u.features))
	for f := range u.features {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (u *Unifier) types(feature string, r analysis.Reading) map[string]struct{} {
	var out map[string]struct{}
	for _, eq := range u.features[feature] {
		if eq.pos.Match(r.Tag) {
			if out == nil {
				out = make(map[string]struct{})
			}
			out[eq.typ] = struct{}{}
		}
	}
	return out
}

// Unify checks that the reading sets agree on every feature: for each
// feature some type must be carried by at least one reading of every set.
// keep holds, per set, the readings that carry an agreeing type for all
// features.
func (u *Unifier) Unify(features []string, sets [][]analysis.Reading) (keep [][]analysis.Reading, ok bool) {
	if len(sets) == 0 {
		return nil, true
	}
	common := make(map[string]map[string]struct{}, len(features))
	for _, f := range features {
		var inter map[string]struct{}
		for i, rs := range sets {
			union := make(map[string]struct{})
			for _, r := range rs {
				for typ := range u.types(f, r) {
					union[typ] = struct{}{}
				}
			}
			if i == 0 {
				inter = union
				continue
			}
			for typ := range inter {
				if _, hit := union[typ]; !hit {
					delete(inter, typ)
				}
			}
		}
		if len(inter) == 0 {
			return nil, false
		}
		common[f] = inter
	}

	keep = make([][]analysis.Reading, len(sets))
	for i, rs := range sets {
		for _, r := range rs {
			agrees := true
			for _, f := range features {
				hit := false
				for typ := range u.types(f, r) {
					if _, ok := common[f][typ]; ok {
						hit = true
						break
					}
				}
				if !hit {
					agrees = false
					break
				}
			}
			if agrees {
				keep[i] = append(keep[i], r)
			}
		}
	}
	return keep, true
}
