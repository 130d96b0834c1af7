package disambig

import (
	"fmt"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/pattern"
)

// Action is what a pattern rule does to the tokens it selects.
type Action string

const (
	// ActionRemove drops readings whose tag matches POS.
	ActionRemove Action = "remove"
	// ActionFilter keeps only readings whose tag matches POS, if any does.
	ActionFilter Action = "filter"
	// ActionReplace replaces the readings with a single POS reading.
	ActionReplace Action = "replace"
	// ActionFilterAll keeps, per token, the readings its element matched.
	ActionFilterAll Action = "filterall"
	// ActionUnify keeps the readings that agree on the unified features.
	ActionUnify Action = "unify"
	// ActionImmunize protects the tokens from error rules.
	ActionImmunize Action = "immunize"
	// ActionIgnoreSpelling exempts the tokens from spell checking.
	ActionIgnoreSpelling Action = "ignore_spelling"
	// ActionChunk marks the tokens as one multiword span tagged POS.
	ActionChunk Action = "chunk"
)

// ParseAction converts a catalog action name. A missing action means
// replace.
func ParseAction(name string) (Action, error) {
	switch a := Action(name); a {
	case ActionRemove, ActionFilter, ActionReplace, ActionFilterAll, ActionUnify,
		ActionImmunize, ActionIgnoreSpelling, ActionChunk:
		return a, nil
	case "":
		return ActionReplace, nil
	}
	return "", internalerr.Newf(internalerr.CodeRuleUnsupported, "unknown disambiguation action %q", name)
}

// PatternSpec is the declarative form of a disambiguation pattern rule.
type PatternSpec struct {
	ID           string
	Elements     []pattern.Element
	Antipatterns [][]pattern.Element
	Action       Action
	// POS is a tag regex for remove and filter, and the literal tag for
	// replace and chunk.
	POS string
	// Lemma is the lemma of the replace reading. Empty takes the lemma of
	// an existing reading.
	Lemma string
}

// PatternRule applies an action to the marked tokens of every match of a
// pattern.
type PatternRule struct {
	id       string
	matcher  *pattern.Matcher
	anti     []*pattern.Matcher
	action   Action
	pos      *pattern.StringMatcher
	tag      string
	lemma    string
	markFrom int
	markTo   int
}

// NewPatternRule compiles spec. Disambiguation patterns match immunized
// tokens.
func NewPatternRule(spec PatternSpec, opts pattern.Options) (*PatternRule, error) {
	opts.MatchImmunized = true
	m, err := pattern.NewMatcher(spec.Elements, opts)
	if err != nil {
		return nil, internalerr.Wrapf(err, internalerr.CodeOf(err), "disambiguation rule %s", spec.ID)
	}
	r := &PatternRule{
		id:       spec.ID,
		matcher:  m,
		action:   spec.Action,
		tag:      spec.POS,
		lemma:    spec.Lemma,
		markFrom: -1,
	}
	if r.action == "" {
		r.action = ActionReplace
	}
	for i, anti := range spec.Antipatterns {
		am, err := pattern.NewMatcher(anti, opts)
		if err != nil {
			return nil, internalerr.Wrapf(err, internalerr.CodeOf(err), "disambiguation rule %s: antipattern %d", spec.ID, i+1)
		}
		r.anti = append(r.anti, am)
	}

	switch r.action {
	case ActionRemove, ActionFilter:
		if spec.POS == "" {
			return nil, internalerr.Newf(internalerr.CodeRuleInvalid, "disambiguation rule %s: %s needs a tag", spec.ID, r.action)
		}
		if r.pos, err = pattern.NewStringMatcher(spec.POS, true, true); err != nil {
			return nil, internalerr.Wrapf(err, internalerr.CodeRuleInvalid, "disambiguation rule %s", spec.ID)
		}
	case ActionReplace, ActionChunk:
		if spec.POS == "" {
			return nil, internalerr.Newf(internalerr.CodeRuleInvalid, "disambiguation rule %s: %s needs a tag", spec.ID, r.action)
		}
	case ActionUnify:
		if !unifies(spec.Elements) {
			return nil, internalerr.Newf(internalerr.CodeRuleInvalid, "disambiguation rule %s: unify without unified elements", spec.ID)
		}
	case ActionFilterAll, ActionImmunize, ActionIgnoreSpelling:
	default:
		return nil, internalerr.Newf(internalerr.CodeRuleUnsupported, "disambiguation rule %s: unknown action %q", spec.ID, r.action)
	}

	for i := range spec.Elements {
		if spec.Elements[i].Marker {
			if r.markFrom < 0 {
				r.markFrom = i
			}
			r.markTo = i
		}
	}
	if r.markFrom < 0 {
		r.markFrom, r.markTo = 0, len(spec.Elements)-1
	}
	return r, nil
}

// ID implements Rule.
func (r *PatternRule) ID() string { return r.id }

// String describes the rule for logs.
func (r *PatternRule) String() string {
	return fmt.Sprintf("%s(%s %s)", r.id, r.action, r.tag)
}

// Apply implements Rule. Matching runs on s; the actions of all matches
// are collected into one new sentence.
func (r *PatternRule) Apply(s *analysis.Sentence) *analysis.Sentence {
	found := r.matcher.FindAll(s, true)
	if len(found) == 0 {
		return s
	}
	var blocked [][2]int
	for _, am := range r.anti {
		for _, a := range am.FindAll(s, true) {
			blocked = append(blocked, [2]int{a.First, a.Last})
		}
	}

	ed := s.Edit()
	for _, mt := range found {
		if overlaps(blocked, mt.First, mt.Last) {
			continue
		}
		r.execute(s, ed, mt)
	}
	return ed.Sentence()
}

func unifies(elements []pattern.Element) bool {
	for i := range elements {
		if len(elements[i].Unify) > 0 {
			return true
		}
	}
	return false
}

func overlaps(spans [][2]int, first, last int) bool {
	for _, sp := range spans {
		if first <= sp[1] && sp[0] <= last {
			return true
		}
	}
	return false
}

// targets returns, per marked element, the tokens it consumed.
func (r *PatternRule) targets(mt pattern.Match) (elems []int, toks []int) {
	for ei := r.markFrom; ei <= r.markTo && ei < len(mt.Tokens); ei++ {
		for _, ti := range mt.Tokens[ei] {
			elems = append(elems, ei)
			toks = append(toks, ti)
		}
	}
	return elems, toks
}

func (r *PatternRule) execute(s *analysis.Sentence, ed *analysis.Editor, mt pattern.Match) {
	elems, toks := r.targets(mt)
	if len(toks) == 0 {
		return
	}

	switch r.action {
	case ActionChunk:
		ed.SetChunk(toks[0], "<"+r.tag+">", "")
		ed.SetChunk(toks[len(toks)-1], "", "</"+r.tag+">")
		return
	case ActionUnify:
		unified := r.matcher.UnifiedReadings(s, mt)
		for _, ti := range toks {
			rs, ok := unified[ti]
			if !ok || len(rs) == 0 {
				continue
			}
			keep := make(map[analysis.Reading]bool, len(rs))
			for _, rd := range rs {
				keep[rd] = true
			}
			r.narrowToken(ed, ti, func(rd analysis.Reading) bool { return keep[rd] })
		}
		return
	}

	elements := r.matcher.Elements()
	for k, ti := range toks {
		tok := ed.Token(ti)
		if tok.IsSentenceStart() {
			continue
		}
		switch r.action {
		case ActionRemove:
			r.narrowToken(ed, ti, func(rd analysis.Reading) bool { return !r.pos.Match(rd.Tag) })
		case ActionFilter:
			if hasTag(tok, r.pos) {
				r.narrowToken(ed, ti, func(rd analysis.Reading) bool { return r.pos.Match(rd.Tag) })
			}
		case ActionFilterAll:
			e := &elements[elems[k]]
			if e.POS == nil && !e.Inflected {
				continue
			}
			matched := e.MatchedReadings(tok)
			if len(matched) == 0 {
				continue
			}
			keep := make(map[analysis.Reading]bool, len(matched))
			for _, rd := range matched {
				keep[rd] = true
			}
			r.narrowToken(ed, ti, func(rd analysis.Reading) bool { return keep[rd] })
		case ActionReplace:
			ed.SetReadings(ti, replaceWith(tok.Readings(), analysis.Reading{Lemma: r.replaceLemma(tok), Tag: r.tag}))
		case ActionImmunize:
			ed.Immunize(ti)
		case ActionIgnoreSpelling:
			ed.IgnoreSpelling(ti)
		}
	}
}

func (r *PatternRule) narrowToken(ed *analysis.Editor, ti int, keep func(analysis.Reading) bool) {
	if kept, changed := narrow(ed.Token(ti).Readings(), keep); changed {
		ed.SetReadings(ti, kept)
	}
}

// replaceLemma picks the lemma of the replacement reading: the configured
// one, else the lemma of a reading already carrying the tag, else the
// first lemma of the token, else its surface form.
func (r *PatternRule) replaceLemma(tok analysis.AnnotatedToken) string {
	if r.lemma != "" {
		return r.lemma
	}
	for _, rd := range tok.Readings() {
		if rd.Tag == r.tag && rd.Lemma != "" {
			return rd.Lemma
		}
	}
	for _, rd := range tok.Readings() {
		if rd.Lemma != "" {
			return rd.Lemma
		}
	}
	return tok.Text
}

func hasTag(tok analysis.AnnotatedToken, m *pattern.StringMatcher) bool {
	for _, rd := range tok.Readings() {
		if rd.Tag != "" && !isBoundary(rd) && m.Match(rd.Tag) {
			return true
		}
	}
	return false
}
