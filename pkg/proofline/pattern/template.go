package pattern

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
)

// Synthesizer produces inflected forms of a lemma for tags matching
// tagRegex.
type Synthesizer interface {
	Synthesize(lemma, tagRegex string) ([]string, error)
}

// CaseConversion adjusts the case of a substituted token.
type CaseConversion string

const (
	CaseNone       CaseConversion = ""
	CaseStartUpper CaseConversion = "startupper"
	CaseStartLower CaseConversion = "startlower"
	CaseAllUpper   CaseConversion = "allupper"
	CaseAllLower   CaseConversion = "alllower"
)

// MatchRef is a <match no="N" .../> reference: it takes the token of
// element N and optionally rewrites it with a regex or re-inflects its
// lemma to postag.
type MatchRef struct {
	No            int
	PosTag        string
	RegexMatch    string
	RegexReplace  string
	Case          CaseConversion
	regexpMatcher *regexp2.Regexp
}

type segmentKind int

const (
	segText segmentKind = iota
	segBackRef
	segMatch
	segSuggestionStart
	segSuggestionEnd
)

type segment struct {
	kind segmentKind
	text string
	no   int
	ref  *MatchRef
}

// Template is a compiled message or suggestion template. It understands
// \N back-references, <suggestion>...</suggestion> and <match no="N"/>.
type Template struct {
	src      string
	segments []segment
}

var (
	tagRe   = regexp2.MustCompile(`<suggestion>|</suggestion>|<match\b[^>]*?/>|\\(\d+)`, regexp2.None)
	attrRe  = regexp2.MustCompile(`([a-z_]+)\s*=\s*"([^"]*)"`, regexp2.None)
	matchNo = regexp2.MustCompile(`^<match\b`, regexp2.None)
)

// CompileTemplate parses src.
func CompileTemplate(src string) (*Template, error) {
	t := &Template{src: src}
	pos := 0
	depth := 0
	m, err := tagRe.FindStringMatch(src)
	for ; err == nil && m != nil; m, err = tagRe.FindNextMatch(m) {
		start := runeToByte(src, m.Index)
		tok := m.String()
		if start > pos {
			t.segments = append(t.segments, segment{kind: segText, text: src[pos:start]})
		}
		pos = start + len(tok)
		switch {
		case tok == "<suggestion>":
			if depth > 0 {
				return nil, fmt.Errorf("nested <suggestion> in %q", src)
			}
			depth++
			t.segments = append(t.segments, segment{kind: segSuggestionStart})
		case tok == "</suggestion>":
			if depth == 0 {
				return nil, fmt.Errorf("unbalanced </suggestion> in %q", src)
			}
			depth--
			t.segments = append(t.segments, segment{kind: segSuggestionEnd})
		case isMatchTag(tok):
			ref, err := parseMatchRef(tok)
			if err != nil {
				return nil, err
			}
			t.segments = append(t.segments, segment{kind: segMatch, ref: ref, no: ref.No})
		default:
			n, _ := strconv.Atoi(tok[1:])
			t.segments = append(t.segments, segment{kind: segBackRef, no: n})
		}
	}
	if err != nil {
		return nil, err
	}
	if depth != 0 {
		return nil, fmt.Errorf("unclosed <suggestion> in %q", src)
	}
	if pos < len(src) {
		t.segments = append(t.segments, segment{kind: segText, text: src[pos:]})
	}
	return t, nil
}

// MustCompileTemplate is CompileTemplate that panics on error.
func MustCompileTemplate(src string) *Template {
	t, err := CompileTemplate(src)
	if err != nil {
		panic(err)
	}
	return t
}

func isMatchTag(tok string) bool {
	ok, _ := matchNo.MatchString(tok)
	return ok
}

// runeToByte converts a regexp2 rune index into a byte offset.
func runeToByte(s string, runeIdx int) int {
	i := 0
	for b := range s {
		if i == runeIdx {
			return b
		}
		i++
	}
	return len(s)
}

func parseMatchRef(tag string) (*MatchRef, error) {
	ref := &MatchRef{}
	m, err := attrRe.FindStringMatch(tag)
	for ; err == nil && m != nil; m, err = attrRe.FindNextMatch(m) {
		groups := m.Groups()
		key, val := groups[1].String(), groups[2].String()
		switch key {
		case "no":
			n, convErr := strconv.Atoi(val)
			if convErr != nil || n < 1 {
				return nil, fmt.Errorf("invalid match number %q", val)
			}
			ref.No = n
		case "postag":
			ref.PosTag = val
		case "regexp_match":
			ref.RegexMatch = val
		case "regexp_replace":
			ref.RegexReplace = val
		case "case_conversion":
			ref.Case = CaseConversion(val)
		}
	}
	if err != nil {
		return nil, err
	}
	if ref.No == 0 {
		return nil, fmt.Errorf("match reference without no: %s", tag)
	}
	if ref.RegexMatch != "" {
		re, err := regexp2.Compile(ref.RegexMatch, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("match reference regexp: %w", err)
		}
		ref.regexpMatcher = re
	}
	return ref, nil
}

// MaxRef returns the highest element number referenced by the template.
func (t *Template) MaxRef() int {
	if t == nil {
		return 0
	}
	max := 0
	for _, s := range t.segments {
		if (s.kind == segBackRef || s.kind == segMatch) && s.no > max {
			max = s.no
		}
	}
	return max
}

// String returns the template source.
func (t *Template) String() string {
	if t == nil {
		return ""
	}
	return t.src
}

// Expansion is the result of filling a template.
type Expansion struct {
	// Text is the filled template with suggestions shown in quotes.
	Text string
	// Suggestions holds the filled <suggestion> bodies in order.
	Suggestions []string
}

// ExpandInput supplies the matched tokens to a template.
type ExpandInput struct {
	Sentence    *analysis.Sentence
	Match       Match
	Synthesizer Synthesizer
	// Capitalize uppercases the first letter of every suggestion.
	Capitalize bool
}

// Expand fills the template. Suggestions that need a synthesized form the
// synthesizer cannot provide are omitted; the message shows the matched
// text in their place.
func (t *Template) Expand(in ExpandInput) Expansion {
	var out Expansion
	if t == nil {
		return out
	}
	var (
		msg          string
		msgGap       bool // last piece of msg was an empty substitution
		inSuggestion bool
		alts         []string
		fallback     string
		sugGap       bool
		failed       bool
	)

	for _, seg := range t.segments {
		switch seg.kind {
		case segSuggestionStart:
			inSuggestion, alts, fallback, sugGap, failed = true, []string{""}, "", false, false
			continue
		case segSuggestionEnd:
			inSuggestion = false
			if failed {
				msg, msgGap = join(msg, fallback, msgGap), false
				continue
			}
			var shown []string
			for _, a := range alts {
				if a = strings.TrimSpace(a); a == "" {
					continue
				}
				if in.Capitalize {
					a = capitalize(a)
				}
				out.Suggestions = appendUnique(out.Suggestions, a)
				shown = append(shown, "'"+a+"'")
			}
			msg, msgGap = join(msg, strings.Join(shown, ", "), msgGap), false
			continue
		}

		var forms []string
		var surface string
		switch seg.kind {
		case segText:
			forms, surface = []string{seg.text}, seg.text
		case segBackRef:
			surface = in.text(seg.no)
			forms = []string{surface}
		case segMatch:
			surface = in.text(seg.ref.No)
			forms = seg.ref.resolve(in)
		}
		empty := seg.kind != segText && surface == ""

		if !inSuggestion {
			piece := surface
			if len(forms) > 0 {
				piece = forms[0]
			}
			msg, msgGap = join(msg, piece, msgGap), empty
			continue
		}

		fallback = join(fallback, surface, sugGap)
		if len(forms) == 0 {
			failed = true
		}
		if !failed {
			next := make([]string, 0, len(alts)*len(forms))
			for _, a := range alts {
				for _, f := range forms {
					next = append(next, join(a, f, sugGap))
				}
			}
			alts = next
		}
		sugGap = empty
	}
	out.Text = msg
	return out
}

// join appends piece to left. After an empty substitution the space it
// leaves before punctuation or another space is dropped.
func join(left, piece string, afterEmpty bool) string {
	if afterEmpty {
		return joinWithoutExtraSpace(left, piece)
	}
	return left + piece
}

// joinWithoutExtraSpace concatenates, dropping the space a removed optional
// token would leave before punctuation or another space.
func joinWithoutExtraSpace(left, right string) string {
	if strings.HasSuffix(left, " ") && right != "" {
		r, _ := utf8.DecodeRuneInString(right)
		if r == ' ' || strings.ContainsRune(",:;.!?", r) {
			return left[:len(left)-1] + right
		}
	}
	return left + right
}

// text returns the matched text of element no (1-based): the sentence
// substring from its first to its last token. Zero-occurrence elements
// yield "".
func (in ExpandInput) text(no int) string {
	toks := in.tokens(no)
	if len(toks) == 0 {
		return ""
	}
	first := in.Sentence.Token(toks[0])
	last := in.Sentence.Token(toks[len(toks)-1])
	return in.Sentence.Text()[first.Start:last.End()]
}

func (in ExpandInput) tokens(no int) []int {
	if in.Sentence == nil || no < 1 || no > len(in.Match.Tokens) {
		return nil
	}
	return in.Match.Tokens[no-1]
}

// resolve returns the candidate forms of a match reference; nil means the
// reference could not be resolved.
func (r *MatchRef) resolve(in ExpandInput) []string {
	toks := in.tokens(r.No)
	if len(toks) == 0 {
		return []string{""}
	}
	surface := in.text(r.No)

	var forms []string
	if r.PosTag == "" {
		forms = []string{surface}
	} else {
		if in.Synthesizer == nil {
			return nil
		}
		tok := in.Sentence.Token(toks[0])
		seen := make(map[string]bool)
		for _, rd := range tok.Readings() {
			if rd.Lemma == "" || seen[rd.Lemma] {
				continue
			}
			seen[rd.Lemma] = true
			got, err := in.Synthesizer.Synthesize(rd.Lemma, r.PosTag)
			if err != nil {
				continue
			}
			for _, f := range got {
				forms = appendUnique(forms, f)
			}
		}
		if len(forms) == 0 {
			return nil
		}
	}

	if r.regexpMatcher != nil {
		for i, f := range forms {
			if repl, err := r.regexpMatcher.Replace(f, r.RegexReplace, -1, -1); err == nil {
				forms[i] = repl
			}
		}
	}
	for i, f := range forms {
		forms[i] = convertCase(f, r.Case, surface)
	}
	return forms
}

func convertCase(s string, c CaseConversion, like string) string {
	switch c {
	case CaseStartUpper:
		return capitalize(s)
	case CaseStartLower:
		r, n := utf8.DecodeRuneInString(s)
		if n == 0 {
			return s
		}
		return string(unicode.ToLower(r)) + s[n:]
	case CaseAllUpper:
		return strings.ToUpper(s)
	case CaseAllLower:
		return strings.ToLower(s)
	}
	if StartsWithUpper(like) && !StartsWithUpper(s) {
		return capitalize(s)
	}
	return s
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// StartsWithUpper reports whether the first rune of s is uppercase.
func StartsWithUpper(s string) bool {
	r, n := utf8.DecodeRuneInString(s)
	return n > 0 && unicode.IsUpper(r)
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
