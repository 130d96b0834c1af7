package pattern

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/cognicore/proofline/pkg/proofline/internalerr"
)

// The compact notation writes one element per term:
//
//	"the"            literal surface form
//	/[aeiou].*/      regex on the surface form
//	<NN.*>           regex on reading tags
//	="walk"          lemma (inflected match)
//	"walks":<VBZ>    surface and tag together
//	?                any token
//	@phrase          phrase table entry
//	[ ... ]          marker elements
//
// followed by modifiers: !term negates, {min,max} sets occurrences (max may
// be *), ~N or ~* allows a gap after the element, ^term adds an exception
// and &feature unifies.

//nolint:govet // participle grammar tags are not standard struct tags
type notationPattern struct {
	Items []*notationItem `@@+`
}

//nolint:govet // participle grammar tags are not standard struct tags
type notationItem struct {
	Marked  []*notationElement `  "[" @@+ "]"`
	Element *notationElement   `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type notationElement struct {
	Negate bool           `@"!"?`
	Atom   *notationAtom  `@@`
	Mods   []*notationMod `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type notationAtom struct {
	Any    bool          `  @"?"`
	Phrase *string       `| "@" @Ident`
	Tag    *string       `| @Tag`
	Word   *notationWord `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type notationWord struct {
	Lemma bool          `@"="?`
	Text  *notationText `@@`
	Tag   *string       `( ":" @Tag )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type notationText struct {
	Literal *string `  @String`
	Regex   *string `| @Regex`
}

//nolint:govet // participle grammar tags are not standard struct tags
type notationMod struct {
	Occur  *notationOccur  `  @@`
	Skip   *notationSkip   `| "~" @@`
	Except *notationExcept `| "^" @@`
	Unify  *string         `| "&" @Ident`
}

//nolint:govet // participle grammar tags are not standard struct tags
type notationOccur struct {
	Min int    `"{" @Int`
	Max string `"," @(Int | "*") "}"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type notationSkip struct {
	N   *int `  @Int`
	Any bool `| @"*"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type notationExcept struct {
	Negate bool          `@"!"?`
	Atom   *notationAtom `@@`
}

var notationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Regex", Pattern: `/(?:\\.|[^/\\])*/`},
	{Name: "Tag", Pattern: `<[^<>]*>`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.-]*`},
	{Name: "Punct", Pattern: `[!?~^{},=:@&*\[\]]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var notationParser = participle.MustBuild[notationPattern](
	participle.Lexer(notationLexer),
	participle.Elide("Whitespace"),
)

// NotationOptions controls how notation terms compile.
type NotationOptions struct {
	// CaseSensitive makes surface and lemma matchers case sensitive.
	CaseSensitive bool
}

// ParseNotation parses a pattern written in the compact notation.
func ParseNotation(src string, opts NotationOptions) ([]Element, error) {
	if strings.TrimSpace(src) == "" {
		return nil, internalerr.New(internalerr.CodeRuleInvalid, "empty pattern")
	}
	parsed, err := notationParser.ParseString("", src)
	if err != nil {
		return nil, internalerr.Wrapf(err, internalerr.CodeRuleInvalid, "parse pattern %q", src)
	}

	var out []Element
	for _, item := range parsed.Items {
		if item.Element != nil {
			e, err := item.Element.build(opts)
			if err != nil {
				return nil, internalerr.Wrapf(err, internalerr.CodeRuleInvalid, "pattern %q", src)
			}
			out = append(out, e)
			continue
		}
		for _, ne := range item.Marked {
			e, err := ne.build(opts)
			if err != nil {
				return nil, internalerr.Wrapf(err, internalerr.CodeRuleInvalid, "pattern %q", src)
			}
			e.Marker = true
			out = append(out, e)
		}
	}
	return out, nil
}

// MustParseNotation is ParseNotation that panics on error.
func MustParseNotation(src string) []Element {
	els, err := ParseNotation(src, NotationOptions{})
	if err != nil {
		panic(err)
	}
	return els
}

func (n *notationElement) build(opts NotationOptions) (Element, error) {
	var e Element
	if err := n.Atom.apply(&e.Text, &e.POS, &e.Inflected, &e.Phrase, opts); err != nil {
		return e, err
	}
	e.Negate = n.Negate

	for _, mod := range n.Mods {
		switch {
		case mod.Occur != nil:
			e.Min = mod.Occur.Min
			if mod.Occur.Max == "*" {
				e.Max = Unbounded
			} else {
				max, err := strconv.Atoi(mod.Occur.Max)
				if err != nil {
					return e, err
				}
				if max < e.Min {
					return e, fmt.Errorf("occurrence {%d,%d}: max below min", e.Min, max)
				}
				e.Max = max
			}
			if e.Min == 0 && e.Max == 0 {
				return e, fmt.Errorf("occurrence {0,0} never matches")
			}
		case mod.Skip != nil:
			if mod.Skip.Any {
				e.Skip = Unbounded
			} else {
				e.Skip = *mod.Skip.N
			}
		case mod.Except != nil:
			var x Exception
			var phrase string
			if err := mod.Except.Atom.apply(&x.Text, &x.POS, &x.Inflected, &phrase, opts); err != nil {
				return e, err
			}
			if phrase != "" {
				return e, fmt.Errorf("phrase @%s cannot be an exception", phrase)
			}
			x.Negate = mod.Except.Negate
			e.Exceptions = append(e.Exceptions, x)
		case mod.Unify != nil:
			e.Unify = append(e.Unify, *mod.Unify)
		}
	}
	return e, nil
}

func (a *notationAtom) apply(text, pos **StringMatcher, inflected *bool, phrase *string, opts NotationOptions) error {
	var err error
	switch {
	case a.Any:
	case a.Phrase != nil:
		*phrase = *a.Phrase
	case a.Tag != nil:
		*pos, err = tagMatcher(*a.Tag)
	case a.Word != nil:
		*inflected = a.Word.Lemma
		if *text, err = a.Word.Text.matcher(opts.CaseSensitive); err != nil {
			return err
		}
		if a.Word.Tag != nil {
			*pos, err = tagMatcher(*a.Word.Tag)
		}
	}
	return err
}

func tagMatcher(tok string) (*StringMatcher, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(tok, "<"), ">")
	return NewStringMatcher(inner, true, true)
}

func (t *notationText) matcher(caseSensitive bool) (*StringMatcher, error) {
	if t.Literal != nil {
		s, err := strconv.Unquote(*t.Literal)
		if err != nil {
			return nil, fmt.Errorf("literal %s: %w", *t.Literal, err)
		}
		return NewStringMatcher(s, false, caseSensitive)
	}
	re := (*t.Regex)[1 : len(*t.Regex)-1]
	re = strings.ReplaceAll(re, `\/`, `/`)
	return NewStringMatcher(re, true, caseSensitive)
}
