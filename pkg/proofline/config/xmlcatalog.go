package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/dlclark/regexp2"

	"github.com/cognicore/proofline/pkg/proofline/disambig"
	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/pattern"
	"github.com/cognicore/proofline/pkg/proofline/rules"
)

// LoadCatalogXML loads a grammar.xml style rule file: categories holding
// rules and rule groups, with optional phrases and unification blocks.
// Constructs outside the supported subset (<and>, <or>, token references)
// skip the affected rule.
func LoadCatalogXML(path string, lo LoadOptions) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, internalerr.Wrapf(err, internalerr.CodeCatalogLoad, "read catalog %s", path)
	}
	cat, err := ParseCatalogXML(data, lo)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalogXML is LoadCatalogXML over an in-memory document.
func ParseCatalogXML(data []byte, lo LoadOptions) (*Catalog, error) {
	root, cat, err := parseXMLCatalog(data)
	if err != nil {
		return nil, err
	}
	for _, category := range childElements(root, "category") {
		catID := category.SelectAttr("id")
		if catID == "" {
			catID = category.SelectAttr("name")
		}
		catOff := category.SelectAttr("default") == "off"
		for _, n := range childElements(category, "") {
			switch n.Data {
			case "rule":
				cat.addXMLRule(n, n.SelectAttr("id"), n.SelectAttr("name"), catID, catOff, nil, lo)
			case "rulegroup":
				cat.addXMLRuleGroup(n, catID, catOff, lo)
			}
		}
	}
	return cat, nil
}

// LoadDisambiguationXML loads a disambiguation.xml style file. Rules keep
// document order.
func LoadDisambiguationXML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, internalerr.Wrapf(err, internalerr.CodeCatalogLoad, "read disambiguation %s", path)
	}
	cat, err := ParseDisambiguationXML(data)
	if err != nil {
		return nil, fmt.Errorf("disambiguation %s: %w", path, err)
	}
	return cat, nil
}

// ParseDisambiguationXML is LoadDisambiguationXML over an in-memory
// document.
func ParseDisambiguationXML(data []byte) (*Catalog, error) {
	root, cat, err := parseXMLCatalog(data)
	if err != nil {
		return nil, err
	}
	for _, n := range childElements(root, "") {
		switch n.Data {
		case "rule":
			cat.addXMLDisambiguation(n, n.SelectAttr("id"), nil)
		case "rulegroup":
			groupID := n.SelectAttr("id")
			anti, err := xmlAntipatterns(n)
			if err != nil {
				cat.Rules.Skip(groupID, err)
				continue
			}
			members := childElements(n, "rule")
			for i, r := range members {
				cat.addXMLDisambiguation(r, memberID(groupID, r, i, len(members)), anti)
			}
		}
	}
	return cat, nil
}

// parseXMLCatalog parses the document and the shared phrase and
// unification definitions.
func parseXMLCatalog(data []byte) (*xmlquery.Node, *Catalog, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, internalerr.Wrap(err, internalerr.CodeCatalogParse, "parse XML")
	}
	root := xmlquery.FindOne(doc, "/rules")
	if root == nil {
		return nil, nil, internalerr.New(internalerr.CodeCatalogParse, "missing <rules> root")
	}
	cat := newCatalog(root.SelectAttr("lang"))

	for _, u := range xmlquery.Find(root, "//unification") {
		feature := u.SelectAttr("feature")
		for _, eq := range childElements(u, "equivalence") {
			tok := xmlquery.FindOne(eq, "./token")
			if tok == nil {
				continue
			}
			pos := tok.SelectAttr("postag")
			if tok.SelectAttr("postag_regexp") != "yes" {
				pos = regexp2.Escape(pos)
			}
			if err := cat.Unifier.Define(feature, eq.SelectAttr("type"), pos); err != nil {
				return nil, nil, internalerr.Wrap(err, internalerr.CodeCatalogParse, "unification")
			}
		}
	}
	for _, ph := range xmlquery.Find(root, "//phrases/phrase") {
		id := ph.SelectAttr("id")
		seq, err := xmlElements(ph, false)
		if err == nil {
			err = cat.Phrases.Add(id, seq)
		}
		if err != nil {
			return nil, nil, internalerr.Wrapf(err, internalerr.CodeCatalogParse, "phrase %s", id)
		}
	}
	return root, cat, nil
}

func (c *Catalog) addXMLRuleGroup(g *xmlquery.Node, category string, off bool, lo LoadOptions) {
	groupID := g.SelectAttr("id")
	anti, err := xmlAntipatterns(g)
	if err != nil {
		c.Rules.Skip(groupID, err)
		return
	}
	off = off || g.SelectAttr("default") == "off"
	members := childElements(g, "rule")
	for i, r := range members {
		name := r.SelectAttr("name")
		if name == "" {
			name = g.SelectAttr("name")
		}
		c.addXMLRule(r, memberID(groupID, r, i, len(members)), name, category, off, anti, lo)
	}
}

// memberID names the i-th of n rules of a group.
func memberID(groupID string, r *xmlquery.Node, i, n int) string {
	if id := r.SelectAttr("id"); id != "" {
		return id
	}
	if n == 1 {
		return groupID
	}
	return fmt.Sprintf("%s[%d]", groupID, i+1)
}

func (c *Catalog) addXMLRule(n *xmlquery.Node, id, name, category string, off bool, groupAnti [][]pattern.Element, lo LoadOptions) {
	spec, err := xmlRuleSpec(n, groupAnti)
	if err != nil {
		c.Rules.Skip(id, err)
		return
	}
	spec.Meta = rules.Meta{
		ID:          id,
		Description: name,
		Category:    category,
		DefaultOff:  off || n.SelectAttr("default") == "off",
	}
	if _, err := c.Rules.AddPattern(spec, c.options(), lo.Synthesizer); err != nil {
		c.Rules.Skip(id, err)
	}
}

func xmlRuleSpec(n *xmlquery.Node, groupAnti [][]pattern.Element) (rules.PatternRuleSpec, error) {
	var spec rules.PatternRuleSpec
	p := xmlquery.FindOne(n, "./pattern")
	if p == nil {
		return spec, internalerr.New(internalerr.CodeRuleInvalid, "rule without <pattern>")
	}
	elements, err := xmlElements(p, p.SelectAttr("case_sensitive") == "yes")
	if err != nil {
		return spec, err
	}
	anti, err := xmlAntipatterns(n)
	if err != nil {
		return spec, err
	}
	spec.Elements = elements
	spec.Antipatterns = append(append([][]pattern.Element{}, groupAnti...), anti...)
	spec.Policy = rules.PolicyAll

	if m := xmlquery.FindOne(n, "./message"); m != nil {
		spec.Message = strings.TrimSpace(innerXML(m))
	}
	if s := xmlquery.FindOne(n, "./short"); s != nil {
		spec.ShortMessage = strings.TrimSpace(innerXML(s))
	}
	for _, s := range childElements(n, "suggestion") {
		spec.Suggestions = append(spec.Suggestions, innerXML(s))
	}
	for _, ex := range childElements(n, "example") {
		correction := ex.SelectAttr("correction")
		spec.Examples = append(spec.Examples, rules.Example{
			Text:       innerXML(ex),
			Incorrect:  correction != "" || ex.SelectAttr("type") == "incorrect",
			Correction: correction,
		})
	}
	return spec, nil
}

func (c *Catalog) addXMLDisambiguation(n *xmlquery.Node, id string, groupAnti [][]pattern.Element) {
	spec, err := xmlDisambiguationSpec(n, groupAnti)
	if err != nil {
		c.Rules.Skip(id, err)
		return
	}
	spec.ID = id
	c.addDisambiguation(spec)
}

func xmlDisambiguationSpec(n *xmlquery.Node, groupAnti [][]pattern.Element) (disambig.PatternSpec, error) {
	var spec disambig.PatternSpec
	p := xmlquery.FindOne(n, "./pattern")
	d := xmlquery.FindOne(n, "./disambig")
	if p == nil || d == nil {
		return spec, internalerr.New(internalerr.CodeRuleInvalid, "rule needs <pattern> and <disambig>")
	}
	elements, err := xmlElements(p, p.SelectAttr("case_sensitive") == "yes")
	if err != nil {
		return spec, err
	}
	anti, err := xmlAntipatterns(n)
	if err != nil {
		return spec, err
	}
	action, err := disambig.ParseAction(d.SelectAttr("action"))
	if err != nil {
		return spec, err
	}
	spec.Elements = elements
	spec.Antipatterns = append(append([][]pattern.Element{}, groupAnti...), anti...)
	spec.Action = action
	spec.POS = d.SelectAttr("postag")
	if wd := xmlquery.FindOne(d, "./wd"); wd != nil {
		spec.Lemma = wd.SelectAttr("lemma")
		if spec.POS == "" {
			spec.POS = wd.SelectAttr("pos")
		}
	}
	if m := xmlquery.FindOne(d, "./match"); m != nil && spec.POS == "" {
		spec.POS = m.SelectAttr("postag")
	}
	return spec, nil
}

func xmlAntipatterns(n *xmlquery.Node) ([][]pattern.Element, error) {
	var out [][]pattern.Element
	for _, a := range childElements(n, "antipattern") {
		elements, err := xmlElements(a, a.SelectAttr("case_sensitive") == "yes")
		if err != nil {
			return nil, fmt.Errorf("antipattern: %w", err)
		}
		out = append(out, elements)
	}
	return out, nil
}

// xmlElements converts the tokens under a pattern-like node, descending
// into <marker> and <unify>.
func xmlElements(n *xmlquery.Node, caseSensitive bool) ([]pattern.Element, error) {
	var out []pattern.Element
	var walk func(n *xmlquery.Node, marker bool, unify []string) error
	walk = func(n *xmlquery.Node, marker bool, unify []string) error {
		for _, child := range childElements(n, "") {
			switch child.Data {
			case "token":
				e, err := xmlToken(child, caseSensitive)
				if err != nil {
					return err
				}
				e.Marker = marker
				e.Unify = unify
				out = append(out, e)
			case "phraseref":
				out = append(out, pattern.Element{Phrase: child.SelectAttr("idref"), Marker: marker})
			case "marker":
				if err := walk(child, true, unify); err != nil {
					return err
				}
			case "unify":
				var features []string
				for _, f := range childElements(child, "feature") {
					features = append(features, f.SelectAttr("id"))
				}
				if err := walk(child, marker, features); err != nil {
					return err
				}
			case "unify-ignore":
				if err := walk(child, marker, nil); err != nil {
					return err
				}
			case "feature":
			case "and", "or":
				return internalerr.Newf(internalerr.CodeRuleUnsupported, "<%s> token groups", child.Data)
			default:
				return internalerr.Newf(internalerr.CodeRuleInvalid, "unexpected <%s> in pattern", child.Data)
			}
		}
		return nil
	}
	if err := walk(n, false, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func xmlToken(n *xmlquery.Node, caseSensitive bool) (pattern.Element, error) {
	var e pattern.Element
	var err error
	if text := ownText(n); text != "" {
		if e.Text, err = pattern.NewStringMatcher(text, yes(n, "regexp"), caseSensitive); err != nil {
			return e, internalerr.Wrap(err, internalerr.CodeRuleUnsupported, "token text")
		}
	}
	if pos := n.SelectAttr("postag"); pos != "" {
		if e.POS, err = pattern.NewStringMatcher(pos, yes(n, "postag_regexp"), true); err != nil {
			return e, internalerr.Wrap(err, internalerr.CodeRuleUnsupported, "token postag")
		}
	}
	if chunk := n.SelectAttr("chunk"); chunk != "" {
		if e.Chunk, err = pattern.NewStringMatcher(chunk, yes(n, "chunk_re"), true); err != nil {
			return e, internalerr.Wrap(err, internalerr.CodeRuleUnsupported, "token chunk")
		}
	}
	e.Inflected = yes(n, "inflected")
	e.Negate = yes(n, "negate")
	e.NegatePOS = yes(n, "negate_pos")
	if e.Skip, err = intAttr(n, "skip", 0); err != nil {
		return e, err
	}
	if n.SelectAttr("min") != "" || n.SelectAttr("max") != "" {
		if e.Min, err = intAttr(n, "min", 1); err != nil {
			return e, err
		}
		if e.Max, err = intAttr(n, "max", 1); err != nil {
			return e, err
		}
	}
	if m := xmlquery.FindOne(n, "./match"); m != nil {
		e.Ref, _ = strconv.Atoi(m.SelectAttr("no"))
		if e.Ref == 0 {
			e.Ref = -1
		}
	}

	for _, x := range childElements(n, "exception") {
		ex := pattern.Exception{
			Inflected: yes(x, "inflected"),
			Negate:    yes(x, "negate"),
			NegatePOS: yes(x, "negate_pos"),
		}
		switch x.SelectAttr("scope") {
		case "next":
			ex.Scope = pattern.ScopeNext
		case "previous":
			ex.Scope = pattern.ScopePrevious
		}
		if text := ownText(x); text != "" {
			if ex.Text, err = pattern.NewStringMatcher(text, yes(x, "regexp"), caseSensitive || yes(x, "case_sensitive")); err != nil {
				return e, internalerr.Wrap(err, internalerr.CodeRuleUnsupported, "exception text")
			}
		}
		if pos := x.SelectAttr("postag"); pos != "" {
			if ex.POS, err = pattern.NewStringMatcher(pos, yes(x, "postag_regexp"), true); err != nil {
				return e, internalerr.Wrap(err, internalerr.CodeRuleUnsupported, "exception postag")
			}
		}
		e.Exceptions = append(e.Exceptions, ex)
	}
	return e, nil
}

func yes(n *xmlquery.Node, attr string) bool {
	return n.SelectAttr(attr) == "yes"
}

func intAttr(n *xmlquery.Node, attr string, def int) (int, error) {
	v := n.SelectAttr(attr)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, internalerr.Newf(internalerr.CodeRuleInvalid, "attribute %s=%q is not a number", attr, v)
	}
	return i, nil
}

// childElements returns the element children of n, restricted to name
// when it is set.
func childElements(n *xmlquery.Node, name string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && (name == "" || c.Data == name) {
			out = append(out, c)
		}
	}
	return out
}

// ownText is the trimmed text of n without the text of child elements.
func ownText(n *xmlquery.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

// innerXML serializes the children of n back into template syntax: text
// is written unescaped, elements keep their tags and empty elements
// self-close.
func innerXML(n *xmlquery.Node) string {
	var b strings.Builder
	var write func(n *xmlquery.Node)
	write = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case xmlquery.TextNode, xmlquery.CharDataNode:
				b.WriteString(c.Data)
			case xmlquery.ElementNode:
				b.WriteString("<" + c.Data)
				for _, a := range c.Attr {
					fmt.Fprintf(&b, " %s=%q", a.Name.Local, a.Value)
				}
				if c.FirstChild == nil {
					b.WriteString("/>")
					continue
				}
				b.WriteString(">")
				write(c)
				b.WriteString("</" + c.Data + ">")
			}
		}
	}
	write(n)
	return b.String()
}
