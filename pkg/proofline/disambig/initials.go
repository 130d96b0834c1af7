package disambig

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
)

// Initials retags name initials next to a last name. "A. B. Smith" and
// "Smith A. B." get first name and patronymic readings on "A" and "B",
// derived from the last name's reading by swapping the tag part.
type Initials struct {
	// LastName is the tag part marking last name readings, e.g. "lname".
	LastName string
	// FirstName and Patronymic replace LastName in the derived tags.
	FirstName  string
	Patronymic string
}

// DefaultInitials uses the lname/fname/pname tag parts.
func DefaultInitials() Initials {
	return Initials{LastName: "lname", FirstName: "fname", Patronymic: "pname"}
}

// ID implements Rule.
func (in Initials) ID() string { return "INITIALS" }

// initial is one recognized initial: the token carrying the letter and
// the last non-blank position it spans.
type initial struct {
	tok  int
	last int
}

// Apply implements Rule.
func (in Initials) Apply(s *analysis.Sentence) *analysis.Sentence {
	if in.LastName == "" {
		return s
	}
	nb := s.NonBlank()
	ed := s.Edit()
	for p := 0; p < len(nb); {
		run := in.initialsAt(s, nb, p)
		if len(run) == 0 {
			p++
			continue
		}
		end := run[len(run)-1].last + 1
		lname := -1
		if end < len(nb) && s.Token(nb[end]).HasPartialTag(in.LastName) {
			lname = nb[end]
		} else if p > 0 && s.Token(nb[p-1]).HasPartialTag(in.LastName) {
			lname = nb[p-1]
		}
		if lname >= 0 {
			in.retag(ed, s.Token(lname), run)
		}
		p = end
	}
	return ed.Sentence()
}

// initialsAt collects up to two consecutive initials starting at
// non-blank position p.
func (in Initials) initialsAt(s *analysis.Sentence, nb []int, p int) []initial {
	var run []initial
	for len(run) < 2 && p < len(nb) {
		text := s.Token(nb[p]).Text
		switch {
		case isInitialLetter(text) && p+1 < len(nb) && s.Token(nb[p+1]).Text == ".":
			run = append(run, initial{tok: nb[p], last: p + 1})
			p += 2
		case isDottedInitial(text):
			run = append(run, initial{tok: nb[p], last: p})
			p++
		default:
			return run
		}
	}
	return run
}

func (in Initials) retag(ed *analysis.Editor, lname analysis.AnnotatedToken, run []initial) {
	var tag string
	for _, r := range lname.Readings() {
		if strings.Contains(r.Tag, in.LastName) {
			tag = r.Tag
			break
		}
	}
	for k, ini := range run {
		part := in.FirstName
		if k == 1 {
			part = in.Patronymic
		}
		if part == "" {
			continue
		}
		tok := ed.Token(ini.tok)
		lemma := strings.TrimSuffix(tok.Text, ".")
		r := analysis.Reading{Lemma: lemma, Tag: strings.Replace(tag, in.LastName, part, 1) + ":abbr"}
		ed.SetReadings(ini.tok, replaceWith(tok.Readings(), r))
	}
}

func isInitialLetter(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size == len(s) && size > 0 && unicode.IsUpper(r)
}

func isDottedInitial(s string) bool {
	return strings.HasSuffix(s, ".") && isInitialLetter(s[:len(s)-1])
}
