// Package report turns rule matches into the JSON result document served by
// the HTTP endpoint and printed by the CLI.
package report

import (
	"crypto/rand"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/proofline/pkg/proofline/rules"
)

// APIVersion is the version of the document layout.
const APIVersion = 1

// DefaultContextSize is the number of runes shown on each side of a match.
const DefaultContextSize = 40

// Builder constructs reports. It is safe for concurrent use.
type Builder struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy

	// Software names the producer in every report.
	Software Software
	// ContextSize overrides DefaultContextSize when positive.
	ContextSize int
}

// New creates a report builder for the given software version.
func New(version string) *Builder {
	return &Builder{
		entropy:  ulid.Monotonic(rand.Reader, 0),
		Software: Software{Name: "proofline", Version: version, APIVersion: APIVersion},
	}
}

// Report is the check result for one document.
type Report struct {
	ID       string   `json:"id"`
	Software Software `json:"software"`
	Warnings Warnings `json:"warnings"`
	Language Language `json:"language"`
	Matches  []Match  `json:"matches"`
}

// Software identifies the producer.
type Software struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	APIVersion int    `json:"apiVersion"`
}

// Warnings flags partial results.
type Warnings struct {
	IncompleteResults       bool   `json:"incompleteResults"`
	IncompleteResultsReason string `json:"incompleteResultsReason,omitempty"`
}

// Language is the language the text was checked in.
type Language struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Match is one reported error. Offset and Length count characters (runes)
// of the checked text; an invalid UTF-8 byte counts as one character.
type Match struct {
	Message      string        `json:"message"`
	ShortMessage string        `json:"shortMessage,omitempty"`
	Replacements []Replacement `json:"replacements"`
	Offset       int           `json:"offset"`
	Length       int           `json:"length"`
	Context      Context       `json:"context"`
	Sentence     string        `json:"sentence,omitempty"`
	Rule         Rule          `json:"rule"`
}

// Replacement is a suggested correction.
type Replacement struct {
	Value string `json:"value"`
}

// Context is an excerpt of the text around the match. Offset is relative
// to Text and, like Length, counts characters.
type Context struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

// Rule identifies the rule behind a match.
type Rule struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Category    Category `json:"category"`
}

// Category groups rules.
type Category struct {
	ID string `json:"id,omitempty"`
}

// Build creates the report for matches found in text. Matches must carry
// absolute offsets into text.
func (b *Builder) Build(lang Language, text string, matches []rules.RuleMatch) Report {
	r := Report{
		ID:       b.newID(),
		Software: b.Software,
		Language: lang,
		Matches:  make([]Match, 0, len(matches)),
	}
	size := b.ContextSize
	if size <= 0 {
		size = DefaultContextSize
	}

	var chars charIndex
	for _, m := range matches {
		start, end := clampSpan(text, m.Start, m.End)
		offset := chars.at(text, start)
		out := Match{
			Message:      m.Message,
			ShortMessage: m.ShortMessage,
			Replacements: make([]Replacement, 0, len(m.Suggestions)),
			Offset:       offset,
			Length:       utf8.RuneCountInString(text[start:end]),
			Context:      excerpt(text, start, end, size),
			Rule: Rule{
				ID:          m.RuleID,
				Description: m.Description,
				Category:    Category{ID: m.Category},
			},
		}
		for _, s := range m.Suggestions {
			out.Replacements = append(out.Replacements, Replacement{Value: s})
		}
		if m.Sentence != nil {
			out.Sentence = strings.TrimSpace(m.Sentence.Text())
		}
		r.Matches = append(r.Matches, out)
	}
	return r
}

// Incomplete marks r as partial.
func (r *Report) Incomplete(reason string) {
	r.Warnings = Warnings{IncompleteResults: true, IncompleteResultsReason: reason}
}

func (b *Builder) newID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ulid.MustNew(ulid.Now(), b.entropy).String()
}

// charIndex converts byte offsets into character offsets. Matches arrive
// ordered by start, so counting resumes from the previous position.
type charIndex struct {
	byteOff, charOff int
}

func (c *charIndex) at(text string, pos int) int {
	if pos < c.byteOff {
		c.byteOff, c.charOff = 0, 0
	}
	c.charOff += utf8.RuneCountInString(text[c.byteOff:pos])
	c.byteOff = pos
	return c.charOff
}

// clampSpan limits start..end to text.
func clampSpan(text string, start, end int) (int, int) {
	start = min(max(start, 0), len(text))
	end = min(max(end, start), len(text))
	return start, end
}

// excerpt cuts up to size runes of text on each side of start..end. Line
// breaks become spaces and cut ends are marked with "...". The returned
// offset and length count characters.
func excerpt(text string, start, end, size int) Context {
	start, end = clampSpan(text, start, end)

	from := start
	for n := 0; n < size && from > 0; n++ {
		_, w := utf8.DecodeLastRuneInString(text[:from])
		from -= w
	}
	to := end
	for n := 0; n < size && to < len(text); n++ {
		_, w := utf8.DecodeRuneInString(text[to:])
		to += w
	}

	var b strings.Builder
	offset := utf8.RuneCountInString(text[from:start])
	if from > 0 {
		b.WriteString("...")
		offset += 3
	}
	b.WriteString(flatten(text[from:to]))
	if to < len(text) {
		b.WriteString("...")
	}
	return Context{Text: b.String(), Offset: offset, Length: utf8.RuneCountInString(text[start:end])}
}

var lineBreaks = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")

// flatten replaces line breaks and tabs byte for byte with spaces.
func flatten(s string) string {
	return lineBreaks.Replace(s)
}
