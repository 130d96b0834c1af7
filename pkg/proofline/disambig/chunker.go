package disambig

import (
	"sort"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/store"
)

// MultiwordChunker marks known multiword expressions, e.g. "in spite of",
// with chunk boundary tags. Phrases are found with an Aho-Corasick
// automaton over the sentence text and kept only when they start and end
// on token boundaries. Overlapping candidates resolve leftmost-longest.
type MultiwordChunker struct {
	tags []string
	ac   ahocorasick.AhoCorasick
}

// NewMultiwordChunker builds the automaton for phrases. With ignoreCase
// ASCII letters match regardless of case.
func NewMultiwordChunker(phrases []store.Phrase, ignoreCase bool) *MultiwordChunker {
	c := &MultiwordChunker{}
	seen := make(map[string]bool, len(phrases))
	patterns := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p.Text == "" || p.Tag == "" || seen[p.Text] {
			continue
		}
		seen[p.Text] = true
		patterns = append(patterns, p.Text)
		c.tags = append(c.tags, p.Tag)
	}
	if len(patterns) == 0 {
		return c
	}
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: ignoreCase,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	c.ac = builder.Build(patterns)
	return c
}

// ID implements Rule.
func (c *MultiwordChunker) ID() string { return "MULTIWORD_CHUNKER" }

// Len is the number of phrases.
func (c *MultiwordChunker) Len() int { return len(c.tags) }

// Apply implements Rule.
func (c *MultiwordChunker) Apply(s *analysis.Sentence) *analysis.Sentence {
	if len(c.tags) == 0 {
		return s
	}
	starts := make(map[int]int, s.Len())
	ends := make(map[int]int, s.Len())
	for _, i := range s.NonBlank() {
		tok := s.Token(i)
		if tok.IsSentenceStart() {
			continue
		}
		if _, ok := starts[tok.Start]; !ok {
			starts[tok.Start] = i
		}
		ends[tok.End()] = i
	}

	matches := c.ac.FindAll(s.Text())
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Start() < matches[j].Start() })

	ed := s.Edit()
	for _, m := range matches {
		first, ok := starts[m.Start()]
		if !ok {
			continue
		}
		last, ok := ends[m.End()]
		if !ok || last < first {
			continue
		}
		tag := c.tags[m.Pattern()]
		ed.SetChunk(first, "<"+tag+">", "")
		ed.SetChunk(last, "", "</"+tag+">")
	}
	return ed.Sentence()
}
