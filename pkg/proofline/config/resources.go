// Package config loads the resource files of a language (abbreviations,
// multiword dictionary, lexicon, rule catalogs) and the engine settings.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/store"
)

// Abbreviations is the list of abbreviations that do not end a sentence.
type Abbreviations struct {
	Terms []string `yaml:"terms"`
}

// LoadAbbreviations loads abbreviations from a YAML file.
func LoadAbbreviations(path string) (*Abbreviations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, internalerr.Wrapf(err, internalerr.CodeConfigLoad, "read abbreviations %s", path)
	}

	var ab Abbreviations
	if err := yaml.Unmarshal(data, &ab); err != nil {
		return nil, internalerr.Wrapf(err, internalerr.CodeConfigParse, "parse abbreviations %s", path)
	}

	return &ab, nil
}

// Dict is the multiword dictionary.
type Dict struct {
	Entries []DictEntry
}

// DictEntry is a multiword expression, its spelling variants and the tag
// its span receives.
type DictEntry struct {
	Phrase   string
	Variants []string
	Tag      string
}

// Phrases flattens the dictionary into chunker phrases, one per spelling.
func (d *Dict) Phrases() []store.Phrase {
	var out []store.Phrase
	for _, e := range d.Entries {
		out = append(out, store.Phrase{Text: e.Phrase, Tag: e.Tag})
		for _, v := range e.Variants {
			out = append(out, store.Phrase{Text: v, Tag: e.Tag})
		}
	}
	return out
}

// LoadDict loads the multiword dictionary from a file.
// Format: phrase|variant1|variant2|tag
func LoadDict(path string) (*Dict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, internalerr.Wrapf(err, internalerr.CodeConfigLoad, "read dictionary %s", path)
	}
	return ParseDict(string(data)), nil
}

// ParseDict parses dictionary lines. Blank lines, comments and lines
// without a tag are skipped.
func ParseDict(data string) *Dict {
	dict := &Dict{Entries: []DictEntry{}}
	lines := strings.Split(data, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			continue
		}

		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		entry := DictEntry{
			Phrase:   parts[0],
			Variants: parts[1 : len(parts)-1],
			Tag:      parts[len(parts)-1],
		}
		if entry.Phrase == "" || entry.Tag == "" {
			continue
		}

		dict.Entries = append(dict.Entries, entry)
	}

	return dict
}
