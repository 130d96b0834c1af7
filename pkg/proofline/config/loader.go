package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/disambig"
	"github.com/cognicore/proofline/pkg/proofline/language"
	"github.com/cognicore/proofline/pkg/proofline/lexicon"
	"github.com/cognicore/proofline/pkg/proofline/logging"
	"github.com/cognicore/proofline/pkg/proofline/pattern"
	"github.com/cognicore/proofline/pkg/proofline/rules"
	"github.com/cognicore/proofline/pkg/proofline/store"
	"github.com/cognicore/proofline/pkg/proofline/store/memstore"
	"github.com/cognicore/proofline/pkg/proofline/store/sqlite"
	"github.com/cognicore/proofline/pkg/proofline/tokenize"
)

// Loader loads all resource files of a language and constructs the
// pipeline components.
type Loader struct {
	Language  string
	Languages *language.Registry

	// SingleLineBreaksMarkParagraph overrides the language default when set.
	SingleLineBreaksMarkParagraph *bool

	AbbreviationsPath   string
	DictPath            string
	// LexiconPath is a YAML lexicon, or a .tsv dump loaded into memory.
	LexiconPath         string
	LexiconDB           string
	CatalogPaths        []string
	DisambiguationPaths []string
	CacheSize           int

	// BuiltinRules adds the word repetition and sentence start rules ahead
	// of the catalog rules.
	BuiltinRules bool
}

// LoaderFromSettings builds a loader for the resources named in s.
func LoaderFromSettings(s *Settings) *Loader {
	return &Loader{
		Language:                      s.Language,
		SingleLineBreaksMarkParagraph: s.SingleLineBreaksMarkParagraph,
		AbbreviationsPath:             s.Resources.Abbreviations,
		DictPath:                      s.Resources.Dict,
		LexiconPath:                   s.Resources.Lexicon,
		LexiconDB:                     s.Resources.LexiconDB,
		CatalogPaths:                  s.Resources.Catalogs,
		DisambiguationPaths:           s.Resources.Disambiguation,
		CacheSize:                     s.CacheSize,
		BuiltinRules:                  true,
	}
}

// Components holds the loaded pipeline pieces. Tagger, Dictionary and
// Synthesizer are nil when no lexicon is configured.
type Components struct {
	Language      *language.Language
	Sentences     *tokenize.SentenceTokenizer
	Words         *tokenize.WordTokenizer
	Tagger        analysis.Tagger
	Dictionary    analysis.Dictionary
	Synthesizer   pattern.Synthesizer
	Catalog       *Catalog
	Disambiguator *disambig.Disambiguator

	store store.Store
}

// Close releases the lexicon store, if any.
func (c *Components) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// useStore tags through a cached view of st and returns its phrases.
func (c *Components) useStore(ctx context.Context, st store.Store, cacheSize int) ([]store.Phrase, error) {
	src := lexicon.StoreSource{Store: st}
	cached, err := lexicon.NewCached(src, cacheSize)
	if err != nil {
		return nil, fmt.Errorf("lexicon cache: %w", err)
	}
	c.Tagger, c.Dictionary, c.Synthesizer = cached, cached, src
	phrases, err := st.Phrases(ctx)
	if err != nil {
		return nil, fmt.Errorf("load phrases: %w", err)
	}
	return phrases, nil
}

// loadTSV reads a form<TAB>lemma<TAB>tag dump into an in-memory store.
func loadTSV(ctx context.Context, path string) (store.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := lexicon.ReadTSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	st := memstore.New()
	if err := st.UpsertEntries(ctx, entries); err != nil {
		return nil, err
	}
	return st, nil
}

// Load reads all configuration files and returns initialized components.
func (l *Loader) Load(ctx context.Context) (_ *Components, err error) {
	logger := logging.GetLogger("config.loader")
	done := logging.LogOperationStart(logger, "load "+l.Language)
	defer func() { done(err) }()

	registry := l.Languages
	if registry == nil {
		registry = language.Default()
	}
	base, err := registry.Get(l.Language)
	if err != nil {
		return nil, err
	}
	lang := *base
	if l.SingleLineBreaksMarkParagraph != nil {
		lang.SingleLineBreaksMarkParagraph = *l.SingleLineBreaksMarkParagraph
	}
	comp := &Components{Language: &lang}
	defer func() {
		if err != nil {
			_ = comp.Close()
		}
	}()

	// Load abbreviations
	if l.AbbreviationsPath != "" {
		ab, err := LoadAbbreviations(l.AbbreviationsPath)
		if err != nil {
			return nil, fmt.Errorf("load abbreviations: %w", err)
		}
		lang.Abbreviations = append(append([]string{}, lang.Abbreviations...), ab.Terms...)
	}
	comp.Sentences = lang.SentenceTokenizer()

	// Load lexicon
	var phrases []store.Phrase
	switch {
	case l.LexiconDB != "":
		st, err := sqlite.OpenSQLite(ctx, l.LexiconDB)
		if err != nil {
			return nil, fmt.Errorf("open lexicon: %w", err)
		}
		comp.store = st
		if phrases, err = comp.useStore(ctx, st, l.CacheSize); err != nil {
			return nil, err
		}
	case strings.EqualFold(filepath.Ext(l.LexiconPath), ".tsv"):
		st, err := loadTSV(ctx, l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.store = st
		if phrases, err = comp.useStore(ctx, st, l.CacheSize); err != nil {
			return nil, err
		}
	case l.LexiconPath != "":
		lex, err := lexicon.LoadFromYAML(l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Tagger, comp.Dictionary, comp.Synthesizer = lex, lex, lex
		logger.Debug().Interface("stats", lex.Stats()).Msg("lexicon loaded")
	}
	comp.Words = lang.WordTokenizer(comp.Dictionary)

	// Load dictionary
	if l.DictPath != "" {
		dict, err := LoadDict(l.DictPath)
		if err != nil {
			return nil, fmt.Errorf("load dictionary: %w", err)
		}
		phrases = append(phrases, dict.Phrases()...)
	}

	// Load catalogs
	lo := LoadOptions{Synthesizer: comp.Synthesizer, Keyer: disambig.NewKeyer(lang.Enclitics...)}
	comp.Catalog = newCatalog(lang.Code)
	if l.BuiltinRules {
		for _, r := range []rules.Rule{
			rules.NewWordRepeatRule(),
			rules.NewUppercaseSentenceStartRule(),
		} {
			if err := comp.Catalog.Rules.Add(r); err != nil {
				return nil, err
			}
		}
	}
	for _, path := range l.CatalogPaths {
		cat, err := l.loadCatalog(path, lo)
		if err != nil {
			return nil, err
		}
		if err := comp.Catalog.Merge(cat); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
	}

	var steps []disambig.Rule
	if len(phrases) > 0 {
		steps = append(steps, disambig.NewMultiwordChunker(phrases, false))
	}
	for _, path := range l.DisambiguationPaths {
		cat, err := LoadDisambiguationXML(path)
		if err != nil {
			return nil, err
		}
		if err := comp.Catalog.Merge(cat); err != nil {
			return nil, fmt.Errorf("disambiguation %s: %w", path, err)
		}
	}
	steps = append(steps, comp.Catalog.Disambiguation...)
	comp.Disambiguator = disambig.New(steps...)

	logger.Info().
		Str("language", lang.Code).
		Int("rules", comp.Catalog.Rules.Len()).
		Int("skipped", len(comp.Catalog.Rules.Skipped())).
		Int("disambiguation", len(steps)).
		Msg("resources loaded")
	return comp, nil
}

func (l *Loader) loadCatalog(path string, lo LoadOptions) (*Catalog, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xml":
		return LoadCatalogXML(path, lo)
	case ".yaml", ".yml":
		return LoadCatalogYAML(path, lo)
	default:
		return nil, fmt.Errorf("catalog %s: unsupported format %q", path, ext)
	}
}
