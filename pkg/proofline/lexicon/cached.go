package lexicon

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/store"
)

// DefaultCacheSize is the number of forms a Cached tagger remembers.
const DefaultCacheSize = 50000

// Source resolves a form to its readings on demand.
type Source interface {
	Readings(ctx context.Context, form string) ([]analysis.Reading, error)
}

// StoreSource reads readings straight from a lexicon store.
type StoreSource struct {
	Store store.Store
}

// Readings implements Source.
func (s StoreSource) Readings(ctx context.Context, form string) ([]analysis.Reading, error) {
	entries, err := s.Store.Lookup(ctx, form)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	out := make([]analysis.Reading, len(entries))
	for i, e := range entries {
		out[i] = analysis.Reading{Lemma: e.Lemma, Tag: e.Tag}
	}
	return out, nil
}

// Cached is a Tagger and Dictionary over a Source that keeps recently seen
// forms in an LRU cache. Misses are cached too.
type Cached struct {
	src   Source
	cache *lru.Cache[string, []analysis.Reading]
}

// NewCached wraps src with an LRU cache of size entries. A size <= 0 uses
// DefaultCacheSize.
func NewCached(src Source, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []analysis.Reading](size)
	if err != nil {
		return nil, err
	}
	return &Cached{src: src, cache: cache}, nil
}

func (c *Cached) lookup(ctx context.Context, form string) ([]analysis.Reading, error) {
	if rs, ok := c.cache.Get(form); ok {
		return rs, nil
	}
	rs, err := c.src.Readings(ctx, form)
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		if lower := strings.ToLower(form); lower != form {
			if rs, err = c.src.Readings(ctx, lower); err != nil {
				return nil, err
			}
		}
	}
	c.cache.Add(form, rs)
	return rs, nil
}

// Tag implements analysis.Tagger.
func (c *Cached) Tag(tokens []string) ([][]analysis.Reading, error) {
	return c.TagContext(context.Background(), tokens)
}

// TagContext tags tokens, stopping at the first source error.
func (c *Cached) TagContext(ctx context.Context, tokens []string) ([][]analysis.Reading, error) {
	out := make([][]analysis.Reading, len(tokens))
	for i, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		rs, err := c.lookup(ctx, tok)
		if err != nil {
			return nil, err
		}
		out[i] = rs
	}
	return out, nil
}

// IsKnown implements analysis.Dictionary. Source errors count as unknown.
func (c *Cached) IsKnown(word string) bool {
	rs, err := c.lookup(context.Background(), word)
	if err == nil && len(rs) > 0 {
		return true
	}
	if lower := strings.ToLower(word); lower != word {
		rs, err = c.lookup(context.Background(), lower)
		return err == nil && len(rs) > 0
	}
	return false
}

// Len returns the number of cached forms.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Synthesize implements pattern.Synthesizer over the lemma index of the
// store.
func (s StoreSource) Synthesize(lemma, tagRegex string) ([]string, error) {
	entries, err := s.Store.ByLemma(context.Background(), lemma)
	if err != nil {
		return nil, err
	}
	return FromEntries(entries).Synthesize(lemma, tagRegex)
}
