package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu      sync.RWMutex
	forms   map[string][]store.Entry
	lemmas  map[string][]store.Entry
	phrases map[string]store.Phrase
	count   int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		forms:   make(map[string][]store.Entry),
		lemmas:  make(map[string][]store.Entry),
		phrases: make(map[string]store.Phrase),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertEntry adds an entry; adding the same entry twice is a no-op.
func (s *Store) UpsertEntry(ctx context.Context, e store.Entry) error {
	if e.Form == "" {
		return internalerr.New(internalerr.CodeInvalidInput, "entry form cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(e)
	return nil
}

// UpsertEntries adds entries in one batch.
func (s *Store) UpsertEntries(ctx context.Context, entries []store.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.Form == "" {
			return internalerr.New(internalerr.CodeInvalidInput, "entry form cannot be empty")
		}
		s.upsertLocked(e)
	}
	return nil
}

func (s *Store) upsertLocked(e store.Entry) {
	for _, existing := range s.forms[e.Form] {
		if existing == e {
			return
		}
	}
	s.forms[e.Form] = append(s.forms[e.Form], e)
	if e.Lemma != "" {
		s.lemmas[e.Lemma] = append(s.lemmas[e.Lemma], e)
	}
	s.count++
}

// Lookup returns the entries of an exact form.
func (s *Store) Lookup(ctx context.Context, form string) ([]store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Entry(nil), s.forms[form]...), nil
}

// ByLemma returns all entries with the given lemma.
func (s *Store) ByLemma(ctx context.Context, lemma string) ([]store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Entry(nil), s.lemmas[lemma]...), nil
}

// Each calls fn for every entry, ordered by form.
func (s *Store) Each(ctx context.Context, fn func(store.Entry) error) error {
	s.mu.RLock()
	forms := make([]string, 0, len(s.forms))
	for f := range s.forms {
		forms = append(forms, f)
	}
	sort.Strings(forms)
	var all []store.Entry
	for _, f := range forms {
		all = append(all, s.forms[f]...)
	}
	s.mu.RUnlock()

	for _, e := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count, nil
}

// UpsertPhrase adds or retags a phrase. Phrases are keyed case-insensitively.
func (s *Store) UpsertPhrase(ctx context.Context, p store.Phrase) error {
	key := strings.ToLower(strings.TrimSpace(p.Text))
	if key == "" {
		return internalerr.New(internalerr.CodeInvalidInput, "phrase cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phrases[key] = p
	return nil
}

// Phrases returns all phrases sorted by text.
func (s *Store) Phrases(ctx context.Context) ([]store.Phrase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Phrase, 0, len(s.phrases))
	for _, p := range s.phrases {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out, nil
}
