package store

import "context"

// Store persists the lexical resources the pipeline reads at startup:
// word forms with their readings and the multiword phrase list.
type Store interface {
	Close() error

	// Lexicon
	UpsertEntry(ctx context.Context, e Entry) error
	UpsertEntries(ctx context.Context, entries []Entry) error
	Lookup(ctx context.Context, form string) ([]Entry, error)
	ByLemma(ctx context.Context, lemma string) ([]Entry, error)
	Each(ctx context.Context, fn func(Entry) error) error
	Count(ctx context.Context) (int64, error)

	// Multiword phrases
	UpsertPhrase(ctx context.Context, p Phrase) error
	Phrases(ctx context.Context) ([]Phrase, error)
}

// Entry is one reading of a word form.
type Entry struct {
	Form  string
	Lemma string
	Tag   string
}

// Phrase is a multiword expression and the tag its span receives.
type Phrase struct {
	Text string
	Tag  string
}
