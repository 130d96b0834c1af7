package sqlite

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/store"
)

// sqliteStore implements store.Store on SQLite.
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) a lexicon database with WAL
// mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, internalerr.Wrapf(err, internalerr.CodeStore, "open %s", path)
	}

	// WAL lets concurrent readers share the lexicon while an import runs.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, internalerr.Wrap(err, internalerr.CodeStore, "enable WAL")
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, internalerr.Wrap(err, internalerr.CodeStore, "init schema")
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS lexicon (
	form TEXT NOT NULL,
	lemma TEXT NOT NULL DEFAULT '',
	tag TEXT NOT NULL DEFAULT '',
	PRIMARY KEY(form, lemma, tag)
);

CREATE INDEX IF NOT EXISTS idx_lexicon_lemma ON lexicon(lemma);

CREATE TABLE IF NOT EXISTS phrases (
	key TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	tag TEXT NOT NULL DEFAULT ''
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

const insertEntry = `INSERT INTO lexicon (form, lemma, tag) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`

// UpsertEntry inserts an entry; duplicates are ignored.
func (s *sqliteStore) UpsertEntry(ctx context.Context, e store.Entry) error {
	if e.Form == "" {
		return internalerr.New(internalerr.CodeInvalidInput, "entry form cannot be empty")
	}
	if _, err := s.db.ExecContext(ctx, insertEntry, e.Form, e.Lemma, e.Tag); err != nil {
		return internalerr.Wrap(err, internalerr.CodeStore, "insert entry")
	}
	return nil
}

// UpsertEntries inserts entries in a single transaction.
func (s *sqliteStore) UpsertEntries(ctx context.Context, entries []store.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return internalerr.Wrap(err, internalerr.CodeStore, "begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertEntry)
	if err != nil {
		return internalerr.Wrap(err, internalerr.CodeStore, "prepare insert")
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.Form == "" {
			return internalerr.New(internalerr.CodeInvalidInput, "entry form cannot be empty")
		}
		if _, err := stmt.ExecContext(ctx, e.Form, e.Lemma, e.Tag); err != nil {
			return internalerr.Wrap(err, internalerr.CodeStore, "insert entry")
		}
	}
	if err := tx.Commit(); err != nil {
		return internalerr.Wrap(err, internalerr.CodeStore, "commit")
	}
	return nil
}

// Lookup returns the entries of an exact form.
func (s *sqliteStore) Lookup(ctx context.Context, form string) ([]store.Entry, error) {
	return s.query(ctx, `SELECT form, lemma, tag FROM lexicon WHERE form=? ORDER BY rowid`, form)
}

// ByLemma returns all entries with the given lemma.
func (s *sqliteStore) ByLemma(ctx context.Context, lemma string) ([]store.Entry, error) {
	return s.query(ctx, `SELECT form, lemma, tag FROM lexicon WHERE lemma=? ORDER BY rowid`, lemma)
}

func (s *sqliteStore) query(ctx context.Context, q string, arg string) ([]store.Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, internalerr.Wrap(err, internalerr.CodeStore, "query lexicon")
	}
	defer rows.Close()

	var out []store.Entry
	for rows.Next() {
		var e store.Entry
		if err := rows.Scan(&e.Form, &e.Lemma, &e.Tag); err != nil {
			return nil, internalerr.Wrap(err, internalerr.CodeStore, "scan entry")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Each streams every entry ordered by form.
func (s *sqliteStore) Each(ctx context.Context, fn func(store.Entry) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT form, lemma, tag FROM lexicon ORDER BY form, rowid`)
	if err != nil {
		return internalerr.Wrap(err, internalerr.CodeStore, "scan lexicon")
	}
	defer rows.Close()

	for rows.Next() {
		var e store.Entry
		if err := rows.Scan(&e.Form, &e.Lemma, &e.Tag); err != nil {
			return internalerr.Wrap(err, internalerr.CodeStore, "scan entry")
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count returns the number of entries.
func (s *sqliteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lexicon`).Scan(&n); err != nil {
		return 0, internalerr.Wrap(err, internalerr.CodeStore, "count lexicon")
	}
	return n, nil
}

// UpsertPhrase inserts or retags a phrase, keyed case-insensitively.
func (s *sqliteStore) UpsertPhrase(ctx context.Context, p store.Phrase) error {
	key := phraseKey(p.Text)
	if key == "" {
		return internalerr.New(internalerr.CodeInvalidInput, "phrase cannot be empty")
	}
	const stmt = `
INSERT INTO phrases (key, text, tag) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET text=excluded.text, tag=excluded.tag
`
	if _, err := s.db.ExecContext(ctx, stmt, key, p.Text, p.Tag); err != nil {
		return internalerr.Wrap(err, internalerr.CodeStore, "upsert phrase")
	}
	return nil
}

// Phrases returns all phrases sorted by text.
func (s *sqliteStore) Phrases(ctx context.Context) ([]store.Phrase, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT text, tag FROM phrases ORDER BY text`)
	if err != nil {
		return nil, internalerr.Wrap(err, internalerr.CodeStore, "query phrases")
	}
	defer rows.Close()

	var out []store.Phrase
	for rows.Next() {
		var p store.Phrase
		if err := rows.Scan(&p.Text, &p.Tag); err != nil {
			return nil, internalerr.Wrap(err, internalerr.CodeStore, "scan phrase")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func phraseKey(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
