package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cognicore/proofline/pkg/proofline/internalerr"
	"github.com/cognicore/proofline/pkg/proofline/store"
)

func openTemp(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "lexicon.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteIntegrationEntries(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	entries := []store.Entry{
		{Form: "walks", Lemma: "walk", Tag: "VBZ"},
		{Form: "walks", Lemma: "walk", Tag: "NNS"},
		{Form: "walked", Lemma: "walk", Tag: "VBD"},
	}
	if err := st.UpsertEntries(ctx, entries); err != nil {
		t.Fatalf("UpsertEntries: %v", err)
	}
	if err := st.UpsertEntry(ctx, entries[0]); err != nil {
		t.Fatalf("UpsertEntry duplicate: %v", err)
	}

	got, err := st.Lookup(ctx, "walks")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got) != 2 || got[0].Tag != "VBZ" || got[1].Tag != "NNS" {
		t.Errorf("Expected [VBZ NNS] in insertion order, got %+v", got)
	}

	byLemma, err := st.ByLemma(ctx, "walk")
	if err != nil {
		t.Fatalf("ByLemma: %v", err)
	}
	if len(byLemma) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(byLemma))
	}

	n, err := st.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Expected count 3, got %d (%v)", n, err)
	}

	missing, err := st.Lookup(ctx, "unknown")
	if err != nil || len(missing) != 0 {
		t.Errorf("Expected no entries, got %+v (%v)", missing, err)
	}
}

func TestSQLiteIntegrationRejectsEmptyForm(t *testing.T) {
	st := openTemp(t)
	err := st.UpsertEntry(context.Background(), store.Entry{Lemma: "x"})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestSQLiteIntegrationEach(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)
	for _, f := range []string{"zebra", "apple", "mango"} {
		if err := st.UpsertEntry(ctx, store.Entry{Form: f, Lemma: f, Tag: "NN"}); err != nil {
			t.Fatal(err)
		}
	}

	var forms []string
	if err := st.Each(ctx, func(e store.Entry) error {
		forms = append(forms, e.Form)
		return nil
	}); err != nil {
		t.Fatalf("Each: %v", err)
	}
	if fmt.Sprint(forms) != "[apple mango zebra]" {
		t.Errorf("Expected sorted forms, got %v", forms)
	}

	stop := errors.New("stop")
	err := st.Each(ctx, func(store.Entry) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("Expected callback error to propagate, got %v", err)
	}
}

func TestSQLiteIntegrationPhrases(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	if err := st.UpsertPhrase(ctx, store.Phrase{Text: "in front of", Tag: "IN"}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertPhrase(ctx, store.Phrase{Text: "In  Front of", Tag: "PREP"}); err != nil {
		t.Fatal(err)
	}

	got, err := st.Phrases(ctx)
	if err != nil {
		t.Fatalf("Phrases: %v", err)
	}
	if len(got) != 1 || got[0].Tag != "PREP" {
		t.Errorf("Expected one retagged phrase, got %+v", got)
	}
}

func TestSQLiteIntegrationReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lexicon.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertEntry(ctx, store.Entry{Form: "dog", Lemma: "dog", Tag: "NN"}); err != nil {
		t.Fatal(err)
	}
	st.Close()

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	got, _ := st.Lookup(ctx, "dog")
	if len(got) != 1 {
		t.Errorf("Expected entry to survive reopen, got %+v", got)
	}
}

func TestSQLiteIntegrationConcurrentReads(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)
	if err := st.UpsertEntry(ctx, store.Entry{Form: "cat", Lemma: "cat", Tag: "NN"}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := st.Lookup(ctx, "cat")
			if err != nil {
				errs <- err
				return
			}
			if len(got) != 1 {
				errs <- fmt.Errorf("expected 1 entry, got %d", len(got))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
