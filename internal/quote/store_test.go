package quote_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/citabot/internal/quote"
)

func seedMessages() []quote.Message {
	return []quote.Message{
		{ID: "m1", AuthorID: "u1", AuthorName: "Alice", Content: "Bob: first"},
		{ID: "m2", AuthorID: "u2", AuthorName: "bob", Content: "Alice: second"},
		{ID: "m3", AuthorID: "u3", AuthorName: "alICE_2", Content: "third"},
	}
}

func newLoadedStore(t *testing.T) *quote.Store {
	t.Helper()
	s := quote.NewStore(quote.NewParser(nil))
	n, err := s.Reload(context.Background(), quote.SourceFunc(func(context.Context) ([]quote.Message, error) {
		return seedMessages(), nil
	}))
	if err != nil {
		t.Fatalf("Reload: unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("Reload count = %d, want 3", n)
	}
	return s
}

func messageIDs(records []quote.Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.MessageID
	}
	return ids
}

func TestStore_Empty(t *testing.T) {
	t.Parallel()

	s := quote.NewStore(nil)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if got := s.Query(""); got == nil || len(got) != 0 {
		t.Errorf("Query(\"\") = %v, want empty non-nil slice", got)
	}
	if !s.LoadedAt().IsZero() {
		t.Error("LoadedAt should be zero before first reload")
	}
}

func TestStore_Query(t *testing.T) {
	t.Parallel()

	s := newLoadedStore(t)

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{"empty filter returns all in order", "", []string{"m1", "m2", "m3"}},
		{"case-insensitive substring", "alice", []string{"m1", "m3"}},
		{"surrounding spaces ignored", "  BOB ", []string{"m2"}},
		{"no match", "zzz_no_such_author", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := s.Query(tt.filter)
			if got == nil {
				t.Fatal("Query returned nil")
			}
			if diff := cmp.Diff(tt.want, messageIDs(got)); diff != "" {
				t.Errorf("Query(%q) mismatch (-want +got):\n%s", tt.filter, diff)
			}
		})
	}
}

func TestStore_Get(t *testing.T) {
	t.Parallel()

	s := newLoadedStore(t)

	got, err := s.Get(1)
	if err != nil {
		t.Fatalf("Get(1): unexpected error: %v", err)
	}
	if got.MessageID != "m2" {
		t.Errorf("Get(1).MessageID = %q, want %q", got.MessageID, "m2")
	}

	for _, idx := range []int{-1, 3, 100} {
		if _, err := s.Get(idx); !errors.Is(err, quote.ErrNotFound) {
			t.Errorf("Get(%d): expected ErrNotFound, got %v", idx, err)
		}
	}
}

func TestStore_GetByMessageID(t *testing.T) {
	t.Parallel()

	s := newLoadedStore(t)

	got, err := s.GetByMessageID("m3")
	if err != nil {
		t.Fatalf("GetByMessageID: unexpected error: %v", err)
	}
	if got.AuthorName != "alICE_2" {
		t.Errorf("AuthorName = %q, want %q", got.AuthorName, "alICE_2")
	}
	if _, err := s.GetByMessageID("gone"); !errors.Is(err, quote.ErrNotFound) {
		t.Errorf("GetByMessageID(gone): expected ErrNotFound, got %v", err)
	}
}

func TestStore_ReloadFailureKeepsSnapshot(t *testing.T) {
	t.Parallel()

	s := newLoadedStore(t)
	before := s.Query("")
	loadedAt := s.LoadedAt()

	t.Run("source error", func(t *testing.T) {
		boom := errors.New("missing channel")
		_, err := s.Reload(context.Background(), quote.SourceFunc(func(context.Context) ([]quote.Message, error) {
			return nil, boom
		}))
		if !errors.Is(err, boom) {
			t.Fatalf("Reload: expected source error, got %v", err)
		}
	})

	t.Run("resolver error after partial parse", func(t *testing.T) {
		failing := quote.NewStore(quote.NewParser(quote.MemberResolverFunc(func(context.Context, string) (string, error) {
			return "", errors.New("rate limited")
		})))
		if _, err := failing.ReloadMessages(context.Background(), seedMessages()); err != nil {
			t.Fatalf("initial ReloadMessages: unexpected error: %v", err)
		}
		prior := failing.Query("")

		msgs := append(seedMessages(), quote.Message{ID: "m4", Content: "<@1>: hey"})
		if _, err := failing.ReloadMessages(context.Background(), msgs); err == nil {
			t.Fatal("ReloadMessages: expected error")
		}
		if diff := cmp.Diff(prior, failing.Query("")); diff != "" {
			t.Errorf("snapshot changed after failed reload (-want +got):\n%s", diff)
		}
	})

	if diff := cmp.Diff(before, s.Query("")); diff != "" {
		t.Errorf("snapshot changed after failed reload (-want +got):\n%s", diff)
	}
	if !s.LoadedAt().Equal(loadedAt) {
		t.Error("LoadedAt changed after failed reload")
	}
}

func TestStore_ReloadReplacesWholesale(t *testing.T) {
	t.Parallel()

	s := newLoadedStore(t)
	n, err := s.ReloadMessages(context.Background(), []quote.Message{
		{ID: "n1", AuthorName: "dave", Content: "D: new"},
	})
	if err != nil {
		t.Fatalf("ReloadMessages: unexpected error: %v", err)
	}
	if n != 1 || s.Len() != 1 {
		t.Fatalf("count = %d, Len() = %d, want 1", n, s.Len())
	}
	if _, err := s.GetByMessageID("m1"); !errors.Is(err, quote.ErrNotFound) {
		t.Errorf("old handle should not resolve after reload, got %v", err)
	}
}

func TestStore_ConcurrentReadsDuringReload(t *testing.T) {
	t.Parallel()

	s := newLoadedStore(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.ReloadMessages(context.Background(), seedMessages())
		}()
		go func() {
			defer wg.Done()
			if got := len(s.Query("")); got != 3 {
				t.Errorf("Query during reload returned %d records, want 3", got)
			}
		}()
	}
	wg.Wait()
}

func TestStore_Authors(t *testing.T) {
	t.Parallel()

	s := newLoadedStore(t)
	want := []string{"Alice", "bob", "alICE_2"}
	if diff := cmp.Diff(want, s.Authors()); diff != "" {
		t.Errorf("Authors() mismatch (-want +got):\n%s", diff)
	}
}
