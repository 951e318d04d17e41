package snapshot

import (
	"testing"
	"time"

	"filmdex/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)

	movies := []model.MovieSummary{
		{ID: 3, Title: "C"},
		{ID: 1, Title: "A", Favorite: true},
	}
	before := time.Now().Add(-time.Second)
	if err := s.Save("batman", movies); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	query, got, savedAt, ok, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !ok {
		t.Fatal("Load reported empty after Save")
	}
	if query != "batman" {
		t.Errorf("query = %q, want %q", query, "batman")
	}
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 1 {
		t.Errorf("movies = %v, want order [3, 1]", got)
	}
	if savedAt.Before(before) || savedAt.After(time.Now().Add(time.Second)) {
		t.Errorf("savedAt = %v, want around now", savedAt)
	}
}

func TestLoad_Empty(t *testing.T) {
	s := openTestStore(t)

	_, _, _, ok, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Error("Load reported data on an empty store")
	}
}

func TestSave_Replaces(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save("first", []model.MovieSummary{{ID: 1, Title: "A"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save("second", []model.MovieSummary{{ID: 2, Title: "B"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	query, movies, _, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if query != "second" {
		t.Errorf("query = %q, want %q", query, "second")
	}
	if len(movies) != 1 || movies[0].ID != 2 {
		t.Errorf("movies = %v, want [2]", movies)
	}
}

func TestSave_IgnoresEmptyQuery(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save("batman", []model.MovieSummary{{ID: 1, Title: "A"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save("", nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	query, _, _, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if query != "batman" {
		t.Errorf("query = %q, want %q (empty save must be a no-op)", query, "batman")
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save("batman", []model.MovieSummary{{ID: 1, Title: "A"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	_, _, _, ok, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Error("Load reported data after Clear")
	}
}
