package store

import (
	"testing"
	"time"

	"filmdex/internal/model"
)

const testTTL = time.Hour

func TestSavePage_OrderRoundTrip(t *testing.T) {
	s := openTestStore(t)

	// Source order is ranking order, deliberately not id order.
	movies := []model.MovieSummary{
		newTestMovie(30, "Third Highest ID"),
		newTestMovie(10, "Lowest ID"),
		newTestMovie(20, "Middle ID"),
	}
	if err := s.SavePage("batman", 1, movies); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}

	got, ok, err := s.Page("batman", 1, testTTL)
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if !ok {
		t.Fatal("Page reported a miss for a fresh entry")
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, wantID := range []int64{30, 10, 20} {
		if got[i].ID != wantID {
			t.Errorf("position %d: id = %d, want %d", i, got[i].ID, wantID)
		}
	}
}

func TestSavePage_ReplaceNotMerge(t *testing.T) {
	s := openTestStore(t)

	first := []model.MovieSummary{newTestMovie(1, "A"), newTestMovie(2, "B")}
	if err := s.SavePage("batman", 1, first); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}

	second := []model.MovieSummary{newTestMovie(3, "C"), newTestMovie(4, "D")}
	if err := s.SavePage("batman", 1, second); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}

	got, ok, err := s.Page("batman", 1, testTTL)
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if !ok {
		t.Fatal("Page reported a miss")
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (replace, not merge)", len(got))
	}
	if got[0].ID != 3 || got[1].ID != 4 {
		t.Errorf("page = [%d, %d], want [3, 4]", got[0].ID, got[1].ID)
	}
}

func TestPage_IndependentPerPageNumber(t *testing.T) {
	s := openTestStore(t)

	if err := s.SavePage("batman", 1, []model.MovieSummary{newTestMovie(1, "A")}); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}
	if err := s.SavePage("batman", 2, []model.MovieSummary{newTestMovie(2, "B")}); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}

	p1, ok, err := s.Page("batman", 1, testTTL)
	if err != nil || !ok {
		t.Fatalf("Page 1 failed: ok=%v err=%v", ok, err)
	}
	p2, ok, err := s.Page("batman", 2, testTTL)
	if err != nil || !ok {
		t.Fatalf("Page 2 failed: ok=%v err=%v", ok, err)
	}
	if len(p1) != 1 || p1[0].ID != 1 {
		t.Errorf("page 1 = %v, want [1]", p1)
	}
	if len(p2) != 1 || p2[0].ID != 2 {
		t.Errorf("page 2 = %v, want [2]", p2)
	}
}

func TestPage_LazyEviction(t *testing.T) {
	s := openTestStore(t)

	stale := time.Now().Add(-2 * time.Hour).Unix()
	if err := s.SavePageAt("batman", 1, []model.MovieSummary{newTestMovie(1, "A")}, stale); err != nil {
		t.Fatalf("SavePageAt failed: %v", err)
	}

	_, ok, err := s.Page("batman", 1, testTTL)
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if ok {
		t.Fatal("expired page served as a hit")
	}

	// The read must have deleted the row, not just skipped it.
	exists, err := s.PageExists("batman", 1)
	if err != nil {
		t.Fatalf("PageExists failed: %v", err)
	}
	if exists {
		t.Error("expired page still present after read")
	}
}

func TestPage_FavoriteVisibleInCachedPage(t *testing.T) {
	s := openTestStore(t)

	if err := s.SavePage("batman", 1, []model.MovieSummary{newTestMovie(1, "A")}); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}
	if _, err := s.ToggleFavorite(1); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}

	// Pages reference movie rows by id, so the toggle shows up on the
	// next cache read without rewriting the page.
	got, ok, err := s.Page("batman", 1, testTTL)
	if err != nil || !ok {
		t.Fatalf("Page failed: ok=%v err=%v", ok, err)
	}
	if !got[0].Favorite {
		t.Error("cached page does not reflect favorite toggle")
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	movies := []model.MovieSummary{newTestMovie(5, "E"), newTestMovie(4, "D")}
	if err := s.SaveSnapshot("dune", movies); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	got, ok, err := s.Snapshot("dune", testTTL)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !ok {
		t.Fatal("Snapshot reported a miss")
	}
	if len(got) != 2 || got[0].ID != 5 || got[1].ID != 4 {
		t.Errorf("snapshot = %v, want order [5, 4]", got)
	}
}

func TestSnapshot_LazyEviction(t *testing.T) {
	s := openTestStore(t)

	stale := time.Now().Add(-48 * time.Hour).Unix()
	if err := s.SaveSnapshotAt("dune", []model.MovieSummary{newTestMovie(1, "A")}, stale); err != nil {
		t.Fatalf("SaveSnapshotAt failed: %v", err)
	}

	_, ok, err := s.Snapshot("dune", 24*time.Hour)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if ok {
		t.Fatal("expired snapshot served as a hit")
	}

	exists, err := s.SnapshotExists("dune")
	if err != nil {
		t.Fatalf("SnapshotExists failed: %v", err)
	}
	if exists {
		t.Error("expired snapshot still present after read")
	}
}

func TestLatestSnapshot(t *testing.T) {
	s := openTestStore(t)

	older := time.Now().Add(-10 * time.Minute).Unix()
	if err := s.SaveSnapshotAt("older", []model.MovieSummary{newTestMovie(1, "A")}, older); err != nil {
		t.Fatalf("SaveSnapshotAt failed: %v", err)
	}
	if err := s.SaveSnapshot("newer", []model.MovieSummary{newTestMovie(2, "B")}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	query, movies, ok, err := s.LatestSnapshot(testTTL)
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if !ok {
		t.Fatal("LatestSnapshot reported a miss")
	}
	if query != "newer" {
		t.Errorf("query = %q, want %q", query, "newer")
	}
	if len(movies) != 1 || movies[0].ID != 2 {
		t.Errorf("movies = %v, want [2]", movies)
	}
}

func TestLatestSnapshot_Empty(t *testing.T) {
	s := openTestStore(t)

	_, _, ok, err := s.LatestSnapshot(testTTL)
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if ok {
		t.Error("LatestSnapshot reported a hit on an empty store")
	}
}

func TestClearExpired(t *testing.T) {
	s := openTestStore(t)

	stale := time.Now().Add(-3 * time.Hour).Unix()
	if err := s.SavePageAt("old", 1, []model.MovieSummary{newTestMovie(1, "A")}, stale); err != nil {
		t.Fatalf("SavePageAt failed: %v", err)
	}
	if err := s.SavePage("fresh", 1, []model.MovieSummary{newTestMovie(2, "B")}); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}
	if err := s.SaveSnapshotAt("old-snap", []model.MovieSummary{newTestMovie(3, "C")}, stale); err != nil {
		t.Fatalf("SaveSnapshotAt failed: %v", err)
	}

	deleted, err := s.ClearExpired(time.Hour, 2*time.Hour)
	if err != nil {
		t.Fatalf("ClearExpired failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	exists, err := s.PageExists("old", 1)
	if err != nil {
		t.Fatalf("PageExists failed: %v", err)
	}
	if exists {
		t.Error("stale page survived sweep")
	}
	exists, err = s.PageExists("fresh", 1)
	if err != nil {
		t.Fatalf("PageExists failed: %v", err)
	}
	if !exists {
		t.Error("fresh page was swept")
	}
}

func TestClearAll(t *testing.T) {
	s := openTestStore(t)

	movies := []model.MovieSummary{newTestMovie(1, "A"), newTestMovie(2, "B")}
	if err := s.SavePage("batman", 1, movies); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}
	if err := s.SaveSnapshot("batman", movies); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := s.ToggleFavorite(1); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	_, ok, err := s.Page("batman", 1, testTTL)
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if ok {
		t.Error("page survived ClearAll")
	}
	if _, _, ok, err := s.LatestSnapshot(testTTL); err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	} else if ok {
		t.Error("snapshot survived ClearAll")
	}

	// Favorites are user state, not cache.
	favs, err := s.ListFavorites()
	if err != nil {
		t.Fatalf("ListFavorites failed: %v", err)
	}
	if len(favs) != 1 || favs[0].ID != 1 {
		t.Errorf("expected favorite 1 to survive ClearAll, got %v", favs)
	}
	if _, err := s.Movie(2); err == nil {
		t.Error("non-favorite movie row survived ClearAll")
	}
}
