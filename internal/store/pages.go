package store

import (
	"database/sql"
	"strconv"
	"time"

	"filmdex/internal/errors"
	"filmdex/internal/model"
)

// SavePage stores one page of results for a query key, replacing any
// existing entry for (query, pageNumber) wholesale. All movies in the
// list are upserted first so the page references rows, never copies.
func (s *Store) SavePage(query string, pageNumber int, movies []model.MovieSummary) error {
	return s.SavePageAt(query, pageNumber, movies, now())
}

// SavePageAt is SavePage with an explicit fetch timestamp.
func (s *Store) SavePageAt(query string, pageNumber int, movies []model.MovieSummary, fetchedAt int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	for _, m := range movies {
		if err := upsertMovieTx(tx, m, m.Favorite, fetchedAt); err != nil {
			return err
		}
	}

	// Replace, not merge: drop the old ordered list before writing the new one.
	if _, err := tx.Exec("DELETE FROM page_movies WHERE query = ? AND page_number = ?", query, pageNumber); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.Exec(`
		INSERT INTO pages (query, page_number, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(query, page_number) DO UPDATE SET fetched_at = excluded.fetched_at
	`, query, pageNumber, fetchedAt); err != nil {
		return errors.NewInternal(err)
	}

	for position, m := range movies {
		if _, err := tx.Exec(
			"INSERT INTO page_movies (query, page_number, position, movie_id) VALUES (?, ?, ?, ?)",
			query, pageNumber, position, m.ID,
		); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Page reads one cached page. An entry older than maxAge is deleted as a
// side effect of the read and reported as a miss, so correctness never
// depends on a sweep pass running. Movies come back in stored position
// order with their current favorite flags.
func (s *Store) Page(query string, pageNumber int, maxAge time.Duration) ([]model.MovieSummary, bool, error) {
	var fetchedAt int64
	err := s.db.QueryRow(
		"SELECT fetched_at FROM pages WHERE query = ? AND page_number = ?",
		query, pageNumber,
	).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewInternal(err)
	}

	if expired(fetchedAt, maxAge) {
		if err := s.DeletePage(query, pageNumber); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	rows, err := s.db.Query(`
		SELECT m.id, m.title, m.release_date, m.poster_path, m.favorite
		FROM page_movies pm
		JOIN movies m ON m.id = pm.movie_id
		WHERE pm.query = ? AND pm.page_number = ?
		ORDER BY pm.position
	`, query, pageNumber)
	if err != nil {
		return nil, false, errors.NewInternal(err)
	}
	defer rows.Close()

	movies, err := scanMovies(rows)
	if err != nil {
		return nil, false, err
	}
	return movies, true, nil
}

// PageExists reports whether a page row is present, without any expiry
// side effects. Used to observe lazy eviction.
func (s *Store) PageExists(query string, pageNumber int) (bool, error) {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM pages WHERE query = ? AND page_number = ?",
		query, pageNumber,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// DeletePage removes a page row and its ordered junction.
func (s *Store) DeletePage(query string, pageNumber int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM page_movies WHERE query = ? AND page_number = ?", query, pageNumber); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.Exec("DELETE FROM pages WHERE query = ? AND page_number = ?", query, pageNumber); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// SaveSnapshot stores the always-current result list for a search query,
// replacing any previous snapshot for that query.
func (s *Store) SaveSnapshot(query string, movies []model.MovieSummary) error {
	return s.SaveSnapshotAt(query, movies, now())
}

// SaveSnapshotAt is SaveSnapshot with an explicit fetch timestamp.
func (s *Store) SaveSnapshotAt(query string, movies []model.MovieSummary, fetchedAt int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	for _, m := range movies {
		if err := upsertMovieTx(tx, m, m.Favorite, fetchedAt); err != nil {
			return err
		}
	}

	if _, err := tx.Exec("DELETE FROM snapshot_movies WHERE query = ?", query); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.Exec(`
		INSERT INTO snapshots (query, fetched_at) VALUES (?, ?)
		ON CONFLICT(query) DO UPDATE SET fetched_at = excluded.fetched_at
	`, query, fetchedAt); err != nil {
		return errors.NewInternal(err)
	}

	for position, m := range movies {
		if _, err := tx.Exec(
			"INSERT INTO snapshot_movies (query, position, movie_id) VALUES (?, ?, ?)",
			query, position, m.ID,
		); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Snapshot reads the cached snapshot for a query with the same
// lazy-eviction behavior as Page.
func (s *Store) Snapshot(query string, maxAge time.Duration) ([]model.MovieSummary, bool, error) {
	var fetchedAt int64
	err := s.db.QueryRow("SELECT fetched_at FROM snapshots WHERE query = ?", query).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewInternal(err)
	}

	if expired(fetchedAt, maxAge) {
		if err := s.DeleteSnapshot(query); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	movies, err := s.snapshotMovies(query)
	if err != nil {
		return nil, false, err
	}
	return movies, true, nil
}

// LatestSnapshot returns the non-expired snapshot with the newest
// timestamp across all queries, the last-resort offline fallback when
// the exact query has no snapshot of its own.
func (s *Store) LatestSnapshot(maxAge time.Duration) (string, []model.MovieSummary, bool, error) {
	var (
		query     string
		fetchedAt int64
	)
	err := s.db.QueryRow(
		"SELECT query, fetched_at FROM snapshots ORDER BY fetched_at DESC LIMIT 1",
	).Scan(&query, &fetchedAt)
	if err == sql.ErrNoRows {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, errors.NewInternal(err)
	}

	if expired(fetchedAt, maxAge) {
		if err := s.DeleteSnapshot(query); err != nil {
			return "", nil, false, err
		}
		return "", nil, false, nil
	}

	movies, err := s.snapshotMovies(query)
	if err != nil {
		return "", nil, false, err
	}
	return query, movies, true, nil
}

// SnapshotExists reports whether a snapshot row is present, without any
// expiry side effects.
func (s *Store) SnapshotExists(query string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM snapshots WHERE query = ?", query).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// DeleteSnapshot removes a snapshot row and its ordered junction.
func (s *Store) DeleteSnapshot(query string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM snapshot_movies WHERE query = ?", query); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.Exec("DELETE FROM snapshots WHERE query = ?", query); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ClearExpired proactively sweeps expired pages and snapshots. Lazy
// eviction on read keeps the cache correct without this ever running;
// the sweep only reclaims space earlier.
func (s *Store) ClearExpired(pageMaxAge, snapshotMaxAge time.Duration) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer tx.Rollback()

	pageCutoff := now() - int64(pageMaxAge.Seconds())
	snapshotCutoff := now() - int64(snapshotMaxAge.Seconds())

	if _, err := tx.Exec(`
		DELETE FROM page_movies WHERE (query, page_number) IN
		(SELECT query, page_number FROM pages WHERE fetched_at < ?)
	`, pageCutoff); err != nil {
		return 0, errors.NewInternal(err)
	}
	pages, err := tx.Exec("DELETE FROM pages WHERE fetched_at < ?", pageCutoff)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	pagesDeleted, _ := pages.RowsAffected()

	if _, err := tx.Exec(`
		DELETE FROM snapshot_movies WHERE query IN
		(SELECT query FROM snapshots WHERE fetched_at < ?)
	`, snapshotCutoff); err != nil {
		return 0, errors.NewInternal(err)
	}
	snapshots, err := tx.Exec("DELETE FROM snapshots WHERE fetched_at < ?", snapshotCutoff)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	snapshotsDeleted, _ := snapshots.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(pagesDeleted + snapshotsDeleted), nil
}

// ClearAll removes every page and snapshot row and all movie rows that
// are not favorites. Favorites are user state, not cache, and survive.
func (s *Store) ClearAll() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	for _, table := range []string{"page_movies", "pages", "snapshot_movies", "snapshots"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return errors.NewInternal(err)
		}
	}
	if _, err := tx.Exec("DELETE FROM movies WHERE favorite = 0"); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// snapshotMovies reads a snapshot's ordered movie list.
func (s *Store) snapshotMovies(query string) ([]model.MovieSummary, error) {
	rows, err := s.db.Query(`
		SELECT m.id, m.title, m.release_date, m.poster_path, m.favorite
		FROM snapshot_movies sm
		JOIN movies m ON m.id = sm.movie_id
		WHERE sm.query = ?
		ORDER BY sm.position
	`, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return scanMovies(rows)
}

func expired(fetchedAt int64, maxAge time.Duration) bool {
	return now()-fetchedAt > int64(maxAge.Seconds())
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
