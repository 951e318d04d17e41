package store

import (
	"database/sql"
	"strings"

	"filmdex/internal/errors"
	"filmdex/internal/model"
)

// UpsertMovie inserts the movie if absent, using favoriteForNew as the
// initial favorite value, or updates title/release_date/poster_path if a
// row with the same id already exists. The existing row's favorite flag
// is never touched by the update arm: the local store owns that flag and
// network-sourced writes must not clobber it. The single-statement upsert
// keeps concurrent fetches of pages sharing a movie id race-safe.
func (s *Store) UpsertMovie(m model.MovieSummary, favoriteForNew bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return upsertMovieTx(s.db, m, favoriteForNew, now())
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertMovieTx(e execer, m model.MovieSummary, favoriteForNew bool, ts int64) error {
	query := `
		INSERT INTO movies (id, title, release_date, poster_path, favorite, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			release_date = excluded.release_date,
			poster_path = excluded.poster_path,
			updated_at = excluded.updated_at
	`
	favorite := 0
	if favoriteForNew {
		favorite = 1
	}
	_, err := e.Exec(query,
		m.ID, m.Title, toNullString(m.ReleaseDate), toNullString(m.PosterPath),
		favorite, ts,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// UpsertDetail stores a movie detail, filling the overview column.
// Same favorite-preserving discipline as UpsertMovie.
func (s *Store) UpsertDetail(d model.MovieDetail) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
		INSERT INTO movies (id, title, release_date, poster_path, overview, favorite, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			release_date = excluded.release_date,
			poster_path = excluded.poster_path,
			overview = excluded.overview,
			updated_at = excluded.updated_at
	`
	_, err := s.db.Exec(query,
		d.ID, d.Title, toNullString(d.ReleaseDate), toNullString(d.PosterPath),
		d.Overview, now(),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Movie retrieves a single movie row by catalog id.
func (s *Store) Movie(id int64) (*model.MovieSummary, error) {
	query := `
		SELECT id, title, release_date, poster_path, favorite
		FROM movies
		WHERE id = ?
	`
	m, err := scanMovie(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(formatID(id))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return m, nil
}

// Detail retrieves a movie with its overview. A row whose overview has
// never been fetched does not count as a cached detail.
func (s *Store) Detail(id int64) (*model.MovieDetail, error) {
	query := `
		SELECT id, title, release_date, poster_path, favorite, overview
		FROM movies
		WHERE id = ? AND overview IS NOT NULL
	`
	var (
		d           model.MovieDetail
		releaseDate sql.NullString
		posterPath  sql.NullString
		favorite    int
	)
	err := s.db.QueryRow(query, id).Scan(
		&d.ID, &d.Title, &releaseDate, &posterPath, &favorite, &d.Overview,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(formatID(id))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	d.ReleaseDate = fromNullString(releaseDate)
	d.PosterPath = fromNullString(posterPath)
	d.Favorite = favorite != 0
	return &d, nil
}

// FavoriteStatus returns the favorite flag for each requested id in a
// single batched query. Ids without a row map to false.
func (s *Store) FavoriteStatus(ids []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(ids))
	for _, id := range ids {
		result[id] = false
	}
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	query := `SELECT id, favorite FROM movies WHERE id IN (` + placeholders + `)`

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var favorite int
		if err := rows.Scan(&id, &favorite); err != nil {
			return nil, errors.NewInternal(err)
		}
		result[id] = favorite != 0
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return result, nil
}

// IsFavorite reports the stored favorite flag for one id.
// A missing row is simply not a favorite.
func (s *Store) IsFavorite(id int64) (bool, error) {
	status, err := s.FavoriteStatus([]int64{id})
	if err != nil {
		return false, err
	}
	return status[id], nil
}

// ToggleFavorite flips the favorite flag of a single row and returns the
// new value. The flip is a single UPDATE so concurrent toggles of the
// same id cannot corrupt the row.
func (s *Store) ToggleFavorite(id int64) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
		UPDATE movies
		SET favorite = CASE favorite WHEN 0 THEN 1 ELSE 0 END
		WHERE id = ?
	`
	result, err := s.db.Exec(query, id)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return false, errors.NewNotFound(formatID(id))
	}

	var favorite int
	if err := s.db.QueryRow("SELECT favorite FROM movies WHERE id = ?", id).Scan(&favorite); err != nil {
		return false, errors.NewInternal(err)
	}
	return favorite != 0, nil
}

// ListFavorites returns all favorite movies ordered by title.
func (s *Store) ListFavorites() ([]model.MovieSummary, error) {
	query := `
		SELECT id, title, release_date, poster_path, favorite
		FROM movies
		WHERE favorite = 1
		ORDER BY title COLLATE NOCASE
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return scanMovies(rows)
}

// scanMovie scans a single row into a MovieSummary.
func scanMovie(row *sql.Row) (*model.MovieSummary, error) {
	var (
		m           model.MovieSummary
		releaseDate sql.NullString
		posterPath  sql.NullString
		favorite    int
	)
	if err := row.Scan(&m.ID, &m.Title, &releaseDate, &posterPath, &favorite); err != nil {
		return nil, err
	}
	m.ReleaseDate = fromNullString(releaseDate)
	m.PosterPath = fromNullString(posterPath)
	m.Favorite = favorite != 0
	return &m, nil
}

// scanMovies drains a movie result set preserving row order.
func scanMovies(rows *sql.Rows) ([]model.MovieSummary, error) {
	var movies []model.MovieSummary
	for rows.Next() {
		var (
			m           model.MovieSummary
			releaseDate sql.NullString
			posterPath  sql.NullString
			favorite    int
		)
		if err := rows.Scan(&m.ID, &m.Title, &releaseDate, &posterPath, &favorite); err != nil {
			return nil, errors.NewInternal(err)
		}
		m.ReleaseDate = fromNullString(releaseDate)
		m.PosterPath = fromNullString(posterPath)
		m.Favorite = favorite != 0
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return movies, nil
}
