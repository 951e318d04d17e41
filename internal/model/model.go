package model

// MovieSummary is one movie as listed in search or browse results.
// Favorite is owned by the local store; remote payloads never carry it,
// so catalog deserialization always leaves it false and the repository
// merge restores the real value before anything is displayed or cached.
type MovieSummary struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate *string `json:"release_date,omitempty"`
	PosterPath  *string `json:"poster_path,omitempty"`
	Favorite    bool    `json:"favorite"`
}

// MovieDetail extends MovieSummary with the full overview.
// Same id domain as MovieSummary.
type MovieDetail struct {
	MovieSummary
	Overview string `json:"overview"`
}

// ResultSet is one page of movies plus pagination metadata, as returned
// to callers of the repository.
type ResultSet struct {
	Movies    []MovieSummary `json:"movies"`
	Page      int            `json:"page"`
	HasMore   bool           `json:"has_more"`
	FromCache bool           `json:"from_cache"`
}

// Logical query keys for the fixed browse listings. Search results are
// keyed by the literal query string instead.
const (
	KeyPopular  = "popular"
	KeyTrending = "trending"
)
