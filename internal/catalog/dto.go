package catalog

import "filmdex/internal/model"

// pagedResponse mirrors the catalog's paginated result envelope.
type pagedResponse struct {
	Page         int        `json:"page"`
	Results      []movieDTO `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

// movieDTO mirrors one movie object in a catalog payload.
type movieDTO struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate *string `json:"release_date"`
	PosterPath  *string `json:"poster_path"`
	Overview    string  `json:"overview"`
}

// toSummary maps a DTO to the domain summary. Favorite is deliberately
// left false: the remote payload never carries it and the repository
// merge is the only thing allowed to set it.
func (d movieDTO) toSummary() model.MovieSummary {
	return model.MovieSummary{
		ID:          d.ID,
		Title:       d.Title,
		ReleaseDate: normalizeOptional(d.ReleaseDate),
		PosterPath:  d.PosterPath,
	}
}

func (d movieDTO) toDetail() model.MovieDetail {
	return model.MovieDetail{
		MovieSummary: d.toSummary(),
		Overview:     d.Overview,
	}
}

// normalizeOptional collapses the catalog's empty-string dates to nil.
func normalizeOptional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
