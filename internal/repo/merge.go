package repo

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"filmdex/internal/model"
)

// mergeFavorites overlays locally-owned favorite flags onto a
// network-sourced batch. The remote catalog is the source of truth for
// movie content but never echoes the favorite flag back, so every fresh
// batch passes through here before it is displayed or cached.
//
// The input is not mutated, and the lookup is exactly one batched store
// query regardless of batch size.
func (r *Repository) mergeFavorites(movies []model.MovieSummary) ([]model.MovieSummary, error) {
	if len(movies) == 0 {
		return movies, nil
	}

	ids := make([]int64, len(movies))
	for i, m := range movies {
		ids[i] = m.ID
	}

	status, err := r.store.FavoriteStatus(ids)
	if err != nil {
		return nil, err
	}

	merged := make([]model.MovieSummary, len(movies))
	for i, m := range movies {
		m.Favorite = status[m.ID]
		merged[i] = m
	}
	return merged, nil
}

// newOpID generates a ULID correlating one logical operation's log lines.
func newOpID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return ""
	}
	return id.String()
}
