package repo

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"filmdex/internal/catalog"
	"filmdex/internal/model"
)

// TestFavoritePreservationWorkflow exercises the core invariant end to
// end: fetch popular → toggle favorite → fetch popular again. The
// simulated remote response never carries the favorite flag, yet the
// second fetch must still report it.
func TestFavoritePreservationWorkflow(t *testing.T) {
	env := newTestEnv(t, true)

	remote := []model.MovieSummary{movie(550, "Fight Club"), movie(680, "Pulp Fiction")}
	env.catalog.popularFn = func(ctx context.Context, page int) (*catalog.Page, error) {
		// Fresh copies each call, favorite always false as on the wire.
		out := make([]model.MovieSummary, len(remote))
		copy(out, remote)
		return &catalog.Page{Movies: out, PageNumber: page, TotalPages: 3}, nil
	}

	ctx := context.Background()

	// 1. First fetch: nothing favorited yet.
	rs, err := env.repo.Popular(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rs.Movies, 2)
	require.False(t, rs.Movies[0].Favorite)
	require.True(t, rs.HasMore)

	// 2. Toggle favorite on movie 550.
	on, err := env.repo.ToggleFavorite(550)
	require.NoError(t, err)
	require.True(t, on)

	// 3. Second fetch: full-object refresh from the network.
	rs, err = env.repo.Popular(ctx, 1)
	require.NoError(t, err)
	require.True(t, rs.Movies[0].Favorite, "refresh reset the favorite flag")
	require.False(t, rs.Movies[1].Favorite)

	// 4. The persisted cache entry carries the flag too.
	cached, ok, err := env.cache.Page(model.KeyPopular, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, cached[0].Favorite)

	// 5. Favorites listing sees it.
	favs, err := env.repo.ListFavorites()
	require.NoError(t, err)
	require.Len(t, favs, 1)
	require.Equal(t, int64(550), favs[0].ID)

	// 6. Toggle off again.
	on, err = env.repo.ToggleFavorite(550)
	require.NoError(t, err)
	require.False(t, on)

	fav, err := env.repo.IsFavorite(550)
	require.NoError(t, err)
	require.False(t, fav)
}

// TestOfflineResumeWorkflow exercises the search → go offline → resume
// path: a past search stays serveable from cache, and the last-search
// pointer bootstraps when everything else has expired.
func TestOfflineResumeWorkflow(t *testing.T) {
	env := newTestEnv(t, true)

	env.catalog.searchFn = func(ctx context.Context, query string, page int) (*catalog.Page, error) {
		return &catalog.Page{
			Movies:     []model.MovieSummary{movie(272, "Batman Begins"), movie(155, "The Dark Knight")},
			PageNumber: page,
		}, nil
	}

	ctx := context.Background()

	// 1. Online search populates page cache, snapshot, and pointer.
	rs, err := env.repo.Search(ctx, "batman", 1)
	require.NoError(t, err)
	require.Len(t, rs.Movies, 2)

	// 2. Offline: exact page cache serves the same query.
	env.monitor.set(false)
	rs, err = env.repo.Search(ctx, "batman", 1)
	require.NoError(t, err)
	require.True(t, rs.FromCache)
	require.Equal(t, int64(272), rs.Movies[0].ID)
	require.Equal(t, int64(155), rs.Movies[1].ID)

	// 3. Pointer survives independently of the structured store.
	query, movies, _, ok, err := env.last.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "batman", query)
	require.Len(t, movies, 2)
}

// TestOpportunisticRefreshWorkflow verifies that regaining connectivity
// refreshes the most recent listing in the background.
func TestOpportunisticRefreshWorkflow(t *testing.T) {
	env := newTestEnv(t, true)

	var version atomic.Int32
	version.Store(1)
	env.catalog.popularFn = func(ctx context.Context, page int) (*catalog.Page, error) {
		if version.Load() == 1 {
			return pageOf(movie(1, "Old")), nil
		}
		return pageOf(movie(2, "New")), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := env.repo.Popular(ctx, 1)
	require.NoError(t, err)

	env.repo.Watch(ctx)

	// Drop offline, bump the remote payload, come back online.
	env.monitor.set(false)
	version.Store(2)
	env.monitor.set(true)

	require.Eventually(t, func() bool {
		movies, ok, err := env.cache.Page(model.KeyPopular, 1)
		return err == nil && ok && len(movies) == 1 && movies[0].ID == 2
	}, 2*time.Second, 10*time.Millisecond, "cache was not refreshed after reconnect")
}
