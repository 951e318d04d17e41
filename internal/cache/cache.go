// Package cache is the freshness policy over the structured store. It
// owns the expiry windows so "how stale is too stale" for ordinary pages
// tunes independently of "how long the last search survives", and keeps
// call sites free of raw TTL values.
//
// Eviction is purely time-based. There is no size or LRU bound: the
// dataset is a single user's favorites plus recent searches, and the
// simplicity is deliberate.
package cache

import (
	"time"

	"filmdex/internal/config"
	"filmdex/internal/model"
	"filmdex/internal/store"
)

// Engine exposes get/put over the structured store with the configured
// expiry windows applied. Reads inherit the store's lazy eviction: an
// expired entry is deleted as a side effect of the lookup, so
// correctness never depends on the proactive sweep running.
type Engine struct {
	store       *store.Store
	pageTTL     time.Duration
	snapshotTTL time.Duration
}

// New creates an engine with TTL windows taken from config.
func New(st *store.Store, cfg *config.Config) *Engine {
	return &Engine{
		store:       st,
		pageTTL:     cfg.PageTTL(),
		snapshotTTL: cfg.SnapshotTTL(),
	}
}

// Page returns the valid cached page for (query, pageNumber), if any.
func (e *Engine) Page(query string, pageNumber int) ([]model.MovieSummary, bool, error) {
	return e.store.Page(query, pageNumber, e.pageTTL)
}

// PutPage caches one page, replacing any previous entry for its key.
func (e *Engine) PutPage(query string, pageNumber int, movies []model.MovieSummary) error {
	return e.store.SavePage(query, pageNumber, movies)
}

// Snapshot returns the valid snapshot for a search query, if any. The
// snapshot window is longer than the page window so the last search
// survives extended offline stretches.
func (e *Engine) Snapshot(query string) ([]model.MovieSummary, bool, error) {
	return e.store.Snapshot(query, e.snapshotTTL)
}

// PutSnapshot caches the always-current result list for a query.
func (e *Engine) PutSnapshot(query string, movies []model.MovieSummary) error {
	return e.store.SaveSnapshot(query, movies)
}

// LatestSnapshot returns the newest valid snapshot across all queries.
func (e *Engine) LatestSnapshot() (string, []model.MovieSummary, bool, error) {
	return e.store.LatestSnapshot(e.snapshotTTL)
}

// Sweep proactively deletes expired pages and snapshots, returning the
// number of entries removed. Suitable for backgrounding triggers.
func (e *Engine) Sweep() (int, error) {
	return e.store.ClearExpired(e.pageTTL, e.snapshotTTL)
}

// Clear wipes all cached pages, snapshots, and non-favorite movie rows.
// Favorites survive a clear.
func (e *Engine) Clear() error {
	return e.store.ClearAll()
}
