package repo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"filmdex/internal/catalog"
	"filmdex/internal/connectivity"
	"filmdex/internal/errors"
	"filmdex/internal/model"
)

// fullPage is the catalog's nominal page size, used to approximate
// "has more pages" when the source omits total-page metadata. A full
// page probably has a successor; this is a heuristic, not a guarantee.
const fullPage = 20

// Catalog is the remote movie catalog consumed by the repository.
type Catalog interface {
	Search(ctx context.Context, query string, page int) (*catalog.Page, error)
	Popular(ctx context.Context, page int) (*catalog.Page, error)
	Trending(ctx context.Context, page int) (*catalog.Page, error)
	Details(ctx context.Context, id int64) (*model.MovieDetail, error)
}

// MovieStore is the durable movie state the repository orchestrates.
// The store is the sole source of truth for the favorite flag.
type MovieStore interface {
	UpsertDetail(d model.MovieDetail) error
	Detail(id int64) (*model.MovieDetail, error)
	FavoriteStatus(ids []int64) (map[int64]bool, error)
	IsFavorite(id int64) (bool, error)
	ToggleFavorite(id int64) (bool, error)
	ListFavorites() ([]model.MovieSummary, error)
}

// PageCache is the freshness-policy view over cached pages and snapshots.
type PageCache interface {
	Page(query string, pageNumber int) ([]model.MovieSummary, bool, error)
	PutPage(query string, pageNumber int, movies []model.MovieSummary) error
	Snapshot(query string) ([]model.MovieSummary, bool, error)
	PutSnapshot(query string, movies []model.MovieSummary) error
	LatestSnapshot() (string, []model.MovieSummary, bool, error)
}

// LastSearch is the cold-start pointer to the most recent search.
type LastSearch interface {
	Save(query string, movies []model.MovieSummary) error
	Load() (string, []model.MovieSummary, time.Time, bool, error)
}

type opKind string

const (
	opSearch   opKind = "search"
	opPopular  opKind = "popular"
	opTrending opKind = "trending"
)

type lastOp struct {
	key  string
	page int
}

// Repository is the single data-access contract exposed to callers. It
// decides per read whether to serve network or cached data, preserves
// favorite flags across network refreshes, and guarantees that a
// superseded in-flight fetch never commits over a newer one.
type Repository struct {
	catalog      Catalog
	store        MovieStore
	cache        PageCache
	last         LastSearch
	monitor      connectivity.Monitor
	logger       *logrus.Logger
	offlineFirst bool

	mu      sync.Mutex
	gens    map[opKind]uint64
	lastOps map[opKind]lastOp

	// commitMu serializes commit sections of fetchRemote so the
	// generation check and the cache writes happen atomically with
	// respect to other commits.
	commitMu sync.Mutex
}

// Options wires a Repository's collaborators. Everything is injected;
// the repository creates no global state of its own.
type Options struct {
	Catalog    Catalog
	Store      MovieStore
	Cache      PageCache
	LastSearch LastSearch
	Monitor    connectivity.Monitor
	Logger     *logrus.Logger

	// OfflineFirst serves a valid cache entry without touching the
	// network even when online. Default is online-first: freshness wins
	// whenever connectivity exists.
	OfflineFirst bool
}

// New creates a Repository.
func New(opts Options) *Repository {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Repository{
		catalog:      opts.Catalog,
		store:        opts.Store,
		cache:        opts.Cache,
		last:         opts.LastSearch,
		monitor:      opts.Monitor,
		logger:       logger,
		offlineFirst: opts.OfflineFirst,
		gens:         make(map[opKind]uint64),
		lastOps:      make(map[opKind]lastOp),
	}
}

// Search returns one page of results for a literal query string.
func (r *Repository) Search(ctx context.Context, query string, page int) (*model.ResultSet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewInvalidRequest("search query must not be empty")
	}
	return r.fetchList(ctx, opSearch, query, page, func(ctx context.Context) (*catalog.Page, error) {
		return r.catalog.Search(ctx, query, page)
	})
}

// Popular returns one page of the popular listing.
func (r *Repository) Popular(ctx context.Context, page int) (*model.ResultSet, error) {
	return r.fetchList(ctx, opPopular, model.KeyPopular, page, func(ctx context.Context) (*catalog.Page, error) {
		return r.catalog.Popular(ctx, page)
	})
}

// Trending returns one page of the trending listing.
func (r *Repository) Trending(ctx context.Context, page int) (*model.ResultSet, error) {
	return r.fetchList(ctx, opTrending, model.KeyTrending, page, func(ctx context.Context) (*catalog.Page, error) {
		return r.catalog.Trending(ctx, page)
	})
}

// fetchList implements the read policy shared by search, popular, and
// trending:
//
//	online  → remote fetch; on recoverable failure fall back to a valid
//	          cache entry for the same key+page, else propagate.
//	offline → cache lookup; searches additionally fall back to snapshots
//	          and the last-search pointer before giving up.
func (r *Repository) fetchList(ctx context.Context, kind opKind, key string, page int, call func(context.Context) (*catalog.Page, error)) (*model.ResultSet, error) {
	if page < 1 {
		page = 1
	}

	gen := r.begin(kind, key, page)
	log := r.logger.WithFields(logrus.Fields{
		"op":    string(kind),
		"key":   key,
		"page":  page,
		"op_id": newOpID(),
	})

	online := r.monitor.Online()

	if online && !r.offlineFirst {
		rs, err := r.fetchRemote(ctx, kind, key, page, gen, call, log)
		if err == nil {
			return rs, nil
		}
		if !errors.Recoverable(err) {
			return nil, err
		}
		log.WithField("error", err.Error()).Warn("remote fetch failed, falling back to cache")
		if rs, ok, cerr := r.cachedPage(key, page); cerr != nil {
			return nil, cerr
		} else if ok {
			return rs, nil
		}
		return nil, err
	}

	// Offline, or offline-first policy: cache before network.
	if rs, ok, err := r.cachedPage(key, page); err != nil {
		return nil, err
	} else if ok {
		log.Debug("served from cache")
		return rs, nil
	}

	if online {
		// Offline-first with a cache miss still reaches for the network.
		return r.fetchRemote(ctx, kind, key, page, gen, call, log)
	}

	if kind == opSearch {
		return r.searchFallback(key, log)
	}
	return nil, errors.NewNoConnection()
}

// searchFallback is the offline escalation chain for search queries:
// exact snapshot, then the newest snapshot of any query, then the
// cold-start last-search pointer. Only when all three are empty does the
// caller get the explicit no-cached-data state.
func (r *Repository) searchFallback(key string, log *logrus.Entry) (*model.ResultSet, error) {
	if movies, ok, err := r.cache.Snapshot(key); err != nil {
		return nil, err
	} else if ok {
		log.Debug("served from search snapshot")
		return cachedResult(movies), nil
	}

	if query, movies, ok, err := r.cache.LatestSnapshot(); err != nil {
		return nil, err
	} else if ok {
		log.WithField("snapshot_query", query).Debug("served from latest snapshot")
		return cachedResult(movies), nil
	}

	if _, movies, savedAt, ok, err := r.last.Load(); err != nil {
		return nil, err
	} else if ok {
		// The pointer's serialized favorite flags may predate recent
		// toggles; overlay current store state before returning.
		merged, err := r.mergeFavorites(movies)
		if err != nil {
			return nil, err
		}
		log.WithField("pointer_age", time.Since(savedAt).Round(time.Second).String()).
			Debug("served from last-search pointer")
		return cachedResult(merged), nil
	}

	return nil, errors.NewNoCachedData(key)
}

// fetchRemote performs the network fetch and, unless the operation has
// been superseded by a newer one of the same kind, commits the merged
// result to the cache (and for searches, the snapshot and last-search
// pointer). A stale in-flight response returns to its caller but never
// touches shared state.
func (r *Repository) fetchRemote(ctx context.Context, kind opKind, key string, page int, gen uint64, call func(context.Context) (*catalog.Page, error), log *logrus.Entry) (*model.ResultSet, error) {
	p, err := call(ctx)
	if err != nil {
		return nil, err
	}

	merged, err := r.mergeFavorites(p.Movies)
	if err != nil {
		return nil, err
	}

	// The generation check and the writes share one critical section so
	// a response superseded mid-commit can never land after the newer
	// operation's commit.
	r.commitMu.Lock()
	committed := r.current(kind) == gen
	if committed {
		if err := r.cache.PutPage(key, page, merged); err != nil {
			r.commitMu.Unlock()
			return nil, err
		}
		if kind == opSearch {
			if err := r.cache.PutSnapshot(key, merged); err != nil {
				r.commitMu.Unlock()
				return nil, err
			}
			if err := r.last.Save(key, merged); err != nil {
				// Pointer is a best-effort bootstrap; the structured
				// snapshot above already has the data.
				log.WithField("error", err.Error()).Warn("failed to save last-search pointer")
			}
		}
	}
	r.commitMu.Unlock()
	if !committed {
		log.Debug("superseded by a newer request, result not committed")
	}

	return &model.ResultSet{
		Movies:  merged,
		Page:    page,
		HasMore: hasMore(p, page),
	}, nil
}

// Details returns the full detail for one movie, fetching and caching
// as needed under the same read policy as the listings.
func (r *Repository) Details(ctx context.Context, id int64) (*model.MovieDetail, error) {
	log := r.logger.WithFields(logrus.Fields{"op": "details", "id": id, "op_id": newOpID()})

	online := r.monitor.Online()

	if online && !r.offlineFirst {
		d, err := r.detailsRemote(ctx, id)
		if err == nil {
			return d, nil
		}
		if !errors.Recoverable(err) {
			return nil, err
		}
		log.WithField("error", err.Error()).Warn("detail fetch failed, falling back to cache")
		if cached, cerr := r.store.Detail(id); cerr == nil {
			return cached, nil
		}
		return nil, err
	}

	if cached, err := r.store.Detail(id); err == nil {
		log.Debug("served from cache")
		return cached, nil
	}
	if online {
		return r.detailsRemote(ctx, id)
	}
	return nil, errors.NewNoConnection()
}

func (r *Repository) detailsRemote(ctx context.Context, id int64) (*model.MovieDetail, error) {
	d, err := r.catalog.Details(ctx, id)
	if err != nil {
		return nil, err
	}

	// Read-side merge: the detail payload never carries the flag.
	fav, err := r.store.IsFavorite(id)
	if err != nil {
		return nil, err
	}
	d.Favorite = fav

	if err := r.store.UpsertDetail(*d); err != nil {
		return nil, err
	}
	return d, nil
}

// ToggleFavorite flips the stored favorite flag and returns the new
// value. Purely local, so it works fully offline.
func (r *Repository) ToggleFavorite(id int64) (bool, error) {
	return r.store.ToggleFavorite(id)
}

// IsFavorite reports the stored favorite flag for one movie.
func (r *Repository) IsFavorite(id int64) (bool, error) {
	return r.store.IsFavorite(id)
}

// ListFavorites returns all favorite movies.
func (r *Repository) ListFavorites() ([]model.MovieSummary, error) {
	return r.store.ListFavorites()
}

// Online reports the current connectivity snapshot.
func (r *Repository) Online() bool {
	return r.monitor.Online()
}

// Subscribe passes through the connectivity monitor's transition stream.
func (r *Repository) Subscribe() <-chan connectivity.Status {
	return r.monitor.Subscribe()
}

// Watch reacts to connectivity transitions until ctx is done: regaining
// connectivity opportunistically refreshes the most recent operation of
// each kind in the background, so displayed data catches up without the
// caller asking.
func (r *Repository) Watch(ctx context.Context) {
	ch := r.monitor.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case status, ok := <-ch:
				if !ok {
					return
				}
				if status == connectivity.Online {
					r.refreshLastOps(ctx)
				}
			}
		}
	}()
}

func (r *Repository) refreshLastOps(ctx context.Context) {
	r.mu.Lock()
	ops := make(map[opKind]lastOp, len(r.lastOps))
	for kind, op := range r.lastOps {
		ops[kind] = op
	}
	r.mu.Unlock()

	for kind, op := range ops {
		go func(kind opKind, op lastOp) {
			var err error
			switch kind {
			case opSearch:
				_, err = r.Search(ctx, op.key, op.page)
			case opPopular:
				_, err = r.Popular(ctx, op.page)
			case opTrending:
				_, err = r.Trending(ctx, op.page)
			}
			if err != nil {
				r.logger.WithFields(logrus.Fields{
					"op":    string(kind),
					"error": err.Error(),
				}).Debug("opportunistic refresh failed")
			}
		}(kind, op)
	}
}

// begin registers a new in-flight operation of the given kind and
// returns its generation. Starting a new operation invalidates any
// in-flight one of the same kind: "newest wins" ordering falls out of
// comparing generations at commit time.
func (r *Repository) begin(kind opKind, key string, page int) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[kind]++
	r.lastOps[kind] = lastOp{key: key, page: page}
	return r.gens[kind]
}

func (r *Repository) current(kind opKind) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[kind]
}

// cachedPage wraps a cache page hit as a caller-facing result set.
func (r *Repository) cachedPage(key string, page int) (*model.ResultSet, bool, error) {
	movies, ok, err := r.cache.Page(key, page)
	if err != nil || !ok {
		return nil, false, err
	}
	rs := cachedResult(movies)
	rs.Page = page
	return rs, true, nil
}

func cachedResult(movies []model.MovieSummary) *model.ResultSet {
	return &model.ResultSet{
		Movies:    movies,
		Page:      1,
		HasMore:   len(movies) >= fullPage,
		FromCache: true,
	}
}

func hasMore(p *catalog.Page, page int) bool {
	if p.TotalPages > 0 {
		return page < p.TotalPages
	}
	return len(p.Movies) >= fullPage
}
