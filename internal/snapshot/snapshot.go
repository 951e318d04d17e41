package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"filmdex/internal/model"
)

// Bucket and key names
var (
	bucketLastSearch = []byte("last_search")
	keyQuery         = []byte("query")
	keyMovies        = []byte("movies")
	keySavedAt       = []byte("saved_at")
)

// Store holds the single most recent search query and its serialized
// result list. It exists for zero-query-cost offline resume on cold
// start; the structured store remains the durable cache proper.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the snapshot database at
// baseDir/last_search.db.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(baseDir, "last_search.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketLastSearch)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored pointer with query and its result list.
// Empty queries are not recorded.
func (s *Store) Save(query string, movies []model.MovieSummary) error {
	if query == "" {
		return nil
	}

	data, err := json.Marshal(movies)
	if err != nil {
		return err
	}
	ts, err := json.Marshal(time.Now().Unix())
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLastSearch)
		if err := b.Put(keyQuery, []byte(query)); err != nil {
			return err
		}
		if err := b.Put(keyMovies, data); err != nil {
			return err
		}
		return b.Put(keySavedAt, ts)
	})
}

// Load returns the stored query, movie list, and save time. ok is false
// when nothing has been saved yet.
func (s *Store) Load() (string, []model.MovieSummary, time.Time, bool, error) {
	var (
		query  string
		data   []byte
		tsData []byte
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLastSearch)
		if v := b.Get(keyQuery); v != nil {
			query = string(v)
		}
		if v := b.Get(keyMovies); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		if v := b.Get(keySavedAt); v != nil {
			tsData = make([]byte, len(v))
			copy(tsData, v)
		}
		return nil
	})
	if err != nil {
		return "", nil, time.Time{}, false, err
	}
	if query == "" || data == nil {
		return "", nil, time.Time{}, false, nil
	}

	var movies []model.MovieSummary
	if err := json.Unmarshal(data, &movies); err != nil {
		return "", nil, time.Time{}, false, err
	}
	var ts int64
	if tsData != nil {
		if err := json.Unmarshal(tsData, &ts); err != nil {
			return "", nil, time.Time{}, false, err
		}
	}
	return query, movies, time.Unix(ts, 0), true, nil
}

// Clear removes the stored pointer.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLastSearch)
		for _, key := range [][]byte{keyQuery, keyMovies, keySavedAt} {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}
