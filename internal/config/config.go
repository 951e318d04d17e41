package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Config holds application configuration.
type Config struct {
	// APIBaseURL is the base URL of the remote movie catalog.
	APIBaseURL string `json:"api_base_url"`

	// PageTTLHours is the expiry window for cached result pages
	// (search, popular, trending). Expired pages are treated as cache
	// misses and deleted on read.
	PageTTLHours int `json:"page_ttl_hours"`

	// SnapshotTTLHours is the expiry window for per-query search
	// snapshots. Longer than PageTTLHours so the last search survives
	// extended offline stretches.
	SnapshotTTLHours int `json:"snapshot_ttl_hours"`

	// OfflineFirst selects the read policy. False (default) prefers a
	// fresh network fetch whenever connectivity exists; true serves a
	// valid cache entry without touching the network.
	OfflineFirst bool `json:"offline_first,omitempty"`

	// ProbeAddr is the host:port the connectivity monitor dials to
	// decide online/offline status.
	ProbeAddr string `json:"probe_addr"`

	// ProbeIntervalSeconds is how often the connectivity monitor
	// re-checks reachability.
	ProbeIntervalSeconds int `json:"probe_interval_seconds"`

	// DBMaxOpenConns limits open database connections. 0 means the
	// sql.DB default. Writes are serialized internally regardless.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits idle database connections. 0 means the
	// sql.DB default.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:           "https://api.themoviedb.org/3",
		PageTTLHours:         6,
		SnapshotTTLHours:     24,
		ProbeAddr:            "api.themoviedb.org:443",
		ProbeIntervalSeconds: 15,
	}
}

// PageTTL returns the result-page expiry window as a duration.
func (c *Config) PageTTL() time.Duration {
	return time.Duration(c.PageTTLHours) * time.Hour
}

// SnapshotTTL returns the search-snapshot expiry window as a duration.
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLHours) * time.Hour
}

// ProbeInterval returns the connectivity probe interval as a duration.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSeconds) * time.Second
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.filmdex.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars when non-zero.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.APIBaseURL = overlay.APIBaseURL
	if result.APIBaseURL == "" {
		result.APIBaseURL = base.APIBaseURL
	}

	result.PageTTLHours = overlay.PageTTLHours
	if result.PageTTLHours == 0 {
		result.PageTTLHours = base.PageTTLHours
	}

	result.SnapshotTTLHours = overlay.SnapshotTTLHours
	if result.SnapshotTTLHours == 0 {
		result.SnapshotTTLHours = base.SnapshotTTLHours
	}

	result.ProbeAddr = overlay.ProbeAddr
	if result.ProbeAddr == "" {
		result.ProbeAddr = base.ProbeAddr
	}

	result.ProbeIntervalSeconds = overlay.ProbeIntervalSeconds
	if result.ProbeIntervalSeconds == 0 {
		result.ProbeIntervalSeconds = base.ProbeIntervalSeconds
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.OfflineFirst = base.OfflineFirst || overlay.OfflineFirst

	return result
}
