package category

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrCacheUnavailable means neither the persisted snapshot nor the
// remote taxonomy endpoint could produce entries. There is nothing to
// resolve against, so a batch must not start.
var ErrCacheUnavailable = errors.New("category cache unavailable")

// FetchFunc retrieves the taxonomy from the remote API.
type FetchFunc func(ctx context.Context) ([]Entry, error)

// Cache keeps a TTL-bounded taxonomy snapshot persisted as a JSON file.
// In-process callers share one snapshot; concurrent loads collapse into
// a single fetch via singleflight.
type Cache struct {
	path  string
	ttl   time.Duration
	fetch FetchFunc

	group singleflight.Group
	mu    sync.RWMutex
	snap  *Snapshot

	now func() time.Time
}

// NewCache creates a cache persisting to path with the given TTL.
func NewCache(path string, ttl time.Duration, fetch FetchFunc) *Cache {
	return &Cache{
		path:  path,
		ttl:   ttl,
		fetch: fetch,
		now:   time.Now,
	}
}

// cacheFile is the persisted form: {"timestamp": <unix seconds>, "entries": [...]}.
type cacheFile struct {
	Timestamp int64   `json:"timestamp"`
	Entries   []Entry `json:"entries"`
}

// Load returns a valid snapshot, refreshing from the remote API when the
// persisted one is missing, malformed, empty or expired. With
// forceRefresh the persisted snapshot is skipped entirely.
func (c *Cache) Load(ctx context.Context, forceRefresh bool) (*Snapshot, error) {
	if !forceRefresh {
		c.mu.RLock()
		snap := c.snap
		c.mu.RUnlock()
		if snap != nil && snap.Valid(c.ttl, c.now()) {
			return snap, nil
		}
	}

	v, err, _ := c.group.Do("load", func() (any, error) {
		return c.load(ctx, forceRefresh)
	})
	if err != nil {
		return nil, err
	}

	snap := v.(*Snapshot)
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return snap, nil
}

func (c *Cache) load(ctx context.Context, forceRefresh bool) (*Snapshot, error) {
	var persisted *Snapshot
	if !forceRefresh {
		persisted = c.readFile()
		if persisted != nil && persisted.Valid(c.ttl, c.now()) {
			slog.Info("Using persisted category snapshot",
				"entries", len(persisted.Entries), "fetched_at", persisted.FetchedAt)
			return persisted, nil
		}
		if persisted != nil {
			slog.Info("Persisted category snapshot expired, refreshing",
				"fetched_at", persisted.FetchedAt, "ttl", c.ttl)
		}
	}

	entries, err := c.fetch(ctx)
	if err != nil || len(entries) == 0 {
		if err == nil {
			err = errors.New("remote taxonomy returned no entries")
		}
		// A stale snapshot beats no snapshot. Expired entries still
		// describe a mostly-stable taxonomy.
		if persisted != nil {
			slog.Warn("Taxonomy fetch failed, falling back to stale snapshot",
				"err", err, "fetched_at", persisted.FetchedAt)
			return persisted, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	snap := NewSnapshot(entries, c.now())
	if err := c.writeFile(snap); err != nil {
		// Non-fatal: the in-memory snapshot still serves this run.
		slog.Warn("Failed to persist category snapshot", "path", c.path, "err", err)
	}
	return snap, nil
}

// readFile loads the persisted snapshot. Absence or malformed content is
// a cache miss, never an error.
func (c *Cache) readFile() *Snapshot {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}

	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		slog.Warn("Malformed category cache file, treating as miss", "path", c.path, "err", err)
		return nil
	}
	if len(f.Entries) == 0 {
		return nil
	}

	return NewSnapshot(f.Entries, time.Unix(f.Timestamp, 0))
}

// writeFile overwrites the persisted snapshot.
func (c *Cache) writeFile(snap *Snapshot) error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	data, err := json.Marshal(cacheFile{
		Timestamp: snap.FetchedAt.Unix(),
		Entries:   snap.Entries,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	slog.Info("Persisted category snapshot", "path", c.path, "entries", len(snap.Entries))
	return nil
}
