// Package cache stores JSON values on disk with a time-to-live.
package cache

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/contre95/musicdex/src/infra/monitoring"
)

// ErrInvalidKey is returned for empty keys.
var ErrInvalidKey = errors.New("cache key cannot be empty")

const fileSuffix = ".json"

type entry struct {
	Key       string          `json:"key"`
	StoredAt  time.Time       `json:"stored_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// JSONFileCache keeps one JSON file per key under a directory. Entries expire by time only.
// It is safe for concurrent use within one process; across processes the last write wins.
type JSONFileCache struct {
	dir string
	ttl time.Duration
	mu  sync.RWMutex
	now func() time.Time
}

// NewJSONFileCache creates the directory if needed and returns a cache whose entries live for ttl.
func NewJSONFileCache(dir string, ttl time.Duration) (*JSONFileCache, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &JSONFileCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// filename maps a key to a file. The readable prefix helps when browsing the directory
// and the hash keeps distinct keys apart.
func (c *JSONFileCache) filename(key string) string {
	sum := sha1.Sum([]byte(key))
	var prefix strings.Builder
	for _, r := range key {
		if prefix.Len() >= 40 {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			prefix.WriteRune(r)
		default:
			prefix.WriteByte('_')
		}
	}
	return filepath.Join(c.dir, prefix.String()+"-"+hex.EncodeToString(sum[:])+fileSuffix)
}

// Get decodes the value stored under key into out. It reports false when the key is
// missing or expired; expired and unreadable entries are removed.
func (c *JSONFileCache) Get(key string, out any) (bool, error) {
	if key == "" {
		return false, ErrInvalidKey
	}
	path := c.filename(key)

	c.mu.RLock()
	data, err := os.ReadFile(path)
	c.mu.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		monitoring.CacheLookups.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Key != key {
		slog.Warn("Removing corrupt cache entry", "path", path, "error", err)
		c.removeStale(path, data)
		monitoring.CacheLookups.WithLabelValues("corrupt").Inc()
		return false, nil
	}
	if !c.now().Before(e.ExpiresAt) {
		c.removeStale(path, data)
		monitoring.CacheLookups.WithLabelValues("expired").Inc()
		return false, nil
	}
	if err := json.Unmarshal(e.Value, out); err != nil {
		return false, fmt.Errorf("failed to decode cached value for %s: %w", key, err)
	}
	monitoring.CacheLookups.WithLabelValues("hit").Inc()
	return true, nil
}

// Set stores value under key with the default TTL.
func (c *JSONFileCache) Set(key string, value any) error {
	return c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key. A non-positive ttl means the default TTL.
func (c *JSONFileCache) SetWithTTL(key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	now := c.now()
	data, err := json.Marshal(entry{Key: key, StoredAt: now, ExpiresAt: now.Add(ttl), Value: raw})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), c.filename(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	monitoring.CacheWrites.Inc()
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *JSONFileCache) Delete(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.filename(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Purge removes every expired or unreadable entry and returns how many files it deleted.
func (c *JSONFileCache) Purge() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(c.dir, "*"+fileSuffix))
	if err != nil {
		return 0, err
	}
	now := c.now()
	removed := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e entry
		if json.Unmarshal(data, &e) == nil && now.Before(e.ExpiresAt) {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of entries on disk, expired ones included.
func (c *JSONFileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	files, _ := filepath.Glob(filepath.Join(c.dir, "*"+fileSuffix))
	return len(files)
}

// removeStale deletes path only if it still holds the bytes Get judged stale,
// so an entry written by a concurrent Set survives.
func (c *JSONFileCache) removeStale(path string, seen []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(current, seen) {
		return
	}
	os.Remove(path)
}
