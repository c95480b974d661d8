package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	lerr "github.com/syndtr/goleveldb/leveldb/errors"
	lutil "github.com/syndtr/goleveldb/leveldb/util"
)

// pageKeyPrefix namespaces page entries in the database.
var pageKeyPrefix = []byte("page:")

// LevelDBCache is an on-disk page cache.
type LevelDBCache struct {
	db  *leveldb.DB
	ttl time.Duration
	now func() time.Time
}

type cacheEntry struct {
	Markup    string    `json:"markup"`
	FetchedAt time.Time `json:"fetched_at"`
}

// OpenLevelDBCache opens or creates a cache at path, recovering a corrupted
// database. A ttl of zero keeps entries forever.
func OpenLevelDBCache(path string, ttl time.Duration) (*LevelDBCache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if lerr.IsCorrupted(err) {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open page cache %s: %w", path, err)
	}
	return &LevelDBCache{db: db, ttl: ttl, now: time.Now}, nil
}

// Close releases the database.
func (c *LevelDBCache) Close() error {
	return c.db.Close()
}

func pageKey(url string) []byte {
	return append(append([]byte{}, pageKeyPrefix...), url...)
}

// Get returns the cached markup for url if present and fresh.
func (c *LevelDBCache) Get(_ context.Context, url string) (string, bool, error) {
	raw, err := c.db.Get(pageKey(url), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	if c.expired(entry) {
		return "", false, nil
	}
	return entry.Markup, true, nil
}

// Put stores markup for url stamped with the current time.
func (c *LevelDBCache) Put(_ context.Context, url, markup string) error {
	raw, err := json.Marshal(cacheEntry{Markup: markup, FetchedAt: c.now()})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.db.Put(pageKey(url), raw, nil); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Prune deletes expired and undecodable entries and returns how many were removed.
func (c *LevelDBCache) Prune() (int, error) {
	iter := c.db.NewIterator(lutil.BytesPrefix(pageKeyPrefix), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		var entry cacheEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil || c.expired(entry) {
			batch.Delete(append([]byte{}, iter.Key()...))
		}
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("failed to scan page cache: %w", err)
	}

	if batch.Len() == 0 {
		return 0, nil
	}
	if err := c.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("failed to prune page cache: %w", err)
	}
	return batch.Len(), nil
}

func (c *LevelDBCache) expired(entry cacheEntry) bool {
	return c.ttl > 0 && c.now().Sub(entry.FetchedAt) >= c.ttl
}
