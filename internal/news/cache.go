package news

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"senkyo/internal/refdata"
	"senkyo/internal/store"
)

const (
	entryKeyPrefix = "news:query:"
	indexKeyPrefix = "news:index:"
)

// Entry is one cached news payload. Entries are keyed by a hash of the
// exact query string, so two phrasings of the same question produce two
// entries. Entries have no TTL; they live until cleared.
type Entry struct {
	Query     string    `json:"query"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}

// RegionStatus reports whether a prefecture has cached news.
type RegionStatus struct {
	PrefectureID int       `json:"prefectureId"`
	HasCached    bool      `json:"hasCached"`
	CachedAt     time.Time `json:"cachedAt,omitempty"`
}

// Cache is the persistent news cache.
type Cache struct {
	store store.Store
}

// NewCache creates a news cache over the given store.
func NewCache(s store.Store) *Cache {
	return &Cache{store: s}
}

// queryKey hashes the exact query string into a store key.
func queryKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return entryKeyPrefix + hex.EncodeToString(sum[:])
}

// Load returns the cached entry for query, or nil when none exists.
func (c *Cache) Load(ctx context.Context, query string) (*Entry, error) {
	rec, err := c.store.Get(ctx, queryKey(query))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load news cache entry: %w", err)
	}

	entry := &Entry{}
	if err := json.Unmarshal(rec.Value, entry); err != nil {
		return nil, fmt.Errorf("failed to decode news cache entry: %w", err)
	}
	return entry, nil
}

// Save stores the entry for query, overwriting any previous entry. When the
// query belongs to a prefecture, an index record is written alongside so
// Status can answer per-prefecture lookups without inspecting entry keys.
func (c *Cache) Save(ctx context.Context, query string, entry *Entry, pref *refdata.Prefecture) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode news cache entry: %w", err)
	}
	if err := c.store.Put(ctx, queryKey(query), payload); err != nil {
		return fmt.Errorf("failed to save news cache entry: %w", err)
	}

	if pref != nil {
		ts, err := json.Marshal(entry.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to encode news index record: %w", err)
		}
		key := fmt.Sprintf("%s%d", indexKeyPrefix, pref.ID)
		if err := c.store.Put(ctx, key, ts); err != nil {
			return fmt.Errorf("failed to save news index record: %w", err)
		}
	}
	return nil
}

// ClearAll deletes every cached news entry and index record. Irreversible.
func (c *Cache) ClearAll(ctx context.Context) (int, error) {
	records, err := c.store.List(ctx, "news:")
	if err != nil {
		return 0, fmt.Errorf("failed to list news cache: %w", err)
	}
	deleted := 0
	for _, rec := range records {
		if err := c.store.Delete(ctx, rec.Key); err != nil {
			return deleted, fmt.Errorf("failed to delete news cache entry: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// Count returns the number of cached news entries, excluding index records.
func (c *Cache) Count(ctx context.Context) (int, error) {
	records, err := c.store.List(ctx, entryKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list news cache: %w", err)
	}
	return len(records), nil
}

// Status reports, for every given prefecture, whether news has been cached
// for it and when. The lookup reads the explicit per-prefecture index
// records written by Save.
func (c *Cache) Status(ctx context.Context, prefectures []refdata.Prefecture) ([]RegionStatus, error) {
	statuses := make([]RegionStatus, 0, len(prefectures))
	for _, pref := range prefectures {
		status := RegionStatus{PrefectureID: pref.ID}
		rec, err := c.store.Get(ctx, fmt.Sprintf("%s%d", indexKeyPrefix, pref.ID))
		if err == nil {
			var ts time.Time
			if err := json.Unmarshal(rec.Value, &ts); err == nil {
				status.HasCached = true
				status.CachedAt = ts
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to read news index record: %w", err)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
