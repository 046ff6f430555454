// Package cache persists the latest structured prediction per prefecture
// plus a single national slot. Records are overwritten whole on each
// refresh; no history is retained and concurrent writers to one key race
// with last-write-wins semantics.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"senkyo/internal/core"
	"senkyo/internal/store"
)

const (
	prefectureKeyPrefix = "prediction:pref:"
	nationalKey         = "prediction:national"
)

// ErrPlaceholder is returned when a caller tries to persist a placeholder
// prediction (empty timestamp). Placeholders are transient and must never
// reach the authoritative cache.
var ErrPlaceholder = errors.New("cache: refusing to persist placeholder prediction")

// PredictionCache stores predictions in the underlying key-value store.
type PredictionCache struct {
	store store.Store
}

// New creates a prediction cache over the given store.
func New(s store.Store) *PredictionCache {
	return &PredictionCache{store: s}
}

func prefectureKey(id int) string {
	return prefectureKeyPrefix + strconv.Itoa(id)
}

// load reads and decodes one prediction record; a missing key yields
// (nil, nil).
func (c *PredictionCache) load(ctx context.Context, key string) (*core.Prediction, error) {
	rec, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load prediction %q: %w", key, err)
	}

	pred := &core.Prediction{}
	if err := json.Unmarshal(rec.Value, pred); err != nil {
		return nil, fmt.Errorf("failed to decode prediction %q: %w", key, err)
	}
	return pred, nil
}

// save encodes and writes one prediction record, rejecting placeholders.
func (c *PredictionCache) save(ctx context.Context, key string, pred *core.Prediction) error {
	if pred.IsPlaceholder() {
		return ErrPlaceholder
	}
	payload, err := json.Marshal(pred)
	if err != nil {
		return fmt.Errorf("failed to encode prediction %q: %w", key, err)
	}
	if err := c.store.Put(ctx, key, payload); err != nil {
		return fmt.Errorf("failed to save prediction %q: %w", key, err)
	}
	return nil
}

// LoadPrefecture returns the cached prediction for a prefecture, or nil
// when none exists.
func (c *PredictionCache) LoadPrefecture(ctx context.Context, prefectureID int) (*core.Prediction, error) {
	return c.load(ctx, prefectureKey(prefectureID))
}

// SavePrefecture overwrites the cached prediction for a prefecture.
func (c *PredictionCache) SavePrefecture(ctx context.Context, prefectureID int, pred *core.Prediction) error {
	return c.save(ctx, prefectureKey(prefectureID), pred)
}

// LoadNational returns the cached national prediction, or nil when none
// exists.
func (c *PredictionCache) LoadNational(ctx context.Context) (*core.Prediction, error) {
	return c.load(ctx, nationalKey)
}

// SaveNational overwrites the national prediction slot.
func (c *PredictionCache) SaveNational(ctx context.Context, pred *core.Prediction) error {
	return c.save(ctx, nationalKey, pred)
}

// ClearPrefectures deletes every per-prefecture record. The national slot
// is left alone.
func (c *PredictionCache) ClearPrefectures(ctx context.Context) (int, error) {
	records, err := c.store.List(ctx, prefectureKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list prediction cache: %w", err)
	}
	deleted := 0
	for _, rec := range records {
		if err := c.store.Delete(ctx, rec.Key); err != nil {
			return deleted, fmt.Errorf("failed to delete prediction record: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// Status describes what the prediction cache currently holds.
type Status struct {
	NationalCachedAt string `json:"nationalCachedAt,omitempty"` // Timestamp of the national slot
	PrefectureIDs    []int  `json:"prefectureIds"`              // Prefectures with a cached prediction
}

// Status reports the national slot's timestamp and the sorted list of
// prefectures with cached predictions.
func (c *PredictionCache) Status(ctx context.Context) (*Status, error) {
	status := &Status{PrefectureIDs: []int{}}

	national, err := c.LoadNational(ctx)
	if err != nil {
		return nil, err
	}
	if national != nil {
		status.NationalCachedAt = national.Timestamp
	}

	records, err := c.store.List(ctx, prefectureKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list prediction cache: %w", err)
	}
	for _, rec := range records {
		id, err := strconv.Atoi(strings.TrimPrefix(rec.Key, prefectureKeyPrefix))
		if err != nil {
			continue
		}
		status.PrefectureIDs = append(status.PrefectureIDs, id)
	}
	sort.Ints(status.PrefectureIDs)
	return status, nil
}
