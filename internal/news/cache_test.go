package news

import (
	"context"
	"strings"
	"testing"
	"time"

	"senkyo/internal/refdata"
	"senkyo/internal/store"
)

func TestBuildQuery(t *testing.T) {
	national := BuildQuery(nil)
	if !strings.Contains(national, "全国情勢") {
		t.Errorf("national query should ask for the nationwide situation, got %q", national)
	}

	tokyo := refdata.PrefectureByID(13)
	q := BuildQuery(tokyo)
	if !strings.Contains(q, "東京都") {
		t.Errorf("prefecture query should contain the prefecture name, got %q", q)
	}
	if q == national {
		t.Error("prefecture and national queries must differ")
	}
}

func TestCache_SaveLoad(t *testing.T) {
	c := NewCache(store.NewMemoryStore())
	ctx := context.Background()

	query := BuildQuery(refdata.PrefectureByID(13))
	if entry, err := c.Load(ctx, query); err != nil || entry != nil {
		t.Fatalf("Load before save = (%v, %v), want (nil, nil)", entry, err)
	}

	saved := &Entry{
		Query:     query,
		Content:   "世論調査によると...",
		Sources:   []string{"https://example.jp/poll"},
		Timestamp: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := c.Save(ctx, query, saved, refdata.PrefectureByID(13)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entry, err := c.Load(ctx, query)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entry == nil || entry.Content != saved.Content {
		t.Errorf("Load = %+v, want content %q", entry, saved.Content)
	}
	if len(entry.Sources) != 1 {
		t.Errorf("Load returned %d sources, want 1", len(entry.Sources))
	}
}

func TestCache_DistinctQueriesDistinctEntries(t *testing.T) {
	c := NewCache(store.NewMemoryStore())
	ctx := context.Background()

	_ = c.Save(ctx, "query A", &Entry{Query: "query A", Content: "a"}, nil)
	_ = c.Save(ctx, "query B", &Entry{Query: "query B", Content: "b"}, nil)

	count, err := c.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}

	a, _ := c.Load(ctx, "query A")
	if a == nil || a.Content != "a" {
		t.Errorf("Load(query A) = %+v, want content \"a\"", a)
	}
}

func TestCache_Status(t *testing.T) {
	c := NewCache(store.NewMemoryStore())
	ctx := context.Background()

	tokyo := refdata.PrefectureByID(13)
	ts := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	query := BuildQuery(tokyo)
	if err := c.Save(ctx, query, &Entry{Query: query, Content: "x", Timestamp: ts}, tokyo); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	statuses, err := c.Status(ctx, refdata.Prefectures)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(statuses) != 47 {
		t.Fatalf("Status returned %d entries, want 47", len(statuses))
	}

	for _, s := range statuses {
		if s.PrefectureID == 13 {
			if !s.HasCached {
				t.Error("東京都 should be reported as cached")
			}
			if !s.CachedAt.Equal(ts) {
				t.Errorf("CachedAt = %v, want %v", s.CachedAt, ts)
			}
		} else if s.HasCached {
			t.Errorf("prefecture %d should not be reported as cached", s.PrefectureID)
		}
	}
}

func TestCache_ClearAll(t *testing.T) {
	kv := store.NewMemoryStore()
	c := NewCache(kv)
	ctx := context.Background()

	tokyo := refdata.PrefectureByID(13)
	query := BuildQuery(tokyo)
	_ = c.Save(ctx, query, &Entry{Query: query, Content: "x", Timestamp: time.Now()}, tokyo)
	// Unrelated records must survive.
	_ = kv.Put(ctx, "prediction:pref:13", []byte("{}"))

	deleted, err := c.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if deleted != 2 { // entry + index record
		t.Errorf("ClearAll deleted %d records, want 2", deleted)
	}

	if entry, _ := c.Load(ctx, query); entry != nil {
		t.Error("entry should be gone after ClearAll")
	}
	if _, err := kv.Get(ctx, "prediction:pref:13"); err != nil {
		t.Error("prediction records must survive a news cache clear")
	}

	statuses, _ := c.Status(ctx, refdata.Prefectures)
	for _, s := range statuses {
		if s.HasCached {
			t.Errorf("prefecture %d still reported cached after ClearAll", s.PrefectureID)
		}
	}
}
