package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"senkyo/internal/cache"
	"senkyo/internal/core"
	"senkyo/internal/news"
	"senkyo/internal/refdata"
	"senkyo/internal/store"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeFetcher) FetchNews(_ context.Context, pref *refdata.Prefecture) (*news.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &news.Result{
		Content:   "最新の世論調査によると...",
		Sources:   []string{"https://example.jp"},
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	lastNews string
}

func (g *fakeGenerator) Generate(_ context.Context, newsText string, pref *refdata.Prefecture, _ bool) *core.Prediction {
	g.mu.Lock()
	g.calls++
	g.lastNews = newsText
	g.mu.Unlock()

	pred := &core.Prediction{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		NationalSummary: core.NationalSummary{
			TotalSeats:  core.TotalSeats,
			Predictions: []core.PartyForecast{{Party: "自民党", SeatRange: [2]int{170, 200}, Change: -15}},
		},
		KeyBattlegrounds: []string{"東京1区"},
	}
	if pref != nil {
		pred.PrefecturePredictions = []core.PrefecturePrediction{{
			PrefectureID:   pref.ID,
			PrefectureName: pref.Name,
			LeadingParty:   "自民党",
			Confidence:     core.ConfidenceMedium,
			SeatPrediction: []core.PartySeats{{Party: "自民党", Seats: pref.Districts}},
		}}
	}
	return pred
}

func newTestOrchestrator(fetcher *fakeFetcher, generator *fakeGenerator) (*Orchestrator, *cache.PredictionCache) {
	kv := store.NewMemoryStore()
	predictions := cache.New(kv)
	return New(fetcher, generator, news.NewCache(kv), predictions, 2), predictions
}

func TestPredict_CachesAndServesCached(t *testing.T) {
	fetcher := &fakeFetcher{}
	generator := &fakeGenerator{}
	o, predictions := newTestOrchestrator(fetcher, generator)
	ctx := context.Background()

	first, err := o.Predict(ctx, Request{PrefectureID: 13})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if first.IsPlaceholder() {
		t.Fatal("generated prediction must not be a placeholder")
	}
	if fetcher.callCount() != 1 || generator.calls != 1 {
		t.Errorf("cold request: fetcher=%d generator=%d, want 1/1", fetcher.callCount(), generator.calls)
	}

	cached, err := predictions.LoadPrefecture(ctx, 13)
	if err != nil || cached == nil {
		t.Fatalf("prediction was not persisted: (%v, %v)", cached, err)
	}

	second, err := o.Predict(ctx, Request{PrefectureID: 13})
	if err != nil {
		t.Fatalf("Predict (warm) failed: %v", err)
	}
	if fetcher.callCount() != 1 || generator.calls != 1 {
		t.Errorf("warm request should not touch fetcher or generator: fetcher=%d generator=%d",
			fetcher.callCount(), generator.calls)
	}
	if second.Timestamp != first.Timestamp {
		t.Error("warm request should serve the cached prediction")
	}
}

func TestPredict_ForceRefreshRegenerates(t *testing.T) {
	fetcher := &fakeFetcher{}
	generator := &fakeGenerator{}
	o, _ := newTestOrchestrator(fetcher, generator)
	ctx := context.Background()

	if _, err := o.Predict(ctx, Request{PrefectureID: 13}); err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if _, err := o.Predict(ctx, Request{PrefectureID: 13, ForceRefresh: true}); err != nil {
		t.Fatalf("Predict (force) failed: %v", err)
	}
	if generator.calls != 2 {
		t.Errorf("force refresh should regenerate, generator calls = %d", generator.calls)
	}
	if fetcher.callCount() != 2 {
		t.Errorf("force refresh should refetch news, fetcher calls = %d", fetcher.callCount())
	}
}

func TestPredict_StaleCacheBeatsNewsFailure(t *testing.T) {
	fetcher := &fakeFetcher{}
	generator := &fakeGenerator{}
	o, _ := newTestOrchestrator(fetcher, generator)
	ctx := context.Background()

	if _, err := o.Predict(ctx, Request{PrefectureID: 13}); err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	fetcher.err = errors.New("service down")
	// Cached news exists from the first call, so a forced refresh still
	// regenerates from it rather than serving stale output.
	if _, err := o.Predict(ctx, Request{PrefectureID: 13, ForceRefresh: true}); err != nil {
		t.Fatalf("Predict with cached news failed: %v", err)
	}
	if generator.calls != 2 {
		t.Errorf("generator calls = %d, want 2 (regenerated from cached news)", generator.calls)
	}

	// With the news cache gone too, the stale prediction wins over an
	// error response.
	if _, err := o.newsCache.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	stale, err := o.Predict(ctx, Request{PrefectureID: 13, ForceRefresh: true})
	if err != nil {
		t.Fatalf("Predict should serve the stale prediction: %v", err)
	}
	if stale.IsPlaceholder() {
		t.Error("stale prediction must be real cached data")
	}
	if generator.calls != 2 {
		t.Errorf("generator calls = %d, want 2 (no regeneration without news)", generator.calls)
	}
}

func TestPredict_FastModeSkipsNewsRetrieval(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("must not be called")}
	generator := &fakeGenerator{}
	o, _ := newTestOrchestrator(fetcher, generator)

	pred, err := o.Predict(context.Background(), Request{
		PrefectureID: 13,
		ForceRefresh: true,
		FastMode:     true,
	})
	if err != nil {
		t.Fatalf("Predict (fast) failed: %v", err)
	}
	if pred.IsPlaceholder() {
		t.Error("fast mode should still produce a real prediction")
	}
	if fetcher.callCount() != 0 {
		t.Errorf("fast mode called the news fetcher %d times, want 0", fetcher.callCount())
	}
	if !strings.Contains(generator.lastNews, "高速モード") {
		t.Errorf("generator received %q, want the fast-mode notice", generator.lastNews)
	}
}

func TestPredict_NewsFailureWithoutAnyCache(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("service down")}
	generator := &fakeGenerator{}
	o, _ := newTestOrchestrator(fetcher, generator)

	_, err := o.Predict(context.Background(), Request{PrefectureID: 13})
	if err == nil {
		t.Fatal("expected error when news fails and nothing is cached")
	}
	if generator.calls != 0 {
		t.Errorf("generator should not run without news, calls = %d", generator.calls)
	}
}

func TestPredict_UnknownPrefecture(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeFetcher{}, &fakeGenerator{})

	if _, err := o.Predict(context.Background(), Request{PrefectureID: 99}); err == nil {
		t.Error("expected error for unknown prefecture ID")
	}
}

func TestFetchNewsOnly(t *testing.T) {
	fetcher := &fakeFetcher{}
	o, _ := newTestOrchestrator(fetcher, &fakeGenerator{})
	ctx := context.Background()

	entry, cached, err := o.FetchNewsOnly(ctx, 13, false)
	if err != nil {
		t.Fatalf("FetchNewsOnly failed: %v", err)
	}
	if cached {
		t.Error("first fetch cannot be served from cache")
	}
	if entry.Content == "" {
		t.Error("entry should carry content")
	}

	_, cached, err = o.FetchNewsOnly(ctx, 13, false)
	if err != nil {
		t.Fatalf("FetchNewsOnly (warm) failed: %v", err)
	}
	if !cached {
		t.Error("second fetch should come from cache")
	}
	if fetcher.callCount() != 1 {
		t.Errorf("fetcher calls = %d, want 1", fetcher.callCount())
	}

	if _, cached, err = o.FetchNewsOnly(ctx, 13, true); err != nil || cached {
		t.Errorf("forced fetch = (cached=%v, err=%v), want a fresh fetch", cached, err)
	}
	if fetcher.callCount() != 2 {
		t.Errorf("fetcher calls = %d, want 2 after force", fetcher.callCount())
	}
}

func TestRefreshAll(t *testing.T) {
	fetcher := &fakeFetcher{}
	generator := &fakeGenerator{}
	o, predictions := newTestOrchestrator(fetcher, generator)
	ctx := context.Background()

	report, err := o.RefreshAll(ctx, true)
	if err != nil {
		t.Fatalf("RefreshAll failed: %v", err)
	}
	if len(report.Succeeded) != 47 || len(report.Failed) != 0 {
		t.Errorf("refresh report = %d ok / %d failed, want 47/0",
			len(report.Succeeded), len(report.Failed))
	}
	if report.RunID == "" {
		t.Error("refresh report should carry a run ID")
	}
	if !report.National {
		t.Error("national aggregate should be rebuilt after a full refresh")
	}

	national, err := predictions.LoadNational(ctx)
	if err != nil || national == nil {
		t.Errorf("national prediction missing after refresh: (%v, %v)", national, err)
	}
}

func TestRefreshAll_IsolatesFailures(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("service down")}
	o, _ := newTestOrchestrator(fetcher, &fakeGenerator{})

	report, err := o.RefreshAll(context.Background(), false)
	if err != nil {
		t.Fatalf("RefreshAll should not abort on per-prefecture failures: %v", err)
	}
	if len(report.Failed) != 47 || len(report.Succeeded) != 0 {
		t.Errorf("refresh report = %d ok / %d failed, want 0/47",
			len(report.Succeeded), len(report.Failed))
	}
	if report.National {
		t.Error("aggregation cannot succeed with nothing cached")
	}
}

func TestPlaceholder(t *testing.T) {
	national := Placeholder(0)
	if !national.IsPlaceholder() {
		t.Error("placeholder must have an empty timestamp")
	}
	if len(national.NationalSummary.Predictions) == 0 {
		t.Error("placeholder must still carry a baseline forecast")
	}

	tokyo := Placeholder(13)
	if len(tokyo.PrefecturePredictions) != 1 {
		t.Fatalf("prefecture placeholder blocks = %d, want 1", len(tokyo.PrefecturePredictions))
	}
	p := tokyo.PrefecturePredictions[0]
	if p.PrefectureID != 13 || p.Confidence != core.ConfidenceLow {
		t.Errorf("placeholder block = %+v", p)
	}
	if got := p.SeatTotal(); got != 30 {
		t.Errorf("placeholder seat total = %d, want 30", got)
	}
}
