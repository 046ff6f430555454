// Package pipeline orchestrates the prediction flow: cached result if
// fresh enough, otherwise news retrieval, generation, reconciliation and
// persistence, with a nationwide refresh that runs prefectures
// concurrently under a bounded semaphore.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"senkyo/internal/aggregate"
	"senkyo/internal/cache"
	"senkyo/internal/core"
	"senkyo/internal/logger"
	"senkyo/internal/news"
	"senkyo/internal/refdata"
)

const defaultConcurrency = 3

// fastModeNotice replaces live news in fast mode, telling the model to
// predict from candidate data and general trends instead.
const fastModeNotice = "（高速モード：リアルタイムニュースなし。候補者データと一般的な選挙トレンドに基づいて予測してください）"

// NewsFetcher retrieves election news for a prefecture, or nationwide
// when pref is nil.
type NewsFetcher interface {
	FetchNews(ctx context.Context, pref *refdata.Prefecture) (*news.Result, error)
}

// PredictionGenerator turns news text into a structured prediction. It
// never returns nil; on failure it degrades to a deterministic estimate.
type PredictionGenerator interface {
	Generate(ctx context.Context, newsText string, pref *refdata.Prefecture, fastMode bool) *core.Prediction
}

// Request describes one prediction request.
type Request struct {
	PrefectureID int  // 0 means the national scope
	ForceRefresh bool // Bypass the prediction cache
	FastMode     bool // No live news, no per-district generation
}

// Orchestrator wires the news source, generator and caches together.
type Orchestrator struct {
	fetcher     NewsFetcher
	generator   PredictionGenerator
	newsCache   *news.Cache
	predictions *cache.PredictionCache
	aggregator  *aggregate.Aggregator
	concurrency int
}

// New creates an orchestrator. concurrency bounds RefreshAll; values below
// one fall back to the default of three.
func New(fetcher NewsFetcher, generator PredictionGenerator, newsCache *news.Cache, predictions *cache.PredictionCache, concurrency int) *Orchestrator {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Orchestrator{
		fetcher:     fetcher,
		generator:   generator,
		newsCache:   newsCache,
		predictions: predictions,
		aggregator:  aggregate.New(predictions),
		concurrency: concurrency,
	}
}

// resolvePrefecture maps a request ID to a prefecture, nil for national.
func resolvePrefecture(id int) (*refdata.Prefecture, error) {
	if id == 0 {
		return nil, nil
	}
	pref := refdata.PrefectureByID(id)
	if pref == nil {
		return nil, fmt.Errorf("unknown prefecture id %d", id)
	}
	return pref, nil
}

// Predict serves one prediction request. Resolution order: cached
// prediction unless ForceRefresh, then a fresh generation from news. When
// news retrieval fails but a cached prediction exists, the stale cache
// wins over a news-free generation. Fast mode skips news retrieval
// entirely and generates from candidate data alone.
func (o *Orchestrator) Predict(ctx context.Context, req Request) (*core.Prediction, error) {
	pref, err := resolvePrefecture(req.PrefectureID)
	if err != nil {
		return nil, err
	}
	log := logger.Get()

	cached, err := o.loadCached(ctx, pref)
	if err != nil {
		return nil, err
	}
	if cached != nil && !cached.IsPlaceholder() && !req.ForceRefresh {
		log.Info("serving cached prediction", "scope", scopeName(pref), "cachedAt", cached.Timestamp)
		return cached, nil
	}

	newsText := fastModeNotice
	if !req.FastMode {
		newsText, err = o.newsFor(ctx, pref, req.ForceRefresh)
		if err != nil {
			if cached != nil && !cached.IsPlaceholder() {
				log.Warn("news retrieval failed, serving stale prediction",
					"scope", scopeName(pref), "error", err.Error())
				return cached, nil
			}
			return nil, fmt.Errorf("news retrieval failed for %s: %w", scopeName(pref), err)
		}
	}

	pred := o.generator.Generate(ctx, newsText, pref, req.FastMode)
	if err := o.saveCached(ctx, pref, pred); err != nil {
		// A failed write degrades durability, not the response.
		log.Warn("failed to cache prediction", "scope", scopeName(pref), "error", err.Error())
	}
	return pred, nil
}

// FetchNewsOnly retrieves (or re-retrieves when force is set) the news for
// one prefecture and stores it, without running prediction generation.
func (o *Orchestrator) FetchNewsOnly(ctx context.Context, prefectureID int, force bool) (*news.Entry, bool, error) {
	pref, err := resolvePrefecture(prefectureID)
	if err != nil {
		return nil, false, err
	}

	query := news.BuildQuery(pref)
	if !force {
		entry, err := o.newsCache.Load(ctx, query)
		if err != nil {
			return nil, false, err
		}
		if entry != nil {
			return entry, true, nil
		}
	}

	result, err := o.fetcher.FetchNews(ctx, pref)
	if err != nil {
		return nil, false, err
	}
	entry := &news.Entry{
		Query:     query,
		Content:   result.Content,
		Sources:   result.Sources,
		Timestamp: result.FetchedAt,
	}
	if err := o.newsCache.Save(ctx, query, entry, pref); err != nil {
		return nil, false, err
	}
	return entry, false, nil
}

// RefreshReport summarizes a nationwide refresh run.
type RefreshReport struct {
	RunID     string         `json:"runId"`            // Correlates the run's log lines
	Succeeded []int          `json:"succeeded"`        // Prefecture IDs refreshed
	Failed    map[int]string `json:"failed,omitempty"` // Prefecture ID -> error
	National  bool           `json:"national"`         // Whether the national aggregate was rebuilt
	Duration  time.Duration  `json:"durationNs"`       // Wall-clock time of the whole run
}

// RefreshAll force-refreshes every prefecture under bounded concurrency,
// then rebuilds the national aggregate from whatever succeeded. One
// prefecture failing never aborts the others.
func (o *Orchestrator) RefreshAll(ctx context.Context, fastMode bool) (*RefreshReport, error) {
	log := logger.Get()
	started := time.Now()
	runID := uuid.NewString()
	log.Info("starting nationwide refresh", "runId", runID,
		"concurrency", o.concurrency, "fast", fastMode)

	sem := semaphore.NewWeighted(int64(o.concurrency))
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	report := &RefreshReport{RunID: runID, Failed: make(map[int]string)}

	for _, pref := range refdata.Prefectures {
		pref := pref
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err // context cancelled
			}
			defer sem.Release(1)

			_, err := o.Predict(gctx, Request{
				PrefectureID: pref.ID,
				ForceRefresh: true,
				FastMode:     fastMode,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("prefecture refresh failed", "prefecture", pref.Name, "error", err.Error())
				report.Failed[pref.ID] = err.Error()
				return nil
			}
			report.Succeeded = append(report.Succeeded, pref.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	sort.Ints(report.Succeeded)

	if _, err := o.aggregator.Run(ctx); err != nil {
		log.Warn("national aggregation failed after refresh", "error", err.Error())
	} else {
		report.National = true
	}

	report.Duration = time.Since(started)
	log.Info("nationwide refresh finished", "runId", runID,
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
		"duration", report.Duration.String())
	return report, nil
}

// Aggregate rebuilds the national forecast from cached prefecture
// predictions and stores it.
func (o *Orchestrator) Aggregate(ctx context.Context) (*core.Prediction, error) {
	return o.aggregator.Run(ctx)
}

// newsFor returns the news text for a scope, fetching and caching on a
// miss or when force is set.
func (o *Orchestrator) newsFor(ctx context.Context, pref *refdata.Prefecture, force bool) (string, error) {
	query := news.BuildQuery(pref)

	if !force {
		entry, err := o.newsCache.Load(ctx, query)
		if err != nil {
			return "", err
		}
		if entry != nil {
			return entry.Content, nil
		}
	}

	result, err := o.fetcher.FetchNews(ctx, pref)
	if err != nil {
		// A stale entry beats no entry even on a forced refresh.
		if entry, cacheErr := o.newsCache.Load(ctx, query); cacheErr == nil && entry != nil {
			logger.Warn("news fetch failed, using cached news",
				"scope", scopeName(pref), "error", err.Error())
			return entry.Content, nil
		}
		return "", err
	}

	entry := &news.Entry{
		Query:     query,
		Content:   result.Content,
		Sources:   result.Sources,
		Timestamp: result.FetchedAt,
	}
	if err := o.newsCache.Save(ctx, query, entry, pref); err != nil {
		logger.Warn("failed to cache news", "scope", scopeName(pref), "error", err.Error())
	}
	return result.Content, nil
}

func (o *Orchestrator) loadCached(ctx context.Context, pref *refdata.Prefecture) (*core.Prediction, error) {
	if pref == nil {
		return o.predictions.LoadNational(ctx)
	}
	return o.predictions.LoadPrefecture(ctx, pref.ID)
}

func (o *Orchestrator) saveCached(ctx context.Context, pref *refdata.Prefecture, pred *core.Prediction) error {
	if pref == nil {
		return o.predictions.SaveNational(ctx, pred)
	}
	return o.predictions.SavePrefecture(ctx, pref.ID, pred)
}

func scopeName(pref *refdata.Prefecture) string {
	if pref == nil {
		return "national"
	}
	return pref.Name
}
