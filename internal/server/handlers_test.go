package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"senkyo/internal/cache"
	"senkyo/internal/config"
	"senkyo/internal/core"
	"senkyo/internal/news"
	"senkyo/internal/pipeline"
	"senkyo/internal/refdata"
	"senkyo/internal/store"
)

type stubFetcher struct {
	err error
}

func (f *stubFetcher) FetchNews(_ context.Context, _ *refdata.Prefecture) (*news.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &news.Result{Content: "ニュース", FetchedAt: time.Now().UTC()}, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, _ string, pref *refdata.Prefecture, _ bool) *core.Prediction {
	pred := &core.Prediction{
		Timestamp: "2026-02-01T00:00:00Z",
		NationalSummary: core.NationalSummary{
			TotalSeats:  core.TotalSeats,
			Predictions: []core.PartyForecast{{Party: "自民党", SeatRange: [2]int{170, 200}, Change: -15}},
		},
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

func newTestServer(fetcher *stubFetcher) (*Server, *cache.PredictionCache) {
	kv := store.NewMemoryStore()
	newsCache := news.NewCache(kv)
	predictions := cache.New(kv)
	orchestrator := pipeline.New(fetcher, stubGenerator{}, newsCache, predictions, 2)

	cfg := config.Server{Host: "127.0.0.1", Port: 0, AllowedOrigins: []string{"*"}}
	return New(orchestrator, newsCache, predictions, cfg), predictions
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(&stubFetcher{})
	rec := doRequest(t, s, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestHandlePredict(t *testing.T) {
	s, _ := newTestServer(&stubFetcher{})
	rec := doRequest(t, s, http.MethodGet, "/api/predict?prefecture=13")
	if rec.Code != http.StatusOK {
		t.Fatalf("predict status = %d, body %s", rec.Code, rec.Body.String())
	}

	var pred core.Prediction
	if err := json.Unmarshal(rec.Body.Bytes(), &pred); err != nil {
		t.Fatalf("response is not a prediction: %v", err)
	}
	if pred.IsPlaceholder() {
		t.Error("healthy pipeline should return a real prediction")
	}
	if len(pred.PrefecturePredictions) != 1 || pred.PrefecturePredictions[0].PrefectureID != 13 {
		t.Errorf("unexpected prediction payload: %+v", pred.PrefecturePredictions)
	}
}

func TestHandlePredict_PlaceholderOnFailure(t *testing.T) {
	s, _ := newTestServer(&stubFetcher{err: errors.New("down")})
	rec := doRequest(t, s, http.MethodGet, "/api/predict?prefecture=13")

	// The read path never errors: the dashboard gets a placeholder.
	if rec.Code != http.StatusOK {
		t.Fatalf("predict status = %d, want 200 even on failure", rec.Code)
	}
	var pred core.Prediction
	if err := json.Unmarshal(rec.Body.Bytes(), &pred); err != nil {
		t.Fatalf("response is not a prediction: %v", err)
	}
	if !pred.IsPlaceholder() {
		t.Error("failed pipeline should serve the placeholder")
	}
	if len(pred.NationalSummary.Predictions) == 0 {
		t.Error("placeholder must still carry a baseline forecast")
	}
}

func TestHandlePredict_InvalidPrefecture(t *testing.T) {
	s, _ := newTestServer(&stubFetcher{})
	if rec := doRequest(t, s, http.MethodGet, "/api/predict?prefecture=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric prefecture status = %d, want 400", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/api/predict?prefecture=99"); rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range prefecture status = %d, want 400", rec.Code)
	}
}

func TestHandleJapanMap(t *testing.T) {
	s, predictions := newTestServer(&stubFetcher{})
	ctx := context.Background()

	_ = predictions.SavePrefecture(ctx, 13, &core.Prediction{
		Timestamp: "2026-02-01T00:00:00Z",
		PrefecturePredictions: []core.PrefecturePrediction{{
			PrefectureID:   13,
			PrefectureName: "東京都",
			LeadingParty:   "立憲民主党", // superseded name, must be normalized
			Confidence:     core.ConfidenceMedium,
			SeatPrediction: []core.PartySeats{{Party: "立憲民主党", Seats: 30}},
		}},
	})

	rec := doRequest(t, s, http.MethodGet, "/api/japan-map")
	if rec.Code != http.StatusOK {
		t.Fatalf("japan-map status = %d", rec.Code)
	}

	var resp struct {
		TotalSeats int         `json:"totalSeats"`
		Regions    []MapRegion `json:"regions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode map payload: %v", err)
	}
	if resp.TotalSeats != core.TotalSeats {
		t.Errorf("totalSeats = %d", resp.TotalSeats)
	}
	if len(resp.Regions) != 47 {
		t.Fatalf("map has %d regions, want 47", len(resp.Regions))
	}

	for _, region := range resp.Regions {
		if region.PrefectureID == 13 {
			if !region.HasPrediction {
				t.Error("東京都 should have a prediction")
			}
			if region.LeadingParty != "中道改革連合" {
				t.Errorf("leading party = %q, want normalized 中道改革連合", region.LeadingParty)
			}
			if region.Color == "" {
				t.Error("known party should resolve to a display color")
			}
		} else if region.HasPrediction {
			t.Errorf("prefecture %d should have no prediction", region.PrefectureID)
		}
	}
}

func TestHandleCacheEndpoints(t *testing.T) {
	s, predictions := newTestServer(&stubFetcher{})
	ctx := context.Background()

	// Warm the caches through the API.
	if rec := doRequest(t, s, http.MethodPost, "/api/news/fetch?prefecture=13"); rec.Code != http.StatusOK {
		t.Fatalf("news fetch status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := doRequest(t, s, http.MethodGet, "/api/predict?prefecture=13"); rec.Code != http.StatusOK {
		t.Fatalf("predict status = %d", rec.Code)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/cache/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("cache status = %d", rec.Code)
	}
	var status CacheStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode cache status: %v", err)
	}
	if status.NewsEntries == 0 {
		t.Error("news cache should have entries after a fetch")
	}

	if rec := doRequest(t, s, http.MethodPost, "/api/cache/news/clear"); rec.Code != http.StatusOK {
		t.Errorf("news clear status = %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodPost, "/api/cache/predictions/clear"); rec.Code != http.StatusOK {
		t.Errorf("predictions clear status = %d", rec.Code)
	}
	if pred, _ := predictions.LoadPrefecture(ctx, 13); pred != nil {
		t.Error("prediction cache should be empty after clear")
	}
}

func TestHandleFetchNews_RequiresPrefecture(t *testing.T) {
	s, _ := newTestServer(&stubFetcher{})
	if rec := doRequest(t, s, http.MethodPost, "/api/news/fetch"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing prefecture status = %d, want 400", rec.Code)
	}
}

func TestHandleFetchNews_UpstreamFailure(t *testing.T) {
	s, _ := newTestServer(&stubFetcher{err: errors.New("down")})
	if rec := doRequest(t, s, http.MethodPost, "/api/news/fetch?prefecture=13"); rec.Code != http.StatusBadGateway {
		t.Errorf("upstream failure status = %d, want 502", rec.Code)
	}
}
