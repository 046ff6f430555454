package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"senkyo/internal/core"
	"senkyo/internal/pipeline"
	"senkyo/internal/refdata"
)

// Health check response
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// MapRegion is one prefecture's entry in the map payload.
type MapRegion struct {
	PrefectureID  int             `json:"prefectureId"`
	Name          string          `json:"name"`
	Districts     int             `json:"districts"`
	LeadingParty  string          `json:"leadingParty,omitempty"`
	Color         string          `json:"color,omitempty"`
	Confidence    core.Confidence `json:"confidence,omitempty"`
	HasPrediction bool            `json:"hasPrediction"`
}

// CacheStatusResponse combines news and prediction cache state.
type CacheStatusResponse struct {
	News        []NewsRegionStatus `json:"news"`
	NewsEntries int                `json:"newsEntries"`
	Predictions any                `json:"predictions"`
}

// NewsRegionStatus mirrors the news cache's per-prefecture index.
type NewsRegionStatus struct {
	PrefectureID int    `json:"prefectureId"`
	HasCached    bool   `json:"hasCached"`
	CachedAt     string `json:"cachedAt,omitempty"`
}

var serverStartTime = time.Now()

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(serverStartTime).Round(time.Second).String(),
	})
}

// handlePredict handles GET /api/predict. The dashboard always needs
// something to render, so failures degrade to the placeholder prediction
// with status 200 rather than an error payload.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	prefectureID, ok := s.prefectureParam(w, r, false)
	if !ok {
		return
	}

	req := pipeline.Request{
		PrefectureID: prefectureID,
		ForceRefresh: r.URL.Query().Get("refresh") == "true",
		FastMode:     r.URL.Query().Get("fast") == "true",
	}

	pred, err := s.orchestrator.Predict(r.Context(), req)
	if err != nil {
		s.log.Warn("prediction request failed, serving placeholder",
			"prefecture", prefectureID, "error", err.Error())
		pred = pipeline.Placeholder(prefectureID)
	}
	s.respondJSON(w, http.StatusOK, pred)
}

// handleJapanMap handles GET /api/japan-map. Each prefecture is reported
// with its cached leading party and the party's display color; prefectures
// without a cached prediction still appear, uncolored.
func (s *Server) handleJapanMap(w http.ResponseWriter, r *http.Request) {
	normalizer := refdata.NewNormalizer(refdata.Parties)
	regions := make([]MapRegion, 0, len(refdata.Prefectures))

	for _, pref := range refdata.Prefectures {
		region := MapRegion{
			PrefectureID: pref.ID,
			Name:         pref.Name,
			Districts:    pref.Districts,
		}

		pred, err := s.predictions.LoadPrefecture(r.Context(), pref.ID)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "failed to read prediction cache")
			return
		}
		if pred != nil && !pred.IsPlaceholder() && len(pred.PrefecturePredictions) > 0 {
			pp := pred.PrefecturePredictions[0]
			region.HasPrediction = true
			region.LeadingParty = normalizer.Normalize(pp.LeadingParty)
			region.Confidence = pp.Confidence
			if party := refdata.PartyByName(region.LeadingParty); party != nil {
				region.Color = party.Color
			}
		}
		regions = append(regions, region)
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"totalSeats": core.TotalSeats,
		"regions":    regions,
	})
}

// handleCacheStatus handles GET /api/cache/status
func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	newsStatus, err := s.newsCache.Status(r.Context(), refdata.Prefectures)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read news cache")
		return
	}
	entries, err := s.newsCache.Count(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read news cache")
		return
	}
	predStatus, err := s.predictions.Status(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read prediction cache")
		return
	}

	resp := CacheStatusResponse{
		News:        make([]NewsRegionStatus, 0, len(newsStatus)),
		NewsEntries: entries,
		Predictions: predStatus,
	}
	for _, ns := range newsStatus {
		status := NewsRegionStatus{
			PrefectureID: ns.PrefectureID,
			HasCached:    ns.HasCached,
		}
		if ns.HasCached {
			status.CachedAt = ns.CachedAt.Format(time.RFC3339)
		}
		resp.News = append(resp.News, status)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleClearNews handles POST /api/cache/news/clear
func (s *Server) handleClearNews(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.newsCache.ClearAll(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to clear news cache")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// handleClearPredictions handles POST /api/cache/predictions/clear. Only
// per-prefecture records are dropped; the national slot stays until the
// next aggregation overwrites it.
func (s *Server) handleClearPredictions(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.predictions.ClearPrefectures(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to clear prediction cache")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// handleFetchNews handles POST /api/news/fetch
func (s *Server) handleFetchNews(w http.ResponseWriter, r *http.Request) {
	prefectureID, ok := s.prefectureParam(w, r, true)
	if !ok {
		return
	}
	force := r.URL.Query().Get("force") == "true"

	entry, fromCache, err := s.orchestrator.FetchNewsOnly(r.Context(), prefectureID, force)
	if err != nil {
		s.log.Warn("news fetch failed", "prefecture", prefectureID, "error", err.Error())
		s.respondError(w, http.StatusBadGateway, "news retrieval failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"cached":    fromCache,
		"fetchedAt": entry.Timestamp.Format(time.RFC3339),
		"sources":   len(entry.Sources),
	})
}

// prefectureParam parses the prefecture query parameter (either
// "prefecture" or the frontend's "prefectureId"). Zero (or absent, unless
// required) means the national scope.
func (s *Server) prefectureParam(w http.ResponseWriter, r *http.Request, required bool) (int, bool) {
	raw := r.URL.Query().Get("prefecture")
	if raw == "" {
		raw = r.URL.Query().Get("prefectureId")
	}
	if raw == "" {
		if required {
			s.respondError(w, http.StatusBadRequest, "prefecture parameter is required")
			return 0, false
		}
		return 0, true
	}

	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 || id > len(refdata.Prefectures) {
		s.respondError(w, http.StatusBadRequest, "invalid prefecture parameter")
		return 0, false
	}
	return id, true
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes a JSON error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
