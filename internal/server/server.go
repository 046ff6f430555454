// Package server exposes the prediction pipeline over HTTP for the
// dashboard frontend.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"senkyo/internal/cache"
	"senkyo/internal/config"
	"senkyo/internal/logger"
	"senkyo/internal/news"
	"senkyo/internal/pipeline"
)

// Server represents the HTTP server
type Server struct {
	router       *chi.Mux
	httpServer   *http.Server
	orchestrator *pipeline.Orchestrator
	newsCache    *news.Cache
	predictions  *cache.PredictionCache
	config       config.Server
	log          *slog.Logger
}

// New creates a new HTTP server instance
func New(orchestrator *pipeline.Orchestrator, newsCache *news.Cache, predictions *cache.PredictionCache, cfg config.Server) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		orchestrator: orchestrator,
		newsCache:    newsCache,
		predictions:  predictions,
		config:       cfg,
		log:          logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // a cold prediction runs several model calls
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(5 * time.Minute))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/predict", s.handlePredict)
		r.Get("/japan-map", s.handleJapanMap)

		r.Route("/cache", func(r chi.Router) {
			r.Get("/status", s.handleCacheStatus)
			r.Post("/news/clear", s.handleClearNews)
			r.Post("/predictions/clear", s.handleClearPredictions)
		})

		r.Post("/news/fetch", s.handleFetchNews)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
