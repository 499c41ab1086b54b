package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/predictpesa/settlement/internal/engine"
	"github.com/predictpesa/settlement/internal/events"
	"github.com/predictpesa/settlement/pkg/cache"
	"github.com/predictpesa/settlement/pkg/healthprobe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the engine operations plus metrics and health checks.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Engine        *engine.Engine
	Events        *events.Broadcaster // optional
	SnapshotCache cache.Cache         // optional
	SnapshotTTL   time.Duration
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	h := newHandler(cfg.Engine, cfg.SnapshotCache, cfg.SnapshotTTL, cfg.Logger)
	r.Route("/api", func(r chi.Router) {
		r.Post("/markets", h.createMarket)
		r.Get("/markets", h.listMarkets)
		r.Get("/markets/{id}", h.getMarket)
		r.Post("/markets/{id}/stakes", h.stake)
		r.Post("/markets/{id}/refunds", h.refund)
		r.Post("/markets/{id}/reports", h.submitReport)
		r.Get("/markets/{id}/resolution", h.getResolution)
		r.Get("/markets/{id}/disputes", h.listDisputes)
		r.Post("/markets/{id}/disputes", h.raiseDispute)
		r.Post("/markets/{id}/disputes/{index}/resolve", h.resolveDispute)
		r.Post("/markets/{id}/claims", h.claim)
		r.Post("/markets/{id}/cancel", h.cancelMarket)
		r.Get("/markets/{id}/pool", h.getPool)
		r.Post("/markets/{id}/pool/liquidity", h.addLiquidity)
		r.Post("/markets/{id}/pool/liquidity/remove", h.removeLiquidity)
		r.Post("/markets/{id}/pool/swaps", h.swap)
		r.Get("/sources", h.listSources)
		r.Post("/sources", h.registerSource)
		r.Post("/sources/{addr}/verify", h.verifySource)
	})

	if cfg.Events != nil {
		r.Get("/ws/events", cfg.Events.HandleWS)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
