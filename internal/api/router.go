// Package api exposes the content engine over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/leeaandrob/crecontent/internal/scheduler"
	"github.com/rs/zerolog/log"
)

// JobRunner is the scheduler surface used by the admin routes.
type JobRunner interface {
	JobStatus() []scheduler.JobStatus
	RunJobNow(name string) error
}

// MarketRefresher reloads the market snapshot.
type MarketRefresher interface {
	Refresh(ctx context.Context) (models.MarketContext, error)
}

// Server represents the API server.
type Server struct {
	router    *chi.Mux
	handlers  *Handlers
	scheduler JobRunner
	market    MarketRefresher
	addr      string
	server    *http.Server
}

// NewServer creates a new API server. sched and market may be nil.
func NewServer(handlers *Handlers, sched JobRunner, market MarketRefresher, addr string) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv := &Server{
		router:    r,
		handlers:  handlers,
		scheduler: sched,
		market:    market,
		addr:      addr,
	}

	r.Route("/api", func(r chi.Router) {
		// Health
		r.Get("/health", handlers.HealthCheck)
		r.Get("/stats", handlers.GetStats)
		r.Get("/topics", handlers.GetTopics)

		// Generation
		r.Post("/generate", handlers.Generate)
		r.Post("/resolve", handlers.Resolve)

		// Content queue
		r.Route("/content", func(r chi.Router) {
			r.Get("/", handlers.GetContent)
			r.Get("/queue", handlers.GetQueue)
			r.Get("/{id}", handlers.GetContentByID)
			r.Get("/{id}/markdown", handlers.GetContentMarkdown)
			r.Post("/{id}/status", handlers.UpdateStatus)
		})

		r.Get("/events", handlers.GetEvents)

		// Admin routes (no auth for development)
		r.Route("/admin", func(r chi.Router) {
			r.Get("/jobs", srv.AdminGetJobs)
			r.Post("/jobs/{name}/run", srv.AdminRunJob)
			r.Post("/market/refresh", srv.AdminRefreshMarket)
		})
	})

	return srv
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ============================================================================
// ADMIN HANDLERS
// ============================================================================

// AdminGetJobs returns the status of all scheduled jobs.
func (s *Server) AdminGetJobs(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		respondError(w, http.StatusServiceUnavailable, "Scheduler not available")
		return
	}

	jobs := s.scheduler.JobStatus()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// AdminRunJob runs a specific job by name.
func (s *Server) AdminRunJob(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		respondError(w, http.StatusServiceUnavailable, "Scheduler not available")
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.scheduler.RunJobNow(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "Job not found")
			return
		}
		if errors.Is(err, scheduler.ErrJobRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		if errors.Is(err, scheduler.ErrStopped) {
			respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":  "ok",
		"message": "Job triggered: " + name,
	})
}

// AdminRefreshMarket reloads the market snapshot synchronously.
func (s *Server) AdminRefreshMarket(w http.ResponseWriter, r *http.Request) {
	if s.market == nil {
		respondError(w, http.StatusServiceUnavailable, "Market data not configured")
		return
	}

	snapshot, err := s.market.Refresh(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"indicators": len(snapshot),
		"market":     snapshot,
	})
}
