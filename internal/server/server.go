// Package server provides the HTTP boundary for Quotedeck.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quotedeck/quotedeck/internal/aggregate"
	"github.com/quotedeck/quotedeck/internal/config"
	"github.com/quotedeck/quotedeck/internal/database"
	"github.com/quotedeck/quotedeck/internal/fetch"
)

// routes is the public surface, echoed on 404s.
var routes = []string{
	"GET /ticker/{symbol}",
	"GET /quote/{symbol}",
	"GET /quotes/{symbols}",
	"GET /chart/{symbol}?range=&interval=",
	"GET /options/{symbol}",
	"GET /options-chain/{symbol}?date=",
	"GET /financials/{symbol}",
	"GET /holdings/{symbol}",
	"GET /health",
}

// Config holds server configuration.
type Config struct {
	Log          zerolog.Logger
	Config       *config.Config
	CacheDB      *database.DB
	Fetcher      *fetch.Service
	Orchestrator *aggregate.Orchestrator
}

// Server is the HTTP server.
type Server struct {
	router       *chi.Mux
	server       *http.Server
	log          zerolog.Logger
	cfg          *config.Config
	cacheDB      *database.DB
	fetcher      *fetch.Service
	orchestrator *aggregate.Orchestrator
	instanceID   string
	startedAt    time.Time
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		log:          cfg.Log.With().Str("component", "server").Logger(),
		cfg:          cfg.Config,
		cacheDB:      cfg.CacheDB,
		fetcher:      cfg.Fetcher,
		orchestrator: cfg.Orchestrator,
		instanceID:   uuid.New().String(),
		startedAt:    time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery from panics, as JSON
	s.router.Use(s.recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Get("/ticker/{symbol}", s.handleTicker)
	s.router.Get("/quote/{symbol}", s.handleQuote)
	s.router.Get("/quotes/{symbols}", s.handleQuotes)
	s.router.Get("/chart/{symbol}", s.handleChart)
	s.router.Get("/options/{symbol}", s.handleOptions)
	s.router.Get("/options-chain/{symbol}", s.handleOptionsChain)
	s.router.Get("/financials/{symbol}", s.handleFinancials)
	s.router.Get("/holdings/{symbol}", s.handleHoldings)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":  "not found",
			"routes": routes,
		})
	})

	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
			"error": "method not allowed",
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Str("instance_id", s.instanceID).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// recoverer converts a handler panic into a 500 JSON response. The boundary
// is the last line of defense; nothing escapes to the runtime uncaught.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("Handler panicked")
				s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
					"error": fmt.Sprintf("%v", rec),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
