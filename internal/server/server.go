// Package server provides the HTTP server and routing for DealDesk.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/dealdesk/internal/config"
	"github.com/aristath/dealdesk/internal/di"
	crmhandlers "github.com/aristath/dealdesk/internal/modules/crm/handlers"
	dashboardhandlers "github.com/aristath/dealdesk/internal/modules/dashboard/handlers"
	insightshandlers "github.com/aristath/dealdesk/internal/modules/insights/handlers"
)

// requestTimeout bounds every request except the streaming ones
const requestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // All wired services
	Version   string
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	version        string
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		version:   cfg.Version,
	}

	s.systemHandlers = NewSystemHandlers(
		cfg.Container.DB,
		cfg.Container.Scheduler,
		cfg.Container.DashboardService,
		cfg.Container.BackupService != nil,
		cfg.Config.DataDir,
		cfg.Log,
	)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	// No Read/WriteTimeout: they would cut live dashboard sockets and the
	// event stream. Regular requests are bounded by the timeout middleware.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	crmHandler := crmhandlers.NewHandler(s.container.CRMService, s.log)
	insightsHandler := insightshandlers.NewHandler(
		s.container.InsightsService,
		s.container.CRMService,
		s.cfg.MaxInsights,
		s.log,
	)
	dashboardHandler := dashboardhandlers.NewHandler(s.container.DashboardService, s.cfg.MaxInsights, s.log)
	dashboardHandler.SetOriginPatterns(s.cfg.LiveOriginPatterns)
	eventsStream := NewEventsStreamHandler(s.container.EventBus, s.log)

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived connections, mounted outside the timeout group
		dashboardHandler.RegisterLiveRoutes(r)
		r.Get("/events/stream", eventsStream.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			crmHandler.RegisterRoutes(r)
			insightsHandler.RegisterRoutes(r)
			dashboardHandler.RegisterRoutes(r)

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
				r.Post("/jobs/{name}", s.systemHandlers.HandleTriggerJob)
				r.Post("/backup", s.systemHandlers.HandleTriggerBackup)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
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
