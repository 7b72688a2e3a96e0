// Package server provides the HTTP server and routing for Confluence.
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

	"github.com/aristath/confluence/internal/config"
	"github.com/aristath/confluence/internal/database"
	"github.com/aristath/confluence/internal/events"
	"github.com/aristath/confluence/internal/modules/decisions"
	decisionhandlers "github.com/aristath/confluence/internal/modules/decisions/handlers"
	"github.com/aristath/confluence/internal/modules/intake"
	intakehandlers "github.com/aristath/confluence/internal/modules/intake/handlers"
	"github.com/aristath/confluence/internal/modules/technicals"
	"github.com/aristath/confluence/internal/monitor"
)

// Config holds server configuration
type Config struct {
	Log          zerolog.Logger
	Cfg          *config.Config
	DecisionsDB  *database.DB
	DecisionRepo *decisions.Repository
	Intake       *intake.Service
	Monitor      *monitor.Service
	Bus          *events.Bus
}

// Server is the HTTP front end: decision history, intake staging, manual run
// triggers, system monitoring, and the live event stream.
type Server struct {
	router          *chi.Mux
	server          *http.Server
	log             zerolog.Logger
	cfg             *config.Config
	decisionsDB     *database.DB
	decisionRepo    *decisions.Repository
	intake          *intake.Service
	monitor         *monitor.Service
	systemHandlers  *SystemHandlers
	monitorHandlers *MonitorHandlers
	eventsStream    *EventsStreamHandler
	eventsWS        *EventsWSHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		log:          cfg.Log.With().Str("component", "server").Logger(),
		cfg:          cfg.Cfg,
		decisionsDB:  cfg.DecisionsDB,
		decisionRepo: cfg.DecisionRepo,
		intake:       cfg.Intake,
		monitor:      cfg.Monitor,
	}

	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.Cfg.DataDir, cfg.DecisionsDB)
	s.monitorHandlers = NewMonitorHandlers(cfg.Monitor, cfg.Log)
	s.eventsStream = NewEventsStreamHandler(cfg.Bus, cfg.Log)
	s.eventsWS = NewEventsWSHandler(cfg.Bus, cfg.Log)

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Streams first, they never time out with the rest.
		r.Get("/events/stream", s.eventsStream.ServeHTTP)
		r.Get("/events/ws", s.eventsWS.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			decisionHandler := decisionhandlers.NewHandler(s.decisionRepo, s.log)
			decisionHandler.RegisterRoutes(r)

			structure := technicals.NewService(technicals.DefaultConfig(), s.log)
			intakeHandler := intakehandlers.NewHandler(s.intake, structure, s.log)
			intakeHandler.RegisterRoutes(r)

			r.Route("/monitor", func(r chi.Router) {
				r.Get("/status", s.monitorHandlers.HandleStatus)
				r.Post("/run", s.monitorHandlers.HandleTriggerRun)
			})

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/disk", s.systemHandlers.HandleDiskUsage)
				r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
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
