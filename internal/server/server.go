// internal/server/server.go

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
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/config"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/geo"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/server/handlers"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/view"
)

// Store is the live complaint set served to dashboards
type Store interface {
	handlers.ComplaintSource
	view.Source
}

// Dependencies are the services behind the HTTP API
type Dependencies struct {
	Store     Store
	Lifecycle handlers.Lifecycle
	Intake    handlers.Intake
	Clusterer geo.Clusterer
	// NATSConn is optional; without it view streams get no transition events
	NATSConn      *nats.Conn
	EventsSubject string
	Logger        *slog.Logger
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, geoCfg config.GeoConfig, deps Dependencies) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CorsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", "X-CSRF-Token",
			handlers.HeaderActorID, handlers.HeaderActorRole, handlers.HeaderActorDepartment,
		},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	complaintHandler := handlers.NewComplaintHandler(
		deps.Store,
		deps.Lifecycle,
		deps.Intake,
		deps.Clusterer,
		handlers.NearbyConfig{
			DefaultRadiusKm: geoCfg.NearbyRadiusKm,
			MaxRadiusKm:     geoCfg.MaxNearbyRadiusKm,
		},
		cfg.MaxUploadBytes,
	)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/complaints", func(r chi.Router) {
				r.Get("/", complaintHandler.ListComplaints)
				r.Post("/", complaintHandler.SubmitComplaint)
				r.Get("/nearby", complaintHandler.GetNearby)
				r.Post("/suggest", complaintHandler.SuggestComplaint)
				r.Get("/{id}", complaintHandler.GetComplaint)
				r.Post("/{id}/transitions", complaintHandler.TransitionComplaint)
				r.Put("/{id}/priority", complaintHandler.SetPriority)
			})

			r.Get("/hotzones", complaintHandler.GetHotZones)
		})
	})

	router.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint for live dashboards
	router.Get("/ws/views", handlers.ViewStreamHandler(handlers.ViewStreamConfig{
		Source:        deps.Store,
		Lookup:        deps.Store,
		Clusterer:     deps.Clusterer,
		NATSConn:      deps.NATSConn,
		EventsSubject: deps.EventsSubject,
		CheckOrigin:   originChecker(cfg.CorsOrigins),
		Logger:        deps.Logger,
	}))

	// Create HTTP server
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     router,
		ReadTimeout: cfg.ReadTimeout,
		// No WriteTimeout: it would cut long-lived view streams
		IdleTimeout: cfg.IdleTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// originChecker allows WebSocket upgrades from the configured CORS origins
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
