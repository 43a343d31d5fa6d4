// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"

	"spotshare/internal/adapter/chat"
	"spotshare/internal/adapter/storage"
	"spotshare/internal/config"
	"spotshare/internal/domain/spot"
	"spotshare/internal/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server exposing the lifecycle engine, the
// proximity query and the per-spot chat channel. history may be nil when the
// archive database is not configured.
func NewServer(
	cfg config.ServerConfig,
	natsConn *nats.Conn,
	engine spot.Engine,
	matcher spot.Matcher,
	bridge *chat.Bridge,
	history *storage.HistoryStore,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	spotHandler := handlers.NewSpotHandler(engine, matcher)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Route("/v1", func(r chi.Router) {
			// Spots API
			r.Route("/spots", func(r chi.Router) {
				r.Post("/", spotHandler.PublishSpot)
				r.Get("/nearby", spotHandler.GetNearbySpots)
				r.Get("/{id}", spotHandler.GetSpot)
				r.Delete("/{id}", spotHandler.CancelSpot)
				r.Post("/{id}/claim", spotHandler.ClaimSpot)
				r.Post("/{id}/confirm", spotHandler.ConfirmSpot)
				r.Post("/{id}/report", spotHandler.ReportSpot)
			})

			// History API, only when the archive database is configured
			if history != nil {
				historyHandler := handlers.NewHistoryHandler(history)
				r.Get("/users/{userID}/history", historyHandler.GetUserHistory)
			}
		})
	})

	// WebSocket endpoint for the two-party chat on a claimed spot
	router.Get("/ws/spots/{id}", handlers.SpotWebSocketHandler(natsConn, bridge))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
