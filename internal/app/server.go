package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/Assist/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Assist/internal/api/middlewares"
	"github.com/markdave123-py/Assist/internal/config"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer builds and wires all routes. A nil ingestor leaves the ingest route unmounted.
func NewServer(cfg *config.Config, assistant handlers.Assistant, ing handlers.Enqueuer, health Pinger, log *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           NewRouter(cfg, assistant, ing, health, log),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// NewRouter returns the gateway routes.
func NewRouter(cfg *config.Config, assistant handlers.Assistant, ing handlers.Enqueuer, health Pinger, log *slog.Logger) http.Handler {
	authHandler := handlers.NewAuthHandler(cfg.ClientID, cfg.ClientSecretHash, cfg.JWTSecret)
	assistantHandler := handlers.NewAssistantHandler(assistant, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health.Ping(ctx); err != nil {
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Write([]byte("ok")) //nolint:errcheck
	})

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/token", authHandler.Token)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
			protected.Post("/assistant/ask/stream", assistantHandler.AskStream)

			// Streaming has its own bound (STREAM_TIMEOUT) inside the service.
			protected.Group(func(timed chi.Router) {
				timed.Use(middleware.Timeout(cfg.StreamTimeout + 30*time.Second))
				timed.Post("/assistant/ask", assistantHandler.Ask)
				timed.Post("/assistant/embeddings", assistantHandler.Embeddings)
				timed.Post("/assistant/expert", assistantHandler.Expert)
			})

			if ing != nil {
				knowledgeHandler := handlers.NewKnowledgeHandler(ing, cfg.BucketName)
				protected.Post("/knowledge/ingest", knowledgeHandler.Ingest)
			}
		})
	})

	return r
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
