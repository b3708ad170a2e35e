package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"slidecast/internal/api"
	"slidecast/internal/config"
)

type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	router     *chi.Mux
	handler    *api.Handler
}

func New(cfg *config.Config, logger zerolog.Logger, handler *api.Handler) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		handler: handler,
	}

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(CORSMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handler.Health)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", s.handler.CreateProject)
			r.Get("/", s.handler.ListProjects)
			r.Get("/{id}", s.handler.GetProject)
			r.Put("/{id}", s.handler.UpdateProject)
			r.Delete("/{id}", s.handler.DeleteProject)

			r.Post("/{id}/media", s.handler.UploadMedia)
			r.Delete("/{id}/media/{mediaID}", s.handler.DeleteMedia)
			r.Post("/{id}/media/reorder", s.handler.ReorderMedia)
			r.Get("/{id}/media/{mediaID}/thumbnail", s.handler.GetThumbnail)

			r.Put("/{id}/audio", s.handler.SetAudio)
			r.Delete("/{id}/audio", s.handler.ClearAudio)

			r.Put("/{id}/settings", s.handler.UpdateSettings)
			r.Get("/{id}/adjustment", s.handler.GetAdjustment)

			r.Post("/{id}/captions", s.handler.StartCaptions)
			r.Get("/{id}/captions", s.handler.GetCaptionStatus)
		})

		r.Route("/playback/sessions", func(r chi.Router) {
			r.Post("/", s.handler.StartPlayback)
			r.Get("/{sessionID}", s.handler.GetPlaybackState)
			r.Get("/{sessionID}/events", s.handler.SessionEvents)
			r.Post("/{sessionID}/video-ended", s.handler.VideoEnded)
			r.Post("/{sessionID}/playback-error", s.handler.PlaybackError)
			r.Delete("/{sessionID}", s.handler.ClosePlayback)
		})

		r.Get("/media/{ref}", s.handler.StreamMedia)
	})
}

// Handler exposes the routed handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
