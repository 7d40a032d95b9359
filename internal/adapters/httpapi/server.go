package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mailsift/phishing-detector/internal/config"
	"github.com/mailsift/phishing-detector/internal/core"
)

// Service is the detection capability the API fronts.
type Service interface {
	Scan(ctx context.Context, subject, body, sender, source string) (core.ClassifiedEmail, error)
	Feedback(ctx context.Context, recordID string, isPhishing bool) (bool, error)
}

// Server exposes the detection service over HTTP.
type Server struct {
	svc    Service
	logger *zap.Logger
	cfg    config.ServerConfig
	server *http.Server
}

// NewServer creates the HTTP API server.
func NewServer(svc Service, logger *zap.Logger, cfg config.ServerConfig) *Server {
	s := &Server{svc: svc, logger: logger, cfg: cfg}
	s.server = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Router builds the chi router with CORS enabled, mirroring the original
// browser-addon facing surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/predict", s.handlePredict)
	r.Post("/feedback", s.handleFeedback)

	return r
}

// Start begins serving in the background.
func (s *Server) Start() error {
	ln := s.cfg.ListenAddress
	s.logger.Info("Starting HTTP API", zap.String("listen_address", ln))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}
