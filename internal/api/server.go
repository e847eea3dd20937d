package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arteregistrazioni/arte-server/internal/assistant"
	"github.com/arteregistrazioni/arte-server/internal/catalog"
	"github.com/arteregistrazioni/arte-server/internal/export"
	"github.com/arteregistrazioni/arte-server/internal/mailer"
	"github.com/arteregistrazioni/arte-server/internal/storage"
	"github.com/arteregistrazioni/arte-server/internal/tts"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port           int
	CatalogService catalog.CatalogService
	Repository     catalog.Repository
	Exporter       *export.Exporter
	Store          storage.ObjectStore
	Assistant      *assistant.Service
	TTS            *tts.Service
	Mailer         *mailer.Service
	ExportMaxBytes int64
	UploadTTL      time.Duration
	Logger         *slog.Logger
	StartTime      time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.Port),
			Handler:     router,
			ReadTimeout: 15 * time.Second,
			// Exports and SSE streams hold the response open; no write
			// deadline.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
