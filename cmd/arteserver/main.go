package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arteregistrazioni/arte-server/internal/api"
	"github.com/arteregistrazioni/arte-server/internal/assistant"
	"github.com/arteregistrazioni/arte-server/internal/catalog"
	"github.com/arteregistrazioni/arte-server/internal/config"
	"github.com/arteregistrazioni/arte-server/internal/db"
	"github.com/arteregistrazioni/arte-server/internal/export"
	"github.com/arteregistrazioni/arte-server/internal/logging"
	"github.com/arteregistrazioni/arte-server/internal/mailer"
	"github.com/arteregistrazioni/arte-server/internal/storage"
	"github.com/arteregistrazioni/arte-server/internal/tts"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel(), cfg.LogFile())
	logger.Info("starting arte server",
		"version", config.Version,
		"data_dir", cfg.DataDir(),
		"port", cfg.Port(),
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}
	logger.Info("api auth ready", "token", logging.SanitizeToken(authToken))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store storage.ObjectStore
	if bucket := cfg.StorageBucket(); bucket != "" {
		gcs, err := storage.NewGCSStore(ctx, bucket, logger)
		if err != nil {
			return fmt.Errorf("failed to open storage bucket %q: %w", bucket, err)
		}
		store = gcs
		logger.Info("object storage ready", "bucket", bucket)
	} else {
		store = storage.NewMemStore(logger)
		logger.Warn("no storage bucket configured, using in-memory store")
	}

	catalogSvc := catalog.NewService(repo, logging.WithComponent(logger, "catalog"))
	exporter := export.NewExporter(store, logging.WithComponent(logger, "export"))

	assistantSvc := assistant.New(assistant.NewClient(cfg.OpenAIKey()), cfg.OpenAIModel(), repo,
		logging.WithComponent(logger, "assistant"))
	if cfg.OpenAIKey() == "" {
		logger.Warn("OpenAI key not configured, assistant runs in fallback mode")
	}

	ttsSvc := tts.New(cfg.ElevenLabsKey(), cfg.ElevenLabsVoice(), repo,
		logging.WithComponent(logger, "tts"))
	mailerSvc := mailer.New(cfg.SendGridKey(), cfg.SenderEmail(), cfg.SenderName(), repo,
		logging.WithComponent(logger, "mailer"))

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		CatalogService: catalogSvc,
		Repository:     repo,
		Exporter:       exporter,
		Store:          store,
		Assistant:      assistantSvc,
		TTS:            ttsSvc,
		Mailer:         mailerSvc,
		ExportMaxBytes: cfg.ExportMaxBytes(),
		UploadTTL:      cfg.UploadPolicyTTL(),
		Logger:         logger,
		StartTime:      startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(repo catalog.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
