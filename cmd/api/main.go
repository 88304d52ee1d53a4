package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hualin/rednote-studio/internal/acquire"
	"github.com/hualin/rednote-studio/internal/api"
	"github.com/hualin/rednote-studio/internal/api/middleware"
	"github.com/hualin/rednote-studio/internal/config"
	"github.com/hualin/rednote-studio/internal/logger"
	"github.com/hualin/rednote-studio/internal/logstore"
	"github.com/hualin/rednote-studio/internal/render"
	"github.com/hualin/rednote-studio/internal/service"
	"github.com/hualin/rednote-studio/internal/storage"
	"github.com/hualin/rednote-studio/internal/store"
)

func main() {
	// Initialize logger from environment
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid configuration")
	}

	// Mirror log lines into the in-memory activity buffer
	logBuf := logstore.NewBuffer(cfg.Logs.BufferSize)
	logger.AddHook(logstore.NewHook(logBuf, logrus.InfoLevel))

	// Session working set
	results := store.NewResults()
	images := store.NewImages()

	// Caption generation
	captions, err := service.NewCaptionClient(&service.CaptionConfig{
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize caption client")
	}

	// Image acquisition: AI generation is optional, stock always works
	var genClient *acquire.Client
	if cfg.ImageGen.BaseURL != "" {
		genClient, err = acquire.NewClient(&acquire.ClientConfig{
			BaseURL: cfg.ImageGen.BaseURL,
			APIKey:  cfg.ImageGen.APIKey,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize image generation client")
		}
	} else {
		appLogger.Info("Image generation service not configured, ai-generate mode disabled")
	}
	stock := acquire.NewStock(cfg.Stock.BaseURL)

	generateService := service.NewGenerateService(captions, results, images)
	coordinator := acquire.NewCoordinator(genClient, stock, generateService)
	coordinator.SetIntervals(
		time.Duration(cfg.ImageGen.PollIntervalSecs)*time.Second,
		time.Duration(cfg.ImageGen.RetryIntervalSecs)*time.Second,
	)
	generateService.UseCoordinator(coordinator)

	// Rasterization
	rasterizer, err := render.New(render.Options{
		BaseWidth: cfg.Render.BaseWidth,
		Scale:     cfg.Render.Scale,
		FontFile:  cfg.Render.FontFile,
	}, images)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize rasterizer")
	}

	// Optional archive upload for exports
	var archive storage.ArchiveStore
	if cfg.Storage.Enabled {
		s3Archive, err := storage.NewS3Archive(&storage.S3Config{
			Provider:  storage.ProviderType(cfg.Storage.Provider),
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize archive storage")
		}
		if err := s3Archive.EnsureBucket(context.Background()); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure archive bucket")
		}
		archive = s3Archive
	}

	exportService := service.NewExportService(results, images, rasterizer, archive, cfg.Export.Workers)

	// Setup router
	router := api.SetupRouter(api.Deps{
		Generate: generateService,
		Export:   exportService,
		Raster:   rasterizer,
		Results:  results,
		Images:   images,
		LogBuf:   logBuf,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		Log: appLogger,
	}, cfg.Server.Mode)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Stop in-flight acquisitions before the HTTP listener drains
	coordinator.CancelAll()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
