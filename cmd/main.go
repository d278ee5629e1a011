package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/vofas/vofas-backend/adapters/media"
	"github.com/vofas/vofas-backend/adapters/memory"
	vofasmongo "github.com/vofas/vofas-backend/adapters/mongo"
	"github.com/vofas/vofas-backend/adapters/sentiment"
	"github.com/vofas/vofas-backend/adapters/stt"
	"github.com/vofas/vofas-backend/domain/repositories"
	"github.com/vofas/vofas-backend/internal/api"
	"github.com/vofas/vofas-backend/internal/pipeline"
	"github.com/vofas/vofas-backend/internal/stream"
	"github.com/vofas/vofas-backend/internal/websocket"
)

func main() {
	// .env is optional, real deployments configure through the environment
	godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Repositories
	var (
		feedbackRepo repositories.FeedbackRepository
		tokenRepo    repositories.TokenRepository
		kioskRepo    repositories.KioskRepository
		mongoClient  *vofasmongo.Client
	)
	switch os.Getenv("VOFAS_REPOSITORY") {
	case "", "mongo":
		client, err := vofasmongo.NewClient(logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		mongoClient = client
		feedbackRepo = vofasmongo.NewFeedbackRepository(client.Database)
		tokenRepo = vofasmongo.NewTokenRepository(client.Database)
		kioskRepo = vofasmongo.NewKioskRepository(client.Database)
	case "memory":
		logger.Warn("Using in-memory repositories, data will not survive a restart")
		feedbackRepo = memory.NewFeedbackRepository()
		tokenRepo = memory.NewTokenRepository()
		kioskRepo = memory.NewKioskRepository()
	default:
		logger.Fatal("Unknown VOFAS_REPOSITORY value", zap.String("value", os.Getenv("VOFAS_REPOSITORY")))
	}

	// Media storage
	storePath := os.Getenv("VOFAS_STORE_PATH")
	if storePath == "" {
		storePath = "./data/feedback"
	}
	mediaStore, err := media.NewDiskStore(storePath, logger)
	if err != nil {
		logger.Fatal("Failed to prepare media storage", zap.String("path", storePath), zap.Error(err))
	}

	// Transcriber
	var transcriber repositories.Transcriber
	switch os.Getenv("VOFAS_TRANSCRIBER") {
	case "", "google":
		transcriber = stt.NewGoogleTranscriber(logger)
	case "mock":
		logger.Warn("Using mock transcriber")
		transcriber = stt.NewMockTranscriber(logger)
	default:
		logger.Fatal("Unknown VOFAS_TRANSCRIBER value", zap.String("value", os.Getenv("VOFAS_TRANSCRIBER")))
	}

	// Sentiment classifier. Feedback stops at TRANSCRIBED when disabled.
	var classifier repositories.SentimentClassifier
	switch os.Getenv("VOFAS_SENTIMENT") {
	case "", "gemini":
		gemini, err := sentiment.NewGeminiClassifier(logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini classifier", zap.Error(err))
		}
		classifier = gemini
	case "mock":
		logger.Warn("Using mock sentiment classifier")
		classifier = sentiment.NewMockClassifier(logger)
	case "off":
		logger.Warn("Sentiment analysis disabled, feedback will stop at TRANSCRIBED")
	default:
		logger.Fatal("Unknown VOFAS_SENTIMENT value", zap.String("value", os.Getenv("VOFAS_SENTIMENT")))
	}

	// Background token expiry sweep
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepDone:
				return
			case now := <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				expired, err := tokenRepo.ExpireOverdue(ctx, now)
				cancel()
				if err != nil {
					logger.Error("Token expiry sweep failed", zap.Error(err))
				} else if expired > 0 {
					logger.Info("Expired overdue validation tokens", zap.Int64("count", expired))
				}
			}
		}
	}()

	// Live feedback stream
	broker := stream.NewBroker(logger)
	hub := websocket.NewHub(broker, logger)
	go hub.Run()

	// Processing pipeline
	workers := 0
	if raw := os.Getenv("VOFAS_PIPELINE_WORKERS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			workers = n
		}
	}
	pl := pipeline.New(feedbackRepo, tokenRepo, mediaStore, transcriber, classifier, broker, logger, pipeline.Config{
		Workers:  workers,
		Language: os.Getenv("VOFAS_LANGUAGE"),
		AllowM4A: os.Getenv("VOFAS_ALLOW_M4A") == "true",
	})
	pl.Start()

	// Initialize API routes
	api.InitRoutes(e, pl, feedbackRepo, tokenRepo, kioskRepo, broker, hub, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	close(sweepDone)

	// Stop intake first, then drain the pipeline and close the stream.
	if err := pl.Stop(ctx); err != nil {
		logger.Error("Pipeline did not drain cleanly", zap.Error(err))
	}
	broker.Close()

	if mongoClient != nil {
		if err := mongoClient.Close(ctx); err != nil {
			logger.Error("Failed to close MongoDB client", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
