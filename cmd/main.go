package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/spotmusic/server/adapters/llm"
	"github.com/spotmusic/server/adapters/storage"
	"github.com/spotmusic/server/adapters/weather"
	"github.com/spotmusic/server/adapters/youtube"
	"github.com/spotmusic/server/domain/repositories"
	"github.com/spotmusic/server/internal/api"
	"github.com/spotmusic/server/internal/websocket"
	"github.com/spotmusic/server/usecase"
)

func main() {
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

	// State store
	storagePath := os.Getenv("SPOTMUSIC_DB")
	if storagePath == "" {
		storagePath = "spotmusic.db"
	}
	store, err := storage.NewAdapter(storagePath)
	if err != nil {
		logger.Fatal("Failed to open state store", zap.Error(err))
	}

	// Recommendation oracle. Without a Gemini key the server still runs,
	// it just answers every cycle with the canned fallback track.
	var oracle repositories.RecommendationOracle
	oracleConfigured := false
	if gemini, err := llm.NewGeminiOracle(logger); err == nil {
		oracle = gemini
		oracleConfigured = true
	} else {
		logger.Warn("Gemini oracle unavailable, using mock oracle", zap.Error(err))
		oracle = llm.NewMockOracle()
	}

	search := youtube.NewClient(logger)
	if !search.Configured() {
		oracleConfigured = false
	}

	nws := weather.NewNWS(logger)

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = llm.DefaultModel
	}

	// Initialize usecase services
	recommender := usecase.NewRecommendationService(oracle, search, logger)
	player := usecase.NewPlayerService(context.Background(), usecase.PlayerConfig{
		Model:            model,
		OracleConfigured: oracleConfigured,
	}, recommender, nws, store, logger)

	// Initialize WebSocket hub with the player service
	hub := websocket.NewHub(player, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, hub, player, search, nws, model, logger)

	// Seed the queue if it came up empty
	player.Start(context.Background())

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

	logger.Info("Server started", zap.String("port", port), zap.String("model", model))

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

	player.Close()
	if err := store.Close(); err != nil {
		logger.Warn("Failed to close state store", zap.Error(err))
	}

	logger.Info("Server exited")
}
