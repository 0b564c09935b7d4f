package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"broadcast-coach/cache"
	"broadcast-coach/config"
	"broadcast-coach/handler"
	appLogger "broadcast-coach/logger"
	"broadcast-coach/middleware"
	"broadcast-coach/storage"
	"broadcast-coach/tracker"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.MustLoadConfig()

	// Initialize logger
	appLogger.Initialize(cfg.LogLevel)
	log.Info().Msg("Configuration loaded successfully")

	// Select storage backend: Redis when enabled, in-memory otherwise
	var backend storage.Backend
	if cfg.Redis.Enabled {
		backend = storage.NewRedisBackend(cfg.Redis)
	} else {
		log.Info().Msg("Redis disabled, using in-memory storage")
		backend = storage.NewMemoryBackend(0)
	}

	// Initialize spend-query cache (if enabled)
	var spendCache *cache.SpendCache
	if cfg.Cache.Enabled {
		var err error
		spendCache, err = cache.New(cfg.Cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize cache")
		}
	} else {
		log.Info().Msg("Cache disabled in configuration")
	}

	// Create the tracker; this loads any persisted user directory
	userTracker := tracker.New(backend, spendCache, cfg.Tracker, nil)

	// Create handler with dependency injection
	coachHandler := handler.NewCoachHandler(userTracker, cfg)

	// Set up router
	r := mux.NewRouter()

	// Apply global middleware
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	r.Use(middleware.CORS)
	r.Use(middleware.RequestLogger)
	r.Use(rateLimiter.Limit)

	// Register routes
	coachHandler.Register(r)

	// Configure HTTP server
	serverAddress := fmt.Sprintf("%s:%s", cfg.WebServer.IP, cfg.WebServer.Port)
	server := &http.Server{
		Addr:         serverAddress,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.WebServer.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebServer.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("address", serverAddress).
			Str("scheme", cfg.WebServer.Scheme).
			Msg("Starting server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.WebServer.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Flush any pending debounced save before exit
	if err := userTracker.Flush(); err != nil {
		log.Error().Err(err).Msg("Failed to flush user data")
	}

	if spendCache != nil {
		spendCache.Close()
	}

	log.Info().Msg("Server stopped gracefully")
}
