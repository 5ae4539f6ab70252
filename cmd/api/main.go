// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/flockly/event-platform/internal/config"
	"github.com/flockly/event-platform/internal/handler"
	"github.com/flockly/event-platform/internal/middleware"
	natsclient "github.com/flockly/event-platform/internal/nats"
	"github.com/flockly/event-platform/internal/proofstore"
	"github.com/flockly/event-platform/internal/service"
	"github.com/flockly/event-platform/internal/session"
	"github.com/flockly/event-platform/internal/store"
	"github.com/flockly/event-platform/internal/store/memory"
	"github.com/flockly/event-platform/internal/store/postgres"
	"github.com/flockly/event-platform/pkg/logger"
	"github.com/flockly/event-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "event-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Select the store backend
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", zap.Error(err))
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			log.Error("failed to migrate database", zap.Error(err))
			os.Exit(1)
		}
		st = pg
		log.Info("using postgres store")
	} else {
		st = memory.New()
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	// Select the session store backend
	var sessions session.Store
	if cfg.RedisURL != "" {
		rs, err := session.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			log.Error("failed to connect to redis", zap.Error(err))
			os.Exit(1)
		}
		defer rs.Close()
		sessions = rs
		log.Info("using redis session store")
	} else {
		sessions = session.NewMemoryStore()
		log.Warn("REDIS_URL not set, using in-memory session store")
	}

	// Connect to NATS when configured
	var nc *natsclient.Client
	var publisher *natsclient.Publisher
	if cfg.NATSURL != "" {
		nc, err = natsclient.Connect(natsclient.Config{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer nc.Close()

		publisher = natsclient.NewPublisher(nc, log)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
	}

	// Proof-of-payment object storage when configured
	var proofs proofstore.Store
	if cfg.MinioEndpoint != "" {
		proofs, err = proofstore.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Error("failed to connect to object storage", zap.Error(err))
			os.Exit(1)
		}
	}

	// Identity resolution
	resolver := middleware.NewResolver(sessions, cfg.SessionSecret, cfg.SessionCookieName, cfg.SessionTTL, log)

	// Initialize services
	querySvc := service.NewQueryService(st, publisher, log)
	eventSvc := service.NewEventService(st, log)
	registrationSvc := service.NewRegistrationService(st, proofs, log)

	// Assemble the router
	router := handler.NewRouter(handler.Deps{
		Config:        cfg,
		Logger:        log,
		Resolver:      resolver,
		Queries:       handler.NewQueryHandler(querySvc, log),
		Events:        handler.NewEventHandler(eventSvc, log),
		Registrations: handler.NewRegistrationHandler(registrationSvc, log),
		Auth:          handler.NewAuthHandler(resolver, cfg.DevLoginEnabled, log),
		Health:        handler.NewHealthHandler(nc),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
