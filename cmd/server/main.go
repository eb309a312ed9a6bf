package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ripple-social/internal/config"
	"ripple-social/internal/database"
	"ripple-social/internal/engine"
	"ripple-social/internal/handlers"
	"ripple-social/internal/media"
	"ripple-social/internal/middleware"
	"ripple-social/internal/presence"
	"ripple-social/internal/realtime"
	"ripple-social/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	slog.SetDefault(logger)

	middleware.SetJWTSecret(cfg.JWTSecret)

	// Losing the durable store means no core functionality can proceed, so
	// a missing or unreachable MongoDB is fatal.
	if cfg.Database.URI == "" {
		logger.Error("MONGODB_URI is required")
		os.Exit(1)
	}
	db, err := database.NewMongoDB(cfg.Database.URI, cfg.Database.Name)
	if err != nil {
		logger.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to MongoDB", "database", cfg.Database.Name)

	mediaStore, err := media.NewDiskStore(cfg.Media.Dir, cfg.Media.BaseURL)
	if err != nil {
		logger.Error("failed to initialize media store", "error", err)
		os.Exit(1)
	}

	var metrics *utils.MetricsCollector
	if cfg.Server.MetricsEnabled {
		metrics = utils.NewMetricsCollector()
	}

	registry := presence.NewRegistry(nil, metrics, logger)
	hub := realtime.NewHub(registry, metrics, logger)
	registry.SetBroadcaster(hub)
	registry.Start()
	go hub.Run()

	system := actor.NewActorSystem()
	rippleEngine := engine.NewEngine(system, engine.Dependencies{
		Store:     database.NewMongoMessageStore(db),
		Resolver:  database.NewUserDirectory(db),
		Publisher: hub,
		Metrics:   metrics,
		Logger:    logger,
	})

	server := handlers.NewServer(system, rippleEngine, hub, registry, mediaStore, metrics, logger, cfg.Server.RequestTimeout)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Routes(cfg),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	hub.Stop()
	registry.Stop()
	if err := db.Close(shutdownCtx); err != nil {
		logger.Warn("mongo disconnect failed", "error", err)
	}
}
