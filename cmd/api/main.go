// Command api is the tournament simulator API server.
//
// Usage:
//
//	copa-api
//	API_PORT=8080 DATABASE_URL=postgres://... NATS_URL=nats://localhost:4222 copa-api

// @title Copa Simulator API
// @version 1.0.0
// @description Football tournament simulator: single matches, knockout ties, group stages, group draws, full classic and keys tournaments, and Monte-Carlo odds.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Copa Simulator
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/copa-sim/internal/api"
	"github.com/albapepper/copa-sim/internal/api/handler"
	"github.com/albapepper/copa-sim/internal/cache"
	"github.com/albapepper/copa-sim/internal/config"
	"github.com/albapepper/copa-sim/internal/db"
	"github.com/albapepper/copa-sim/internal/events"
	"github.com/albapepper/copa-sim/internal/listener"
	"github.com/albapepper/copa-sim/internal/maintenance"
	"github.com/albapepper/copa-sim/internal/team"

	_ "github.com/albapepper/copa-sim/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Event publishers: the in-memory feed always, NATS when configured
	recent := events.NewMemory(0)
	pubs := events.Multi{recent}
	if cfg.NATSURL != "" {
		nats, err := events.NewNATS(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		pubs = append(pubs, nats)
		logger.Info("NATS connected", "subject", cfg.NATSSubject)
	} else {
		logger.Info("NATS publishing disabled (no NATS_URL)")
	}
	var pub events.Publisher = pubs
	defer pub.Close()

	// Run archive (optional)
	var store handler.RunStore
	handlerPub := pub
	pots, err := team.LoadPotsOrDefault(cfg.TeamsFile)
	if err != nil {
		logger.Error("Failed to load teams", "file", cfg.TeamsFile, "error", err)
		os.Exit(1)
	}

	if cfg.HasDatabase() {
		logger.Info("Connecting to database...")
		if err := db.EnsureSchema(ctx, cfg.DatabaseURL); err != nil {
			logger.Error("Failed to apply schema", "error", err)
			os.Exit(1)
		}
		pool, err := db.New(ctx, cfg)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = pool
		logger.Info("Database connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)

		// Prefer the seeded catalogue over the built-in one when present.
		if cfg.TeamsFile == "" {
			if seeded, err := pool.LoadTeams(ctx); err == nil && len(seeded) > 0 {
				pots = seeded
				logger.Info("Teams loaded from database", "pots", len(pots))
			}
		}

		// Stored runs reach NATS through LISTEN/NOTIFY so CLI-archived runs
		// are announced too; the handler must not publish them twice.
		go listener.Start(ctx, cfg.DatabaseURL, pub, logger)
		handlerPub = events.Nop{}

		// Start maintenance tickers (run pruning)
		go maintenance.Start(ctx, pool, pub, maintenance.Config{
			PruneInterval: cfg.PruneInterval,
			Retention:     cfg.RunRetention,
		}, logger)
	} else {
		logger.Info("Run archive disabled (no DATABASE_URL)")
	}

	// Initialize cache
	appCache := cache.New(ctx, cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Create router
	h := handler.New(handler.Deps{
		Store:     store,
		Cache:     appCache,
		Config:    cfg,
		Pots:      pots,
		Publisher: handlerPub,
		Recent:    recent,
		Logger:    logger,
	})
	router := api.NewRouter(h, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // odds batches run in-request
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Copa Simulator API",
			"addr", addr,
			"environment", cfg.Environment,
			"surprise", cfg.SurpriseLevel,
			"rng", cfg.RNG,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
