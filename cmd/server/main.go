package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nexus-backend/internal/auth"
	"nexus-backend/internal/config"
	"nexus-backend/internal/database"
	"nexus-backend/internal/logger"
	"nexus-backend/internal/market"
	"nexus-backend/internal/nexus"
	"nexus-backend/internal/server"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Initialize Binance market data client
	marketClient := market.NewClient(&cfg.Binance, log)
	if _, err := marketClient.GetServerTime(context.Background()); err != nil {
		log.Warn("Binance API unreachable at startup; check-trade will fail until it recovers", zap.Error(err))
	} else {
		log.Info("Successfully connected to Binance API.")
	}

	// Wire services
	authSvc := auth.NewService(db, &cfg.Auth, log)
	behavior := nexus.NewBehaviorService(db, &cfg.Risk)
	sessions := nexus.NewSessionService()
	decision := nexus.NewDecisionService(
		marketClient,
		nexus.NewRegimeService(),
		nexus.NewRiskService(&cfg.Risk),
		behavior,
		sessions,
		&cfg.Risk,
		log,
	)
	journal := nexus.NewJournal(db, &cfg.Risk, &cfg.Trading, behavior, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	srv := server.NewServer(&cfg, log, authSvc, decision, journal, behavior, sessions, marketClient)
	if err := srv.Run(ctx); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
