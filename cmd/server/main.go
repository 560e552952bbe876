package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "gridlease-backend/internal/api/http"
	"gridlease-backend/internal/config"
	"gridlease-backend/internal/events"
	"gridlease-backend/internal/jobs"
	"gridlease-backend/internal/logger"
	"gridlease-backend/internal/repository/postgres"
	"gridlease-backend/internal/scheduler"
	"gridlease-backend/internal/security"
	"gridlease-backend/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting GridLease backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Payment configuration", "network", cfg.Payment.Network, "timeout_seconds", cfg.Payment.TimeoutSeconds)

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	verifier := security.NewEd25519Verifier()

	// Initialize Event Hub
	hub := events.NewHub(cfg.Events.BufferSize)

	// Initialize Services
	emailSvc := service.NewEmailService(cfg.SMTP)
	paymentSvc := service.NewPaymentService(
		store.PaymentLogRepository,
		verifier,
		cfg.Payment.Network,
		cfg.Payment.TimeoutSeconds,
	)
	leaseSvc := service.NewLeaseService(
		store.AssetRepository,
		store.LeaseRepository,
		store.MerchantRepository,
		paymentSvc,
		hub,
		emailSvc,
	)
	defer leaseSvc.Shutdown()
	assetSvc := service.NewAssetService(store.AssetRepository, store.MerchantRepository, leaseSvc)
	merchantSvc := service.NewMerchantService(store.MerchantRepository, store.PaymentLogRepository, tokenManager)
	parser := service.NewHTTPIntentParser(cfg.Parser)
	matchingSvc := service.NewMatchingService(
		store.IntentRepository,
		store.AssetRepository,
		leaseSvc,
		paymentSvc,
		parser,
		verifier,
		hub,
	)

	// Reclaim assets from leases that expired while we were down
	startupCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if count, err := leaseSvc.ReconcileExpired(startupCtx); err != nil {
		logger.Error("Startup lease reconcile failed", "error", err)
	} else if count > 0 {
		logger.Info("Startup lease reconcile complete", "reclaimed", count)
	}
	cancel()

	// Start the scheduler: periodic intent scan and lease reconcile
	jobRunner := jobs.NewJobRunner(&jobs.Services{
		Matching: matchingSvc,
		Lease:    leaseSvc,
	}, cfg)
	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()
	defer sched.Stop()

	// Set up HTTP server
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Matching:  matchingSvc,
		Assets:    assetSvc,
		Leases:    leaseSvc,
		Payment:   paymentSvc,
		Merchants: merchantSvc,
		Tokens:    tokenManager,
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("Shutdown complete")
}
