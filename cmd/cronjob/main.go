package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"gridlease-backend/internal/config"
	"gridlease-backend/internal/events"
	"gridlease-backend/internal/jobs"
	"gridlease-backend/internal/logger"
	"gridlease-backend/internal/repository/postgres"
	"gridlease-backend/internal/scheduler"
	"gridlease-backend/internal/security"
	"gridlease-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'scan-intents', 'reconcile-leases', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting GridLease Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	// Initialize Services. The standalone runner publishes into its own
	// hub; requesters observe progress by polling intent status, so no
	// subscriber is attached here.
	hub := events.NewHub(cfg.Events.BufferSize)
	verifier := security.NewEd25519Verifier()
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

	jobServices := &jobs.Services{
		Matching: matchingSvc,
		Lease:    leaseSvc,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "scan-intents":
		jobRunner.ScanIntents()
	case "reconcile-leases":
		jobRunner.ReconcileExpiredLeases()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - scan-intents\n")
		fmt.Printf("  - reconcile-leases\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
