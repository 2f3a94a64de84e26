package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedward/app/api"
	"feedward/app/cfg"
	"feedward/app/database"
	"feedward/app/feed"
	"feedward/app/seed"
	"feedward/app/tasks"
	"feedward/app/urlguard"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	log.Printf("Starting Feedward %s...", appCfg.Version)

	// Database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(
		appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	log.Printf("Connected to database successfully")

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	log.Printf("Database schema at version %d (dirty: %v)", version, dirty)

	// Initialize repositories
	feedRepo := database.NewFeedRepository(db)
	entryRepo := database.NewEntryRepository(db)
	subRepo := database.NewSubscriptionRepository(db)
	interactionRepo := database.NewInteractionRepository(db)
	refreshRepo := database.NewRefreshRepository(db)
	userRepo := database.NewUserRepository(db)

	// Initialize the refresh pipeline
	validator := urlguard.NewValidator()
	fetcher := feed.NewFetcher(validator, time.Duration(appCfg.FetchTimeout)*time.Second, appCfg.UserAgent)
	ingester := feed.NewIngester(entryRepo)
	applier := feed.NewApplier(subRepo, entryRepo, interactionRepo)
	recorder := feed.NewRecorder(feedRepo, refreshRepo)
	refresher := feed.NewRefresher(fetcher, ingester, applier, recorder, appCfg.MaxEntriesPerRefresh)
	subscriber := feed.NewSubscriber(validator, fetcher, feedRepo, subRepo)

	// Apply the seed file before the scheduler starts, so seeded feeds are
	// picked up by the first tick.
	if appCfg.SeedFile != "" {
		log.Printf("Applying seed file %s...", appCfg.SeedFile)
		seeder := seed.NewSeeder(userRepo, subscriber)
		if err := seeder.Run(context.Background(), appCfg.SeedFile); err != nil {
			log.Fatal("Failed to apply seed file:", err)
		}
	}

	// Initialize and start scheduler
	log.Printf("Starting background scheduler with %d workers...", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(feedRepo, subRepo, refresher, applier)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize HTTP server
	log.Println("Initializing HTTP server...")
	apiHandler := api.NewHandler(feedRepo, entryRepo, subRepo, refreshRepo,
		subscriber, applier, refresher, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start HTTP server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on port %s", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Println("Feedward started successfully!")

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-serverErrChan:
		log.Printf("Server error: %v", err)
	}

	// Graceful shutdown
	log.Println("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Println("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	log.Println("Feedward shutdown complete")
}
