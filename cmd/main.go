package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"miner-submission-server/config"
	"miner-submission-server/pkgs/helpers"
	"miner-submission-server/pkgs/service"
	"miner-submission-server/pkgs/store"
	"miner-submission-server/pkgs/verifier"
)

func main() {
	// Initiate logger
	helpers.InitLogger()

	// Load the config object
	settings, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Durable stores: Postgres for keys and the ledger, Redis for replay tokens
	db, err := store.Connect(ctx, settings.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer db.Close()

	redisClient, err := store.NewRedisClient(ctx, settings.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	replay := store.NewReplayStore(redisClient, settings.ReplayTTL)

	pipeline := verifier.New(verifier.Config{
		MaxClockSkew:     settings.MaxClockSkew,
		MaxSubmissionAge: settings.MaxSubmissionAge,
	}, replay, db, db)

	var reporter *helpers.ReportingService
	if settings.ReportingURL != "" {
		reporter = helpers.InitializeReportingService(settings.ReportingURL, 5*time.Second)
	}

	// Create a new submission server instance
	server := service.NewServer(settings, pipeline, db, replay, reporter)

	// Set up signal handling for graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Submission server failed: %v", err)
		}
	}()

	// Wait for termination signal
	sig := <-sigs
	log.Infof("✅ Received signal: %s. Shutting down gracefully...", sig)

	// Drain in-flight submissions before closing the stores
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Forced shutdown: %v", err)
	}

	wg.Wait()
}
