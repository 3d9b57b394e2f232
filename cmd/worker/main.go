package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"gym_backoffice_echo/internal/config"
	"gym_backoffice_echo/internal/metrics"
	"gym_backoffice_echo/internal/services"
	"gym_backoffice_echo/internal/tasks"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	db, err := services.InitDB(cfg.DatabaseURL, cfg.DBDebug)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Generation invalidates the same cache entries the server reads
	var redisCache *services.RedisCache
	if cfg.RedisURL != "" {
		redisCache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, caching disabled: %v", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}
	cache := services.NewCache(redisCache, cfg.CacheTTL)
	ledger := services.NewLedgerService(db, cache, metrics.NewLedger(prometheus.NewRegistry()))

	// Initialize Task Registry
	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry)
	runner := tasks.NewRunner(db, registry, tasks.Deps{DB: db, Ledger: ledger})

	log.Printf("Worker started. Checking every %s", cfg.WorkerInterval)

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	process := func() {
		if _, err := runner.ProcessDue(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Error processing scheduled tasks: %v", err)
		}
	}

	// Run once on start, then on every tick
	process()
	for {
		select {
		case <-ticker.C:
			process()
		case <-ctx.Done():
			log.Println("Shutting down worker...")
			return
		}
	}
}
