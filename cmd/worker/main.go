// Package main is the entry point for the stockflow background worker.
// It relays journal events from the outbox and purges expired rows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"stockflow/internal/config"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting stockflow worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.ApplicationName = "stockflow-worker"
	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool, cfg.DBStatementTimeout)

	relay := postgres.NewOutboxRelay(txManager, postgres.OutboxHandlerFunc(logEvent), postgres.RelayConfig{
		BatchSize:  cfg.OutboxBatchSize,
		MaxRetries: cfg.OutboxMaxRetries,
	})
	keys := postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL)

	worker := NewWorker(WorkerConfig{
		OutboxInterval:  cfg.OutboxInterval,
		CleanupInterval: cfg.CleanupInterval,
		OutboxRetention: cfg.OutboxRetention,
	}, relay, keys, pool, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}
