// Package main is the entry point for the stockflow API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockflow/internal/config"
	"stockflow/internal/core/security"
	"stockflow/internal/domain/auth"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/documents/pick_list"
	"stockflow/internal/domain/documents/stock_request"
	"stockflow/internal/domain/registers/stock"
	"stockflow/internal/domain/tracking"
	v1 "stockflow/internal/infrastructure/http/v1"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/internal/infrastructure/storage/postgres/document_repo"
	"stockflow/internal/infrastructure/storage/postgres/register_repo"
	"stockflow/pkg/logger"
	"stockflow/pkg/numerator"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
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

	ctx := context.Background()
	log.Infow("starting stockflow server", "version", version, "env", cfg.AppEnv)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.ApplicationName = "stockflow-api"
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Infow("database connection established", "max_conns", poolCfg.MaxConns)

	txManager := postgres.NewTxManager(pool, cfg.DBStatementTimeout)

	// --- Numbering ---
	numbers := numerator.New(func(ctx context.Context) numerator.Querier {
		return txManager.GetQuerier(ctx)
	}, numerator.Options{Strategy: numerator.StrategyStrict})

	// --- Repositories ---
	requestRepo := document_repo.NewStockRequestRepo(txManager)
	noteRepo := document_repo.NewDeliveryNoteRepo(txManager)
	pickListRepo := document_repo.NewPickListRepo(txManager)
	ledger := stock.NewLedger(register_repo.NewStockRepo(txManager), txManager)

	// --- Services ---
	notes := delivery_note.NewService(noteRepo, requestRepo, pickListRepo, ledger, numbers, txManager)
	requests := stock_request.NewService(requestRepo, notes, numbers, txManager)
	pickLists := pick_list.NewService(pickListRepo, notes, numbers, txManager)
	tracker := tracking.NewService(requestRepo, noteRepo, pickListRepo, txManager)

	journal, err := postgres.NewJournal(txManager, cfg.AuditCompressThreshold)
	if err != nil {
		log.Fatalw("failed to create audit journal", "error", err)
	}

	// --- Security ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Issuer = cfg.JWTIssuer
	jwtService := auth.NewJWTService(jwtConfig)

	policies, err := cfg.PermissionPolicies()
	if err != nil {
		log.Fatalw("failed to load permission policies", "error", err)
	}
	permissions, err := security.NewPolicyChecker(policies, security.ClaimsChecker{})
	if err != nil {
		log.Fatalw("failed to compile permission policies", "error", err)
	}
	log.Infow("permission policies loaded", "count", len(policies))

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:        log,
		JWTValidator:  jwtService,
		Permissions:   permissions,
		Idempotency:   postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL),
		Journal:       journal,
		DB:            pool,
		Version:       version,
		StockRequests: requests,
		DeliveryNotes: notes,
		PickLists:     pickLists,
		Tracking:      tracker,
		Balances:      ledger,
		Development:   cfg.Development(),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
