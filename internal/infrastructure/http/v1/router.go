// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockflow/internal/core/security"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/documents/pick_list"
	"stockflow/internal/domain/documents/stock_request"
	"stockflow/internal/domain/tracking"
	"stockflow/internal/infrastructure/http/v1/handlers"
	"stockflow/internal/infrastructure/http/v1/middleware"
	"stockflow/pkg/logger"
)

// RouterConfig holds the wired services and the request pipeline pieces.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Permissions decides every resource:action check
	Permissions security.PermissionChecker

	// Idempotency enables X-Idempotency-Key handling when set
	Idempotency middleware.IdempotencyStore

	// Journal receives after-create and after-transition events of every
	// document; nil disables the journal
	Journal audit.Recorder

	// DB is pinged by /ready
	DB      handlers.Pinger
	Version string

	StockRequests *stock_request.Service
	DeliveryNotes *delivery_note.Service
	PickLists     *pick_list.Service
	Tracking      *tracking.Service
	Balances      handlers.BalanceReader

	// Development switches gin to debug mode
	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.Permissions == nil {
		cfg.Permissions = security.ClaimsChecker{}
	}

	if cfg.Journal != nil {
		audit.Register(cfg.StockRequests.Hooks(), cfg.Journal)
		audit.Register(cfg.DeliveryNotes.Hooks(), cfg.Journal)
		audit.Register(cfg.PickLists.Hooks(), cfg.Journal)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	health := handlers.NewHealthHandler(cfg.DB, cfg.Version)
	router.GET("/health", health.Live)
	router.GET("/ready", health.Ready)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator)) // 1. Validate JWT
	v1.Use(middleware.Scope())                // 2. Resolve company and business unit
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency)) // 3. Replay keyed retries
	}

	base := handlers.NewBaseHandler()
	perm := permissionGate{checker: cfg.Permissions}

	registerStockRequestRoutes(v1.Group("/stock-requests"), perm,
		handlers.NewStockRequestHandler(base, cfg.StockRequests, cfg.Tracking))
	registerDeliveryNoteRoutes(v1.Group("/delivery-notes"), perm,
		handlers.NewDeliveryNoteHandler(base, cfg.DeliveryNotes, cfg.PickLists, cfg.Tracking))
	registerPickListRoutes(v1.Group("/pick-lists"), perm,
		handlers.NewPickListHandler(base, cfg.PickLists))
	registerStockRoutes(v1.Group("/stock"), perm,
		handlers.NewStockHandler(base, cfg.Balances))

	return router
}
