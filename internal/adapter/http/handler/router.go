package handler

import (
	"time"

	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc        ports.LedgerService
	HistorySvc       ports.HistoryService
	RateLimiter      middleware.RateLimitCounter // nil = rate limiting disabled
	RateLimitRules   map[string]middleware.RateLimitRule
	IdempotencyCache ports.IdempotencyCache // nil = Idempotency-Key ignored
	IdempotencyTTL   time.Duration
	HealthCheckers   []ports.HealthChecker
	AllowedOrigins   []string
	DefaultPageLimit int
	Mode             string
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID(deps.Logger))
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS(deps.AllowedOrigins))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: pings every configured dependency)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	noop := func(c *gin.Context) { c.Next() }

	// Helper: return rate limiter middleware if a counter is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimiter == nil {
			return noop
		}
		rule, ok := deps.RateLimitRules[group]
		if !ok {
			return noop
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	idem := noop
	if deps.IdempotencyCache != nil {
		idem = middleware.Idempotency(deps.IdempotencyCache, deps.IdempotencyTTL, deps.Logger)
	}

	walletHandler := NewWalletHandler(deps.LedgerSvc)
	txHandler := NewTransactionHandler(deps.HistorySvc, deps.DefaultPageLimit)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/setup", rl("setup"), idem, walletHandler.Setup)
		v1.POST("/transact/:walletId", rl("transact"), idem, walletHandler.Transact)
	}

	wallets := v1.Group("/wallets", rl("wallets"))
	{
		wallets.GET("", walletHandler.ListWallets)
		wallets.GET("/:id", walletHandler.GetWallet)
	}

	transactions := v1.Group("/transactions")
	{
		transactions.GET("", rl("history"), txHandler.List)
		transactions.GET("/export", rl("export"), txHandler.Export)
	}

	return r
}
