package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"wallet-ledger/config"
	"wallet-ledger/docs/api"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/http/middleware"
	amqpEvents "wallet-ledger/internal/adapter/messaging/amqp"
	memStorage "wallet-ledger/internal/adapter/storage/memory"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("LEDGER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("store", cfg.Store.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting Wallet Ledger")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Wallet Ledger stopped")
	}
	log.Info().Msg("Server exited")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var checkers []ports.HealthChecker

	// Ledger store
	var store ports.LedgerStore
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		if cfg.Database.Migrate {
			if err := pgStorage.RunMigrations(cfg.Database.DSN()); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			log.Info().Msg("Database migrations applied")
		}

		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		log.Info().Msg("PostgreSQL connected")

		store = pgStorage.NewLedgerStore(pool)
		checkers = append(checkers, pgStorage.NewHealthCheck(pool))
	default:
		log.Warn().Msg("Using in-memory ledger store, data is lost on restart")
		store = memStorage.NewLedgerStore()
	}

	// Redis: rate limiting and idempotency, both optional
	var (
		rateLimiter middleware.RateLimitCounter
		idemCache   ports.IdempotencyCache
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		rateLimiter = redisStorage.NewRateLimitStore(rdb)
		idemCache = redisStorage.NewIdempotencyCache(rdb)
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	}

	// Ledger events
	var events ports.EventPublisher = amqpEvents.NopPublisher{}
	if cfg.Events.Enabled {
		pub, err := amqpEvents.Dial(cfg.Events.URL, cfg.Events.Exchange, logger.Component(log, "events"))
		if err != nil {
			return fmt.Errorf("connect amqp: %w", err)
		}
		defer pub.Close()
		events = pub
		log.Info().Str("exchange", cfg.Events.Exchange).Msg("AMQP publisher ready")
	}

	// Services
	ledgerSvc := service.NewLedgerService(store, events, service.LedgerOptions{
		MaxAttempts:  cfg.Ledger.MaxAttempts,
		RetryBackoff: cfg.Ledger.RetryBackoff,
	}, logger.Component(log, "ledger"))
	historySvc := service.NewHistoryService(store, service.HistoryOptions{
		ExportLimit: cfg.History.ExportLimit,
	}, logger.Component(log, "history"))

	httpHandler.SetSwaggerSpec(api.OpenAPI)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:        ledgerSvc,
		HistorySvc:       historySvc,
		RateLimiter:      rateLimiter,
		RateLimitRules:   middleware.RateLimitRules(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		IdempotencyCache: idemCache,
		IdempotencyTTL:   cfg.Idempotency.TTL,
		HealthCheckers:   checkers,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		DefaultPageLimit: cfg.History.DefaultLimit,
		Mode:             cfg.Server.Mode,
		Logger:           logger.Component(log, "http"),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
