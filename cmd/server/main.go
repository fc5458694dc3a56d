package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/cashbook/internal/adapter/http"
	"github.com/iho/cashbook/internal/adapter/http/handler"
	"github.com/iho/cashbook/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/cashbook/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/cashbook/internal/adapter/repository/redis"
	"github.com/iho/cashbook/internal/adapter/repository/sqlite"
	"github.com/iho/cashbook/internal/infrastructure/config"
	"github.com/iho/cashbook/internal/infrastructure/logger"
	"github.com/iho/cashbook/internal/infrastructure/metrics"
	"github.com/iho/cashbook/internal/infrastructure/postgres"
	"github.com/iho/cashbook/internal/infrastructure/redis"
	"github.com/iho/cashbook/internal/infrastructure/replayworker"
	"github.com/iho/cashbook/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	log.Logger = appLogger

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, "internal/infrastructure/postgres/migrations"); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Open the offline action queue
	if err := os.MkdirAll(filepath.Dir(cfg.QueuePath), 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create queue directory")
	}
	queueStore, err := sqlite.NewQueueStore(cfg.QueuePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open offline queue")
	}
	defer queueStore.Close()
	log.Info().Str("path", cfg.QueuePath).Msg("offline queue ready")

	appMetrics := metrics.New()

	// Initialize repositories
	retrier := postgresRepo.NewRetrier()
	ledgerRepo := postgresRepo.NewLedgerRepository(pool, retrier)
	entityRepo := postgresRepo.NewEntityRepository(pool)
	cashFlowRepo := postgresRepo.NewCashFlowRepository(pool)
	settingsRepo := postgresRepo.NewSettingsRepository(pool)
	cache := redisRepo.NewCache(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	balanceUC := usecase.NewBalanceUseCase(ledgerRepo, entityRepo)
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo, balanceUC, cashFlowRepo, settingsRepo, cache)
	offlineUC := usecase.NewOfflineUseCase(queueStore, ledgerUC, idGen, appLogger)
	reconcileUC := usecase.NewReconciliationUseCase(ledgerRepo)

	// Start the background replay worker
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	worker := replayworker.NewWorker(replayworker.Config{
		Queue:    offlineUC,
		Logger:   appLogger,
		Metrics:  appMetrics,
		Interval: cfg.ReplayInterval,
	})
	go func() {
		if err := worker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Error().Err(err).Msg("replay worker stopped")
		}
	}()

	// Initialize handlers
	ledgerHandler := handler.NewLedgerHandler(ledgerUC, offlineUC, balanceUC)
	queueHandler := handler.NewQueueHandler(offlineUC)
	reconcileHandler := handler.NewReconcileHandler(reconcileUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient, queueStore.DB())

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LedgerHandler:    ledgerHandler,
		QueueHandler:     queueHandler,
		ReconcileHandler: reconcileHandler,
		HealthHandler:    healthHandler,
		Logger:           appLogger,
		RateLimiter:      middleware.NewRateLimiter(100, 200),
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
