package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	httpAdapter "github.com/iho/hostledger/internal/adapter/http"
	"github.com/iho/hostledger/internal/adapter/http/handler"
	"github.com/iho/hostledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/hostledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/hostledger/internal/adapter/repository/redis"
	"github.com/iho/hostledger/internal/infrastructure/config"
	"github.com/iho/hostledger/internal/infrastructure/eventpublisher"
	"github.com/iho/hostledger/internal/infrastructure/logger"
	"github.com/iho/hostledger/internal/infrastructure/logging"
	"github.com/iho/hostledger/internal/infrastructure/metrics"
	"github.com/iho/hostledger/internal/infrastructure/postgres"
	"github.com/iho/hostledger/internal/infrastructure/redis"
	"github.com/iho/hostledger/internal/infrastructure/refresher"
	"github.com/iho/hostledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slogger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool, cfg.OrderingTimeBucket)
	checkpointRepo := postgresRepo.NewCheckpointRepository(pool)
	settlementRepo := postgresRepo.NewSettlementRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier()

	m := metrics.New()

	// Use cases
	ledgerUC := usecase.NewLedgerUseCase(
		txManager, entryRepo, checkpointRepo, settlementRepo, outboxRepo, cache, idGen,
		usecase.LedgerConfig{
			TimeBucket:   cfg.OrderingTimeBucket,
			NetTolerance: decimal.NewFromFloat(cfg.GroupNetTolerance),
		},
	).WithRetrier(retrier).WithMetrics(m)

	balanceUC := usecase.NewBalanceUseCase(
		entryRepo, checkpointRepo, cache, slogger.Logger,
		usecase.BalanceConfig{
			FullScanMaxLegs: cfg.FullScanMaxLegs,
			ScanTimeout:     cfg.FullScanTimeout,
			CacheTTL:        cfg.BalanceCacheTTL,
		},
	).WithMetrics(m)

	checkpointUC := usecase.NewCheckpointUseCase(
		entryRepo, checkpointRepo, outboxRepo, idGen, slogger.Logger,
		usecase.CheckpointConfig{TimeBucket: cfg.OrderingTimeBucket},
	).WithMetrics(m)

	settlementUC := usecase.NewSettlementUseCase(
		txManager, settlementRepo, entryRepo, outboxRepo, idGen,
		usecase.SettlementConfig{GracePeriod: cfg.SettlementGracePeriod},
	).WithMetrics(m)

	// Background workers
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewLogPublisher(slogger.Logger),
		Logger:     slogger.Logger,
		Metrics:    m,
		BatchSize:  cfg.PublishBatchSize,
		Interval:   cfg.PublishInterval,
	})
	go func() {
		if err := publisher.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	checkpointRefresher := refresher.New(refresher.Config{
		Checkpoints: checkpointUC,
		Logger:      slogger.Logger,
		BatchSize:   cfg.RefreshBatchSize,
		Interval:    cfg.RefreshInterval,
	})
	go func() {
		if err := checkpointRefresher.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("checkpoint refresher stopped")
		}
	}()

	// HTTP surface
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LedgerHandler:     handler.NewLedgerHandler(ledgerUC),
		BalanceHandler:    handler.NewBalanceHandler(balanceUC),
		SettlementHandler: handler.NewSettlementHandler(settlementUC),
		CheckpointHandler: handler.NewCheckpointHandler(checkpointUC),
		HealthHandler:     handler.NewHealthHandler(pool, redisClient),
		RefreshStatus:     handler.NewRefreshStatusHandler(checkpointRefresher),
		IdempotencyStore:  idempotencyStore,
		RateLimiter:       middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		RequestLogger:     middleware.NewLoggingMiddleware(log.Logger),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
