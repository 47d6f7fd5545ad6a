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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/bankrecon/internal/adapter/http"
	"github.com/iho/bankrecon/internal/adapter/http/handler"
	"github.com/iho/bankrecon/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/bankrecon/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bankrecon/internal/adapter/repository/redis"
	"github.com/iho/bankrecon/internal/infrastructure/config"
	"github.com/iho/bankrecon/internal/infrastructure/eventpublisher"
	"github.com/iho/bankrecon/internal/infrastructure/logger"
	"github.com/iho/bankrecon/internal/infrastructure/metrics"
	"github.com/iho/bankrecon/internal/infrastructure/postgres"
	"github.com/iho/bankrecon/internal/infrastructure/redis"
	"github.com/iho/bankrecon/internal/usecase"
)

const (
	limiterCleanupInterval = time.Minute
	limiterMaxIdle         = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx = log.WithContext(ctx)

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, redis.Config{
		URL:          cfg.RedisURL,
		ClientName:   "bankrecon",
		PoolSize:     cfg.RedisPoolSize,
		ReadTimeout:  cfg.RedisReadTimeout,
		WriteTimeout: cfg.RedisWriteTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool, m)
	retrier := postgresRepo.NewRetrier(m)
	idGen := postgresRepo.NewULIDGenerator()
	accountRepo := postgresRepo.NewBankAccountRepository(pool)
	txnRepo := postgresRepo.NewBankTransactionRepository(pool)
	ruleRepo := postgresRepo.NewRuleRepository(pool)
	sessionRepo := postgresRepo.NewSessionRepository(pool)
	matchRepo := postgresRepo.NewMatchRepository(pool)
	discrepancyRepo := postgresRepo.NewDiscrepancyRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	payments := redisRepo.NewPaymentCache(postgresRepo.NewPaymentLookup(pool), redisClient, cfg.PaymentCacheTTL)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	// Initialize use cases
	accountUC := usecase.NewAccountUseCase(txManager, accountRepo, sessionRepo, outboxRepo, idGen, m)
	txnUC := usecase.NewTransactionUseCase(txManager, accountRepo, txnRepo, outboxRepo, idGen, m)
	ruleUC := usecase.NewRuleUseCase(ruleRepo, idGen)
	sessionUC := usecase.NewSessionUseCase(txManager, accountRepo, sessionRepo, outboxRepo, idGen, m)
	matchingUC := usecase.NewMatchingUseCase(txManager, accountRepo, txnRepo, ruleRepo, sessionRepo,
		matchRepo, outboxRepo, payments, idGen, retrier, m)
	discrepancyUC := usecase.NewDiscrepancyUseCase(txManager, sessionRepo, txnRepo, discrepancyRepo,
		outboxRepo, payments, idGen, m)
	reportUC := usecase.NewReportUseCase(accountRepo, txnRepo, sessionRepo, matchRepo, discrepancyRepo,
		payments, cfg.OutstandingLookback)

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go rateLimiter.RunCleanup(ctx, limiterCleanupInterval, limiterMaxIdle)
	}

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC),
		TransactionHandler: handler.NewTransactionHandler(txnUC),
		RuleHandler:        handler.NewRuleHandler(ruleUC),
		SessionHandler:     handler.NewSessionHandler(sessionUC),
		MatchingHandler:    handler.NewMatchingHandler(matchingUC),
		DiscrepancyHandler: handler.NewDiscrepancyHandler(discrepancyUC),
		ReportHandler:      handler.NewReportHandler(reportUC),
		EventHandler:       handler.NewEventHandler(outboxRepo),
		HealthHandler: handler.NewHealthHandler(
			handler.PingerFunc(pool.Ping),
			handler.PingerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		),
		Logger:           log,
		Metrics:          m,
		MetricsHandler:   promhttp.Handler(),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
	})

	// Start the outbox relay
	sink, err := newEventSink(cfg, redisClient, log)
	if err != nil {
		return err
	}
	relay := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  sink,
		Logger:     log,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
		Retention:  cfg.OutboxRetention,
	})
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("outbox relay stopped")
		}
	}()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	select {
	case <-relayDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("outbox relay did not stop before shutdown timeout")
	}

	log.Info().Msg("server stopped")
	return nil
}

// newEventSink picks where the outbox relay delivers events.
func newEventSink(cfg *config.Config, client goredis.UniversalClient, log zerolog.Logger) (eventpublisher.Publisher, error) {
	switch cfg.EventSink {
	case "", "log":
		return eventpublisher.NewLogPublisher(log), nil
	case "redis":
		if client == nil {
			return nil, errors.New("redis event sink requires a redis client")
		}
		return eventpublisher.NewRedisStreamPublisher(client, cfg.EventStream, cfg.EventStreamMaxLen), nil
	default:
		return nil, fmt.Errorf("unknown event sink %q", cfg.EventSink)
	}
}
