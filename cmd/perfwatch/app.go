package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/perfwatch/internal/adapter/chromedp_audit"
	"github.com/user/perfwatch/internal/adapter/pagespeed"
	"github.com/user/perfwatch/internal/adapter/postgres"
	redis_adapter "github.com/user/perfwatch/internal/adapter/redis"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/repository"
	"github.com/user/perfwatch/internal/usecase"
	"github.com/user/perfwatch/pkg/config"
	"github.com/user/perfwatch/pkg/logger"
	"go.uber.org/zap"
)

// app holds the connections and repositories shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *pgxpool.Pool
	rdb    *redis.Client

	channels  *postgres.ChannelRepoImpl
	pages     *postgres.PageRepoImpl
	providers *postgres.ProviderRepoImpl
	metrics   *postgres.MetricRepoImpl
	queues    map[entity.QueueName]*redis_adapter.Queue

	closers []func()
}

// loadConfig reads configuration and builds the logger, without touching any backend.
func loadConfig(envFile string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

func newApp(ctx context.Context, envFile string) (*app, error) {
	cfg, log, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	a.db, err = pgxpool.New(ctx, cfg.PostgresURL("postgres"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	a.closers = append(a.closers, a.db.Close)
	if err := a.db.Ping(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	log.Info("PostgreSQL connection pool established")

	a.rdb = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	a.closers = append(a.closers, func() { _ = a.rdb.Close() })
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		a.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	log.Info("Redis connection established")

	a.channels = postgres.NewChannelRepo(a.db)
	a.pages = postgres.NewPageRepo(a.db)
	a.providers = postgres.NewProviderRepo(a.db)
	a.metrics = postgres.NewMetricRepo(a.db, log)

	opts := redis_adapter.QueueOptions{Attempts: cfg.JobAttempts}
	a.queues = map[entity.QueueName]*redis_adapter.Queue{
		entity.QueueReference: redis_adapter.NewQueue(a.rdb, entity.QueueReference, opts),
		entity.QueueClient:    redis_adapter.NewQueue(a.rdb, entity.QueueClient, opts),
	}
	return a, nil
}

func (a *app) queueSet() usecase.QueueSet {
	return usecase.NewQueueSet(a.queues[entity.QueueReference], a.queues[entity.QueueClient])
}

func (a *app) recurring() usecase.RecurringUseCase {
	plan := usecase.RecurringPlan{ReferencePattern: a.cfg.ReferenceCron, ChunkSize: a.cfg.ClientChunkSize}
	return usecase.NewRecurringUseCase(a.channels, a.queueSet(), plan, a.logger)
}

func (a *app) dispatcher() usecase.Dispatcher {
	return usecase.NewDispatcher(a.channels, a.pages, a.queueSet(), a.logger)
}

// auditor builds the configured audit backend.
func (a *app) auditor() repository.AuditRepository {
	if a.cfg.AuditBackend == "chromedp" {
		runner := chromedp_audit.NewRunner(a.cfg.MaxBrowsers, a.cfg.PageLoadTimeout, a.logger)
		a.closers = append(a.closers, runner.Close)
		return runner
	}
	return pagespeed.NewClient(a.cfg.PageSpeedEndpoint, a.cfg.PageSpeedAPIKey, a.cfg.AuditTimeout)
}

// startWorkers runs one pool per queue and returns a function stopping them all.
func (a *app) startWorkers(ctx context.Context) func() {
	collector := usecase.NewCollector(a.auditor(), a.metrics, a.logger)
	cfg := usecase.WorkerPoolConfig{
		Concurrency:     a.cfg.WorkerConcurrency,
		RateLimitMax:    a.cfg.RateLimitMax,
		RateLimitWindow: a.cfg.RateLimitWindow,
	}

	pools := make([]*usecase.WorkerPool, 0, len(a.queues))
	for _, q := range a.queues {
		pool := usecase.NewWorkerPool(q, collector, cfg, a.logger)
		pool.Start(ctx)
		pools = append(pools, pool)
	}
	return func() {
		for _, pool := range pools {
			pool.Stop()
		}
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
