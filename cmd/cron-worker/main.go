package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luismarin-dev/ordena-backend/internal/assignments"
	"github.com/luismarin-dev/ordena-backend/internal/cron"
	"github.com/luismarin-dev/ordena-backend/internal/priority"
	"github.com/luismarin-dev/ordena-backend/pkg/config"
	"github.com/luismarin-dev/ordena-backend/pkg/db"
	"github.com/luismarin-dev/ordena-backend/pkg/logger"
	"github.com/luismarin-dev/ordena-backend/pkg/metrics"
	"github.com/luismarin-dev/ordena-backend/pkg/migrate"
	"github.com/luismarin-dev/ordena-backend/pkg/redis"
)

const lockKeyFormat = "ordena:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	assignmentsRepo := assignments.NewRepository(dbClient.DB())
	priorityRepo := priority.NewRepository(dbClient.DB())

	staleClaimJob, err := cron.NewStaleClaimJob(cron.StaleClaimJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: assignmentsRepo,
		MaxAge:     cfg.Cron.StaleClaimAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stale claim job", err)
		os.Exit(1)
	}
	priorityRetentionJob, err := cron.NewPriorityRetentionJob(cron.PriorityRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: priorityRepo,
		Retention:  cfg.Cron.PriorityRetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create priority retention job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(staleClaimJob, priorityRetentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
