package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luismarin-dev/ordena-backend/api/routes"
	"github.com/luismarin-dev/ordena-backend/internal/assignments"
	"github.com/luismarin-dev/ordena-backend/internal/priority"
	"github.com/luismarin-dev/ordena-backend/internal/users"
	"github.com/luismarin-dev/ordena-backend/pkg/config"
	"github.com/luismarin-dev/ordena-backend/pkg/db"
	"github.com/luismarin-dev/ordena-backend/pkg/env"
	"github.com/luismarin-dev/ordena-backend/pkg/logger"
	"github.com/luismarin-dev/ordena-backend/pkg/metrics"
	"github.com/luismarin-dev/ordena-backend/pkg/migrate"
	"github.com/luismarin-dev/ordena-backend/pkg/redis"
	"github.com/luismarin-dev/ordena-backend/pkg/storefront"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	tokens, err := storefront.NewCachedTokenSource(cfg.Storefront, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create storefront token source", err)
		os.Exit(1)
	}
	storefrontClient, err := storefront.NewClient(cfg.Storefront, tokens, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create storefront client", err)
		os.Exit(1)
	}
	statusCache := storefront.NewStatusCache(storefrontClient, redisClient, cfg.Storefront.StatusTTL, logg)

	registry := prometheus.NewRegistry()
	assignMetrics := metrics.NewAssignMetrics(registry)

	usersRepo := users.NewRepository(dbClient.DB())
	priorityRepo := priority.NewRepository(dbClient.DB())
	assignmentsRepo := assignments.NewRepository(dbClient.DB())

	assignService, err := assignments.NewService(
		assignmentsRepo,
		usersRepo,
		priorityRepo,
		storefrontClient,
		statusCache,
		cfg.Assign,
		logg,
		assignMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			Assignments:     assignService,
			Priorities:      priorityRepo,
			MerchantID:      cfg.Storefront.MerchantID,
			MetricsGatherer: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
