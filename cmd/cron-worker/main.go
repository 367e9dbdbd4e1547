package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julienlmr/gameshelf-backend/internal/cron"
	"github.com/julienlmr/gameshelf-backend/internal/games"
	"github.com/julienlmr/gameshelf-backend/internal/notifications"
	"github.com/julienlmr/gameshelf-backend/internal/prices"
	"github.com/julienlmr/gameshelf-backend/pkg/config"
	"github.com/julienlmr/gameshelf-backend/pkg/db"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
	"github.com/julienlmr/gameshelf-backend/pkg/metrics"
	"github.com/julienlmr/gameshelf-backend/pkg/migrate"
	"github.com/julienlmr/gameshelf-backend/pkg/redis"
)

const lockKeyFormat = "gs:cron-worker:lock:%s"

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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
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

	gamesRepo := games.NewRepository(dbClient.DB())
	pricesRepo := prices.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	priceClient, err := prices.NewPriceClient(cfg.PriceAPI)
	if err != nil {
		logg.Error(context.Background(), "failed to create price client", err)
		os.Exit(1)
	}

	pricesService, err := prices.NewService(prices.ServiceParams{
		Repo:   pricesRepo,
		Games:  gamesRepo,
		Client: priceClient,
		MaxAge: cfg.PriceAPI.SyncMaxAge,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create prices service", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	priceSyncJob, err := cron.NewPriceSyncJob(cron.PriceSyncJobParams{
		Logger:  logg,
		Repo:    pricesRepo,
		Prices:  pricesService,
		Metrics: metricsCollector,
		MaxAge:  cfg.PriceAPI.SyncMaxAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create price sync job", err)
		os.Exit(1)
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:    logg,
		Repo:      notificationsRepo,
		Metrics:   metricsCollector,
		Retention: cfg.Share.NotifRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(priceSyncJob, cleanupJob)
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
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cron worker")

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+cfg.App.Port, mux); err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()

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
