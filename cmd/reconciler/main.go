package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/railtix/ticketing-backend/internal/cron"
	"github.com/railtix/ticketing-backend/internal/inventory"
	"github.com/railtix/ticketing-backend/internal/reconcile"
	"github.com/railtix/ticketing-backend/internal/stock"
	"github.com/railtix/ticketing-backend/pkg/config"
	"github.com/railtix/ticketing-backend/pkg/db"
	"github.com/railtix/ticketing-backend/pkg/instance"
	"github.com/railtix/ticketing-backend/pkg/logger"
	"github.com/railtix/ticketing-backend/pkg/metrics"
	"github.com/railtix/ticketing-backend/pkg/migrate"
	"github.com/railtix/ticketing-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconciler"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "reconciler"

	logg = logger.New(logger.Options{
		ServiceName: "reconciler",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	inventoryRepo := inventory.NewRepository(gormDB)
	inventorySvc, err := inventory.NewService(inventory.Params{
		Repo:    inventoryRepo,
		Logger:  logg,
		Retries: cfg.Booking.LedgerRetries,
	})
	if err != nil {
		logg.Error(ctx, "failed to build inventory service", err)
		os.Exit(1)
	}

	stockCtrl, err := stock.NewController(redisClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to build stock controller", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()

	foldJob, err := reconcile.NewFoldJob(reconcile.FoldJobParams{
		Logger:    logg,
		Stock:     stockCtrl,
		Inventory: inventorySvc,
	})
	if err != nil {
		logg.Error(ctx, "failed to build fold job", err)
		os.Exit(1)
	}
	registry.Register(foldJob)

	if cfg.Reconcile.RestoreEnabled {
		restoreJob, err := reconcile.NewRestoreJob(reconcile.RestoreJobParams{
			Logger: logg,
			Stock:  stockCtrl,
			Ledger: inventoryRepo,
		})
		if err != nil {
			logg.Error(ctx, "failed to build restore job", err)
			os.Exit(1)
		}
		registry.Register(restoreJob)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("reconciler"), 0)
	if err != nil {
		logg.Error(ctx, "failed to create reconciler lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Reconcile.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting reconciler")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reconciler stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "reconciler shutting down gracefully")
}
