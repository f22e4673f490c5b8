package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/railtix/ticketing-backend/internal/booking"
	"github.com/railtix/ticketing-backend/internal/fulfillment"
	"github.com/railtix/ticketing-backend/internal/inventory"
	"github.com/railtix/ticketing-backend/internal/seats"
	"github.com/railtix/ticketing-backend/internal/stations"
	"github.com/railtix/ticketing-backend/internal/stock"
	"github.com/railtix/ticketing-backend/pkg/config"
	"github.com/railtix/ticketing-backend/pkg/db"
	"github.com/railtix/ticketing-backend/pkg/instance"
	"github.com/railtix/ticketing-backend/pkg/logger"
	"github.com/railtix/ticketing-backend/pkg/metrics"
	"github.com/railtix/ticketing-backend/pkg/migrate"
	"github.com/railtix/ticketing-backend/pkg/pubsub"
	"github.com/railtix/ticketing-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "fulfillment-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "fulfillment-worker"

	logg = logger.New(logger.Options{
		ServiceName: "fulfillment-worker",
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	basePrice, err := decimal.NewFromString(cfg.Booking.DefaultBasePrice)
	if err != nil {
		logg.Error(ctx, "invalid default base price", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	stationsRepo := stations.NewRepository(gormDB)

	seatSvc, err := seats.NewService(seats.NewRepository(gormDB), stationsRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to build seat service", err)
		os.Exit(1)
	}

	inventorySvc, err := inventory.NewService(inventory.Params{
		Repo:             inventory.NewRepository(gormDB),
		Logger:           logg,
		DefaultBasePrice: basePrice,
		Retries:          cfg.Booking.LedgerRetries,
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

	processor, err := fulfillment.NewProcessor(fulfillment.Params{
		Orders:    booking.NewRepository(gormDB),
		Inventory: inventorySvc,
		Stock:     stockCtrl,
		Seats:     seatSvc,
		Stations:  stationsRepo,
		Metrics:   metrics.NewPipelineMetrics(prometheus.DefaultRegisterer),
		Logger:    logg,
		BaseDate:  cfg.Seating.BaseDateTime(),
	})
	if err != nil {
		logg.Error(ctx, "failed to build fulfillment processor", err)
		os.Exit(1)
	}

	subscription := pubsubClient.BookingSubscription()
	if cfg.Booking.FulfillmentWorkers > 0 {
		subscription.ReceiveSettings.NumGoroutines = cfg.Booking.FulfillmentWorkers
	}

	consumer, err := fulfillment.NewConsumer(subscription, processor, logg)
	if err != nil {
		logg.Error(ctx, "failed to build fulfillment consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
	})
	if err != nil {
		logg.Error(ctx, "failed to build worker service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting fulfillment worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "fulfillment worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "fulfillment worker shutting down gracefully")
}
