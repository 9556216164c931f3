package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/otdoges/zapdev-sub005/api/routes"
	"github.com/otdoges/zapdev-sub005/internal/checkout"
	"github.com/otdoges/zapdev-sub005/internal/identity"
	"github.com/otdoges/zapdev-sub005/internal/subscriptions"
	stripewebhook "github.com/otdoges/zapdev-sub005/internal/webhooks/stripe"
	"github.com/otdoges/zapdev-sub005/pkg/config"
	"github.com/otdoges/zapdev-sub005/pkg/db"
	"github.com/otdoges/zapdev-sub005/pkg/logger"
	"github.com/otdoges/zapdev-sub005/pkg/metrics"
	"github.com/otdoges/zapdev-sub005/pkg/migrate"
	"github.com/otdoges/zapdev-sub005/pkg/redis"
	pkgstripe "github.com/otdoges/zapdev-sub005/pkg/stripe"
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

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	identityService, err := identity.NewService(identity.ServiceParams{
		Provider: stripeClient,
		Repo:     identity.NewRepository(dbClient.DB()),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create identity service", err)
		os.Exit(1)
	}

	planMapper := subscriptions.NewPlanMapper(cfg.Plans)
	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Provider: stripeClient,
		Mapper:   planMapper,
		Cache:    subscriptions.NewSnapshotCache(redisClient, cfg.Cache),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Provider: stripeClient,
		Resolver: identityService,
		Mapper:   planMapper,
		Stripe:   cfg.Stripe,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Cache.IdempotencyTTL, stripewebhook.IdempotencyScope)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Guard:    webhookGuard,
		Syncer:   subscriptionService,
		Provider: stripeClient,
		EventLog: stripewebhook.NewEventLog(dbClient.DB()),
		Metrics:  metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			identityService,
			subscriptionService,
			checkoutService,
			webhookService,
			stripeClient,
			prometheus.DefaultGatherer,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
