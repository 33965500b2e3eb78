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

	"github.com/hubfood/ifood-erp-sync/internal/erpsales"
	"github.com/hubfood/ifood-erp-sync/internal/events"
	"github.com/hubfood/ifood-erp-sync/internal/inventory"
	"github.com/hubfood/ifood-erp-sync/internal/orders"
	"github.com/hubfood/ifood-erp-sync/internal/poller"
	"github.com/hubfood/ifood-erp-sync/pkg/config"
	"github.com/hubfood/ifood-erp-sync/pkg/db"
	"github.com/hubfood/ifood-erp-sync/pkg/erp"
	"github.com/hubfood/ifood-erp-sync/pkg/ifood"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
	"github.com/hubfood/ifood-erp-sync/pkg/metrics"
	"github.com/hubfood/ifood-erp-sync/pkg/migrate"
	"github.com/hubfood/ifood-erp-sync/pkg/redis"
	"github.com/hubfood/ifood-erp-sync/pkg/resilience"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "poller"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "poller",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.Poller.Enabled {
		logg.Info(context.Background(), "polling disabled, nothing to do")
		return
	}

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

	registry := resilience.NewRegistry(cfg.Resilience)

	tokens, err := ifood.NewStaticTokenProvider(cfg.IFood.APIToken)
	if err != nil {
		logg.Error(context.Background(), "failed to create token provider", err)
		os.Exit(1)
	}

	ifoodClient, err := ifood.NewClient(cfg.IFood, tokens, registry, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create marketplace client", err)
		os.Exit(1)
	}

	erpClient, err := erp.NewClient(cfg.ERP, registry, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create erp client", err)
		os.Exit(1)
	}

	statusReconciler, err := inventory.NewStatusReconciler(dbClient, inventory.DefaultRepoFactory, ifoodClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create status reconciler", err)
		os.Exit(1)
	}

	inventorySvc, err := inventory.NewService(dbClient, inventory.DefaultRepoFactory, ifoodClient, erpClient, statusReconciler, cfg.Features, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	salesSvc, err := erpsales.NewService(erpsales.NewRepository(dbClient.DB()), erpClient, cfg.ERP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create erp sales service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.NewRepository(dbClient.DB()), ifoodClient, inventorySvc, salesSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	intake, err := events.NewService(events.NewRepository(dbClient.DB()), ordersSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create event intake", err)
		os.Exit(1)
	}

	lock, err := poller.NewRedisLock(redisClient, redisClient.LockKey(lockScope(cfg.App.Env)), cfg.Poller.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create poll lock", err)
		os.Exit(1)
	}

	pollerMetrics := metrics.NewPollerMetrics(prometheus.DefaultRegisterer)

	service, err := poller.NewService(poller.ServiceParams{
		Logger:    logg,
		Client:    ifoodClient,
		Intake:    intake,
		Merchants: poller.NewRepository(dbClient.DB()),
		Lock:      lock,
		Metrics:   pollerMetrics,
		Config:    cfg.Poller,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create polling service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Poller.Interval.String(),
	})
	logg.Info(ctx, "starting event poller")

	go serveMetrics(ctx, logg, cfg.Poller.MetricsPort)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "event poller stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "event poller shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}

func lockScope(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("poller:%s", env)
}
