package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/hubfood/ifood-erp-sync/api/routes"
	"github.com/hubfood/ifood-erp-sync/internal/erpsales"
	"github.com/hubfood/ifood-erp-sync/internal/events"
	"github.com/hubfood/ifood-erp-sync/internal/inventory"
	"github.com/hubfood/ifood-erp-sync/internal/merchants"
	"github.com/hubfood/ifood-erp-sync/internal/orders"
	"github.com/hubfood/ifood-erp-sync/pkg/config"
	"github.com/hubfood/ifood-erp-sync/pkg/db"
	"github.com/hubfood/ifood-erp-sync/pkg/env"
	"github.com/hubfood/ifood-erp-sync/pkg/erp"
	"github.com/hubfood/ifood-erp-sync/pkg/ifood"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
	"github.com/hubfood/ifood-erp-sync/pkg/migrate"
	"github.com/hubfood/ifood-erp-sync/pkg/redis"
	"github.com/hubfood/ifood-erp-sync/pkg/resilience"
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

	secrets, err := merchants.NewSecretResolver(merchants.NewRepository(dbClient.DB()), cfg.IFood.SignatureSecret)
	if err != nil {
		logg.Error(context.Background(), "failed to create secret resolver", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, intake, secrets, inventorySvc, statusReconciler),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
