package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecofashion/ecofashion-backend/api/routes"
	"github.com/ecofashion/ecofashion-backend/internal/cart"
	"github.com/ecofashion/ecofashion-backend/internal/catalog"
	"github.com/ecofashion/ecofashion-backend/internal/checkout"
	"github.com/ecofashion/ecofashion-backend/internal/inventory"
	"github.com/ecofashion/ecofashion-backend/internal/orders"
	"github.com/ecofashion/ecofashion-backend/internal/payments"
	"github.com/ecofashion/ecofashion-backend/internal/settlement"
	"github.com/ecofashion/ecofashion-backend/internal/wallet"
	"github.com/ecofashion/ecofashion-backend/pkg/config"
	"github.com/ecofashion/ecofashion-backend/pkg/db"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
	"github.com/ecofashion/ecofashion-backend/pkg/metrics"
	"github.com/ecofashion/ecofashion-backend/pkg/migrate"
	"github.com/ecofashion/ecofashion-backend/pkg/redis"
	"github.com/ecofashion/ecofashion-backend/pkg/vnpay"
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

	gateway, err := vnpay.New(cfg.VNPay)
	if err != nil {
		logg.Error(context.Background(), "failed to create vnpay client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	commissionRate, err := cfg.Platform.CommissionRate()
	if err != nil {
		logg.Error(context.Background(), "invalid commission rate", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())

	walletService, err := wallet.NewService(wallet.ServiceParams{
		Tx:             dbClient,
		Repo:           wallet.NewRepository(dbClient.DB()),
		Gateway:        gateway,
		PlatformUserID: cfg.Platform.WalletUserID,
	})
	exitOnError(logg, "failed to create wallet service", err)

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Tx:             dbClient,
		Repo:           settlement.NewRepository(dbClient.DB()),
		Orders:         ordersRepo,
		Wallets:        walletService,
		Logger:         logg,
		Metrics:        paymentMetrics,
		CommissionRate: commissionRate,
	})
	exitOnError(logg, "failed to create settlement service", err)

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Tx:      dbClient,
		Repo:    inventory.NewRepository(dbClient.DB()),
		Catalog: catalogRepo,
		Logger:  logg,
		Metrics: paymentMetrics,
	})
	exitOnError(logg, "failed to create inventory service", err)

	cartService, err := cart.NewService(cart.ServiceParams{
		Tx:      dbClient,
		Repo:    cartRepo,
		Catalog: catalogRepo,
	})
	exitOnError(logg, "failed to create cart service", err)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:           dbClient,
		Orders:       ordersRepo,
		Catalog:      catalogRepo,
		Carts:        cartRepo,
		HoldDuration: cfg.Checkout.HoldDuration(),
	})
	exitOnError(logg, "failed to create checkout service", err)

	paymentService, err := payments.NewService(payments.ServiceParams{
		Tx:          dbClient,
		Repo:        payments.NewRepository(dbClient.DB()),
		Orders:      ordersRepo,
		Wallets:     walletService,
		Settlements: settlementService,
		Inventory:   inventoryService,
		Gateway:     gateway,
		Logger:      logg,
		Metrics:     paymentMetrics,
	})
	exitOnError(logg, "failed to create payment service", err)

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Redis:       redisClient,
		DB:          dbClient,
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Carts:       cartService,
		Checkout:    checkoutService,
		Payments:    paymentService,
		Wallets:     walletService,
		Settlements: settlementService,
		Inventory:   inventoryService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func exitOnError(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
