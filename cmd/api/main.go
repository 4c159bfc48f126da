package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/anavasquez/restyle-backend/api/routes"
	"github.com/anavasquez/restyle-backend/internal/addresses"
	authsvc "github.com/anavasquez/restyle-backend/internal/auth"
	"github.com/anavasquez/restyle-backend/internal/cart"
	checkoutsvc "github.com/anavasquez/restyle-backend/internal/checkout"
	"github.com/anavasquez/restyle-backend/internal/exchanges"
	"github.com/anavasquez/restyle-backend/internal/invoices"
	"github.com/anavasquez/restyle-backend/internal/products"
	"github.com/anavasquez/restyle-backend/internal/users"
	"github.com/anavasquez/restyle-backend/pkg/config"
	"github.com/anavasquez/restyle-backend/pkg/db"
	"github.com/anavasquez/restyle-backend/pkg/logger"
	"github.com/anavasquez/restyle-backend/pkg/metrics"
	"github.com/anavasquez/restyle-backend/pkg/migrate"
	"github.com/anavasquez/restyle-backend/pkg/redis"
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

	registry := prometheus.NewRegistry()
	marketplaceMetrics := metrics.NewMarketplace(registry)

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	addressRepo := addresses.NewRepository(conn)
	invoiceRepo := invoices.NewRepository(conn)
	exchangeRepo := exchanges.NewRepository(conn)

	productService, err := products.NewService(productRepo)
	exitOn(logg, "product service", err)

	cartService, err := cart.NewService(cartRepo, productRepo)
	exitOn(logg, "cart service", err)

	userService, err := users.NewService(userRepo)
	exitOn(logg, "user service", err)

	addressService, err := addresses.NewService(addressRepo)
	exitOn(logg, "address service", err)

	invoiceService, err := invoices.NewService(invoiceRepo)
	exitOn(logg, "invoice service", err)

	locker, err := checkoutsvc.NewRedisLocker(redisClient, 0)
	exitOn(logg, "checkout locker", err)

	checkoutService, err := checkoutsvc.NewService(
		dbClient,
		cartRepo,
		addressRepo,
		invoiceRepo,
		productService,
		locker,
		logg,
		marketplaceMetrics,
	)
	exitOn(logg, "checkout service", err)

	exchangeService, err := exchanges.NewService(
		dbClient,
		exchangeRepo,
		userRepo,
		productRepo,
		productService,
		logg,
		marketplaceMetrics,
	)
	exitOn(logg, "exchange service", err)

	authService, err := authsvc.NewService(dbClient, userRepo, cartRepo, cfg.JWT)
	exitOn(logg, "auth service", err)

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
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Cache:           redisClient,
			Registry:        registry,
			AuthService:     authService,
			UserService:     userService,
			ProductService:  productService,
			CartService:     cartService,
			CheckoutService: checkoutService,
			ExchangeService: exchangeService,
			InvoiceService:  invoiceService,
			AddressService:  addressService,
		}),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}()

	<-shutdown
	logg.Info(ctx, "shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "graceful shutdown failed", err)
	}
}

func exitOn(logg *logger.Logger, what string, err error) {
	if err != nil {
		logg.Error(context.Background(), "failed to create "+what, err)
		os.Exit(1)
	}
}
