package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/goldshop/checkout/internal/bootstrap"
	"github.com/goldshop/checkout/internal/controller"
	"github.com/goldshop/checkout/internal/currency"
	"github.com/goldshop/checkout/internal/gateway"
	"github.com/goldshop/checkout/internal/geo"
	infraRedis "github.com/goldshop/checkout/internal/infrastructure/redis"
	"github.com/goldshop/checkout/internal/ordernum"
	"github.com/goldshop/checkout/internal/pricing"
	"github.com/goldshop/checkout/internal/repository/postgres"
	"github.com/goldshop/checkout/internal/service"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "checkout-api", "checkout")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	// --- Repositories ---
	orderRepo := postgres.NewOrderRepository(app.Pool)
	discountRepo := postgres.NewDiscountRepository(app.Pool)
	blacklistRepo := postgres.NewBlacklistRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Infrastructure ---
	sessions := infraRedis.NewSessionStore(app.Redis, cfg.Redis.SessionTTL)
	locker := infraRedis.NewLockManager(app.Redis, cfg.Checkout.RefundLockTTL)
	converter := currency.NewStaticConverter(cfg.Currency.Rates)

	var geoResolver geo.Resolver = geo.NoopResolver{}
	if cfg.Geo.Endpoint != "" {
		geoResolver = geo.NewHTTPResolver(cfg.Geo, app.Logger)
	}

	numbers, err := ordernum.NewGenerator(cfg.OrderNumber)
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("Failed to build order number generator")
	}

	gateways := gateway.NewFactory(
		gateway.NewG2APay(cfg.G2A, app.Logger),
		gateway.NewSkrill(cfg.Skrill, app.Logger),
	)

	// --- Services ---
	checkoutSvc := service.NewCheckoutService(
		orderRepo, discountRepo, blacklistRepo, sessions,
		geoResolver, converter, numbers, gateways,
		txManager, cfg.Checkout, app.Logger,
	)
	refundSvc := service.NewRefundService(
		orderRepo, outboxRepo, txManager, gateways,
		locker, pricing.NewCalculator(converter), cfg.Checkout, app.Logger,
	)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:            app.Pool,
		RedisClient:     app.Redis,
		OrderRepo:       orderRepo,
		CheckoutService: checkoutSvc,
		RefundService:   refundSvc,
		IdempotencyRepo: idempotencyRepo,
		Metrics:         app.Metrics,
		Config:          cfg,
		Logger:          app.Logger,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
