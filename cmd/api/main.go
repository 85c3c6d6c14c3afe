package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"frunk-store/internal/catalog"
	"frunk-store/internal/config"
	"frunk-store/internal/db"
	"frunk-store/internal/httpserver"
	"frunk-store/internal/payments"
	"frunk-store/internal/printful"
	"frunk-store/internal/ratelimit"
	orderrepo "frunk-store/internal/repository/order"
	sessionrepo "frunk-store/internal/repository/session"
	userrepo "frunk-store/internal/repository/user"
	checkoutsvc "frunk-store/internal/service/checkout"
	fulfillmentsvc "frunk-store/internal/service/fulfillment"
	paymentsvc "frunk-store/internal/service/payment"
	usersvc "frunk-store/internal/service/user"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		logger.Fatalf("load catalog: %v", err)
	}
	synced, err := cat.ApplyVariantMappingFile(cfg.CatalogVariantMap)
	if err != nil {
		logger.Fatalf("apply variant map: %v", err)
	}
	logger.Printf("catalog loaded products=%d synced_variants=%d", len(cat.Products()), synced)

	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	userService := usersvc.New(userrepo.NewPostgres(dbpool, logger), sessionrepo.NewPostgres(dbpool), logger)

	gateway := payments.NewStripe(payments.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	}, logger)
	if !gateway.CheckoutConfigured() {
		logger.Printf("STRIPE_SECRET_KEY not set, checkout is disabled")
	}
	vendor := printful.New(printful.Config{
		APIKey:  cfg.PrintfulAPIKey,
		StoreID: cfg.PrintfulStoreID,
		BaseURL: cfg.PrintfulBaseURL,
	}, logger)
	if !vendor.Configured() {
		logger.Printf("PRINTFUL_API_KEY not set, paid orders will wait for manual fulfillment")
	}

	checkoutService := checkoutsvc.New(cat, orderRepo, gateway, cfg.PublicBaseURL, logger)
	fulfillmentService := fulfillmentsvc.New(orderRepo, vendor, logger)
	paymentService := paymentsvc.New(gateway, orderRepo, fulfillmentService, logger)

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatalf("connect to redis: %v", err)
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedis(rdb, "ratelimit:checkout", cfg.CheckoutRateLimit, cfg.CheckoutRateWindow)
		logger.Printf("checkout rate limit %d per %s", cfg.CheckoutRateLimit, cfg.CheckoutRateWindow)
	}

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Catalog:         cat,
		CheckoutSvc:     checkoutService,
		PaymentSvc:      paymentService,
		UserSvc:         userService,
		Orders:          orderRepo,
		CheckoutLimiter: limiter,
		AllowedOrigins:  cfg.AllowedOrigins,
		TrustedProxies:  cfg.TrustedProxies,
		Integrations: map[string]httpserver.Integration{
			"checkout":    checkoutService,
			"fulfillment": fulfillmentService,
		},
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
