package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/omarashraf/dokkan-backend/api/routes"
	"github.com/omarashraf/dokkan-backend/internal/audit"
	"github.com/omarashraf/dokkan-backend/internal/cart"
	"github.com/omarashraf/dokkan-backend/internal/orders"
	"github.com/omarashraf/dokkan-backend/internal/pricing"
	"github.com/omarashraf/dokkan-backend/internal/products"
	"github.com/omarashraf/dokkan-backend/internal/promo"
	"github.com/omarashraf/dokkan-backend/internal/returns"
	"github.com/omarashraf/dokkan-backend/internal/users"
	"github.com/omarashraf/dokkan-backend/pkg/config"
	"github.com/omarashraf/dokkan-backend/pkg/db"
	"github.com/omarashraf/dokkan-backend/pkg/logger"
	"github.com/omarashraf/dokkan-backend/pkg/migrate"
	"github.com/omarashraf/dokkan-backend/pkg/paymob"
	"github.com/omarashraf/dokkan-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := paymob.NewClient(
		cfg.Paymob.APIKey,
		cfg.Paymob.IntegrationID,
		cfg.Paymob.IframeID,
		paymob.WithBaseURL(cfg.Paymob.BaseURL),
		paymob.WithIframeBaseURL(cfg.Paymob.IframeBaseURL),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create paymob client", err)
		os.Exit(1)
	}

	gdb := dbClient.DB()

	auditSvc, err := audit.NewService(audit.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	promoSvc, err := promo.NewService(promo.NewRepository(gdb), auditSvc, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create promo service", err)
		os.Exit(1)
	}

	cartSvc, err := cart.NewService(cart.NewRepository(gdb), products.NewRepository(gdb), promoSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderSvc, err := orders.NewService(
		orders.NewRepository(gdb),
		cartSvc,
		users.NewRepository(gdb),
		auditSvc,
		gateway,
		pricing.FeeSchedule{
			DeliveryFeeCents:  cfg.Fees.DeliveryFeeCents,
			CODSurchargeCents: cfg.Fees.CODSurchargeCents,
		},
		dbClient,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	returnSvc, err := returns.NewService(
		returns.NewRepository(gdb),
		orders.NewRepository(gdb),
		users.NewRepository(gdb),
		auditSvc,
		dbClient,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create returns service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:  cfg,
			Logger:  logg,
			DB:      dbClient,
			Redis:   redisClient,
			Cart:    cartSvc,
			Orders:  orderSvc,
			Returns: returnSvc,
			Promos:  promoSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
