package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-client/api/controllers"
	"github.com/angelmondragon/storefront-client/api/routes"
	"github.com/angelmondragon/storefront-client/internal/auth"
	"github.com/angelmondragon/storefront-client/internal/orderbook"
	product "github.com/angelmondragon/storefront-client/internal/products"
	"github.com/angelmondragon/storefront-client/internal/users"
	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/db"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	"github.com/angelmondragon/storefront-client/pkg/migrate"
	pkgredis "github.com/angelmondragon/storefront-client/pkg/redis"
	"github.com/angelmondragon/storefront-client/pkg/security"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "devserver"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "devserver",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := cfg.DB
	dbCfg.DSN = cfg.DevServer.DBDSN
	dbClient, err := db.New(ctx, cfg.DevServer.DBDriver, dbCfg, logg)
	requireResource(logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	userRepo := users.NewRepository(dbClient.DB())
	productRepo := product.NewRepository(dbClient.DB())
	orderRepo := orderbook.NewRepository(dbClient.DB())
	requireResource(logg, "migrations", migrate.Run(ctx, logg,
		migrate.Step{Name: "users", Migrator: userRepo},
		migrate.Step{Name: "products", Migrator: productRepo},
		migrate.Step{Name: "orders", Migrator: orderRepo},
	))
	if cfg.DevServer.Seed {
		inserted, err := product.Seed(ctx, productRepo)
		requireResource(logg, "catalog seed", err)
		logg.Info(logg.WithField(ctx, "inserted", inserted), "catalog seeded")
	}

	readiness := map[string]controllers.Pinger{"db": dbClient}
	var store routes.Store = pkgredis.NewMemory()
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err := pkgredis.New(ctx, cfg.Redis, logg)
		requireResource(logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		store = redisClient
		readiness["redis"] = redisClient
	}

	hasher, err := security.NewHasher(cfg.Password)
	requireResource(logg, "password hasher", err)
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  userRepo,
		Hasher:    hasher,
		JWTConfig: cfg.JWT,
		Logger:    logg,
	})
	requireResource(logg, "auth service", err)
	productService, err := product.NewService(productRepo)
	requireResource(logg, "product service", err)
	orderService, err := orderbook.NewService(dbClient, orderRepo, productRepo, logg)
	requireResource(logg, "order service", err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(reg, reg)

	addr := ":" + cfg.DevServer.Port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"driver": cfg.DevServer.DBDriver,
	})
	logg.Info(serverCtx, "starting dev server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, httpMetrics, readiness, store, authService, productService, orderService),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "dev server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "dev server shutdown failed", err)
		}
		logg.Info(serverCtx, "dev server stopped")
	}
}

func requireResource(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to initialize "+name, err)
	os.Exit(1)
}
