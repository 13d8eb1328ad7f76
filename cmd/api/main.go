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

	"github.com/angelmondragon/garage-backend/api/routes"
	"github.com/angelmondragon/garage-backend/internal/auth"
	"github.com/angelmondragon/garage-backend/internal/inventory"
	"github.com/angelmondragon/garage-backend/internal/invoices"
	"github.com/angelmondragon/garage-backend/internal/owners"
	"github.com/angelmondragon/garage-backend/internal/reports"
	"github.com/angelmondragon/garage-backend/internal/tasktemplates"
	"github.com/angelmondragon/garage-backend/internal/users"
	"github.com/angelmondragon/garage-backend/internal/vehicles"
	"github.com/angelmondragon/garage-backend/pkg/auth/session"
	"github.com/angelmondragon/garage-backend/pkg/config"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/angelmondragon/garage-backend/pkg/metrics"
	"github.com/angelmondragon/garage-backend/pkg/migrate"
	"github.com/angelmondragon/garage-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if sqlDB, err := dbClient.SQL(); err == nil {
		registry.MustRegister(collectors.NewDBStatsCollector(sqlDB, "garage"))
	}

	deps, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
	registry *prometheus.Registry,
) (routes.Dependencies, error) {
	gdb := dbClient.DB()
	ledger := inventory.NewLedger(metrics.NewLedgerMetrics(registry)).WithLogger(logg)

	userRepo := users.NewRepository(gdb)
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	usersService, err := users.NewService(userRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}
	ownersService, err := owners.NewService(owners.NewRepository(gdb), dbClient, ledger)
	if err != nil {
		return routes.Dependencies{}, err
	}
	vehiclesService, err := vehicles.NewService(vehicles.NewRepository(gdb), dbClient, ledger)
	if err != nil {
		return routes.Dependencies{}, err
	}
	templatesService, err := tasktemplates.NewService(tasktemplates.NewRepository(gdb), dbClient)
	if err != nil {
		return routes.Dependencies{}, err
	}
	inventoryService, err := inventory.NewService(inventory.NewRepository(gdb), dbClient, ledger, cfg.Inventory.LowStockThreshold)
	if err != nil {
		return routes.Dependencies{}, err
	}
	invoicesService, err := invoices.NewService(invoices.NewRepository(gdb), dbClient, redisClient, cfg.Invoice, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	reportsService, err := reports.NewService(reports.NewRepository(gdb), dbClient, ledger, invoicesService, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Sessions:      sessionManager,
		Registry:      registry,
		HTTP:          metrics.NewHTTPMetrics(registry),
		Auth:          authService,
		Register:      registerService,
		Users:         usersService,
		Owners:        ownersService,
		Vehicles:      vehiclesService,
		TaskTemplates: templatesService,
		Inventory:     inventoryService,
		Reports:       reportsService,
		Invoices:      invoicesService,
	}, nil
}
