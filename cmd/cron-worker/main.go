package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/garage-backend/internal/cron"
	"github.com/angelmondragon/garage-backend/internal/inventory"
	"github.com/angelmondragon/garage-backend/internal/invoices"
	"github.com/angelmondragon/garage-backend/pkg/config"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/angelmondragon/garage-backend/pkg/metrics"
	"github.com/angelmondragon/garage-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	once := flag.Bool("once", false, "run a single cycle and exit")
	only := flag.String("job", "", "run only the named job once and exit")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address, e.g. :9102")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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
	jobMetrics := metrics.NewJobMetrics(registry)

	jobs, err := buildJobs(cfg, logg, dbClient, redisClient, jobMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron jobs", err)
		os.Exit(1)
	}
	if *only != "" {
		job, ok := jobs.Find(*only)
		if !ok {
			fmt.Fprintln(os.Stderr, "unknown job:", *only)
			os.Exit(1)
		}
		jobs = cron.NewRegistry(job)
		*once = true
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron:"+envOrLocal(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    jobMetrics,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
	})

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	if *metricsAddr != "" {
		go serveMetrics(ctx, logg, *metricsAddr, registry)
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, m *metrics.JobMetrics) (*cron.Registry, error) {
	sequence, err := cron.NewInvoiceSequenceJob(logg, invoices.NewRepository(dbClient.DB()), redisClient, cfg.Invoice.NumberPrefix)
	if err != nil {
		return nil, err
	}
	lowStock, err := cron.NewLowStockJob(logg, inventory.NewRepository(dbClient.DB()), m, cfg.Inventory.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(sequence, lowStock), nil
}

func serveMetrics(ctx context.Context, logg *logger.Logger, addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped", err)
	}
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
