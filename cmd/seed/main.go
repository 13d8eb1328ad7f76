package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/garage-backend/internal/auth"
	"github.com/angelmondragon/garage-backend/pkg/config"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	all := flag.Bool("all", false, "seed inventory and task templates")
	inventory := flag.Bool("inventory", false, "seed inventory items")
	tasks := flag.Bool("tasks", false, "seed task templates")
	adminUsername := flag.String("admin-username", "", "also open an admin account with this username")
	adminEmail := flag.String("admin-email", "", "admin account email")
	adminPassword := flag.String("admin-password", "", "admin account password")
	flag.Parse()

	if *all {
		*inventory, *tasks = true, true
	}
	if !*inventory && !*tasks && *adminUsername == "" {
		fmt.Fprintln(os.Stderr, "nothing to seed: pass -all, -inventory, -tasks or -admin-username")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	summary, runErr := newSeeder(dbClient.DB(), logg).Run(ctx, *inventory, *tasks)

	if *adminUsername != "" {
		runErr = multierr.Append(runErr, seedAdmin(ctx, dbClient, cfg.Password, auth.RegisterRequest{
			Username: *adminUsername,
			Email:    *adminEmail,
			Password: *adminPassword,
		}))
	}

	runErr = multierr.Append(runErr, dbClient.Close())

	fmt.Printf("inventory: %d added, %d skipped\n", summary.ItemsCreated, summary.ItemsSkipped)
	fmt.Printf("task templates: %d added, %d skipped\n", summary.TemplatesCreated, summary.TemplatesSkipped)

	if runErr != nil {
		for _, err := range multierr.Errors(runErr) {
			logg.Error(ctx, "seed step failed", err)
		}
		os.Exit(1)
	}
}

func seedAdmin(ctx context.Context, dbClient *db.Client, pwCfg config.PasswordConfig, req auth.RegisterRequest) error {
	svc, err := auth.NewRegisterService(auth.RegisterServiceParams{DB: dbClient, PasswordConfig: pwCfg})
	if err != nil {
		return err
	}
	if _, err := svc.RegisterAdmin(ctx, req); err != nil {
		return fmt.Errorf("admin %s: %w", req.Username, err)
	}
	return nil
}
