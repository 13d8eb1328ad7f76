package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/garage-backend/pkg/config"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot, but only in dev with
// GARAGE_AUTO_MIGRATE enabled. Other environments run cmd/migrate explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if err := ValidateFS(Embedded, EmbeddedDir); err != nil {
		return fmt.Errorf("embedded migrations: %w", err)
	}
	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": EmbeddedDir})
	logg.Info(ctx, "migrate.autorun.start")
	if err := Run(ctx, sqlDB, EmbeddedSource(), "up"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	logg.Info(ctx, "migrate.autorun.done")
	return nil
}
