// Command migrate manages the goose schema for the garage database.
//
//	migrate [-dir path | -embedded] <up|down|redo|reset|status|version|create|validate> [arg]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/garage-backend/pkg/config"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/angelmondragon/garage-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

const usage = `usage: migrate [flags] <command> [arg]

commands:
  up | down | redo | reset | status   run the goose command
  version <YYYYMMDDHHMMSS>            migrate up or down to an exact version
  create <name>                       write a new timestamped SQL migration into -dir
  validate                            lint the migrations in -dir without a database

flags:
`

var errUsage = errors.New("usage")

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dir := fs.String("dir", migrate.DefaultDir, "migrations directory")
	embedded := fs.Bool("embedded", false, "use the migrations compiled into the binary instead of -dir")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	command, arg := "up", ""
	if fs.NArg() > 0 {
		command = fs.Arg(0)
	}
	if fs.NArg() > 1 {
		arg = fs.Arg(1)
	}

	err := run(command, arg, *dir, *embedded)
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", command, err)
		os.Exit(1)
	}
}

func run(command, arg, dir string, embedded bool) error {
	// create and validate only touch the filesystem.
	switch command {
	case "create":
		if arg == "" {
			return fmt.Errorf("%w: create needs a migration name", errUsage)
		}
		path, err := migrate.CreateSQLMigration(dir, arg)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(dir); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	case "up", "down", "redo", "reset", "status":
	case "version":
		if arg == "" {
			return fmt.Errorf("%w: version needs a target", errUsage)
		}
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	src := migrate.DiskSource(dir)
	if embedded {
		src = migrate.EmbeddedSource()
		dir = migrate.EmbeddedDir
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"command": command,
		"dir":     dir,
	})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()
	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}

	logg.Info(ctx, "migrate.start")
	if command == "version" {
		err = migrate.MigrateToVersion(ctx, sqlDB, src, arg)
	} else {
		err = migrate.Run(ctx, sqlDB, src, command)
	}
	if err != nil {
		logg.Error(ctx, "migrate.failed", err)
		return err
	}
	logg.Info(ctx, "migrate.done")
	return nil
}
