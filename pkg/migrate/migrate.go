package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"
)

const (
	// DefaultDir is where `create` writes new migrations, relative to the repo root.
	DefaultDir = "pkg/migrate/migrations"
	// EmbeddedDir is the path of the bundled migrations inside Embedded.
	EmbeddedDir = "migrations"

	dialect = "postgres"
)

// Embedded bundles the SQL migrations into every binary so dev auto-migrate does not depend
// on the working directory.
//
//go:embed migrations/*.sql
var Embedded embed.FS

// Source selects where goose reads migrations from. A nil FS means the OS filesystem.
type Source struct {
	FS  fs.FS
	Dir string
}

// DiskSource reads migrations from dir on disk.
func DiskSource(dir string) Source {
	return Source{Dir: dir}
}

// EmbeddedSource reads the bundled migrations.
func EmbeddedSource() Source {
	return Source{FS: Embedded, Dir: EmbeddedDir}
}

func (s Source) apply() error {
	if s.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	goose.SetBaseFS(s.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Run executes a standard goose command that requires a DB connection.
func Run(ctx context.Context, db *sql.DB, src Source, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if err := src.apply(); err != nil {
		return err
	}

	// RunContext prints status output to stdout (goose internal)
	if err := goose.RunContext(ctx, command, db, src.Dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion migrates up/down to the requested version by comparing current DB version.
func MigrateToVersion(ctx context.Context, db *sql.DB, src Source, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	if err := src.apply(); err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, src.Dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return nil
	default:
		if err := goose.DownToContext(ctx, db, src.Dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return nil
	}
}
