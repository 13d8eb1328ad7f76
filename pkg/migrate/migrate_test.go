package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func TestValidateDirAcceptsBundledMigrations(t *testing.T) {
	if err := ValidateDir(EmbeddedDir); err != nil {
		t.Fatalf("bundled migrations invalid: %v", err)
	}
	if err := ValidateFS(Embedded, EmbeddedDir); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"bad_name.sql":                    "-- +goose Up\n-- +goose Down\n",
		"20250101000000_missing_down.sql": "-- +goose Up\nSELECT 1;\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got := len(multierr.Errors(ValidateDir(dir))); got != 2 {
		t.Fatalf("expected both files reported, got %d", got)
	}
}

func TestEmbeddedMatchesDisk(t *testing.T) {
	embedded, err := fs.Glob(Embedded, EmbeddedDir+"/*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	disk, err := filepath.Glob(filepath.Join(EmbeddedDir, "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) == 0 || len(embedded) != len(disk) {
		t.Fatalf("expected embedded (%d) and disk (%d) migrations to match", len(embedded), len(disk))
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	cases := map[string]string{
		"bad_name.sql":                    "-- +goose Up\n-- +goose Down\n",
		"20250101000000_missing_down.sql": "-- +goose Up\nSELECT 1;\n",
		"20250101000000_unbalanced.sql":   "-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := ValidateDir(dir); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}

	if err := ValidateDir(t.TempDir()); err == nil {
		t.Fatal("expected empty dir to be rejected")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Invoice Notes!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_invoice_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected unusable name to fail")
	}
}

func TestCreateSQLMigrationOrdersAfterLatest(t *testing.T) {
	dir := t.TempDir()
	future := "29990101000000_far_future.sql"
	body := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	if err := os.WriteFile(filepath.Join(dir, future), []byte(body), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	first, err := CreateSQLMigration(dir, "one")
	if err != nil {
		t.Fatalf("create one: %v", err)
	}
	second, err := CreateSQLMigration(dir, "two")
	if err != nil {
		t.Fatalf("create two: %v", err)
	}
	if filepath.Base(first) != "29990101000001_one.sql" {
		t.Fatalf("unexpected first file %s", first)
	}
	if filepath.Base(second) != "29990101000002_two.sql" {
		t.Fatalf("unexpected second file %s", second)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("dir should validate: %v", err)
	}
}
