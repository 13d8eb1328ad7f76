// Package dbtest opens throwaway SQLite databases carrying the application schema.
package dbtest

import (
	"testing"

	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// schema mirrors pkg/migrate/migrations using SQLite types.
var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'staff',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE user_profiles (
  user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  bio TEXT NOT NULL DEFAULT '',
  image_url TEXT,
  verified INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE owners (
  id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE vehicles (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
  brand TEXT NOT NULL,
  model TEXT NOT NULL,
  license_plate TEXT NOT NULL UNIQUE,
  year INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE task_templates (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL CHECK (price >= 0),
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE inventory_items (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  reference_code TEXT NOT NULL UNIQUE,
  category TEXT NOT NULL DEFAULT '',
  quantity_in_stock NUMERIC NOT NULL DEFAULT 0 CHECK (quantity_in_stock >= 0),
  unit_price NUMERIC NOT NULL CHECK (unit_price >= 0),
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE reports (
  id TEXT PRIMARY KEY,
  vehicle_id TEXT NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
  user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  remarks TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE report_tasks (
  id TEXT PRIMARY KEY,
  report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
  task_template_id TEXT NOT NULL REFERENCES task_templates(id) ON DELETE RESTRICT,
  created_at DATETIME
)`,
	`CREATE TABLE part_usages (
  id TEXT PRIMARY KEY,
  report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
  inventory_item_id TEXT NOT NULL REFERENCES inventory_items(id) ON DELETE RESTRICT,
  quantity_used NUMERIC NOT NULL CHECK (quantity_used > 0),
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE invoices (
  id TEXT PRIMARY KEY,
  invoice_number TEXT NOT NULL UNIQUE,
  report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
  issued_at DATETIME NOT NULL
)`,
}

// Open returns a private in-memory database with the schema applied. The pool is capped at a
// single connection, so concurrent transactions queue behind each other.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:garage_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Client wraps Open in a db.Client.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.Wrap(Open(t))
}
