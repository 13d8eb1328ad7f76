package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/angelmondragon/garage-backend/pkg/config"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Client owns the GORM handle shared by every repository.
type Client struct {
	conn        *gorm.DB
	lockTimeout time.Duration
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Now is the clock for persisted timestamps. Postgres stores microseconds, so truncating
// keeps updated_at comparisons exact after a round trip.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// GormConfig is shared by the service and the sqlite test harness.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
		NowFunc:                Now,
	}
}

// New opens the Postgres pool and pings it.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	conn, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	}), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	client := &Client{conn: conn, lockTimeout: cfg.LockTimeout}

	sqlDB, err := client.SQL()
	if err != nil {
		return nil, err
	}
	tunePool(sqlDB, cfg)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"max_open_conns": cfg.MaxOpenConns,
			"lock_timeout":   cfg.LockTimeout.String(),
		}), "db.connected")
	}
	return client, nil
}

// Wrap adapts an already opened connection, typically sqlite in tests.
func Wrap(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func tunePool(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

// SQL exposes the pool for goose and the prometheus DB stats collector.
func (c *Client) SQL() (*sql.DB, error) {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	return sqlDB, nil
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.SQL()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.SQL()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (c *Client) Exec(ctx context.Context, query string, args ...any) *gorm.DB {
	return c.conn.WithContext(ctx).Exec(query, args...)
}

func (c *Client) Raw(ctx context.Context, query string, args ...any) *gorm.DB {
	return c.conn.WithContext(ctx).Raw(query, args...)
}

// WithTx runs fn in a transaction that commits only when fn returns nil. On Postgres the
// transaction carries the configured lock_timeout so a contended row lock fails fast
// (sqlstate 55P03, which IsRetryable reports).
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return Classify(tx.Error, "db: begin transaction")
	}
	hooks := &commitHooks{}
	pendingCommits.Store(tx.Statement.ConnPool, hooks)
	committed := false
	defer func() {
		pendingCommits.Delete(tx.Statement.ConnPool)
		if committed {
			return
		}
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
		tx.Rollback()
	}()

	if stmt := lockTimeoutStatement(tx.Dialector.Name(), c.lockTimeout); stmt != "" {
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return Classify(err, "db: commit transaction")
	}
	committed = true
	pendingCommits.Delete(tx.Statement.ConnPool)
	hooks.run()
	return nil
}

// pendingCommits maps an open transaction's connection to the hooks waiting on its commit.
var pendingCommits sync.Map

type commitHooks struct {
	mu  sync.Mutex
	fns []func()
}

func (h *commitHooks) add(fn func()) {
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

func (h *commitHooks) run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// AfterCommit defers fn until the WithTx transaction owning tx commits; a rollback drops it.
// Outside WithTx fn runs immediately.
func AfterCommit(tx *gorm.DB, fn func()) {
	if tx != nil && tx.Statement != nil && tx.Statement.ConnPool != nil {
		if hooks, ok := pendingCommits.Load(tx.Statement.ConnPool); ok {
			hooks.(*commitHooks).add(fn)
			return
		}
	}
	fn()
}

// ForUpdate adds FOR UPDATE on Postgres. SQLite serialises writers on its own.
func ForUpdate(query *gorm.DB) *gorm.DB {
	if query.Dialector.Name() == "postgres" {
		return query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

func lockTimeoutStatement(dialect string, timeout time.Duration) string {
	if dialect != "postgres" || timeout <= 0 {
		return ""
	}
	return fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())
}
