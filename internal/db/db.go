package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/revendaauto/backoffice/internal/utils"
)

// Memory opens a private in-memory database.
const Memory = ":memory:"

const defaultBusyTimeout = 5 * time.Second

type driverInfo struct {
	name string // database/sql driver name
	impl string
}

type options struct {
	busyTimeout time.Duration
	migrate     bool
}

type Option func(*options)

// WithBusyTimeout sets how long a statement waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		o.busyTimeout = d
	}
}

// WithoutMigrations leaves the schema untouched.
func WithoutMigrations() Option {
	return func(o *options) {
		o.migrate = false
	}
}

// Open connects to the SQLite database at path and migrates it.
//
// The pool holds a single connection: pragmas are per connection, and
// signing token consumption relies on writes being serialized.
func Open(ctx context.Context, path string, opts ...Option) (*sqlx.DB, error) {
	o := &options{busyTimeout: defaultBusyTimeout, migrate: true}
	for _, opt := range opts {
		opt(o)
	}

	dsn := Memory
	if path != Memory {
		if err := utils.EnsureParent(path); err != nil {
			return nil, fmt.Errorf("db dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_txlock=immediate&mode=rwc", path)
	}

	slog.Info("db open", "driver", driver.impl, "path", path)
	db, err := sqlx.ConnectContext(ctx, driver.name, dsn)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db, o.busyTimeout, path == Memory); err != nil {
		db.Close()
		return nil, err
	}

	if o.migrate {
		if err := Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

func applyPragmas(ctx context.Context, db *sqlx.DB, busy time.Duration, memory bool) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", busy.Milliseconds()),
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	if !memory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("db %q: %w", p, err)
		}
	}
	return nil
}

// Check reports whether the database answers a trivial query.
func Check(ctx context.Context, db *sqlx.DB) error {
	var one int
	if err := db.GetContext(ctx, &one, "SELECT 1"); err != nil {
		return fmt.Errorf("db check: %w", err)
	}
	return nil
}
