// Package sqlite opens SQLite compatible databases: local files through the
// pure Go modernc driver and hosted libSQL databases through the Turso client.
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite = "sqlite"
	DriverLibSQL = "libsql"
)

const (
	defaultMaxOpenConns = 1
	defaultBusyTimeout  = 5 * time.Second
)

type Option func(*sqlx.DB)

// WithMaxOpenConns overrides the single connection default. Local files only
// tolerate one writer, so raising it is meant for libSQL. Zero keeps the default.
func WithMaxOpenConns(n int) Option {
	return func(db *sqlx.DB) {
		if n > 0 {
			db.SetMaxOpenConns(n)
		}
	}
}

func WithConnMaxIdleTime(d time.Duration) Option {
	return func(db *sqlx.DB) {
		if d > 0 {
			db.SetConnMaxIdleTime(d)
		}
	}
}

// DriverName picks the database/sql driver for dsn.
func DriverName(dsn string) string {
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") ||
		strings.HasPrefix(dsn, "https://") || strings.HasPrefix(dsn, "http://") {
		return DriverLibSQL
	}
	return DriverSQLite
}

// LocalDSN builds a modernc DSN for the database file at path with a busy
// timeout and foreign keys enabled.
func LocalDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
		path, defaultBusyTimeout.Milliseconds())
}

func New(ctx context.Context, dsn string, opts ...Option) (*sqlx.DB, error) {
	const op = "sqlite.New"

	driver := DriverName(dsn)

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to %s database: %w", op, driver, err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetConnMaxLifetime(0)

	for _, opt := range opts {
		opt(db)
	}

	return db, nil
}
