// Package db opens the token database, manages its schema, and stores per-account Twitch credentials.
//
// DB_DSN selects the backend: postgres:// or postgresql:// DSNs use pgx, sqlite:// DSNs (the default,
// sqlite://tokens.db) use the pure-Go modernc driver.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers "sqlite"
)

// ErrUnsupportedDSN is returned by Connect for DSNs without a known scheme.
var ErrUnsupportedDSN = errors.New("unsupported DB_DSN scheme (want postgres:// or sqlite://)")

const (
	driverPostgres = "pgx"
	driverSQLite   = "sqlite"
)

// sqlitePragmas keeps writers from failing fast when the CLI and the bot share a file.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Connect opens a pooled connection for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	driver, source, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	dbx, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == driverSQLite {
		// a single writer avoids SQLITE_BUSY between pooled connections
		dbx.SetMaxOpenConns(1)
	}
	if err := dbx.PingContext(ctx); err != nil {
		_ = dbx.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return dbx, nil
}

func parseDSN(dsn string) (driver, source string, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return driverPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("%w: sqlite DSN without a path", ErrUnsupportedDSN)
		}
		if path == ":memory:" {
			return driverSQLite, path, nil
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return driverSQLite, "file:" + path + sep + sqlitePragmas, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDSN, redactDSN(dsn))
	}
}

// redactDSN drops everything after the scheme so credentials never reach logs.
func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "..."
	}
	if len(dsn) > 8 {
		return dsn[:8] + "..."
	}
	return dsn
}

// EnsureSchema creates the tokens table when missing. It is idempotent and works on both backends.
func EnsureSchema(ctx context.Context, dbx *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tokens (
			account_id TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL
		)`,
	}
	for i, s := range stmts {
		if _, err := dbx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("%s schema step %d failed: %w", dbx.DriverName(), i, err)
		}
	}
	return nil
}
