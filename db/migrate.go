package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded versioned migrations (000001_description.up.sql / .down.sql).
// It is idempotent; an up-to-date schema is not an error.
//
// The migrate instance is never closed: closing it would close dbx as well.
func RunMigrations(dbx *sqlx.DB) error {
	m, err := newMigrate(dbx)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("database schema is up to date", slog.String("component", "db_migrate"))
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		slog.Warn("could not determine migration version", slog.Any("err", err), slog.String("component", "db_migrate"))
		return nil
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d - manual intervention required", version)
	}
	slog.Info("migrations applied successfully",
		slog.Uint64("version", uint64(version)),
		slog.String("component", "db_migrate"))
	return nil
}

// MigrationVersion returns the applied migration version (0 when none) and the dirty flag.
func MigrationVersion(dbx *sqlx.DB) (version uint, dirty bool, err error) {
	m, err := newMigrate(dbx)
	if err != nil {
		return 0, false, err
	}
	v, d, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return v, d, nil
}

// Prepare runs migrations and falls back to EnsureSchema when they cannot run,
// so a bot pointed at a pre-existing tokens table still starts.
func Prepare(ctx context.Context, dbx *sqlx.DB) error {
	if err := RunMigrations(dbx); err != nil {
		slog.Warn("versioned migrations failed, falling back to schema bootstrap",
			slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := EnsureSchema(ctx, dbx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func newMigrate(dbx *sqlx.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	var (
		driver database.Driver
		name   string
	)
	switch dbx.DriverName() {
	case driverPostgres:
		driver, err = pgxmigrate.WithInstance(dbx.DB, &pgxmigrate.Config{})
		name = "pgx5"
	case driverSQLite:
		driver, err = sqlitemigrate.WithInstance(dbx.DB, &sqlitemigrate.Config{})
		name = "sqlite"
	default:
		return nil, fmt.Errorf("%w: driver %s", ErrUnsupportedDSN, dbx.DriverName())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migration driver: %w", name, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, name, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
