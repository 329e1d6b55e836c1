package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/onnwee/ingame-bot/db"
)

// NewSQLiteDB opens a migrated SQLite database in a temp dir, closed on cleanup.
func NewSQLiteDB(t *testing.T) (*sqlx.DB, string) {
	t.Helper()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "tokens.db")
	return open(t, dsn), dsn
}

// SetupTestPG connects to TEST_PG_DSN and runs migrations. It skips the test when unset.
func SetupTestPG(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	dbx := open(t, dsn)
	if _, err := dbx.Exec(`DELETE FROM tokens`); err != nil {
		t.Fatalf("reset tokens: %v", err)
	}
	return dbx
}

func open(t *testing.T, dsn string) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	dbx, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect %s: %v", dsn, err)
	}
	t.Cleanup(func() { _ = dbx.Close() })
	if err := db.Prepare(ctx, dbx); err != nil {
		t.Fatalf("prepare schema: %v", err)
	}
	return dbx
}
