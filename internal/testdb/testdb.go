// Package testdb provides utilities for tests that need a real PostgreSQL
// database. Tests are skipped when no database URL is configured, so the
// default test run stays hermetic.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/cards-api/internal/redact"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds connection and setup steps.
const TestTimeout = 30 * time.Second

// URLEnvVars are checked in order for a test database URL.
var URLEnvVars = []string{"DATABASE_URL", "CARDS_TEST_DATABASE_URL", "CARDS_DATABASE_URL"}

// URL returns the first non-empty database URL from URLEnvVars.
func URL() string {
	for _, name := range URLEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ShouldSkip reports whether database integration tests cannot run.
func ShouldSkip() bool {
	return URL() == ""
}

// Open connects to the test database, skipping t when none is configured.
// The connection is closed when the test finishes. setup, if non-nil, runs
// once the connection is verified; pass the migration runner here.
func Open(t *testing.T, setup func(ctx context.Context, db *sql.DB) error) *sql.DB {
	t.Helper()
	if ShouldSkip() {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("pgx", URL())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("Database connection failed: %s", redact.Error(err))
	}
	if setup != nil {
		require.NoError(t, setup(ctx, db))
	}
	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// can write freely without affecting each other.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			// ALLOW-PANIC
			panic(r)
		}
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}
