package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWaitReady_HealthyStore(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, WaitReady(context.Background(), db, time.Second))
}

func TestWaitReady_TimesOutOnClosedStore(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Close())

	start := time.Now()
	err := WaitReady(context.Background(), db, 600*time.Millisecond)
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 600*time.Millisecond)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, RunMigrations(db))
	require.NoError(t, RunMigrations(db))

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 2, applied)

	// Schema is usable after migration
	_, err := db.Exec("SELECT id FROM forums LIMIT 1")
	assert.NoError(t, err)
}
