package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sagarc03/storehouse"
	"github.com/sagarc03/storehouse/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) database.Config {
	t.Helper()
	return database.Config{
		Type:   "sqlite",
		DSN:    filepath.Join(t.TempDir(), "ledger.db"),
		Tables: storehouse.Tables{Ledger: "storehouse_ledger"},
	}
}

func TestConnect_SQLite(t *testing.T) {
	ctx := context.Background()

	repo, cleanup, err := database.Connect(ctx, newTestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	_, inserted, err := repo.Record(ctx, storehouse.LedgerRecord{
		Path: "a.txt", Location: "/srv/a.txt", Source: storehouse.SourceUpload, ContentType: "text/plain", SizeBytes: 1,
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := repo.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "/srv/a.txt", got.Location)
}

func TestConnect_ReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)

	repo, cleanup, err := database.Connect(ctx, cfg)
	require.NoError(t, err)
	_, _, err = repo.Record(ctx, storehouse.LedgerRecord{Path: "kept", Location: "/x", Source: storehouse.SourceScan, ContentType: "text/plain"})
	require.NoError(t, err)
	cleanup()

	repo, cleanup, err = database.Connect(ctx, cfg)
	require.NoError(t, err)
	defer cleanup()

	_, err = repo.Get(ctx, "kept")
	assert.NoError(t, err)
}

func TestConnect_InvalidType(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Type = "mysql"

	_, _, err := database.Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestConnect_InvalidTables(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Tables.Ledger = "Bad Name"

	_, _, err := database.Connect(context.Background(), cfg)
	assert.Error(t, err)
}
