package sqlite_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/sagarc03/storehouse"
	"github.com/sagarc03/storehouse/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	tables := storehouse.Tables{Ledger: "ledger"}

	require.NoError(t, sqlite.Migrate(ctx, db, tables))
	require.NoError(t, sqlite.Migrate(ctx, db, tables))
	assert.NoError(t, sqlite.ValidateSchema(ctx, db, tables))
}

func TestMigrate_InvalidTableName(t *testing.T) {
	err := sqlite.Migrate(context.Background(), openTestDB(t), storehouse.Tables{Ledger: "Robert'); DROP"})
	assert.Error(t, err)
}

func TestValidateSchema_MissingTable(t *testing.T) {
	err := sqlite.ValidateSchema(context.Background(), openTestDB(t), storehouse.Tables{Ledger: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestValidateSchema_WrongColumns(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.ExecContext(ctx, `CREATE TABLE ledger (id TEXT NOT NULL, path TEXT)`)
	require.NoError(t, err)

	err = sqlite.ValidateSchema(ctx, db, storehouse.Tables{Ledger: "ledger"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column location is missing")
	assert.Contains(t, err.Error(), "column path must be NOT NULL")
	assert.NotContains(t, err.Error(), "column id")
}

func TestValidateSchema_WrongType(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	tables := storehouse.Tables{Ledger: "ledger"}
	require.NoError(t, sqlite.Migrate(ctx, db, tables))
	_, err := db.ExecContext(ctx, `ALTER TABLE ledger RENAME COLUMN size_bytes TO old_size`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `ALTER TABLE ledger ADD COLUMN size_bytes TEXT NOT NULL DEFAULT ''`)
	require.NoError(t, err)

	err = sqlite.ValidateSchema(ctx, db, tables)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column size_bytes is TEXT, want INTEGER")
}

func TestValidateSchema_InvalidTableName(t *testing.T) {
	err := sqlite.ValidateSchema(context.Background(), openTestDB(t), storehouse.Tables{Ledger: "Bad-Name"})
	assert.Error(t, err)
}

func TestDropTables(t *testing.T) {
	ctx := context.Background()
	_, db, tables := setupTestRepo(t)

	require.NoError(t, sqlite.DropTables(ctx, db, tables))
	assert.Error(t, sqlite.ValidateSchema(ctx, db, tables))
}

func TestRepo_RecordAndGet(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := setupTestRepo(t)

	rec := storehouse.LedgerRecord{
		Path:        "docs/a.txt",
		Location:    "/srv/docs/a.txt",
		Source:      storehouse.SourceUpload,
		ContentType: "text/plain",
		Encoding:    "7bit",
		SizeBytes:   12,
	}

	created, inserted, err := repo.Record(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "docs/a.txt", created.Path)
	assert.Equal(t, storehouse.SourceUpload, created.Source)
	assert.Equal(t, int64(12), created.SizeBytes)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.Get(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestRepo_RecordUpdatesExisting(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := setupTestRepo(t)

	first, inserted, err := repo.Record(ctx, storehouse.LedgerRecord{
		Path: "a.bin", Location: "/srv/a.bin", Source: storehouse.SourceUpload, ContentType: "application/octet-stream", SizeBytes: 1,
	})
	require.NoError(t, err)
	require.True(t, inserted)

	second, inserted, err := repo.Record(ctx, storehouse.LedgerRecord{
		Path: "a.bin", Location: "/srv/a.bin", Source: storehouse.SourceFetch, URL: "http://example.com/a", ContentType: "image/png", SizeBytes: 99,
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
	assert.Equal(t, storehouse.SourceFetch, second.Source)
	assert.Equal(t, "http://example.com/a", second.URL)
	assert.Equal(t, int64(99), second.SizeBytes)
}

func TestRepo_GetNotFound(t *testing.T) {
	repo, _, _ := setupTestRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storehouse.ErrNotFound)
}

func TestRepo_ListPagination(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := setupTestRepo(t)

	for i := range 5 {
		_, _, err := repo.Record(ctx, storehouse.LedgerRecord{
			Path: fmt.Sprintf("dir/%d.txt", i), Location: "/x", Source: storehouse.SourceScan, ContentType: "text/plain",
		})
		require.NoError(t, err)
	}
	_, _, err := repo.Record(ctx, storehouse.LedgerRecord{Path: "other.txt", Location: "/x", Source: storehouse.SourceScan, ContentType: "text/plain"})
	require.NoError(t, err)

	var seen []string
	cursor := ""
	for pages := 0; pages < 10; pages++ {
		res, err := repo.List(ctx, storehouse.ListQuery{PathPrefix: "dir/", Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, e := range res.Items {
			seen = append(seen, e.Path)
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	assert.ElementsMatch(t, []string{"dir/0.txt", "dir/1.txt", "dir/2.txt", "dir/3.txt", "dir/4.txt"}, seen)
}

func TestRepo_ListEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := setupTestRepo(t)

	for _, p := range []string{"a_b/1", "axb/2", "a%b/3"} {
		_, _, err := repo.Record(ctx, storehouse.LedgerRecord{Path: p, Location: "/x", Source: storehouse.SourceScan, ContentType: "text/plain"})
		require.NoError(t, err)
	}

	res, err := repo.List(ctx, storehouse.ListQuery{PathPrefix: "a_b"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "a_b/1", res.Items[0].Path)
}

func TestRepo_ListInvalidCursor(t *testing.T) {
	repo, _, _ := setupTestRepo(t)

	_, err := repo.List(context.Background(), storehouse.ListQuery{Cursor: "%%%"})
	assert.Error(t, err)
}
