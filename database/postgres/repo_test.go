package postgres_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/sagarc03/storehouse"
	"github.com/sagarc03/storehouse/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_ValidatesSchema(t *testing.T) {
	ctx := context.Background()
	_, pool, tables := setupTestRepo(t)

	require.NoError(t, postgres.Migrate(ctx, pool, tables), "second migrate")
	assert.NoError(t, postgres.ValidateSchema(ctx, pool, tables))
}

func TestValidateSchema_MissingTable(t *testing.T) {
	pool := getSharedTestDatabase(t)

	err := postgres.ValidateSchema(context.Background(), pool, storehouse.Tables{Ledger: "missing_" + getRandomString(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestValidateSchema_WrongColumns(t *testing.T) {
	ctx := context.Background()
	pool := getSharedTestDatabase(t)
	table := "partial_" + getRandomString(t)

	_, err := pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE %s (id UUID PRIMARY KEY, path TEXT)`, table))
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)) })

	err = postgres.ValidateSchema(ctx, pool, storehouse.Tables{Ledger: table})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column location is missing")
	assert.Contains(t, err.Error(), "column path must be NOT NULL")
}

func TestRepo_Record(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := setupTestRepo(t)

	first, inserted, err := repo.Record(ctx, storehouse.LedgerRecord{
		Path: "docs/a.txt", Location: "/srv/docs/a.txt", Source: storehouse.SourceUpload, ContentType: "text/plain", Encoding: "7bit", SizeBytes: 5,
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, storehouse.SourceUpload, first.Source)

	second, inserted, err := repo.Record(ctx, storehouse.LedgerRecord{
		Path: "docs/a.txt", Location: "/srv/docs/a.txt", Source: storehouse.SourceFetch, URL: "http://example.com/a", ContentType: "image/png", SizeBytes: 7,
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.Equal(t, int64(7), second.SizeBytes)

	got, err := repo.Get(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/a", got.URL)
	assert.Equal(t, storehouse.SourceFetch, got.Source)
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
