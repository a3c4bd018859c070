package storehouse_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sagarc03/storehouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type SpyLedgerRepo struct {
	mock.Mock
}

func (s *SpyLedgerRepo) Record(ctx context.Context, rec storehouse.LedgerRecord) (storehouse.LedgerEntry, bool, error) {
	args := s.Called(ctx, rec)
	return args.Get(0).(storehouse.LedgerEntry), args.Bool(1), args.Error(2)
}

func (s *SpyLedgerRepo) Get(ctx context.Context, path string) (storehouse.LedgerEntry, error) {
	args := s.Called(ctx, path)
	return args.Get(0).(storehouse.LedgerEntry), args.Error(1)
}

func (s *SpyLedgerRepo) List(ctx context.Context, q storehouse.ListQuery) (storehouse.ListResult, error) {
	args := s.Called(ctx, q)
	return args.Get(0).(storehouse.ListResult), args.Error(1)
}

type SpyFileLister struct {
	mock.Mock
}

func (s *SpyFileLister) List(ctx context.Context) ([]storehouse.LedgerRecord, error) {
	args := s.Called(ctx)
	return args.Get(0).([]storehouse.LedgerRecord), args.Error(1)
}

func TestPopulate(t *testing.T) {
	ctx := context.Background()
	files := []storehouse.LedgerRecord{
		{Path: "a.txt", Source: storehouse.SourceScan, SizeBytes: 1},
		{Path: "b/c.png", Source: storehouse.SourceScan, SizeBytes: 2},
	}

	lister := new(SpyFileLister)
	lister.On("List", ctx).Return(files, nil)

	repo := new(SpyLedgerRepo)
	for _, f := range files {
		repo.On("Record", ctx, f).Return(storehouse.LedgerEntry{Path: f.Path}, true, nil).Once()
	}

	n, err := storehouse.Populate(ctx, repo, lister)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	repo.AssertExpectations(t)
}

func TestPopulate_StopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	files := []storehouse.LedgerRecord{{Path: "a"}, {Path: "b"}, {Path: "c"}}
	dbErr := errors.New("db down")

	lister := new(SpyFileLister)
	lister.On("List", ctx).Return(files, nil)

	repo := new(SpyLedgerRepo)
	repo.On("Record", ctx, files[0]).Return(storehouse.LedgerEntry{}, true, nil)
	repo.On("Record", ctx, files[1]).Return(storehouse.LedgerEntry{}, false, dbErr)

	n, err := storehouse.Populate(ctx, repo, lister)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "'b'")
	assert.Equal(t, 1, n)
	repo.AssertNotCalled(t, "Record", ctx, files[2])
}

func TestPopulate_ListError(t *testing.T) {
	ctx := context.Background()
	listErr := errors.New("permission denied")

	lister := new(SpyFileLister)
	lister.On("List", ctx).Return([]storehouse.LedgerRecord(nil), listErr)

	_, err := storehouse.Populate(ctx, new(SpyLedgerRepo), lister)
	assert.ErrorIs(t, err, listErr)
}

func TestPopulate_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storehouse.Populate(ctx, new(SpyLedgerRepo), new(SpyFileLister))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCursor_RoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 89, time.UTC)

	c, err := storehouse.DecodeCursor(storehouse.EncodeCursor(at, "dir/with|pipe.txt"))
	require.NoError(t, err)
	assert.True(t, at.Equal(c.CreatedAt))
	assert.Equal(t, "dir/with|pipe.txt", c.Path)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{name: "not base64", cursor: "%%%"},
		{name: "no separator", cursor: "bm9zZXA="},
		{name: "empty path", cursor: "MjAyNi0wMS0wMVQwMDowMDowMFp8"},
		{name: "bad timestamp", cursor: "bm90LWEtdGltZXxwYXRo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := storehouse.DecodeCursor(tt.cursor)
			assert.Error(t, err)
		})
	}
}

func TestDecodeCursor_Empty(t *testing.T) {
	c, err := storehouse.DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, storehouse.Cursor{}, c)
}

func TestEscapeLikePattern(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, storehouse.EscapeLikePattern(`a%b_c\d`))
	assert.Equal(t, "plain/path", storehouse.EscapeLikePattern("plain/path"))
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 100, storehouse.NormalizeLimit(0, 100, 1000))
	assert.Equal(t, 1000, storehouse.NormalizeLimit(5000, 100, 1000))
	assert.Equal(t, 7, storehouse.NormalizeLimit(7, 100, 1000))
}

func TestTables_Validate(t *testing.T) {
	assert.NoError(t, storehouse.Tables{Ledger: "storehouse_ledger"}.Validate())
	assert.Error(t, storehouse.Tables{}.Validate())
	assert.Error(t, storehouse.Tables{Ledger: "Bad-Name"}.Validate())
}
