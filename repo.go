package storehouse

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LedgerRepo persists the most recent commit for every path.
// Implementations must be safe for concurrent use.
type LedgerRepo interface {
	// Record inserts or updates the entry for rec.Path. The returned bool is
	// true when a new entry was created.
	Record(ctx context.Context, rec LedgerRecord) (LedgerEntry, bool, error)

	// Get returns the entry for path, or ErrNotFound.
	Get(ctx context.Context, path string) (LedgerEntry, error)

	// List returns entries ordered by (created_at, path) starting after
	// q.Cursor.
	List(ctx context.Context, q ListQuery) (ListResult, error)
}

// FileLister enumerates files already under the storage root.
type FileLister interface {
	List(ctx context.Context) ([]LedgerRecord, error)
}

// Populate records every file the lister reports. It is used to seed the
// ledger for a tree that predates it. It stops at the first error, so a
// failed run may have recorded some files but not others.
func Populate(ctx context.Context, repo LedgerRepo, lister FileLister) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("populate: %w", err)
	}

	files, err := lister.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("populate: %w", err)
	}

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return i, fmt.Errorf("populate: %w", err)
		}
		if _, _, err := repo.Record(ctx, file); err != nil {
			return i, fmt.Errorf("populate '%s': %w", file.Path, err)
		}
	}

	return len(files), nil
}

// Cursor is the decoded position of a list page.
type Cursor struct {
	CreatedAt time.Time
	Path      string
}

// EncodeCursor encodes cursor data to a base64 string for pagination.
func EncodeCursor(createdAt time.Time, path string) string {
	data := createdAt.UTC().Format(time.RFC3339Nano) + "|" + path
	return base64.URLEncoding.EncodeToString([]byte(data))
}

// DecodeCursor decodes a pagination cursor. An empty string is the first
// page.
func DecodeCursor(cursor string) (Cursor, error) {
	if cursor == "" {
		return Cursor{}, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: invalid encoding: %w", err)
	}

	stamp, path, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return Cursor{}, errors.New("decode cursor: invalid format")
	}
	if path == "" {
		return Cursor{}, errors.New("decode cursor: empty path")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: invalid timestamp: %w", err)
	}

	return Cursor{CreatedAt: createdAt, Path: path}, nil
}

// EscapeLikePattern escapes %, _ and \ for use in a LIKE ... ESCAPE '\' clause.
func EscapeLikePattern(pattern string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(pattern)
}

// NormalizeLimit clamps a page size into [1, max], using def when n <= 0.
func NormalizeLimit(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
