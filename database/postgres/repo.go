// Package postgres implements the ledger repo using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/storehouse"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

const selectColumns = `id, path, location, source, url, content_type, encoding, size_bytes, created_at, updated_at`

type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewRepo(pool *pgxpool.Pool, tables storehouse.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tableName: pgx.Identifier{tables.Ledger}.Sanitize()}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanEntry(row pgx.Row, extra ...any) (storehouse.LedgerEntry, error) {
	var e storehouse.LedgerEntry
	var source string

	dest := []any{&e.ID, &e.Path, &e.Location, &source, &e.URL, &e.ContentType, &e.Encoding, &e.SizeBytes, &e.CreatedAt, &e.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return storehouse.LedgerEntry{}, err
	}

	e.Source = storehouse.Source(source)
	return e, nil
}

func (r *Repo) Get(ctx context.Context, path string) (storehouse.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE path = $1`, selectColumns, r.tableName)

	e, err := scanEntry(r.pool.QueryRow(ctx, query, path))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storehouse.LedgerEntry{}, storehouse.ErrNotFound
		}
		return storehouse.LedgerEntry{}, fmt.Errorf("get: %w", err)
	}

	return e, nil
}

func (r *Repo) Record(ctx context.Context, rec storehouse.LedgerRecord) (storehouse.LedgerEntry, bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (path, location, source, url, content_type, encoding, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (path) DO UPDATE
		SET location = EXCLUDED.location,
			source = EXCLUDED.source,
			url = EXCLUDED.url,
			content_type = EXCLUDED.content_type,
			encoding = EXCLUDED.encoding,
			size_bytes = EXCLUDED.size_bytes,
			updated_at = NOW()
		RETURNING %s, (xmax = 0) AS inserted
	`, r.tableName, selectColumns)

	var inserted bool
	row := r.pool.QueryRow(ctx, query,
		rec.Path, rec.Location, string(rec.Source), rec.URL, rec.ContentType, rec.Encoding, rec.SizeBytes,
	)

	e, err := scanEntry(row, &inserted)
	if err != nil {
		return storehouse.LedgerEntry{}, false, fmt.Errorf("record: %w", err)
	}

	return e, inserted, nil
}

func (r *Repo) List(ctx context.Context, q storehouse.ListQuery) (storehouse.ListResult, error) {
	cursor, err := storehouse.DecodeCursor(q.Cursor)
	if err != nil {
		return storehouse.ListResult{}, fmt.Errorf("list: %w", err)
	}

	limit := storehouse.NormalizeLimit(q.Limit, defaultListLimit, maxListLimit)
	escapedPrefix := storehouse.EscapeLikePattern(q.PathPrefix)

	var query string
	var args []any

	if q.Cursor == "" {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE path LIKE $1 || '%%'
			ORDER BY created_at, path
			LIMIT $2
		`, selectColumns, r.tableName)
		args = []any{escapedPrefix, limit + 1}
	} else {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE path LIKE $1 || '%%' AND (created_at, path) > ($2, $3)
			ORDER BY created_at, path
			LIMIT $4
		`, selectColumns, r.tableName)
		args = []any{escapedPrefix, cursor.CreatedAt, cursor.Path, limit + 1}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return storehouse.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	items := make([]storehouse.LedgerEntry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return storehouse.ListResult{}, fmt.Errorf("list: scan: %w", err)
		}
		items = append(items, e)
	}

	if err := rows.Err(); err != nil {
		return storehouse.ListResult{}, fmt.Errorf("list: rows: %w", err)
	}

	var nextCursor string
	if len(items) > limit {
		last := items[limit-1]
		nextCursor = storehouse.EncodeCursor(last.CreatedAt, last.Path)
		items = items[:limit]
	}

	return storehouse.ListResult{Items: items, NextCursor: nextCursor}, nil
}
