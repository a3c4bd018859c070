// Package sqlite implements the ledger repo using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/storehouse"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Repo struct {
	db        *sql.DB
	tableName string
}

func NewRepo(db *sql.DB, tables storehouse.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{db: db, tableName: tables.Ledger}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

const selectColumns = `id, path, location, source, url, content_type, encoding, size_bytes, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (storehouse.LedgerEntry, error) {
	var e storehouse.LedgerEntry
	var idStr, source, createdAt, updatedAt string

	err := row.Scan(&idStr, &e.Path, &e.Location, &source, &e.URL, &e.ContentType, &e.Encoding, &e.SizeBytes, &createdAt, &updatedAt)
	if err != nil {
		return storehouse.LedgerEntry{}, err
	}

	e.Source = storehouse.Source(source)

	e.ID, err = uuid.Parse(idStr)
	if err != nil {
		return storehouse.LedgerEntry{}, fmt.Errorf("parse uuid: %w", err)
	}

	e.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return storehouse.LedgerEntry{}, fmt.Errorf("parse created_at: %w", err)
	}

	e.UpdatedAt, err = time.Parse(timeLayout, updatedAt)
	if err != nil {
		return storehouse.LedgerEntry{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return e, nil
}

func (r *Repo) Get(ctx context.Context, path string) (storehouse.LedgerEntry, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE path = ?`, selectColumns, quoteIdentifier(r.tableName))

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, path))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storehouse.LedgerEntry{}, storehouse.ErrNotFound
		}
		return storehouse.LedgerEntry{}, fmt.Errorf("get: %w", err)
	}

	return e, nil
}

// Record upserts the entry for rec.Path. A fresh id is offered on every call;
// when the returned id differs the row already existed and kept its id and
// created_at.
func (r *Repo) Record(ctx context.Context, rec storehouse.LedgerRecord) (storehouse.LedgerEntry, bool, error) {
	newID := uuid.New()
	now := formatTime(time.Now())

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, path, location, source, url, content_type, encoding, size_bytes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE
		SET location = excluded.location,
			source = excluded.source,
			url = excluded.url,
			content_type = excluded.content_type,
			encoding = excluded.encoding,
			size_bytes = excluded.size_bytes,
			updated_at = excluded.updated_at
		RETURNING %s`, quoteIdentifier(r.tableName), selectColumns)

	row := r.db.QueryRowContext(ctx, query,
		newID.String(), rec.Path, rec.Location, string(rec.Source), rec.URL, rec.ContentType, rec.Encoding, rec.SizeBytes, now, now,
	)

	e, err := scanEntry(row)
	if err != nil {
		return storehouse.LedgerEntry{}, false, fmt.Errorf("record: %w", err)
	}

	return e, e.ID == newID, nil
}

func (r *Repo) List(ctx context.Context, q storehouse.ListQuery) (storehouse.ListResult, error) {
	cursor, err := storehouse.DecodeCursor(q.Cursor)
	if err != nil {
		return storehouse.ListResult{}, fmt.Errorf("list: %w", err)
	}

	limit := storehouse.NormalizeLimit(q.Limit, defaultListLimit, maxListLimit)
	escapedPrefix := storehouse.EscapeLikePattern(q.PathPrefix)
	table := quoteIdentifier(r.tableName)

	var query string
	var args []any

	if q.Cursor == "" {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE path LIKE ? || '%%' ESCAPE '\'
			ORDER BY created_at, path
			LIMIT ?
		`, selectColumns, table)
		args = []any{escapedPrefix, limit + 1}
	} else {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE path LIKE ? || '%%' ESCAPE '\' AND (created_at, path) > (?, ?)
			ORDER BY created_at, path
			LIMIT ?
		`, selectColumns, table)
		args = []any{escapedPrefix, formatTime(cursor.CreatedAt), cursor.Path, limit + 1}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return storehouse.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]storehouse.LedgerEntry, 0, limit)
	for rows.Next() {
		e, scanErr := scanEntry(rows)
		if scanErr != nil {
			return storehouse.ListResult{}, fmt.Errorf("list: scan: %w", scanErr)
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
