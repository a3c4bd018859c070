package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/storehouse"
)

// Migrate creates every table the ledger needs. It is safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables storehouse.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := createLedgerTable(ctx, pool, tables.Ledger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

// DropTables drops the ledger tables.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables storehouse.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s", pgx.Identifier{tables.Ledger}.Sanitize())
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	return nil
}

func createLedgerTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexList := pgx.Identifier{fmt.Sprintf("idx_%s_list", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			path TEXT NOT NULL UNIQUE,
			location TEXT NOT NULL,
			source TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL,
			encoding TEXT NOT NULL DEFAULT '',
			size_bytes BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (created_at, path);
	`,
		quotedTable,
		indexList, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}
	return nil
}
