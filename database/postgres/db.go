package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/storehouse"
)

// ledgerTypes is the information_schema data_type of every column the repo
// selects.
var ledgerTypes = map[string]string{
	"id":           "uuid",
	"path":         "text",
	"location":     "text",
	"source":       "text",
	"url":          "text",
	"content_type": "text",
	"encoding":     "text",
	"size_bytes":   "bigint",
	"created_at":   "timestamp with time zone",
	"updated_at":   "timestamp with time zone",
}

// ValidateSchema checks that the ledger table in the current schema carries
// every column Record and List read, typed and NOT NULL as migrated.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables storehouse.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`, tables.Ledger)
	if err != nil {
		return fmt.Errorf("validate schema %s: read columns: %w", tables.Ledger, err)
	}
	defer rows.Close()

	type column struct {
		dataType string
		nullable bool
	}
	columns := make(map[string]column)
	for rows.Next() {
		var name string
		var c column
		if err := rows.Scan(&name, &c.dataType, &c.nullable); err != nil {
			return fmt.Errorf("validate schema %s: scan column: %w", tables.Ledger, err)
		}
		columns[name] = c
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Ledger, err)
	}
	if len(columns) == 0 {
		return fmt.Errorf("validate schema: ledger table %s does not exist", tables.Ledger)
	}

	var problems []error
	for _, name := range strings.Split(selectColumns, ", ") {
		c, ok := columns[name]
		switch {
		case !ok:
			problems = append(problems, fmt.Errorf("column %s is missing", name))
		case c.dataType != ledgerTypes[name]:
			problems = append(problems, fmt.Errorf("column %s is %s, want %s", name, c.dataType, ledgerTypes[name]))
		case c.nullable:
			problems = append(problems, fmt.Errorf("column %s must be NOT NULL", name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("validate schema %s: %w", tables.Ledger, errors.Join(problems...))
	}

	return nil
}
