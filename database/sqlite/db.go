package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sagarc03/storehouse"
)

// ledgerAffinity is the declared type of every column the repo selects.
var ledgerAffinity = map[string]string{
	"id":           "TEXT",
	"path":         "TEXT",
	"location":     "TEXT",
	"source":       "TEXT",
	"url":          "TEXT",
	"content_type": "TEXT",
	"encoding":     "TEXT",
	"size_bytes":   "INTEGER",
	"created_at":   "TEXT",
	"updated_at":   "TEXT",
}

type ledgerColumn struct {
	declType string
	notNull  bool
}

// ValidateSchema checks that the ledger table carries every column Record and
// List read, with the type and NOT NULL constraint the migration declares.
func ValidateSchema(ctx context.Context, db *sql.DB, tables storehouse.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	columns, err := ledgerColumns(ctx, db, tables.Ledger)
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Ledger, err)
	}
	if len(columns) == 0 {
		return fmt.Errorf("validate schema: ledger table %s does not exist", tables.Ledger)
	}

	var problems []error
	for _, name := range strings.Split(selectColumns, ", ") {
		col, ok := columns[name]
		switch {
		case !ok:
			problems = append(problems, fmt.Errorf("column %s is missing", name))
		case !strings.EqualFold(col.declType, ledgerAffinity[name]):
			problems = append(problems, fmt.Errorf("column %s is %s, want %s", name, col.declType, ledgerAffinity[name]))
		case !col.notNull:
			problems = append(problems, fmt.Errorf("column %s must be NOT NULL", name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("validate schema %s: %w", tables.Ledger, errors.Join(problems...))
	}

	return nil
}

// ledgerColumns reads the table's columns. A missing table yields no rows.
func ledgerColumns(ctx context.Context, db *sql.DB, table string) (map[string]ledgerColumn, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, type, "notnull" FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns := make(map[string]ledgerColumn)
	for rows.Next() {
		var name, declType string
		var notNull int
		if err := rows.Scan(&name, &declType, &notNull); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns[name] = ledgerColumn{declType: declType, notNull: notNull == 1}
	}

	return columns, rows.Err()
}
