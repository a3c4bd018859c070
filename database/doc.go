// Package database connects the commit ledger to its backing store.
//
// Two backends are supported and both are migrated and schema-checked on
// connect:
//
//   - PostgreSQL, through a pgx connection pool
//   - SQLite, through modernc.org/sqlite
//
// # Usage
//
//	cfg := database.Config{
//	    Type:   "sqlite",
//	    DSN:    "storehouse.db",
//	    Tables: storehouse.Tables{Ledger: "storehouse_ledger"},
//	}
//
//	repo, cleanup, err := database.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
package database
