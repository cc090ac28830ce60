package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all gestion tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	// Origin-scoped key/value storage (session token and friends).
	`CREATE TABLE IF NOT EXISTS storage (
		origin     TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (origin, key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_storage_origin ON storage(origin)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
