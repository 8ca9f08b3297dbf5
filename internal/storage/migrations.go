package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS collections (
		address         TEXT PRIMARY KEY,
		network         TEXT NOT NULL,
		owner           TEXT NOT NULL,
		name            TEXT NOT NULL,
		description     TEXT NOT NULL,
		image           TEXT NOT NULL,
		royalty_factor  INTEGER NOT NULL,
		royalty_base    INTEGER NOT NULL,
		royalty_address TEXT NOT NULL,
		content_boc     BYTEA NOT NULL,
		deployed_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS mints (
		added_id     BIGSERIAL PRIMARY KEY,
		id           UUID NOT NULL UNIQUE,
		collection   TEXT NOT NULL,
		item_index   BIGINT NOT NULL,
		item_address TEXT NOT NULL,
		owner        TEXT NOT NULL,
		query_id     BIGINT NOT NULL,
		name         TEXT NOT NULL,
		description  TEXT NOT NULL,
		image        TEXT NOT NULL,
		exit_code    INTEGER,
		tx_hash      TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mints_collection ON mints (collection, added_id)`,
}

// RunMigrations creates the ledger tables. It is safe to run repeatedly.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for i, ddl := range migrations {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
