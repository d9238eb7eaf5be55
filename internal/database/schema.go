package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. *pgxpool.Pool and pgx.Tx implement it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema is applied in order by EnsureSchema. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS inventory_snapshots (
		id          UUID PRIMARY KEY,
		item_id     TEXT NOT NULL,
		name        TEXT NOT NULL,
		quantity    TEXT NOT NULL,
		unit        TEXT NOT NULL,
		expiry_date TEXT NOT NULL,
		status      TEXT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS inventory_snapshots_item_time
		ON inventory_snapshots (item_id, recorded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS waste_events (
		id          UUID PRIMARY KEY,
		item_id     TEXT NOT NULL,
		item        TEXT NOT NULL,
		category    TEXT NOT NULL,
		quantity    DOUBLE PRECISION NOT NULL,
		unit        TEXT NOT NULL,
		reason      TEXT NOT NULL,
		cost        DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		received_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS waste_events_time
		ON waste_events (recorded_at DESC)`,
}

// EnsureSchema creates the history tables if they do not exist.
func EnsureSchema(ctx context.Context, db Execer) error {
	for i, stmt := range Schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
