package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"

	// Registers the "pg" migration executor.
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate"
)

// Migrations is the grove migration group for the shelf store.
var Migrations = migrate.NewGroup("shelf")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_shelf_events",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS shelf_events (
    sequence    BIGINT PRIMARY KEY,
    id          TEXT NOT NULL,
    kind        TEXT NOT NULL,
    caller      TEXT NOT NULL DEFAULT '',
    payload     JSONB NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_shelf_events_id ON shelf_events (id);
CREATE INDEX IF NOT EXISTS idx_shelf_events_kind ON shelf_events (kind, sequence);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS shelf_events`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_shelf_snapshots",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS shelf_snapshots (
    id        TEXT PRIMARY KEY,
    sequence  BIGINT NOT NULL,
    owner     TEXT NOT NULL,
    items     JSONB NOT NULL DEFAULT '[]',
    accounts  JSONB NOT NULL DEFAULT '[]',
    taken_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_shelf_snapshots_sequence ON shelf_snapshots (sequence DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS shelf_snapshots`)
				return err
			},
		},
	)
}
