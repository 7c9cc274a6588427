package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Eco-Seed store (SQLite).
var Migrations = migrate.NewGroup("ecoseed")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_ecoseed_profiles",
			Version: "20250301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ecoseed_profiles (
    id                      TEXT PRIMARY KEY,
    member_ref              TEXT NOT NULL,
    nickname                TEXT NOT NULL DEFAULT '',
    current_balance         INTEGER NOT NULL DEFAULT 0 CHECK (current_balance >= 0),
    secondary_balance       INTEGER NOT NULL DEFAULT 0 CHECK (secondary_balance >= 0),
    last_sequence           INTEGER NOT NULL DEFAULT 0,
    lifetime_carbon_saved   REAL NOT NULL DEFAULT 0,
    lifetime_activity_count INTEGER NOT NULL DEFAULT 0,
    monthly_carbon_saved    REAL NOT NULL DEFAULT 0,
    monthly_activity_count  INTEGER NOT NULL DEFAULT 0,
    counter_month           TEXT NOT NULL DEFAULT '',
    created_at              TIMESTAMP NOT NULL,
    updated_at              TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ecoseed_profiles_member ON ecoseed_profiles (member_ref);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS ecoseed_profiles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_ecoseed_entries",
			Version: "20250301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ecoseed_entries (
    id            TEXT PRIMARY KEY,
    member_ref    TEXT NOT NULL REFERENCES ecoseed_profiles (member_ref),
    sequence      INTEGER NOT NULL,
    direction     TEXT NOT NULL CHECK (direction IN ('EARN', 'USE', 'CONVERT')),
    category      TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    amount        INTEGER NOT NULL CHECK (amount <> 0),
    balance_after INTEGER NOT NULL CHECK (balance_after >= 0),
    occurred_at   INTEGER NOT NULL,
    created_at    TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ecoseed_entries_member_seq ON ecoseed_entries (member_ref, sequence);
CREATE INDEX IF NOT EXISTS idx_ecoseed_entries_member_time ON ecoseed_entries (member_ref, occurred_at);
CREATE INDEX IF NOT EXISTS idx_ecoseed_entries_member_cat ON ecoseed_entries (member_ref, category, occurred_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS ecoseed_entries`)
				return err
			},
		},
	)
}
