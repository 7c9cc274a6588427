package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Eco-Seed store.
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
    current_balance         BIGINT NOT NULL DEFAULT 0,
    secondary_balance       BIGINT NOT NULL DEFAULT 0,
    last_sequence           BIGINT NOT NULL DEFAULT 0,
    lifetime_carbon_saved   DOUBLE PRECISION NOT NULL DEFAULT 0,
    lifetime_activity_count BIGINT NOT NULL DEFAULT 0,
    monthly_carbon_saved    DOUBLE PRECISION NOT NULL DEFAULT 0,
    monthly_activity_count  BIGINT NOT NULL DEFAULT 0,
    counter_month           TEXT NOT NULL DEFAULT '',
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT ecoseed_profiles_balance_nonneg CHECK (current_balance >= 0),
    CONSTRAINT ecoseed_profiles_secondary_nonneg CHECK (secondary_balance >= 0)
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
    sequence      BIGINT NOT NULL,
    direction     TEXT NOT NULL CHECK (direction IN ('EARN', 'USE', 'CONVERT')),
    category      TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    amount        BIGINT NOT NULL CHECK (amount <> 0),
    balance_after BIGINT NOT NULL CHECK (balance_after >= 0),
    occurred_at   TIMESTAMPTZ NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ecoseed_entries_member_seq ON ecoseed_entries (member_ref, sequence);
CREATE INDEX IF NOT EXISTS idx_ecoseed_entries_member_time ON ecoseed_entries (member_ref, occurred_at DESC, sequence DESC);
CREATE INDEX IF NOT EXISTS idx_ecoseed_entries_member_cat ON ecoseed_entries (member_ref, category, occurred_at DESC);
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
