package grantkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Migrations returns all database migrations required for GrantKit.
// Use RunMigrations, or db.Migrate(ctx, grantkit.Migrations()) directly, to
// apply them.
func Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "grantkit-001",
			Description: "Create privilege_records table",
			SQL: `
                CREATE TABLE IF NOT EXISTS privilege_records (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    relation TEXT NOT NULL,
                    actor_id TEXT NOT NULL,
                    target_id TEXT NOT NULL,
                    privilege SMALLINT NOT NULL,
                    grantor_id TEXT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    CONSTRAINT privilege_records_pair_key UNIQUE (relation, actor_id, target_id)
                )`,
		},
		{
			ID:          "grantkit-002",
			Description: "Create provenance_entries table",
			SQL: `
                CREATE TABLE IF NOT EXISTS provenance_entries (
                    id TEXT PRIMARY KEY,
                    relation TEXT NOT NULL,
                    actor_id TEXT NOT NULL,
                    target_id TEXT NOT NULL,
                    privilege SMALLINT NOT NULL,
                    grantor_id TEXT,
                    undone BOOLEAN NOT NULL DEFAULT FALSE,
                    start_time TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "grantkit-003",
			Description: "Create membership_requests table",
			SQL: `
                CREATE TABLE IF NOT EXISTS membership_requests (
                    id UUID PRIMARY KEY,
                    community_id TEXT NOT NULL,
                    group_id TEXT NOT NULL,
                    direction TEXT NOT NULL,
                    created_by_id TEXT NOT NULL,
                    redeemed BOOLEAN NOT NULL DEFAULT FALSE,
                    approved BOOLEAN NOT NULL DEFAULT FALSE,
                    acted_by_id TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    acted_at TIMESTAMPTZ
                )`,
		},
		{
			ID:          "grantkit-004",
			Description: "Create secondary indexes",
			SQL: `
                CREATE INDEX IF NOT EXISTS idx_privilege_records_target
                    ON privilege_records (relation, target_id, privilege);
                CREATE INDEX IF NOT EXISTS idx_privilege_records_actor
                    ON privilege_records (relation, actor_id, privilege);
                CREATE INDEX IF NOT EXISTS idx_provenance_entries_pair
                    ON provenance_entries (relation, actor_id, target_id, id DESC);
                CREATE INDEX IF NOT EXISTS idx_provenance_entries_target
                    ON provenance_entries (relation, target_id);
                CREATE INDEX IF NOT EXISTS idx_provenance_entries_grantor
                    ON provenance_entries (grantor_id);
                CREATE INDEX IF NOT EXISTS idx_membership_requests_pair
                    ON membership_requests (community_id, group_id) WHERE NOT redeemed`,
		},
	}
}

// RunMigrations applies all pending GrantKit migrations and returns the IDs
// of the migrations that were applied.
func RunMigrations(ctx context.Context, db *dbkit.DBKit) ([]string, error) {
	result, err := db.Migrate(ctx, Migrations())
	if err != nil {
		return nil, NewError(ErrStorage, "migrations failed: "+err.Error())
	}
	applied := make([]string, 0, len(result.Applied))
	for _, migration := range result.Applied {
		applied = append(applied, migration.ID)
	}
	return applied, nil
}
