package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The property/geography tables (regions, municipalities, neighborhoods,
// properties, property_value_history) belong to the assessment database and
// are only read here. These are the tables this service owns.
var ownedSchema = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		category   TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (category, key)
	)`,
	`CREATE TABLE IF NOT EXISTS what_if_scenarios (
		id             UUID PRIMARY KEY,
		name           TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		base_cost      DOUBLE PRECISION NOT NULL,
		square_footage DOUBLE PRECISION NOT NULL,
		complexity     DOUBLE PRECISION NOT NULL,
		region         TEXT NOT NULL DEFAULT '',
		results        JSONB NOT NULL,
		is_saved       BOOLEAN NOT NULL DEFAULT false,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_what_if_scenarios_saved ON what_if_scenarios (is_saved, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS scenario_variations (
		id                UUID PRIMARY KEY,
		scenario_id       UUID NOT NULL REFERENCES what_if_scenarios (id) ON DELETE CASCADE,
		name              TEXT NOT NULL,
		parameter_key     TEXT NOT NULL,
		original_value    JSONB NOT NULL,
		new_value         JSONB NOT NULL,
		impact_value      DOUBLE PRECISION NOT NULL,
		impact_percentage DOUBLE PRECISION NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scenario_variations_scenario ON scenario_variations (scenario_id, created_at)`,
}

// EnsureSchema creates the service-owned tables when they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range ownedSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
