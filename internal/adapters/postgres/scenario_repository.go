package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const scenarioColumns = `id, name, description, base_cost, square_footage, complexity, region, results, is_saved, created_at, updated_at`

const variationColumns = `id, scenario_id, name, parameter_key, original_value, new_value, impact_value, impact_percentage, created_at`

// ScenarioRepository stores what-if scenarios and their variations.
type ScenarioRepository struct {
	pool *pgxpool.Pool
}

func NewScenarioRepository(pool *pgxpool.Pool) (*ScenarioRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	return &ScenarioRepository{pool: pool}, nil
}

func (r *ScenarioRepository) CreateScenario(ctx context.Context, s *domain.Scenario) error {
	results, err := json.Marshal(s.Results)
	if err != nil {
		return fmt.Errorf("failed to encode scenario results: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO what_if_scenarios (`+scenarioColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.Name, s.Description,
		s.Parameters.BaseCost, s.Parameters.SquareFootage, s.Parameters.Complexity, s.Parameters.Region,
		results, s.IsSaved, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scenario: %w", err)
	}
	return nil
}

func scanScenario(row pgx.Row) (*domain.Scenario, error) {
	var (
		s       domain.Scenario
		results []byte
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.Description,
		&s.Parameters.BaseCost, &s.Parameters.SquareFootage, &s.Parameters.Complexity, &s.Parameters.Region,
		&results, &s.IsSaved, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(results, &s.Results); err != nil {
		return nil, fmt.Errorf("failed to decode scenario results: %w", err)
	}
	return &s, nil
}

func (r *ScenarioRepository) GetScenario(ctx context.Context, id uuid.UUID) (*domain.Scenario, error) {
	s, err := scanScenario(r.pool.QueryRow(ctx,
		`SELECT `+scenarioColumns+` FROM what_if_scenarios WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScenarioNotFound
		}
		return nil, fmt.Errorf("failed to get scenario %s: %w", id, err)
	}
	return s, nil
}

func (r *ScenarioRepository) ListScenarios(ctx context.Context, filter domain.ScenarioFilter) ([]domain.Scenario, int, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "ScenarioRepository",
		"method":    "ListScenarios",
	})

	qb := newQueryBuilder()
	if filter.SavedOnly {
		qb.addCondition("%s = $%d", "is_saved", true)
	}
	where, args := qb.build()

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM what_if_scenarios "+where, args...).Scan(&total); err != nil {
		repoLogger.Error("Failed to count scenarios", err, nil)
		return nil, 0, fmt.Errorf("failed to count scenarios: %w", err)
	}
	if total == 0 {
		return []domain.Scenario{}, 0, nil
	}

	query := fmt.Sprintf("SELECT %s FROM what_if_scenarios %s ORDER BY updated_at DESC, id ASC LIMIT $%d OFFSET $%d",
		scenarioColumns, where, qb.argID, qb.argID+1)
	rows, err := r.pool.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		repoLogger.Error("Failed to list scenarios", err, nil)
		return nil, 0, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Scenario, 0, filter.Limit)
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan scenario: %w", err)
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate scenarios: %w", err)
	}
	return items, total, nil
}

// UpdateScenario stores the scenario fields and the recomputed impact of
// every variation carried in s.Variations, in one transaction.
func (r *ScenarioRepository) UpdateScenario(ctx context.Context, s *domain.Scenario) error {
	results, err := json.Marshal(s.Results)
	if err != nil {
		return fmt.Errorf("failed to encode scenario results: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE what_if_scenarios
		SET name = $2, description = $3, base_cost = $4, square_footage = $5, complexity = $6,
		    region = $7, results = $8, is_saved = $9, updated_at = $10
		WHERE id = $1`,
		s.ID, s.Name, s.Description,
		s.Parameters.BaseCost, s.Parameters.SquareFootage, s.Parameters.Complexity, s.Parameters.Region,
		results, s.IsSaved, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update scenario: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScenarioNotFound
	}

	for _, v := range s.Variations {
		original, err := json.Marshal(v.OriginalValue)
		if err != nil {
			return fmt.Errorf("failed to encode variation value: %w", err)
		}
		_, err = tx.Exec(ctx, `
			UPDATE scenario_variations
			SET original_value = $3, impact_value = $4, impact_percentage = $5
			WHERE id = $1 AND scenario_id = $2`,
			v.ID, s.ID, original, v.ImpactValue, v.ImpactPercentage,
		)
		if err != nil {
			return fmt.Errorf("failed to update variation %s: %w", v.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteScenario removes the scenario; variations are removed by the FK cascade.
func (r *ScenarioRepository) DeleteScenario(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM what_if_scenarios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScenarioNotFound
	}
	return nil
}

// AddVariation inserts v and rewrites the scenario results from the
// variations committed alongside it. The scenario row is locked for the
// duration so concurrent writers serialise on it.
func (r *ScenarioRepository) AddVariation(ctx context.Context, v *domain.Variation) (*domain.Scenario, error) {
	original, err := json.Marshal(v.OriginalValue)
	if err != nil {
		return nil, fmt.Errorf("failed to encode variation value: %w", err)
	}
	newValue, err := json.Marshal(v.NewValue)
	if err != nil {
		return nil, fmt.Errorf("failed to encode variation value: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	s, err := lockScenario(ctx, tx, v.ScenarioID)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO scenario_variations (`+variationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v.ID, v.ScenarioID, v.Name, v.ParameterKey, original, newValue, v.ImpactValue, v.ImpactPercentage, v.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert variation: %w", err)
	}
	if err := refreshResults(ctx, tx, s, v.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s, nil
}

// RemoveVariation deletes the variation and rewrites the scenario results
// under the same row lock as AddVariation. at becomes the scenario's updated_at.
func (r *ScenarioRepository) RemoveVariation(ctx context.Context, scenarioID, variationID uuid.UUID, at time.Time) (*domain.Scenario, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	s, err := lockScenario(ctx, tx, scenarioID)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM scenario_variations WHERE id = $1 AND scenario_id = $2`, variationID, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete variation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrVariationNotFound
	}
	if err := refreshResults(ctx, tx, s, at); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s, nil
}

func lockScenario(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Scenario, error) {
	s, err := scanScenario(tx.QueryRow(ctx,
		`SELECT `+scenarioColumns+` FROM what_if_scenarios WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScenarioNotFound
		}
		return nil, fmt.Errorf("failed to lock scenario %s: %w", id, err)
	}
	return s, nil
}

// refreshResults recomputes s.Results from the variations visible to tx and
// stores them. s is updated in place.
func refreshResults(ctx context.Context, tx pgx.Tx, s *domain.Scenario, at time.Time) error {
	variations, err := queryVariations(ctx, tx, s.ID)
	if err != nil {
		return err
	}
	s.Variations = variations
	s.Results = domain.RecalculateResults(s.Parameters, variations)
	s.UpdatedAt = at

	raw, err := json.Marshal(s.Results)
	if err != nil {
		return fmt.Errorf("failed to encode scenario results: %w", err)
	}
	tag, err := tx.Exec(ctx, `UPDATE what_if_scenarios SET results = $2, updated_at = $3 WHERE id = $1`, s.ID, raw, at)
	if err != nil {
		return fmt.Errorf("failed to update scenario results: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScenarioNotFound
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *ScenarioRepository) ListVariations(ctx context.Context, scenarioID uuid.UUID) ([]domain.Variation, error) {
	return queryVariations(ctx, r.pool, scenarioID)
}

func queryVariations(ctx context.Context, q querier, scenarioID uuid.UUID) ([]domain.Variation, error) {
	rows, err := q.Query(ctx,
		`SELECT `+variationColumns+` FROM scenario_variations WHERE scenario_id = $1 ORDER BY created_at ASC, id ASC`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variations: %w", err)
	}
	defer rows.Close()

	items := []domain.Variation{}
	for rows.Next() {
		var (
			v                  domain.Variation
			original, newValue []byte
		)
		if err := rows.Scan(&v.ID, &v.ScenarioID, &v.Name, &v.ParameterKey, &original, &newValue,
			&v.ImpactValue, &v.ImpactPercentage, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan variation: %w", err)
		}
		if err := json.Unmarshal(original, &v.OriginalValue); err != nil {
			return nil, fmt.Errorf("failed to decode variation value: %w", err)
		}
		if err := json.Unmarshal(newValue, &v.NewValue); err != nil {
			return nil, fmt.Errorf("failed to decode variation value: %w", err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate variations: %w", err)
	}
	return items, nil
}
