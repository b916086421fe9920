package postgres

import (
	"context"
	"fmt"
	"time"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Joins from a property up to every level of the hierarchy.
const hierarchyJoins = `
	FROM properties p
	JOIN neighborhoods n ON n.id = p.neighborhood_id
	JOIN municipalities m ON m.id = n.municipality_id
	JOIN regions r ON r.id = m.region_id`

// levelAlias maps a level to the alias of its table in hierarchyJoins.
var levelAlias = map[domain.GeoLevel]string{
	domain.LevelRegion:       "r",
	domain.LevelMunicipality: "m",
	domain.LevelNeighborhood: "n",
}

// GeographyRepository aggregates appraised values over the external property schema.
type GeographyRepository struct {
	pool *pgxpool.Pool
}

func NewGeographyRepository(pool *pgxpool.Pool) (*GeographyRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	return &GeographyRepository{pool: pool}, nil
}

func aliasFor(level domain.GeoLevel) (string, error) {
	alias, ok := levelAlias[level]
	if !ok {
		return "", domain.ValidationError("level %q cannot be aggregated by hierarchy", level)
	}
	return alias, nil
}

func (r *GeographyRepository) AggregateByLevel(ctx context.Context, level domain.GeoLevel) ([]domain.GroupStats, error) {
	alias, err := aliasFor(level)
	if err != nil {
		return nil, err
	}
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "GeographyRepository",
		"method":    "AggregateByLevel",
		"level":     level,
	})

	query := fmt.Sprintf(`
		SELECT %[1]s.id::text, %[1]s.code, %[1]s.name,
		       COUNT(p.id),
		       COALESCE(AVG(p.appraised_value), 0)::float8,
		       COALESCE(AVG(p.assessed_value), 0)::float8,
		       COALESCE(MIN(p.appraised_value), 0)::float8,
		       COALESCE(MAX(p.appraised_value), 0)::float8,
		       COALESCE(SUM(p.appraised_value), 0)::float8
		%[2]s
		GROUP BY %[1]s.id, %[1]s.code, %[1]s.name
		ORDER BY %[1]s.name`, alias, hierarchyJoins)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		repoLogger.Error("Aggregation query failed", err, nil)
		return nil, fmt.Errorf("failed to aggregate %s values: %w", level, err)
	}
	defer rows.Close()

	var groups []domain.GroupStats
	for rows.Next() {
		var g domain.GroupStats
		if err := rows.Scan(&g.ID, &g.Code, &g.Name, &g.PropertyCount,
			&g.AvgAppraisedValue, &g.AvgAssessedValue, &g.MinValue, &g.MaxValue, &g.TotalValue); err != nil {
			return nil, fmt.Errorf("failed to scan %s aggregate: %w", level, err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s aggregates: %w", level, err)
	}
	repoLogger.Debug("Aggregation finished", port.Fields{"groups": len(groups)})
	return groups, nil
}

func (r *GeographyRepository) PriorAverages(ctx context.Context, level domain.GeoLevel, from, to time.Time) ([]domain.PriorAverage, error) {
	alias, err := aliasFor(level)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %[1]s.id::text, AVG(h.appraised_value)::float8
		%[2]s
		JOIN property_value_history h ON h.property_id = p.id
		WHERE h.recorded_at >= $1 AND h.recorded_at < $2
		GROUP BY %[1]s.id`, alias, hierarchyJoins)

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query prior %s averages: %w", level, err)
	}
	defer rows.Close()

	var out []domain.PriorAverage
	for rows.Next() {
		var pa domain.PriorAverage
		if err := rows.Scan(&pa.GroupID, &pa.AvgValue); err != nil {
			return nil, fmt.Errorf("failed to scan prior average: %w", err)
		}
		out = append(out, pa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prior averages: %w", err)
	}
	return out, nil
}

// ListPropertyPoints skips properties without coordinates.
func (r *GeographyRepository) ListPropertyPoints(ctx context.Context, since time.Time) ([]domain.PropertyPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.latitude::float8, p.longitude::float8,
		       COALESCE(p.appraised_value, 0)::float8, COALESCE(p.assessed_value, 0)::float8,
		       (SELECT AVG(h.appraised_value)::float8
		          FROM property_value_history h
		         WHERE h.property_id = p.id AND h.recorded_at >= $1)
		FROM properties p
		WHERE p.latitude IS NOT NULL AND p.longitude IS NOT NULL`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query property points: %w", err)
	}
	defer rows.Close()

	var points []domain.PropertyPoint
	for rows.Next() {
		var pt domain.PropertyPoint
		if err := rows.Scan(&pt.Latitude, &pt.Longitude, &pt.AppraisedValue, &pt.AssessedValue, &pt.PriorValue); err != nil {
			return nil, fmt.Errorf("failed to scan property point: %w", err)
		}
		points = append(points, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate property points: %w", err)
	}
	return points, nil
}
