package postgres

import (
	"context"
	"errors"
	"fmt"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository is the category/key settings table in PostgreSQL.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) (*SettingsRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	return &SettingsRepository{pool: pool}, nil
}

func (r *SettingsRepository) GetSetting(ctx context.Context, category, key string) ([]byte, bool, error) {
	var value []byte
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE category = $1 AND key = $2`, category, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		contextkeys.LoggerFromContext(ctx).Error("Failed to read setting", err, port.Fields{
			"component": "SettingsRepository",
			"category":  category,
			"key":       key,
		})
		return nil, false, fmt.Errorf("failed to read setting %s/%s: %w", category, key, err)
	}
	return value, true, nil
}

func (r *SettingsRepository) SaveSetting(ctx context.Context, category, key string, value []byte) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (category, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (category, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		category, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to save setting %s/%s: %w", category, key, err)
	}
	return nil
}
