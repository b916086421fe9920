package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SettingsRepository keeps the category/key settings table in a local SQLite
// file. It is used when no PostgreSQL database is configured.
type SettingsRepository struct {
	db   *sql.DB
	path string
}

func NewSettingsRepository(path string) (*SettingsRepository, error) {
	if path == "" {
		path = "cost-engine.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single connection: writers must not race for the file lock
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		category   TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      BLOB NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (category, key)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create settings table: %w", err)
	}
	return &SettingsRepository{db: db, path: path}, nil
}

func (r *SettingsRepository) GetSetting(ctx context.Context, category, key string) ([]byte, bool, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE category = ? AND key = ?`, category, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read setting %s/%s: %w", category, key, err)
	}
	return value, true, nil
}

func (r *SettingsRepository) SaveSetting(ctx context.Context, category, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (category, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (category, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		category, key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save setting %s/%s: %w", category, key, err)
	}
	return nil
}

func (r *SettingsRepository) Path() string { return r.path }

func (r *SettingsRepository) Close() error {
	return r.db.Close()
}
