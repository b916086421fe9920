package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/assessor")

	cfg, err := LoadConfig(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Rest.Port)
	assert.Equal(t, SettingsBackendPostgres, cfg.Settings.Backend)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, "config/terra.json", cfg.CostFactors.ConfigPath)
	assert.Equal(t, 30*time.Minute, cfg.Heatmap.CacheTTL)
	assert.Equal(t, 100.0, cfg.Impact.UnitAreaRate)
	assert.Equal(t, 0.05, cfg.Impact.RegionImpactRate)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Rest.AllowedOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/assessor")
	t.Setenv("SETTINGS_BACKEND", "SQLite")
	t.Setenv("SETTINGS_SQLITE_PATH", "/tmp/settings.db")
	t.Setenv("HEATMAP_CACHE_TTL", "15")
	t.Setenv("DATABASE_MAX_CONN_LIFETIME", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("IMPACT_UNIT_AREA_RATE", "125.5")
	t.Setenv("DATABASE_MAX_CONNS", "not-a-number")
	t.Setenv("S3_ENABLED", "true")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")

	cfg, err := LoadConfig(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, SettingsBackendSQLite, cfg.Settings.Backend)
	assert.Equal(t, "/tmp/settings.db", cfg.Settings.SQLitePath)
	assert.Equal(t, 15*time.Minute, cfg.Heatmap.CacheTTL)
	assert.Equal(t, 90*time.Second, cfg.Database.MaxConnLifetime)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Rest.AllowedOrigins)
	assert.Equal(t, 125.5, cfg.Impact.UnitAreaRate)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.True(t, cfg.S3.PathStyle)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := LoadConfig(noEnvFile(t))
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/assessor")
	t.Setenv("SETTINGS_BACKEND", "redis")
	_, err = LoadConfig(noEnvFile(t))
	assert.Error(t, err)

	t.Setenv("SETTINGS_BACKEND", "postgres")
	t.Setenv("RABBITMQ_ENABLED", "true")
	t.Setenv("RABBITMQ_URL", "")
	_, err = LoadConfig(noEnvFile(t))
	assert.Error(t, err)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://from-env/assessor")
	t.Setenv("PORT", "")
	p := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(p, []byte("PORT=9999\nDATABASE_URL=postgres://from-file/x\n"), 0o644))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	// variables already present in the environment win over the file
	assert.Equal(t, "postgres://from-env/assessor", cfg.Database.URL)
}
