package postgres

import (
	"testing"

	"cost-engine-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilder(t *testing.T) {
	where, args := newQueryBuilder().build()
	assert.Empty(t, where)
	assert.Empty(t, args)

	qb := newQueryBuilder()
	qb.addCondition("%s = $%d", "is_saved", true)
	qb.addCondition("%s >= $%d", "created_at", "2025-01-01")
	where, args = qb.build()

	assert.Equal(t, "WHERE is_saved = $1 AND created_at >= $2", where)
	assert.Equal(t, []interface{}{true, "2025-01-01"}, args)
}

func TestNilPoolRejected(t *testing.T) {
	_, err := NewScenarioRepository(nil)
	assert.Error(t, err)
	_, err = NewGeographyRepository(nil)
	assert.Error(t, err)
	_, err = NewSettingsRepository(nil)
	assert.Error(t, err)
}

func TestAliasFor(t *testing.T) {
	for _, level := range []domain.GeoLevel{domain.LevelRegion, domain.LevelMunicipality, domain.LevelNeighborhood} {
		col, err := aliasFor(level)
		require.NoError(t, err, level)
		assert.NotEmpty(t, col, level)
	}
	_, err := aliasFor(domain.LevelGeohash)
	assert.Error(t, err)
}
