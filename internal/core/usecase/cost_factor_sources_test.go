package usecase

import (
	"context"
	"errors"
	"testing"

	"cost-engine-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveSourceAndList(t *testing.T) {
	uc := NewListCostFactorSourcesUseCase(loaderConfig())
	ctx := context.Background()

	name, minutes, err := uc.ActiveSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, "marshallSwift", name)
	assert.Equal(t, 10, minutes)

	sources, err := uc.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, "archive", sources[0].Name)

	broken := NewListCostFactorSourcesUseCase(&fakeConfig{loadErr: errStorage})
	_, _, err = broken.ActiveSource(ctx)
	assert.ErrorIs(t, err, errStorage)
}

func TestSelectSource_PersistsClearsAndPublishes(t *testing.T) {
	cfg := loaderConfig()
	loader := &fakeLoader{}
	publisher := &fakePublisher{}
	uc := NewSelectCostFactorSourceUseCase(cfg, loader, publisher)

	require.NoError(t, uc.Execute(context.Background(), "countyCustom"))

	assert.Equal(t, []string{"countyCustom"}, cfg.setCalls)
	assert.Equal(t, 1, loader.cleared)
	assert.Equal(t, []publishedChange{{previous: "marshallSwift", current: "countyCustom"}}, publisher.published)
}

func TestSelectSource_SameSourceDoesNotPublish(t *testing.T) {
	publisher := &fakePublisher{}
	loader := &fakeLoader{}
	uc := NewSelectCostFactorSourceUseCase(loaderConfig(), loader, publisher)

	require.NoError(t, uc.Execute(context.Background(), "marshallSwift"))
	assert.Empty(t, publisher.published)
	assert.Equal(t, 1, loader.cleared)
}

func TestSelectSource_PublishFailureIsNotFatal(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("channel closed")}
	uc := NewSelectCostFactorSourceUseCase(loaderConfig(), &fakeLoader{}, publisher)

	assert.NoError(t, uc.Execute(context.Background(), "countyCustom"))
	assert.Len(t, publisher.published, 1)
}

func TestSelectSource_Rejections(t *testing.T) {
	ctx := context.Background()

	for _, source := range []string{"", "archive", "rsMeans"} {
		cfg := loaderConfig()
		uc := NewSelectCostFactorSourceUseCase(cfg, &fakeLoader{}, &fakePublisher{})
		err := uc.Execute(ctx, source)
		assert.ErrorIs(t, err, domain.ErrValidation, source)
		assert.Empty(t, cfg.setCalls, source)
	}

	cfg := loaderConfig()
	cfg.setErr = errStorage
	loader := &fakeLoader{}
	err := NewSelectCostFactorSourceUseCase(cfg, loader, &fakePublisher{}).Execute(ctx, "countyCustom")
	assert.ErrorIs(t, err, errStorage)
	assert.Zero(t, loader.cleared)
}

func TestImportCostFactors(t *testing.T) {
	cfg := loaderConfig()
	settings := newFakeSettings()
	cache := newMapCache()
	cache.Set(factorCachePrefix+"countyCustom", "stale")
	cache.Set(factorCachePrefix+"marshallSwift", "keep")
	uc := NewImportCostFactorsUseCase(cfg, settings, fakeValidator{}, cache)
	ctx := context.Background()

	doc := []byte(`{"year": 2026, "baseRates": {"R1": 160}}`)
	set, err := uc.Execute(ctx, "countyCustom", doc)
	require.NoError(t, err)
	assert.Equal(t, 2026, set.Year)
	assert.Equal(t, doc, settings.rows[domain.SettingsCategoryCostFactors+"/countyCustom"])
	assert.Equal(t, []string{factorCachePrefix + "marshallSwift"}, cache.keys())
}

func TestImportCostFactors_Rejections(t *testing.T) {
	ctx := context.Background()
	settings := newFakeSettings()
	uc := NewImportCostFactorsUseCase(loaderConfig(), settings, fakeValidator{}, newMapCache())

	_, err := uc.Execute(ctx, "marshallSwift", []byte(`{}`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.Execute(ctx, "countyCustom", []byte(`{"agingFactors": {"75+": 0}}`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.Execute(ctx, "countyCustom", []byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, settings.rows)

	settings.saveErr = errStorage
	_, err = uc.Execute(ctx, "countyCustom", []byte(`{}`))
	assert.ErrorIs(t, err, errStorage)
}
