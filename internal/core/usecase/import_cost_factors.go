package usecase

import (
	"context"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"
)

// ImportCostFactorsUseCase stores a factor-set document as the settings row
// behind a database-backed source.
type ImportCostFactorsUseCase struct {
	config    port.CostFactorConfigPort
	settings  port.SettingsRepositoryPort
	validator port.FactorSetValidatorPort
	cache     port.CachePort
}

func NewImportCostFactorsUseCase(
	config port.CostFactorConfigPort,
	settings port.SettingsRepositoryPort,
	validator port.FactorSetValidatorPort,
	cache port.CachePort,
) *ImportCostFactorsUseCase {
	return &ImportCostFactorsUseCase{config: config, settings: settings, validator: validator, cache: cache}
}

func (uc *ImportCostFactorsUseCase) Execute(ctx context.Context, source string, raw []byte) (*domain.CostFactorSet, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "ImportCostFactors",
		"source":   source,
	})

	ucLogger.Info("Use case started", nil)

	cfg, err := uc.config.Load(ctx)
	if err != nil {
		ucLogger.Error("Failed to read cost factor configuration", err, nil)
		return nil, err
	}
	desc, ok := cfg.Sources[source]
	if !ok || desc.Kind != domain.SourceKindDatabase {
		return nil, domain.ValidationError("source %q is not a database-backed source", source)
	}

	set, err := decodeFactorSet(source, raw, uc.validator)
	if err != nil {
		ucLogger.Warn("Rejected factor set document", port.Fields{"reason": err.Error()})
		return nil, domain.ValidationError("%v", err)
	}

	key := desc.Key
	if key == "" {
		key = source
	}
	if err := uc.settings.SaveSetting(ctx, domain.SettingsCategoryCostFactors, key, raw); err != nil {
		ucLogger.Error("Failed to store factor set", err, nil)
		return nil, err
	}
	uc.cache.Invalidate(factorCachePrefix + source)

	ucLogger.Info("Use case finished successfully", port.Fields{"year": set.Year})
	return set, nil
}
