package usecase

import (
	"context"
	"fmt"

	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"
)

// SettingsFactorSetReader serves database-backed sources from the settings table.
type SettingsFactorSetReader struct {
	settings port.SettingsRepositoryPort
}

func NewSettingsFactorSetReader(settings port.SettingsRepositoryPort) *SettingsFactorSetReader {
	return &SettingsFactorSetReader{settings: settings}
}

func (r *SettingsFactorSetReader) ReadFactorSet(ctx context.Context, name string, desc domain.SourceDescriptor) ([]byte, error) {
	key := desc.Key
	if key == "" {
		key = name
	}
	raw, ok, err := r.settings.GetSetting(ctx, domain.SettingsCategoryCostFactors, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no settings row %s/%s", domain.ErrSourceNotConfigured, domain.SettingsCategoryCostFactors, key)
	}
	return raw, nil
}
