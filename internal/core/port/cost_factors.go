package port

import (
	"context"

	"cost-engine-service/internal/core/domain"
)

// CostFactorConfigPort reads and updates the cost-factor section of the configuration file.
type CostFactorConfigPort interface {
	Load(ctx context.Context) (domain.CostFactorConfig, error)
	SetActiveSource(ctx context.Context, source string) error
}

// FactorSetReaderPort fetches the raw JSON document of a factor set from one kind of store.
// A missing document must be reported as domain.ErrSourceNotConfigured.
type FactorSetReaderPort interface {
	ReadFactorSet(ctx context.Context, name string, desc domain.SourceDescriptor) ([]byte, error)
}

// FactorSetValidatorPort checks a raw factor-set document before it is decoded.
type FactorSetValidatorPort interface {
	ValidateFactorSet(raw []byte) error
}

// SettingsRepositoryPort is the category/key settings table.
type SettingsRepositoryPort interface {
	GetSetting(ctx context.Context, category, key string) ([]byte, bool, error)
	SaveSetting(ctx context.Context, category, key string, value []byte) error
}

// CostFactorLoaderPort is what consumers of factor sets depend on.
type CostFactorLoaderPort interface {
	Load(ctx context.Context, source string) (*domain.CostFactorSet, error)
	ClearCache()
}
