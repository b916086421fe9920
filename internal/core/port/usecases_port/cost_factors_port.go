package usecases_port

import (
	"context"

	"cost-engine-service/internal/core/domain"
)

type GetCostFactorsUseCase interface {
	GetCostFactors(ctx context.Context, q domain.CostFactorQuery) (*domain.CostFactorView, error)
}

type CostFactorSourcesUseCase interface {
	ActiveSource(ctx context.Context) (string, int, error)
	ListSources(ctx context.Context) ([]domain.SourceInfo, error)
}

type SelectCostFactorSourceUseCase interface {
	Execute(ctx context.Context, source string) error
}

type ImportCostFactorsUseCase interface {
	Execute(ctx context.Context, source string, raw []byte) (*domain.CostFactorSet, error)
}

type ClearFactorCacheUseCase interface {
	ClearCache()
}
