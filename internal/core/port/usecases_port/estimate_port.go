package usecases_port

import (
	"context"

	"cost-engine-service/internal/core/domain"
)

type EstimateCostUseCase interface {
	Execute(ctx context.Context, req domain.CostEstimateRequest) domain.CostEstimateResult
}

type EstimateMatrixUseCase interface {
	Execute(ctx context.Context, req domain.MatrixRequest) (*domain.MatrixResult, error)
}

type EstimateBatchUseCase interface {
	Execute(ctx context.Context, reqs []domain.CostEstimateRequest) (*domain.BatchEstimateResult, error)
}
